package app

import (
	"context"

	"github.com/1ureka/tunlink/internal/config"
	"github.com/1ureka/tunlink/internal/transform"
	"github.com/1ureka/tunlink/internal/transport"
	"github.com/1ureka/tunlink/internal/util"
)

// RunClient orchestrates the full client lifecycle:
//  1. Select the transform from the configured key
//  2. Open (and optionally configure) the TUN interface
//  3. Dial the server — refusal is immediately fatal, there is no retry
//  4. Forward packets until shutdown or the first fatal error
func RunClient(ctx context.Context, o config.Options) error {
	// ── 1. Transform ───────────────────────────────────────────────────
	tf, err := transform.FromKey(o.Key)
	if err != nil {
		return err
	}

	// ── 2. TUN interface ───────────────────────────────────────────────
	dev, err := openDevice(o, "10.8.0.2/24", false)
	if err != nil {
		return err
	}
	defer dev.Close()

	// ── 3. Channel ─────────────────────────────────────────────────────
	util.LogInfo("connecting to %s ...", o.ConnectAddr)
	link, err := transport.Dial(ctx, o.ConnectAddr, o.WebSocket)
	if err != nil {
		return err
	}

	// ── 4. Forward ─────────────────────────────────────────────────────
	return runEngine(ctx, dev, link, tf)
}
