// Package app contains the top-level orchestration for the server and
// client roles.
package app

import (
	"context"

	"github.com/1ureka/tunlink/internal/config"
	"github.com/1ureka/tunlink/internal/transform"
	"github.com/1ureka/tunlink/internal/transport"
	"github.com/1ureka/tunlink/internal/util"
)

// RunServer orchestrates the full server lifecycle:
//  1. Select the transform from the configured key
//  2. Open (and optionally configure) the TUN interface
//  3. Bind the listen address and wait for exactly one peer
//  4. Forward packets until shutdown or the first fatal error
//
// Cancellation of ctx is the operator's shutdown path; callers decide how
// to present the resulting context.Canceled.
func RunServer(ctx context.Context, o config.Options) error {
	// ── 1. Transform ───────────────────────────────────────────────────
	tf, err := transform.FromKey(o.Key)
	if err != nil {
		return err
	}

	// ── 2. TUN interface ───────────────────────────────────────────────
	dev, err := openDevice(o, "10.8.0.1/24", true)
	if err != nil {
		return err
	}
	defer dev.Close()

	// ── 3. Channel ─────────────────────────────────────────────────────
	pl, err := transport.NewPeerListener(o.ListenAddr, o.WebSocket)
	if err != nil {
		return err
	}
	defer pl.Close()

	util.LogInfo("listening on %s, waiting for the peer ...", pl.Addr())
	link, err := pl.AwaitLink(ctx)
	if err != nil {
		return err
	}
	util.LogInfo("peer connected from %s", link.RemoteAddr())

	// ── 4. Forward ─────────────────────────────────────────────────────
	return runEngine(ctx, dev, link, tf)
}
