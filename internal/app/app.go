package app

import (
	"context"
	"fmt"

	"github.com/1ureka/tunlink/internal/config"
	"github.com/1ureka/tunlink/internal/engine"
	"github.com/1ureka/tunlink/internal/transform"
	"github.com/1ureka/tunlink/internal/transport"
	"github.com/1ureka/tunlink/internal/tun"
	"github.com/1ureka/tunlink/internal/util"
)

// openDevice opens the tunnel interface. With an Address it is configured
// natively; without one the operator gets the manual steps, printed on
// stdout so they can be copy-pasted. addrExample keeps the guidance
// consistent with the conventional tunnel subnet; forward adds the
// gateway's packet-forwarding step.
func openDevice(o config.Options, addrExample string, forward bool) (tun.Device, error) {
	dev, err := tun.Open(tun.Config{
		Name:    o.TunName,
		Address: o.Address,
		Routes:  o.Routes,
		MTU:     o.MTU,
	})
	if err != nil {
		return nil, err
	}

	if o.Address == "" {
		fmt.Println()
		fmt.Printf("[SETUP] interface %s needs manual configuration:\n", dev.Name())
		for _, cmd := range tun.SetupCommands(dev.Name(), addrExample, forward) {
			fmt.Println("[SETUP]   " + cmd)
		}
		if !forward {
			fmt.Printf("[SETUP]   ip route add 8.8.8.8/32 dev %s   # optional: route a host via the tunnel\n", dev.Name())
		}
		fmt.Println()
	} else {
		util.LogInfo("interface %s up at %s", dev.Name(), o.Address)
	}

	return dev, nil
}

// runEngine starts the stats reporter and blocks in the forwarding engine
// until shutdown or the first fatal error.
func runEngine(ctx context.Context, dev tun.Device, link *transport.Link, tf transform.Transform) error {
	util.StartStatsReporter(ctx)
	util.LogSuccess("tunnel established with %s — forwarding traffic through %s", link.RemoteAddr(), dev.Name())
	util.LogDebug("transform: %s", tf)

	return engine.New(dev, link, tf).Run(ctx)
}
