// Tunlink — CLI entry point.
//
// This tool creates an encrypted point-to-point IP tunnel between two
// hosts: each side opens a local TUN interface and forwards its packets
// through a single framed TCP (or WebSocket) connection to the peer.
//
// It can be launched via subcommands (server / client) or interactively
// (no arguments).
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/tunlink/internal/app"
	"github.com/1ureka/tunlink/internal/config"
	"github.com/1ureka/tunlink/internal/transform"
	"github.com/1ureka/tunlink/internal/util"
)

var version = "dev"

var debugMode bool

func main() {
	// Root context — cancelled on Ctrl+C or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tunlink",
		Short:         "Point-to-point IP tunnel over a single TCP connection",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand → interactive mode.
			return runInteractive(cmd.Context())
		},
	}

	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging (per-packet traces)")
	root.AddCommand(newServerCmd(), newClientCmd(), newVersionCmd())
	return root
}

// ---------------------------------------------------------------------------
// Subcommands
// ---------------------------------------------------------------------------

func newServerCmd() *cobra.Command {
	o := config.Default()
	o.Role = config.RoleServer

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Wait for the peer and forward packets (listening side)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRole(cmd.Context(), o)
		},
	}

	cmd.Flags().StringVarP(&o.ListenAddr, "listen", "l", o.ListenAddr, "Address to bind, [host]:port")
	addSharedFlags(cmd, &o)
	return cmd
}

func newClientCmd() *cobra.Command {
	o := config.Default()
	o.Role = config.RoleClient

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Connect to a server and forward packets (dialing side)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.ConnectAddr == "" {
				return errors.New("missing --connect address")
			}
			return runRole(cmd.Context(), o)
		},
	}

	cmd.Flags().StringVarP(&o.ConnectAddr, "connect", "c", "", "Server address to dial, host:port")
	addSharedFlags(cmd, &o)
	return cmd
}

func addSharedFlags(cmd *cobra.Command, o *config.Options) {
	f := cmd.Flags()
	f.StringVar(&o.TunName, "tun", o.TunName, "TUN interface name")
	f.StringVar(&o.Key, "key", o.Key, "Transform key, hex (2 digits = xor, 64 = chacha20)")
	f.StringVar(&o.Address, "addr", "", "CIDR to assign to the interface (configures it natively)")
	f.StringArrayVar(&o.Routes, "route", nil, "CIDR to route through the interface (repeatable)")
	f.IntVar(&o.MTU, "mtu", o.MTU, "Interface MTU, applied with --addr")
	f.BoolVar(&o.WebSocket, "ws", false, "Carry the tunnel inside WebSocket messages")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

// ---------------------------------------------------------------------------
// Run modes
// ---------------------------------------------------------------------------

// runRole dispatches to the role runner. Operator cancellation is the
// clean-shutdown path; everything else is a fatal error for main to report.
func runRole(ctx context.Context, o config.Options) error {
	if debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("tunlink — v%s", version))
	pterm.Println()

	var err error
	switch o.Role {
	case config.RoleServer:
		err = app.RunServer(ctx, o)
	default:
		err = app.RunClient(ctx, o)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	util.LogInfo("successfully closed tunnel connection")
	return nil
}

// runInteractive falls back to the interactive prompts when no subcommand
// is provided. The banner stays with runRole so it prints once per run.
func runInteractive(ctx context.Context) error {
	role, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{
			"Server — Wait for the peer to connect",
			"Client — Connect to a remote server",
		}).
		WithDefaultText("Select your role").
		Show()

	pterm.Println()

	o := config.Default()
	o.TunName = askText("TUN interface name", o.TunName)
	o.Key = askKey()

	if strings.HasPrefix(role, "Server") {
		o.Role = config.RoleServer
		o.ListenAddr = askText("Listen address ([host]:port)", o.ListenAddr)
	} else {
		o.Role = config.RoleClient
		o.ConnectAddr = askAddr("Server address to connect to (host:port)")
	}

	return runRole(ctx, o)
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// askText prompts for a value, falling back to def on empty input.
func askText(prompt, def string) string {
	raw, _ := pterm.DefaultInteractiveTextInput.
		WithDefaultText(fmt.Sprintf("%s [%s]", prompt, def)).
		Show()

	raw = strings.TrimSpace(raw)
	pterm.Println()
	if raw == "" {
		return def
	}
	return raw
}

// askAddr prompts until a plausible host:port is entered.
func askAddr(prompt string) string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()

		raw = strings.TrimSpace(raw)
		if _, _, err := net.SplitHostPort(raw); err == nil {
			pterm.Println()
			return raw
		}

		util.LogWarning("invalid address: expected host:port")
		pterm.Println()
	}
}

// askKey prompts until the key selects a transform.
func askKey() string {
	for {
		raw := askText("Transform key, hex", "42")
		if _, err := transform.FromKey(raw); err == nil {
			return raw
		}
		util.LogWarning("invalid key: need 2 or 64 hex digits")
	}
}
