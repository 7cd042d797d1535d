// Package config holds the CLI configuration types.
package config

// Role represents the endpoint's chosen role (server or client).
type Role string

const (
	RoleServer Role = "server" // bind, accept one peer
	RoleClient Role = "client" // dial out to a server
)

// Options stores all parameters gathered from CLI flags or the interactive
// prompts. Zero values mean "not set"; Default supplies the usual starting
// point.
type Options struct {
	Role Role

	ConnectAddr string // Client: "host:port" of the server to dial
	ListenAddr  string // Server: "[host]:port" to bind

	TunName string // virtual interface name, e.g. "tun0"
	Key     string // transform key, hex encoded

	Address string   // optional local CIDR for the interface, e.g. "10.8.0.1/24"
	Routes  []string // optional CIDRs routed through the interface
	MTU     int      // applied only when Address is set

	WebSocket bool // carry the channel inside a WebSocket stream
}

// Default returns the options both roles start from, matching the historical
// defaults of the tool: interface tun0, XOR key 0x42, server port 5555.
func Default() Options {
	return Options{
		ListenAddr: ":5555",
		TunName:    "tun0",
		Key:        "42",
		MTU:        1500,
	}
}
