package tun

import "fmt"

// SetupCommands returns the manual configuration steps for an interface
// opened without an Address, in the order the operator should run them.
// addrExample is the conventional addressing for the endpoint's side of the
// tunnel subnet; forward adds the packet-forwarding step a gateway needs.
func SetupCommands(name, addrExample string, forward bool) []string {
	cmds := []string{
		fmt.Sprintf("ip addr add %s dev %s", addrExample, name),
		fmt.Sprintf("ip link set %s up", name),
	}
	if forward {
		cmds = append(cmds, "sysctl -w net.ipv4.ip_forward=1")
	}
	return cmds
}
