package engine

import (
	"fmt"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// describePacket renders a one-line summary of an IP packet for the debug
// trace. Non-IP payloads (including garbage from a key mismatch) degrade
// to a byte count.
func describePacket(p []byte) string {
	if len(p) == 0 {
		return "empty packet"
	}

	switch p[0] >> 4 {
	case 4:
		if h, err := ipv4.ParseHeader(p); err == nil {
			return fmt.Sprintf("IPv4 %s → %s proto %d len %d", h.Src, h.Dst, h.Protocol, h.TotalLen)
		}
	case 6:
		if h, err := ipv6.ParseHeader(p); err == nil {
			return fmt.Sprintf("IPv6 %s → %s next %d len %d", h.Src, h.Dst, h.NextHeader, h.PayloadLen)
		}
	}
	return fmt.Sprintf("non-IP packet, %d bytes", len(p))
}
