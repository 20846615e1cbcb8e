// SPDX-License-Identifier: GPL-3.0-or-later

// Package packet contains [*Packet], [Event] and the related definitions.
package packet

import (
	"fmt"
	"net/netip"
	"strings"
)

// Protocol is the transport protocol of a simulated packet.
//
// Values are upper-case. Protocols other than the predefined
// ones are allowed and only match rules naming them exactly.
type Protocol string

const (
	// ProtocolTCP is the TCP protocol.
	ProtocolTCP = Protocol("TCP")

	// ProtocolUDP is the UDP protocol.
	ProtocolUDP = Protocol("UDP")

	// ProtocolAny matches any protocol in firewall rules.
	ProtocolAny = Protocol("ANY")
)

// ParseProtocol normalizes a protocol name.
//
// The empty string maps to [ProtocolAny].
func ParseProtocol(s string) Protocol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ProtocolAny
	}
	return Protocol(s)
}

// String returns the string representation of the protocol.
func (p Protocol) String() string {
	return string(p)
}

// Packet is a simulated packet.
type Packet struct {
	// SrcAddr is the source address.
	SrcAddr netip.Addr

	// DstAddr is the destination address.
	DstAddr netip.Addr

	// Protocol is the transport protocol.
	Protocol Protocol

	// DstPort is the destination port.
	DstPort uint16

	// TTL is the remaining hop budget.
	TTL int
}

// String returns the string representation of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf(
		"%s -> %s:%d protocol=%s ttl=%d",
		p.SrcAddr,
		p.DstAddr,
		p.DstPort,
		p.Protocol,
		p.TTL,
	)
}
