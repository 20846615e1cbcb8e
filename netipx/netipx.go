// SPDX-License-Identifier: GPL-3.0-or-later

// Package netipx contains [net/netip] extensions.
package netipx

import (
	"net/netip"

	"go4.org/netipx"
)

// ConnectedBits is the prefix length a router assumes for the
// network attached to each of its interfaces.
//
// Real subnet masks are not modeled: every interface is
// treated as sitting on a /24, including IPv6 interfaces.
const ConnectedBits = 24

// ParseHost parses s as an IP address literal.
//
// The boolean result is false when s is not an address literal, in
// which case the caller should treat s as a hostname to resolve.
func ParseHost(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}

// ConnectedPrefix returns the /24 network containing addr.
//
// The returned prefix is invalid when addr is invalid.
func ConnectedPrefix(addr netip.Addr) netip.Prefix {
	prefix, err := addr.Prefix(ConnectedBits)
	if err != nil {
		return netip.Prefix{}
	}
	return prefix
}

// ConnectedSet returns the set of addresses covered by the
// [ConnectedPrefix] of each of the given addresses.
func ConnectedSet(addrs ...netip.Addr) (*netipx.IPSet, error) {
	var sb netipx.IPSetBuilder
	for _, addr := range addrs {
		if prefix := ConnectedPrefix(addr); prefix.IsValid() {
			sb.AddPrefix(prefix)
		}
	}
	return sb.IPSet()
}
