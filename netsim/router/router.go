// SPDX-License-Identifier: GPL-3.0-or-later

// Package router provides static routing capabilities for the simulation.
package router

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"

	"github.com/rbmk-project/pkttrace/netipx"
	gonetipx "go4.org/netipx"
)

// DefaultInterface is the egress interface label of
// routes that do not specify one.
const DefaultInterface = "unknown"

// Route is a static route.
type Route struct {
	// Dest is the destination network.
	Dest netip.Prefix

	// NextHop is the next hop address.
	NextHop netip.Addr

	// Interface is the egress interface label.
	Interface string
}

// String returns the string representation of the route.
func (r Route) String() string {
	return fmt.Sprintf("%s via %s dev %s", r.Dest, r.NextHop, r.Interface)
}

var (
	// ErrInvalidRoute indicates that a [Route] is malformed.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrInvalidInterface indicates that an interface address is malformed.
	ErrInvalidInterface = errors.New("invalid interface address")
)

// Router is a router with a static routing table.
//
// Construct using [NewRouter].
//
// A [*Router] is immutable and safe for concurrent use.
type Router struct {
	// name is the unique router name.
	name string

	// ifaces contains the interface addresses.
	ifaces []netip.Addr

	// connected contains the networks attached to the interfaces.
	connected *gonetipx.IPSet

	// routes is the routing table in declaration order.
	routes []Route
}

// NewRouter creates a new [*Router].
//
// The declaration order of routes matters for tie-breaking
// routes with the same prefix length.
func NewRouter(name string, interfaces []netip.Addr, routes []Route) (*Router, error) {
	for _, addr := range interfaces {
		if !addr.IsValid() {
			return nil, fmt.Errorf("router %s: %w", name, ErrInvalidInterface)
		}
	}
	rt := make([]Route, 0, len(routes))
	for idx, route := range routes {
		if !route.Dest.IsValid() || !route.NextHop.IsValid() {
			return nil, fmt.Errorf("router %s: route #%d: %w", name, idx+1, ErrInvalidRoute)
		}
		if route.Interface == "" {
			route.Interface = DefaultInterface
		}
		rt = append(rt, route)
	}
	connected, err := netipx.ConnectedSet(interfaces...)
	if err != nil {
		return nil, fmt.Errorf("router %s: %w", name, err)
	}
	return &Router{
		name:      name,
		ifaces:    slices.Clone(interfaces),
		connected: connected,
		routes:    rt,
	}, nil
}

// Name returns the router name.
func (r *Router) Name() string {
	return r.name
}

// Interfaces returns a copy of the interface addresses.
func (r *Router) Interfaces() []netip.Addr {
	return slices.Clone(r.ifaces)
}

// Routes returns a copy of the routing table.
func (r *Router) Routes() []Route {
	return slices.Clone(r.routes)
}

// LongestPrefixMatch returns the most specific route for dst.
//
// When several routes have the same, longest prefix length, the
// first declared one wins. The boolean result is false when no
// route contains dst.
func (r *Router) LongestPrefixMatch(dst netip.Addr) (Route, bool) {
	var (
		best  Route
		found bool
	)
	bestBits := -1
	for _, route := range r.routes {
		if !route.Dest.Contains(dst) {
			continue
		}
		if bits := route.Dest.Bits(); bits > bestBits {
			best, found, bestBits = route, true, bits
		}
	}
	return best, found
}

// IsConnectedTo returns whether host lives in the /24 network
// of any of the router interfaces.
func (r *Router) IsConnectedTo(host netip.Addr) bool {
	return r.connected.Contains(host)
}
