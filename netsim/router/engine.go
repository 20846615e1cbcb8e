// SPDX-License-Identifier: GPL-3.0-or-later

package router

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
)

// ErrDuplicateRouter indicates that two routers have the same name.
var ErrDuplicateRouter = errors.New("duplicate router name")

// Engine is the registry of all the routers in a topology.
//
// Construct using [NewEngine].
//
// An [*Engine] is immutable and safe for concurrent use.
type Engine struct {
	// routers contains the routers in registry order.
	routers []*Router

	// byName maps router names to routers.
	byName map[string]*Router

	// byIface maps interface addresses to the first router owning them.
	byIface map[netip.Addr]*Router
}

// NewEngine creates a new [*Engine].
//
// The order of routers is the order used by [*Engine.FindIngressRouter].
func NewEngine(routers ...*Router) (*Engine, error) {
	e := &Engine{
		routers: slices.Clone(routers),
		byName:  make(map[string]*Router),
		byIface: make(map[netip.Addr]*Router),
	}
	for _, r := range routers {
		if _, found := e.byName[r.name]; found {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRouter, r.name)
		}
		e.byName[r.name] = r
		for _, addr := range r.ifaces {
			if _, found := e.byIface[addr]; !found {
				e.byIface[addr] = r
			}
		}
	}
	return e, nil
}

// Routers returns the routers in registry order.
func (e *Engine) Routers() []*Router {
	return slices.Clone(e.routers)
}

// Router returns the router with the given name.
func (e *Engine) Router(name string) (*Router, bool) {
	r, found := e.byName[name]
	return r, found
}

// FindIngressRouter returns the first router, in registry
// order, that is directly connected to host.
func (e *Engine) FindIngressRouter(host netip.Addr) (*Router, bool) {
	for _, r := range e.routers {
		if r.IsConnectedTo(host) {
			return r, true
		}
	}
	return nil, false
}

// FindRouterByInterface returns the router owning an
// interface whose address is exactly addr.
func (e *Engine) FindRouterByInterface(addr netip.Addr) (*Router, bool) {
	r, found := e.byIface[addr]
	return r, found
}
