// SPDX-License-Identifier: GPL-3.0-or-later

package netsim

import (
	"log/slog"
	"time"

	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/pkttrace/config"
	"github.com/rbmk-project/pkttrace/netsim/dns"
	"github.com/rbmk-project/pkttrace/netsim/firewall"
	"github.com/rbmk-project/pkttrace/netsim/router"
)

// Scenario bundles the immutable engines of a topology.
//
// Build a [*Scenario] once and share it: the engines are never
// modified after construction and [*Scenario.Trace] keeps all
// the per-trace state on its own stack, so a [*Scenario] is safe
// for concurrent use as long as one does not modify its fields.
type Scenario struct {
	// Logger is the optional structured logger for emitting
	// structured diagnostic events. If this field is nil, we
	// will not be emitting structured logs.
	Logger *slog.Logger

	// TimeNow is an optional function that returns the current time.
	// If this field is nil, the [time.Now] function will be used.
	TimeNow func() time.Time

	// TrackIngress optionally adds the ingress router to the set of
	// visited routers, so that a packet coming back to it is reported
	// as a loop. By default the ingress router is not tracked.
	TrackIngress bool

	// resolver resolves destination names.
	resolver *dns.Resolver

	// routers is the router registry.
	routers *router.Engine

	// firewall is the packet filter.
	firewall *firewall.Engine
}

// NewScenario creates a new [*Scenario] from its engines.
func NewScenario(resolver *dns.Resolver, routers *router.Engine, fw *firewall.Engine) *Scenario {
	runtimex.Assert(resolver != nil, "nil resolver")
	runtimex.Assert(routers != nil, "nil router engine")
	runtimex.Assert(fw != nil, "nil firewall engine")
	return &Scenario{
		resolver: resolver,
		routers:  routers,
		firewall: fw,
	}
}

// NewScenarioFromConfig builds all the engines described by cfg.
func NewScenarioFromConfig(cfg *config.Config) (*Scenario, error) {
	resolver, err := dns.NewResolver(cfg.DNS...)
	if err != nil {
		return nil, err
	}
	fw, err := firewall.NewEngine(cfg.Firewall...)
	if err != nil {
		return nil, err
	}
	var all []*router.Router
	for _, rc := range cfg.Routers {
		r, err := router.NewRouter(rc.Name, rc.Interfaces, rc.Routes)
		if err != nil {
			return nil, err
		}
		all = append(all, r)
	}
	routers, err := router.NewEngine(all...)
	if err != nil {
		return nil, err
	}
	return NewScenario(resolver, routers, fw), nil
}

// MustNewScenarioFromConfig is like [NewScenarioFromConfig] but panics on error.
func MustNewScenarioFromConfig(cfg *config.Config) *Scenario {
	return runtimex.Try1(NewScenarioFromConfig(cfg))
}

// Resolver returns the scenario DNS resolver.
func (s *Scenario) Resolver() *dns.Resolver {
	return s.resolver
}

// Routers returns the scenario router registry.
func (s *Scenario) Routers() *router.Engine {
	return s.routers
}

// Firewall returns the scenario packet filter.
func (s *Scenario) Firewall() *firewall.Engine {
	return s.firewall
}

// timeNow returns the current time.
func (s *Scenario) timeNow() time.Time {
	if s.TimeNow != nil {
		return s.TimeNow()
	}
	return time.Now()
}

// visitedSet tracks the routers visited by a packet.
type visitedSet map[string]struct{}

// add adds a router name to the set.
func (vs visitedSet) add(name string) {
	vs[name] = struct{}{}
}

// contains returns whether the set contains a router name.
func (vs visitedSet) contains(name string) bool {
	_, found := vs[name]
	return found
}
