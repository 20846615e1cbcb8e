// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package config loads the static description of a simulated topology.

# File Format

A configuration file contains three sections:

	{
	  "dns": [{"type": "A", "name": "example.com", "value": "192.168.2.10"}],
	  "firewall": [{"action": "deny", "protocol": "TCP", "src": "any",
	                "dst_port": "1000-2000", "apply_to": "R1"}],
	  "routers": {"R1": {"interfaces": ["10.0.0.1"],
	                     "routes": [{"dest": "10.0.0.0/24", "next_hop": "10.0.0.5",
	                                 "interface": "eth0"}]}}
	}

Files whose name ends with ".toml" use the equivalent TOML encoding,
with routers as [routers.NAME] tables and routes as [[routers.NAME.routes]].

The order of firewall rules, of the routes of each router and of the routers
themselves is significant and preserved: firewall rules are evaluated in order,
equally specific routes are tie-broken by order, and ingress routers are
searched in order.

# Validation

Parsing fails on the first malformed entry with an [*Error] describing
the offending section and entry.
*/
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/pkttrace/netsim/dns"
	"github.com/rbmk-project/pkttrace/netsim/firewall"
	"github.com/rbmk-project/pkttrace/netsim/packet"
	"github.com/rbmk-project/pkttrace/netsim/router"
)

// Format is a configuration file format.
type Format string

const (
	// FormatJSON is the JSON format.
	FormatJSON = Format("json")

	// FormatTOML is the TOML format.
	FormatTOML = Format("toml")
)

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatJSON
}

// Config is a parsed configuration.
type Config struct {
	// DNS contains the DNS records.
	DNS []dns.Record

	// Firewall contains the firewall rules in priority order.
	Firewall []firewall.Rule

	// Routers contains the routers in file order.
	Routers []Router
}

// Router is the configuration of a single router.
type Router struct {
	// Name is the router name.
	Name string

	// Interfaces contains the interface addresses.
	Interfaces []netip.Addr

	// Routes contains the routing table in file order.
	Routes []router.Route
}

// Error is the error returned when a configuration is malformed.
type Error struct {
	// Section is the section containing the malformed entry.
	Section string

	// Index is the 1-based index of the entry within the
	// section or zero when entries are identified by name.
	Index int

	// Name is the router name, if applicable.
	Name string

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	var where string
	switch {
	case e.Name != "" && e.Index > 0:
		where = fmt.Sprintf("%s.%s[%d]", e.Section, e.Name, e.Index)
	case e.Name != "":
		where = fmt.Sprintf("%s.%s", e.Section, e.Name)
	case e.Index > 0:
		where = fmt.Sprintf("%s[%d]", e.Section, e.Index)
	default:
		where = e.Section
	}
	return fmt.Sprintf("config: %s: %s", where, e.Err.Error())
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, FormatFromPath(path))
}

// Parse parses a configuration using the given format.
func Parse(data []byte, format Format) (*Config, error) {
	var (
		f   *file
		err error
	)
	switch format {
	case FormatJSON:
		f, err = decodeJSON(data)
	case FormatTOML:
		f, err = decodeTOML(data)
	default:
		return nil, fmt.Errorf("config: unknown format %q", format)
	}
	if err != nil {
		return nil, &Error{Section: string(format), Err: err}
	}
	return f.build()
}

// MustParse is like [Parse] but panics on error.
func MustParse(data []byte, format Format) *Config {
	return runtimex.Try1(Parse(data, format))
}

// build validates the decoded file and converts it to a [*Config].
func (f *file) build() (*Config, error) {
	cfg := &Config{}

	for idx, entry := range f.DNS {
		rec := dns.Record{
			Type:  strings.ToUpper(strings.TrimSpace(entry.Type)),
			Name:  entry.Name,
			Value: entry.Value,
		}
		if err := rec.Validate(); err != nil {
			return nil, &Error{Section: "dns", Index: idx + 1, Err: err}
		}
		cfg.DNS = append(cfg.DNS, rec)
	}

	for idx, entry := range f.Firewall {
		rule, err := entry.rule()
		if err != nil {
			return nil, &Error{Section: "firewall", Index: idx + 1, Err: err}
		}
		cfg.Firewall = append(cfg.Firewall, rule)
	}

	seen := make(map[string]bool)
	for _, entry := range f.Routers {
		if seen[entry.name] {
			return nil, &Error{Section: "routers", Name: entry.name, Err: router.ErrDuplicateRouter}
		}
		seen[entry.name] = true
		rc, err := entry.router()
		if err != nil {
			return nil, err
		}
		cfg.Routers = append(cfg.Routers, rc)
	}

	return cfg, nil
}

// rule converts a firewall entry to a [firewall.Rule].
func (entry *ruleEntry) rule() (firewall.Rule, error) {
	action, err := firewall.ParseVerdict(entry.Action)
	if err != nil {
		return firewall.Rule{}, err
	}
	rule := firewall.Rule{
		Action:   action,
		Protocol: packet.ParseProtocol(entry.Protocol),
		ApplyTo:  strings.TrimSpace(entry.ApplyTo),
	}
	if src := strings.TrimSpace(entry.Src); src != "" && !strings.EqualFold(src, "any") {
		prefix, err := parseNetwork(src)
		if err != nil {
			return firewall.Rule{}, fmt.Errorf("%w: src: %w", firewall.ErrInvalidRule, err)
		}
		rule.Src = prefix
	}
	rule.DstPort, err = parsePortSpec(entry.DstPort)
	if err != nil {
		return firewall.Rule{}, err
	}
	return rule, nil
}

// router converts a router entry to a [Router].
func (entry *namedRouter) router() (Router, error) {
	rc := Router{Name: entry.name}
	for idx, value := range entry.Interfaces {
		addr, err := netip.ParseAddr(strings.TrimSpace(value))
		if err != nil {
			return Router{}, &Error{Section: "routers", Name: entry.name,
				Err: fmt.Errorf("interface #%d: %w: %w", idx+1, router.ErrInvalidInterface, err)}
		}
		rc.Interfaces = append(rc.Interfaces, addr)
	}
	for idx, re := range entry.Routes {
		route, err := re.route()
		if err != nil {
			return Router{}, &Error{Section: "routers", Name: entry.name, Index: idx + 1, Err: err}
		}
		rc.Routes = append(rc.Routes, route)
	}
	return rc, nil
}

// route converts a route entry to a [router.Route].
func (entry *routeEntry) route() (router.Route, error) {
	dest, err := parseNetwork(entry.Dest)
	if err != nil {
		return router.Route{}, fmt.Errorf("%w: dest: %w", router.ErrInvalidRoute, err)
	}
	nextHop, err := netip.ParseAddr(strings.TrimSpace(entry.NextHop))
	if err != nil {
		return router.Route{}, fmt.Errorf("%w: next_hop: %w", router.ErrInvalidRoute, err)
	}
	iface := strings.TrimSpace(entry.Interface)
	if iface == "" {
		iface = router.DefaultInterface
	}
	return router.Route{Dest: dest, NextHop: nextHop, Interface: iface}, nil
}

// errHostBitsSet indicates a network with host bits set.
var errHostBitsSet = errors.New("host bits set")

// parseNetwork parses a CIDR network. A bare address is a single-host
// network. Networks with host bits set are rejected.
func parseNetwork(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	if prefix != prefix.Masked() {
		return netip.Prefix{}, fmt.Errorf("%s: %w", s, errHostBitsSet)
	}
	return prefix, nil
}
