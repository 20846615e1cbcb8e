// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/rbmk-project/pkttrace/netsim/firewall"
)

// file is the on-disk representation of a configuration.
type file struct {
	DNS      []dnsEntry  `json:"dns" toml:"dns"`
	Firewall []ruleEntry `json:"firewall" toml:"firewall"`

	// Routers preserves the order of the routers object.
	Routers routerEntries `json:"routers" toml:"-"`

	// RoutersTOML receives the routers tables when using TOML.
	RoutersTOML map[string]routerEntry `json:"-" toml:"routers"`
}

type dnsEntry struct {
	Type  string `json:"type" toml:"type"`
	Name  string `json:"name" toml:"name"`
	Value string `json:"value" toml:"value"`
}

type ruleEntry struct {
	Action   string `json:"action" toml:"action"`
	Protocol string `json:"protocol" toml:"protocol"`
	Src      string `json:"src" toml:"src"`
	DstPort  any    `json:"dst_port" toml:"dst_port"`
	ApplyTo  string `json:"apply_to" toml:"apply_to"`
}

type routerEntry struct {
	Interfaces []string     `json:"interfaces" toml:"interfaces"`
	Routes     []routeEntry `json:"routes" toml:"routes"`
}

type routeEntry struct {
	Dest      string `json:"dest" toml:"dest"`
	NextHop   string `json:"next_hop" toml:"next_hop"`
	Interface string `json:"interface" toml:"interface"`
}

// namedRouter is a [routerEntry] along with its name.
type namedRouter struct {
	name string
	routerEntry
}

// routerEntries is the ordered content of the routers object.
type routerEntries []namedRouter

var errRoutersNotObject = errors.New("routers: expected an object")

// errRouterOrder indicates a router missing from the TOML key order.
var errRouterOrder = errors.New("routers: cannot determine the declaration order")

// UnmarshalJSON implements [json.Unmarshaler] preserving the key order.
func (re *routerEntries) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*re = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errRoutersNotObject
	}
	var entries routerEntries
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var entry routerEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("routers: %s: %w", name, err)
		}
		entries = append(entries, namedRouter{name: name, routerEntry: entry})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*re = entries
	return nil
}

// decodeJSON decodes a JSON configuration.
func decodeJSON(data []byte) (*file, error) {
	var f file
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// decodeTOML decodes a TOML configuration.
func decodeTOML(data []byte) (*file, error) {
	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, err
	}

	// Restore the order in which routers appear in the file. A router
	// may first appear through its own table, one of its array tables
	// (routers.NAME.routes) or a dotted key (NAME.interfaces).
	seen := make(map[string]bool)
	for _, key := range md.Keys() {
		if len(key) < 2 || key[0] != "routers" || seen[key[1]] {
			continue
		}
		name := key[1]
		entry, found := f.RoutersTOML[name]
		if !found {
			continue
		}
		seen[name] = true
		f.Routers = append(f.Routers, namedRouter{name: name, routerEntry: entry})
	}
	for name := range f.RoutersTOML {
		if !seen[name] {
			return nil, fmt.Errorf("%w: %s", errRouterOrder, name)
		}
	}
	return &f, nil
}

// parsePortSpec converts a decoded dst_port value to a [firewall.PortRange].
func parsePortSpec(value any) (firewall.PortRange, error) {
	switch v := value.(type) {
	case nil:
		return firewall.AnyPort, nil
	case string:
		return firewall.ParsePortRange(v)
	case json.Number:
		return firewall.ParsePortRange(v.String())
	case int64:
		return portFromInt(v)
	case float64:
		if v != math.Trunc(v) {
			return firewall.PortRange{}, fmt.Errorf("%w: invalid port %v", firewall.ErrInvalidRule, v)
		}
		return portFromInt(int64(v))
	default:
		return firewall.PortRange{}, fmt.Errorf("%w: invalid dst_port %v", firewall.ErrInvalidRule, v)
	}
}

// portFromInt returns the single-port range for an integer port.
func portFromInt(v int64) (firewall.PortRange, error) {
	if v < 0 || v > math.MaxUint16 {
		return firewall.PortRange{}, fmt.Errorf("%w: invalid port %d", firewall.ErrInvalidRule, v)
	}
	return firewall.SinglePort(uint16(v)), nil
}
