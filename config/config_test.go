// SPDX-License-Identifier: GPL-3.0-or-later

package config_test

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbmk-project/pkttrace/config"
	"github.com/rbmk-project/pkttrace/netsim/dns"
	"github.com/rbmk-project/pkttrace/netsim/firewall"
	"github.com/rbmk-project/pkttrace/netsim/packet"
	"github.com/rbmk-project/pkttrace/netsim/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routerNames returns the names of the configured routers in order.
func routerNames(cfg *config.Config) []string {
	var names []string
	for _, rc := range cfg.Routers {
		names = append(names, rc.Name)
	}
	return names
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := config.Load("scenario-complex.json")
	require.NoError(t, err)

	assert.Equal(t, []dns.Record{
		{Type: "A", Name: "example.com", Value: "192.168.2.10"},
		{Type: "CNAME", Name: "www.example.com", Value: "example.com"},
		{Type: "A", Name: "intranet.local", Value: "172.16.0.20"},
		{Type: "MX", Name: "mail.example.com", Value: "10 mx.example.com."},
	}, cfg.DNS)

	assert.Equal(t, []firewall.Rule{
		{
			Action:   firewall.Deny,
			Protocol: packet.ProtocolTCP,
			Src:      netip.MustParsePrefix("10.0.0.0/24"),
			DstPort:  firewall.SinglePort(23),
		},
		{
			Action:   firewall.Deny,
			Protocol: packet.ProtocolUDP,
			DstPort:  firewall.PortRange{Low: 1000, High: 2000},
			ApplyTo:  "R2",
		},
		{
			Action:   firewall.Allow,
			Protocol: packet.ProtocolTCP,
			DstPort:  firewall.SinglePort(80),
		},
	}, cfg.Firewall)

	assert.Equal(t, []string{"R1", "R2"}, routerNames(cfg))
	assert.Equal(t, []netip.Addr{
		netip.MustParseAddr("10.0.0.1"),
		netip.MustParseAddr("172.16.0.1"),
	}, cfg.Routers[0].Interfaces)
	assert.Equal(t, router.Route{
		Dest:      netip.MustParsePrefix("0.0.0.0/0"),
		NextHop:   netip.MustParseAddr("172.16.0.254"),
		Interface: "eth1",
	}, cfg.Routers[0].Routes[2])
}

func TestLoad_TOML(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "scenario-complex.toml"))
	require.NoError(t, err)

	assert.Len(t, cfg.DNS, 2)
	require.Len(t, cfg.Firewall, 2)
	assert.Equal(t, firewall.SinglePort(23), cfg.Firewall[0].DstPort)
	assert.Equal(t, firewall.PortRange{Low: 1000, High: 2000}, cfg.Firewall[1].DstPort)

	// Routers keep the order of the file, not the alphabetical one.
	assert.Equal(t, []string{"R2", "R1"}, routerNames(cfg))
	require.Len(t, cfg.Routers[1].Routes, 2)
	assert.Equal(t, router.DefaultInterface, cfg.Routers[1].Routes[1].Interface)
}

func TestParse_TOMLRouterForms(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNames []string
		wantIface []netip.Addr
	}{
		{
			name: "array tables only",
			input: `
[[routers.R2.routes]]
dest = "10.0.0.0/24"
next_hop = "172.16.0.1"

[[routers.R1.routes]]
dest = "192.168.2.0/24"
next_hop = "172.16.0.2"
`,
			wantNames: []string{"R2", "R1"},
		},

		{
			name: "dotted keys",
			input: `
[routers]
R2.interfaces = ["172.16.0.2"]
R1.interfaces = ["10.0.0.1"]
`,
			wantNames: []string{"R2", "R1"},
			wantIface: []netip.Addr{netip.MustParseAddr("172.16.0.2")},
		},

		{
			name: "inline tables",
			input: `
routers = { R1 = { interfaces = ["10.0.0.1"] }, R2 = { interfaces = ["172.16.0.2"] } }
`,
			wantNames: []string{"R1", "R2"},
			wantIface: []netip.Addr{netip.MustParseAddr("10.0.0.1")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Parse([]byte(tt.input), config.FormatTOML)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNames, routerNames(cfg))
			assert.Equal(t, tt.wantIface, cfg.Routers[0].Interfaces)
		})
	}
}

func TestParse_lowerCaseRecordType(t *testing.T) {
	cfg, err := config.Parse([]byte(`{"dns": [{"type": " a ", "name": "example.com", "value": "10.0.0.5"}]}`),
		config.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, dns.TypeA, cfg.DNS[0].Type)
}

func TestLoad_missingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nonexistent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_routerOrder(t *testing.T) {
	cfg, err := config.Parse([]byte(`{"routers": {
		"zeta": {"interfaces": ["10.0.3.1"]},
		"alpha": {"interfaces": ["10.0.1.1"]},
		"mid": {"interfaces": ["10.0.2.1"]}
	}}`), config.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, routerNames(cfg))
}

func TestParse_defaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`{
		"firewall": [{"action": "Allow"}, {"action": "deny", "src": "any", "dst_port": "any"}],
		"routers": {"R1": {"routes": [{"dest": "10.0.0.5", "next_hop": "10.0.0.5"}]}}
	}`), config.FormatJSON)
	require.NoError(t, err)

	for _, rule := range cfg.Firewall {
		assert.Equal(t, packet.ProtocolAny, rule.Protocol)
		assert.False(t, rule.Src.IsValid())
		assert.Equal(t, firewall.AnyPort, rule.DstPort)
		assert.Empty(t, rule.ApplyTo)
	}
	assert.Equal(t, firewall.Allow, cfg.Firewall[0].Action)

	route := cfg.Routers[0].Routes[0]
	assert.Equal(t, netip.MustParsePrefix("10.0.0.5/32"), route.Dest)
	assert.Equal(t, router.DefaultInterface, route.Interface)
}

func TestParse_errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantMsg   string
		wantCause error
	}{
		{
			name:    "syntax error",
			input:   `{"dns": [`,
			wantMsg: "config: json: unexpected EOF",
		},

		{
			name:    "routers is not an object",
			input:   `{"routers": []}`,
			wantMsg: "config: json: routers: expected an object",
		},

		{
			name:      "A record with a hostname value",
			input:     `{"dns": [{"type": "A", "name": "a.test", "value": "b.test"}]}`,
			wantCause: dns.ErrInvalidRecord,
		},

		{
			name:      "unknown firewall action",
			input:     `{"firewall": [{"action": "reject"}]}`,
			wantMsg:   `config: firewall[1]: invalid firewall rule: unknown action "reject"`,
			wantCause: firewall.ErrInvalidRule,
		},

		{
			name:      "invalid source network",
			input:     `{"firewall": [{"action": "deny"}, {"action": "deny", "src": "10.0.0.1/24"}]}`,
			wantCause: firewall.ErrInvalidRule,
			wantMsg:   "config: firewall[2]: invalid firewall rule: src: 10.0.0.1/24: host bits set",
		},

		{
			name:      "port out of range",
			input:     `{"firewall": [{"action": "deny", "dst_port": 70000}]}`,
			wantCause: firewall.ErrInvalidRule,
		},

		{
			name:      "fractional port",
			input:     `{"firewall": [{"action": "deny", "dst_port": 80.5}]}`,
			wantCause: firewall.ErrInvalidRule,
		},

		{
			name:      "port of the wrong type",
			input:     `{"firewall": [{"action": "deny", "dst_port": [80]}]}`,
			wantCause: firewall.ErrInvalidRule,
		},

		{
			name:      "invalid interface",
			input:     `{"routers": {"R1": {"interfaces": ["eth0"]}}}`,
			wantCause: router.ErrInvalidInterface,
		},

		{
			name:      "route with host bits set",
			input:     `{"routers": {"R1": {"routes": [{"dest": "10.0.0.1/24", "next_hop": "10.0.0.2"}]}}}`,
			wantCause: router.ErrInvalidRoute,
			wantMsg:   "config: routers.R1[1]: invalid route: dest: 10.0.0.1/24: host bits set",
		},

		{
			name:      "route with invalid next hop",
			input:     `{"routers": {"R1": {"routes": [{"dest": "10.0.0.0/24", "next_hop": "gw"}]}}}`,
			wantCause: router.ErrInvalidRoute,
		},

		{
			name:      "duplicate router",
			input:     `{"routers": {"R1": {}, "R1": {}}}`,
			wantCause: router.ErrDuplicateRouter,
			wantMsg:   "config: routers.R1: duplicate router name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Parse([]byte(tt.input), config.FormatJSON)
			require.Error(t, err)
			assert.Nil(t, cfg)

			var cfgErr *config.Error
			assert.ErrorAs(t, err, &cfgErr)
			if tt.wantCause != nil {
				assert.ErrorIs(t, err, tt.wantCause)
			}
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
		})
	}
}

func TestParse_unknownFormat(t *testing.T) {
	_, err := config.Parse([]byte(`{}`), config.Format("yaml"))
	assert.Error(t, err)
}

func TestMustParse(t *testing.T) {
	assert.NotPanics(t, func() {
		config.MustParse([]byte(`{}`), config.FormatJSON)
	})
	assert.Panics(t, func() {
		config.MustParse([]byte(`{"firewall": [{"action": "drop"}]}`), config.FormatJSON)
	})
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, config.FormatTOML, config.FormatFromPath("topology.TOML"))
	assert.Equal(t, config.FormatJSON, config.FormatFromPath("topology.json"))
	assert.Equal(t, config.FormatJSON, config.FormatFromPath("topology"))
}
