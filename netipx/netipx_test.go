// SPDX-License-Identifier: GPL-3.0-or-later

package netipx_test

import (
	"net/netip"
	"testing"

	"github.com/rbmk-project/pkttrace/netipx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHost(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   netip.Addr
		wantOk bool
	}{
		{
			name:   "IPv4 literal",
			input:  "10.0.0.5",
			want:   netip.MustParseAddr("10.0.0.5"),
			wantOk: true,
		},

		{
			name:   "IPv6 literal",
			input:  "2001:db8::1",
			want:   netip.MustParseAddr("2001:db8::1"),
			wantOk: true,
		},

		{
			name:   "hostname",
			input:  "www.example.com",
			want:   netip.Addr{},
			wantOk: false,
		},

		{
			name:   "literal with surrounding spaces",
			input:  " 10.0.0.5",
			want:   netip.Addr{},
			wantOk: false,
		},

		{
			name:   "empty string",
			input:  "",
			want:   netip.Addr{},
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := netipx.ParseHost(tt.input)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnectedPrefix(t *testing.T) {
	tests := []struct {
		name string
		addr netip.Addr
		want netip.Prefix
	}{
		{
			name: "IPv4 interface",
			addr: netip.MustParseAddr("192.168.1.1"),
			want: netip.MustParsePrefix("192.168.1.0/24"),
		},

		{
			name: "IPv6 interface uses the same prefix length",
			addr: netip.MustParseAddr("2001:db8::1"),
			want: netip.MustParsePrefix("2001:d00::/24"),
		},

		{
			name: "invalid address",
			addr: netip.Addr{},
			want: netip.Prefix{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, netipx.ConnectedPrefix(tt.addr))
		})
	}
}

func TestConnectedSet(t *testing.T) {
	set, err := netipx.ConnectedSet(
		netip.MustParseAddr("10.0.0.1"),
		netip.MustParseAddr("10.0.1.1"),
		netip.Addr{},
	)
	require.NoError(t, err)

	assert.True(t, set.Contains(netip.MustParseAddr("10.0.0.200")))
	assert.True(t, set.Contains(netip.MustParseAddr("10.0.1.7")))
	assert.False(t, set.Contains(netip.MustParseAddr("10.0.2.1")))
	assert.False(t, set.Contains(netip.MustParseAddr("2001:db8::1")))
}
