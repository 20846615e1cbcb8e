// SPDX-License-Identifier: GPL-3.0-or-later

package netsim_test

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/rbmk-project/pkttrace/config"
	"github.com/rbmk-project/pkttrace/netsim"
	"github.com/rbmk-project/pkttrace/netsim/dns"
	"github.com/rbmk-project/pkttrace/netsim/firewall"
	"github.com/rbmk-project/pkttrace/netsim/packet"
	"github.com/rbmk-project/pkttrace/netsim/router"
)

// This example shows how to trace a packet through a topology
// described by a JSON configuration.
func Example_config() {
	// Describe a client network behind R1 and a server network behind R2.
	cfg := config.MustParse([]byte(`{
	  "dns": [
	    {"type": "A", "name": "example.com", "value": "192.168.2.10"},
	    {"type": "CNAME", "name": "www.example.com", "value": "example.com"}
	  ],
	  "firewall": [
	    {"action": "deny", "protocol": "TCP", "dst_port": 23}
	  ],
	  "routers": {
	    "R1": {
	      "interfaces": ["10.0.0.1", "172.16.0.1"],
	      "routes": [{"dest": "192.168.2.0/24", "next_hop": "172.16.0.2", "interface": "eth1"}]
	    },
	    "R2": {
	      "interfaces": ["172.16.0.2", "192.168.2.1"],
	      "routes": [{"dest": "192.168.2.0/24", "next_hop": "192.168.2.10", "interface": "eth1"}]
	    }
	  }
	}`), config.FormatJSON)

	// Build the scenario once and share it across traces.
	scenario := netsim.MustNewScenarioFromConfig(cfg)

	// Trace a web request to the server.
	res := scenario.Trace(context.Background(), &netsim.Request{
		Src:      netip.MustParseAddr("10.0.0.2"),
		Dst:      "www.example.com",
		DstPort:  80,
		Protocol: packet.ProtocolTCP,
		TTL:      8,
	})

	// Print the trace.
	for _, ev := range res.Events {
		fmt.Printf("%s: %s\n", ev.Location, ev.Action)
	}
	fmt.Println(res.Outcome)

	// Output:
	// Client: Resolving hostname www.example.com via DNS
	// DNS Resolver: www.example.com is CNAME -> example.com
	// DNS Resolver: Resolved www.example.com to 192.168.2.10 (A record)
	// Client: Starting packet from 10.0.0.2 to 192.168.2.10:80 protocol=TCP ttl=8
	// R1: Packet arrived at R1 (ttl=7)
	// R1: No firewall rule matched (default allow)
	// R1: Forwarded to next-hop 172.16.0.2 via eth1 (route 192.168.2.0/24)
	// R2: Packet arrived at R2 (ttl=6)
	// R2: No firewall rule matched (default allow)
	// R2: Forwarded to next-hop 192.168.2.10 via eth1 (route 192.168.2.0/24)
	// Destination: Packet delivered to 192.168.2.10:80
	// DELIVERED
}

// This example shows how to assemble a scenario from its engines
// and how a firewall rule stops a packet.
func Example_firewall() {
	resolver, err := dns.NewResolver()
	if err != nil {
		panic(err)
	}

	r1, err := router.NewRouter("R1",
		[]netip.Addr{netip.MustParseAddr("10.0.0.1")},
		[]router.Route{{
			Dest:      netip.MustParsePrefix("10.0.0.0/24"),
			NextHop:   netip.MustParseAddr("10.0.0.5"),
			Interface: "eth0",
		}},
	)
	if err != nil {
		panic(err)
	}
	routers, err := router.NewEngine(r1)
	if err != nil {
		panic(err)
	}

	fw, err := firewall.NewEngine(firewall.Rule{
		Action:   firewall.Deny,
		Protocol: packet.ProtocolTCP,
		DstPort:  firewall.SinglePort(22),
		ApplyTo:  "R1",
	})
	if err != nil {
		panic(err)
	}

	scenario := netsim.NewScenario(resolver, routers, fw)
	res := scenario.Trace(context.Background(), &netsim.Request{
		Src:      netip.MustParseAddr("10.0.0.2"),
		Dst:      "10.0.0.5",
		DstPort:  22,
		Protocol: packet.ProtocolTCP,
		TTL:      4,
	})

	for _, ev := range res.Events {
		fmt.Printf("%s: %s\n", ev.Location, ev.Action)
	}
	fmt.Println(res.Outcome, res.Hops)

	// Output:
	// Client: Destination provided as IP 10.0.0.5
	// Client: Starting packet from 10.0.0.2 to 10.0.0.5:22 protocol=TCP ttl=4
	// R1: Packet arrived at R1 (ttl=3)
	// R1: Matched rule #1 (DENY) on router R1
	// R1: Packet blocked by firewall on R1
	// FIREWALL_BLOCKED 1
}
