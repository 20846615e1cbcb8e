// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package netsim simulates the path of a packet through a small,
statically configured network topology.

# Usage and Features

A [*Scenario] bundles the immutable engines describing a topology:

- a [*dns.Resolver] holding the static DNS records;
- a [*router.Engine] holding the routers and their routing tables;
- a [*firewall.Engine] holding the ordered packet filtering rules.

Use [NewScenario] to assemble a [*Scenario] from its engines or
[NewScenarioFromConfig] to build all of them from a [*config.Config].

The [*Scenario.Trace] method resolves the destination (when it is
not already an address), finds the router directly connected to the
source, and then forwards the packet hop by hop. At each hop the
router decrements the TTL, applies the firewall and selects a route
by longest prefix match. The trace ends when the packet is delivered,
blocked, dropped, or leaves the topology, and the returned [*Result]
contains the ordered [packet.Event] list and the terminal [Outcome].

No real packet is ever sent. A [*Scenario] is read-only once built,
so the same [*Scenario] can serve concurrent traces.

This package contains examples showing how to use it.
*/
package netsim
