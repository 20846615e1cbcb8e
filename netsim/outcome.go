// SPDX-License-Identifier: GPL-3.0-or-later

package netsim

// Outcome is the terminal state of a trace.
type Outcome string

// All the possible [Outcome] values.
const (
	// OutcomeDelivered means the packet reached its destination.
	OutcomeDelivered = Outcome("DELIVERED")

	// OutcomeNXDomain means the destination name does not exist.
	OutcomeNXDomain = Outcome("NXDOMAIN")

	// OutcomeCNAMEDepthExceeded means the CNAME chain was too long.
	OutcomeCNAMEDepthExceeded = Outcome("CNAME_DEPTH_EXCEEDED")

	// OutcomeUnsupportedRecord means the name resolved to an unsupported record type.
	OutcomeUnsupportedRecord = Outcome("UNSUPPORTED_RECORD")

	// OutcomeNoIngress means no router is directly connected to the source.
	OutcomeNoIngress = Outcome("NO_INGRESS")

	// OutcomeTTLExceeded means the hop budget was exhausted.
	OutcomeTTLExceeded = Outcome("TTL_EXCEEDED")

	// OutcomeFirewallBlocked means a firewall rule denied the packet.
	OutcomeFirewallBlocked = Outcome("FIREWALL_BLOCKED")

	// OutcomeNoRoute means a router had no route to the destination.
	OutcomeNoRoute = Outcome("NO_ROUTE")

	// OutcomeExternalGateway means the packet left the simulated topology.
	OutcomeExternalGateway = Outcome("EXTERNAL_GATEWAY")

	// OutcomeLoopDetected means the packet revisited a router.
	OutcomeLoopDetected = Outcome("LOOP_DETECTED")
)

// Outcomes lists all the [Outcome] values.
var Outcomes = []Outcome{
	OutcomeDelivered,
	OutcomeNXDomain,
	OutcomeCNAMEDepthExceeded,
	OutcomeUnsupportedRecord,
	OutcomeNoIngress,
	OutcomeTTLExceeded,
	OutcomeFirewallBlocked,
	OutcomeNoRoute,
	OutcomeExternalGateway,
	OutcomeLoopDetected,
}

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}
