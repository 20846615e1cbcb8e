// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package firewall implements the ordered packet filter of the simulation.

# Rules

A [Rule] matches packets by protocol, source network and destination
port range. Rules may be scoped to a single router using the ApplyTo
field; unscoped rules apply to every router. The destination address
is not a match criterion.

# Evaluation

The [*Engine] walks the rules in declaration order and the first rule
matching a packet decides the [Verdict]. When no rule matches, the
verdict is [NoMatch], which callers treat like [Allow]: only [Deny]
stops a packet. Reordering the rules may therefore change the outcome
of a simulation even though no rule has changed.

# Port Ranges

The [ParsePortRange] function accepts a single port ("80"), an
inclusive range ("1000-2000") or "any", which covers every port.
*/
package firewall
