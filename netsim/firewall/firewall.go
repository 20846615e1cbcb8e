// SPDX-License-Identifier: GPL-3.0-or-later

package firewall

import (
	"errors"
	"fmt"
	"math"
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"github.com/rbmk-project/pkttrace/netsim/packet"
)

// Verdict is the outcome of evaluating a packet.
type Verdict string

const (
	// Allow means a rule allowed the packet.
	Allow = Verdict("ALLOW")

	// Deny means a rule blocked the packet.
	Deny = Verdict("DENY")

	// NoMatch means no rule matched the packet.
	NoMatch = Verdict("NO_MATCH")
)

// ParseVerdict parses a rule action ("allow" or "deny", any case).
func ParseVerdict(s string) (Verdict, error) {
	switch v := Verdict(strings.ToUpper(strings.TrimSpace(s))); v {
	case Allow, Deny:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidRule, s)
	}
}

// ErrInvalidRule indicates that a [Rule] is malformed.
var ErrInvalidRule = errors.New("invalid firewall rule")

// PortRange is an inclusive range of ports.
type PortRange struct {
	Low  uint16
	High uint16
}

// AnyPort is the [PortRange] containing every port.
var AnyPort = PortRange{Low: 0, High: math.MaxUint16}

// SinglePort returns the [PortRange] containing only port.
func SinglePort(port uint16) PortRange {
	return PortRange{Low: port, High: port}
}

// ParsePortRange parses "any", "N" or "LOW-HIGH".
func ParsePortRange(spec string) (PortRange, error) {
	spec = strings.TrimSpace(spec)
	if strings.EqualFold(spec, "any") {
		return AnyPort, nil
	}
	lowStr, highStr, isRange := strings.Cut(spec, "-")
	if !isRange {
		highStr = lowStr
	}
	low, err := parsePort(lowStr)
	if err != nil {
		return PortRange{}, err
	}
	high, err := parsePort(highStr)
	if err != nil {
		return PortRange{}, err
	}
	if low > high {
		return PortRange{}, fmt.Errorf("%w: empty port range %q", ErrInvalidRule, spec)
	}
	return PortRange{Low: low, High: high}, nil
}

// parsePort parses a single port number.
func parsePort(s string) (uint16, error) {
	port, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid port %q", ErrInvalidRule, s)
	}
	return uint16(port), nil
}

// Contains returns whether port is within the range.
func (pr PortRange) Contains(port uint16) bool {
	return pr.Low <= port && port <= pr.High
}

// String returns the string representation of the range.
func (pr PortRange) String() string {
	switch {
	case pr == AnyPort:
		return "any"
	case pr.Low == pr.High:
		return strconv.Itoa(int(pr.Low))
	default:
		return fmt.Sprintf("%d-%d", pr.Low, pr.High)
	}
}

// Rule is a firewall rule.
type Rule struct {
	// Action is either [Allow] or [Deny].
	Action Verdict

	// Protocol is the protocol to match, or [packet.ProtocolAny].
	Protocol packet.Protocol

	// Src is the optional source network; the zero
	// value matches any source address.
	Src netip.Prefix

	// DstPort is the destination port range.
	DstPort PortRange

	// ApplyTo is the optional name of the router where the
	// rule applies; if empty, the rule applies everywhere.
	ApplyTo string
}

// scope returns the router name used in descriptions.
func (r *Rule) scope() string {
	if r.ApplyTo == "" {
		return "global"
	}
	return r.ApplyTo
}

// appliesTo returns whether the rule must be evaluated at the given router.
func (r *Rule) appliesTo(routerName string) bool {
	return r.ApplyTo == "" || routerName == "" || r.ApplyTo == routerName
}

// matches returns whether the rule matches the packet fields.
func (r *Rule) matches(proto packet.Protocol, src netip.Addr, dstPort uint16) bool {
	if r.Protocol != packet.ProtocolAny && r.Protocol != proto {
		return false
	}
	if r.Src.IsValid() && !r.Src.Contains(src) {
		return false
	}
	return r.DstPort.Contains(dstPort)
}

// Engine evaluates packets against an ordered list of rules.
//
// Construct using [NewEngine].
//
// An [*Engine] is immutable and safe for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine creates a new [*Engine] with a copy of the given
// rules. The order of rules defines their priority.
func NewEngine(rules ...Rule) (*Engine, error) {
	for idx, rule := range rules {
		if rule.Action != Allow && rule.Action != Deny {
			return nil, fmt.Errorf("rule #%d: %w: unknown action %q", idx+1, ErrInvalidRule, rule.Action)
		}
		if rule.Protocol == "" {
			return nil, fmt.Errorf("rule #%d: %w: missing protocol", idx+1, ErrInvalidRule)
		}
	}
	return &Engine{rules: slices.Clone(rules)}, nil
}

// Rules returns a copy of the rules.
func (e *Engine) Rules() []Rule {
	return slices.Clone(e.rules)
}

// Evaluate returns the verdict for a packet traversing the given router
// and a human readable description of the decision.
//
// The dst argument is accepted for completeness but rules do not match
// on the destination address. An empty routerName disables scoping.
func (e *Engine) Evaluate(proto packet.Protocol,
	src, dst netip.Addr, dstPort uint16, routerName string) (Verdict, string) {
	for idx := range e.rules {
		rule := &e.rules[idx]
		if !rule.appliesTo(routerName) || !rule.matches(proto, src, dstPort) {
			continue
		}
		return rule.Action, fmt.Sprintf(
			"Matched rule #%d (%s) on router %s", idx+1, rule.Action, rule.scope())
	}
	return NoMatch, "No firewall rule matched (default allow)"
}

// EvaluatePacket is like Evaluate but takes a [*packet.Packet].
func (e *Engine) EvaluatePacket(pkt *packet.Packet, routerName string) (Verdict, string) {
	return e.Evaluate(pkt.Protocol, pkt.SrcAddr, pkt.DstAddr, pkt.DstPort, routerName)
}
