// SPDX-License-Identifier: GPL-3.0-or-later

package netsim

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/rbmk-project/pkttrace/netipx"
	"github.com/rbmk-project/pkttrace/netsim/dns"
	"github.com/rbmk-project/pkttrace/netsim/firewall"
	"github.com/rbmk-project/pkttrace/netsim/packet"
	"github.com/rbmk-project/pkttrace/netsim/router"
)

// Request describes the packet to trace.
type Request struct {
	// Src is the source address.
	Src netip.Addr

	// Dst is either an address literal or a hostname.
	Dst string

	// DstPort is the destination port.
	DstPort uint16

	// Protocol is the transport protocol.
	Protocol packet.Protocol

	// TTL is the initial hop budget.
	TTL int
}

// Result is the result of a trace.
type Result struct {
	// Events contains the trace events in order.
	Events []packet.Event

	// Outcome is the terminal state of the trace.
	Outcome Outcome

	// Hops is the number of routers the packet arrived at.
	Hops int

	// Destination is the resolved destination address, which
	// is invalid when the destination could not be resolved.
	Destination netip.Addr
}

// tracer contains the state of a single trace.
type tracer struct {
	events  []packet.Event
	hops    int
	visited visitedSet
}

// emit appends an event to the trace.
func (t *tracer) emit(location, format string, args ...any) {
	t.events = append(t.events, packet.NewEvent(location, fmt.Sprintf(format, args...)))
}

// Trace simulates the journey of the packet described by req.
//
// Every terminal condition (including unresolvable names and blocked
// packets) is reported through the returned [*Result], which always
// contains a complete trace.
//
// This method is goroutine safe.
func (s *Scenario) Trace(ctx context.Context, req *Request) *Result {
	t0 := s.emitTraceStart(ctx, req)
	res := s.trace(req)
	s.emitTraceDone(ctx, req, t0, res)
	return res
}

// trace implements Trace.
func (s *Scenario) trace(req *Request) *Result {
	t := &tracer{visited: make(visitedSet)}
	res := &Result{}
	finish := func(outcome Outcome) *Result {
		res.Events, res.Outcome, res.Hops = t.events, outcome, t.hops
		return res
	}

	// Resolve the destination unless it is already an address.
	dst, isAddr := netipx.ParseHost(req.Dst)
	if isAddr {
		t.emit(packet.LocationClient, "Destination provided as IP %s", dst)
	} else {
		t.emit(packet.LocationClient, "Resolving hostname %s via DNS", req.Dst)
		addr, status, events := s.resolver.Resolve(req.Dst)
		t.events = append(t.events, events...)
		if status != dns.Resolved {
			t.emit(packet.LocationDNSResolver, "NXDOMAIN — name does not exist")
			return finish(resolveOutcome(status))
		}
		dst = addr
	}
	res.Destination = dst

	ttl := req.TTL
	t.emit(packet.LocationClient, "Starting packet from %s to %s:%d protocol=%s ttl=%d",
		req.Src, dst, req.DstPort, req.Protocol, ttl)

	// Find the router directly connected to the source.
	current, found := s.routers.FindIngressRouter(req.Src)
	if !found {
		t.emit(packet.LocationNetwork, "No directly connected router found for source; cannot send packet")
		return finish(OutcomeNoIngress)
	}
	if s.TrackIngress {
		t.visited.add(current.Name())
	}

	// Forward hop by hop until we reach a terminal state.
	pkt := &packet.Packet{
		SrcAddr:  req.Src,
		DstAddr:  dst,
		Protocol: req.Protocol,
		DstPort:  req.DstPort,
		TTL:      ttl,
	}
	for {
		next, outcome := s.hop(t, current, pkt)
		if next == nil {
			return finish(outcome)
		}
		current = next
	}
}

// hop processes the packet at the current router and returns either the
// next router or a nil router along with the terminal outcome.
func (s *Scenario) hop(t *tracer, current *router.Router, pkt *packet.Packet) (*router.Router, Outcome) {
	name := current.Name()

	if pkt.TTL <= 0 {
		t.emit(packet.LocationSimulation, "Time to Live exceeded")
		return nil, OutcomeTTLExceeded
	}
	pkt.TTL--
	t.hops++
	t.emit(name, "Packet arrived at %s (ttl=%d)", name, pkt.TTL)

	verdict, desc := s.firewall.EvaluatePacket(pkt, name)
	t.emit(name, "%s", desc)
	if verdict == firewall.Deny {
		t.emit(name, "Packet blocked by firewall on %s", name)
		return nil, OutcomeFirewallBlocked
	}

	route, found := current.LongestPrefixMatch(pkt.DstAddr)
	if !found {
		t.emit(name, "No route to host (Destination Unreachable)")
		return nil, OutcomeNoRoute
	}
	t.emit(name, "Forwarded to next-hop %s via %s (route %s)", route.NextHop, route.Interface, route.Dest)

	if route.NextHop == pkt.DstAddr {
		t.emit(packet.LocationDestination, "Packet delivered to %s:%d", pkt.DstAddr, pkt.DstPort)
		return nil, OutcomeDelivered
	}

	next, found := s.routers.FindRouterByInterface(route.NextHop)
	if !found {
		t.emit(packet.LocationGateway, "Packet forwarded to an external gateway; "+
			"trace terminated (Assumed delivery/unreachability outside simulation)")
		return nil, OutcomeExternalGateway
	}

	if t.visited.contains(next.Name()) {
		t.emit(packet.LocationSimulation, "Routing loop detected; terminating")
		return nil, OutcomeLoopDetected
	}
	t.visited.add(next.Name())
	return next, ""
}

// resolveOutcome maps a failed [dns.Status] to an [Outcome].
func resolveOutcome(status dns.Status) Outcome {
	switch status {
	case dns.DepthExceeded:
		return OutcomeCNAMEDepthExceeded
	case dns.Unsupported:
		return OutcomeUnsupportedRecord
	default:
		return OutcomeNXDomain
	}
}

// emitTraceStart emits a structured event before the trace.
func (s *Scenario) emitTraceStart(ctx context.Context, req *Request) time.Time {
	t0 := s.timeNow()
	if s.Logger != nil {
		s.Logger.InfoContext(
			ctx,
			"traceStart",
			slog.String("srcAddr", req.Src.String()),
			slog.String("dst", req.Dst),
			slog.Int("dstPort", int(req.DstPort)),
			slog.String("protocol", req.Protocol.String()),
			slog.Int("ttl", req.TTL),
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitTraceDone emits a structured event after the trace.
func (s *Scenario) emitTraceDone(ctx context.Context, req *Request, t0 time.Time, res *Result) {
	if s.Logger != nil {
		s.Logger.InfoContext(
			ctx,
			"traceDone",
			slog.String("srcAddr", req.Src.String()),
			slog.String("dst", req.Dst),
			slog.String("dstAddr", res.Destination.String()),
			slog.String("outcome", res.Outcome.String()),
			slog.Int("hops", res.Hops),
			slog.Int("events", len(res.Events)),
			slog.Time("t0", t0),
			slog.Time("t", s.timeNow()),
		)
	}
}
