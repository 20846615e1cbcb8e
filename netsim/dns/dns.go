// SPDX-License-Identifier: GPL-3.0-or-later

// Package dns models the static DNS database of a simulated topology.
package dns

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
	"github.com/rbmk-project/pkttrace/netsim/packet"
)

// Record types with a specific meaning for the [*Resolver].
const (
	TypeA     = "A"
	TypeCNAME = "CNAME"
)

// MaxDepth is the maximum number of names visited
// while following a CNAME chain.
const MaxDepth = 10

// Record is a static DNS record.
type Record struct {
	// Type is the upper-case record type (e.g., "A").
	Type string

	// Name is the record owner name.
	Name string

	// Value is an address for A records, the target
	// name for CNAME records, and opaque otherwise.
	Value string
}

// Status is the outcome of [*Resolver.Resolve].
type Status int

const (
	// Resolved means we found an A record.
	Resolved = Status(iota)

	// NXDomain means a name in the chain has no record.
	NXDomain

	// Unsupported means the chain ended at a record that
	// is neither an A nor a CNAME record.
	Unsupported

	// DepthExceeded means the CNAME chain is longer than [MaxDepth].
	DepthExceeded
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case NXDomain:
		return "nxdomain"
	case Unsupported:
		return "unsupported"
	case DepthExceeded:
		return "depth_exceeded"
	default:
		return "unknown"
	}
}

// Resolver resolves names using a static set of records.
//
// Construct using [NewResolver].
//
// A [*Resolver] is safe for concurrent use by multiple goroutines
// as long as one does not modify its fields after construction.
type Resolver struct {
	// Logger is the optional structured logger used by ServeDNS.
	Logger *slog.Logger

	// names maps the normalized name to the first record declared for it.
	names map[string]Record

	// zone contains the records in wire format, keyed by canonical name.
	zone map[string][]dns.RR
}

// ErrInvalidRecord indicates that a [Record] is malformed.
var ErrInvalidRecord = errors.New("invalid DNS record")

// NewResolver creates a new [*Resolver] from the given records.
//
// Records are copied. When more than one record has the same
// name, the first one wins, as it would with a linear scan.
func NewResolver(records ...Record) (*Resolver, error) {
	reso := &Resolver{
		names: make(map[string]Record),
		zone:  make(map[string][]dns.RR),
	}
	for idx, rec := range records {
		rec.Type = strings.ToUpper(strings.TrimSpace(rec.Type))
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("record #%d: %w", idx+1, err)
		}
		key := normalize(rec.Name)
		if _, found := reso.names[key]; !found {
			reso.names[key] = rec
		}
		if rr := rec.wireFormat(); rr != nil {
			name := rr.Header().Name
			reso.zone[name] = append(reso.zone[name], rr)
		}
	}
	return reso, nil
}

// Validate returns an error if the record is malformed. The record
// type is expected to be upper case.
func (rec *Record) Validate() error {
	switch {
	case rec.Type == "":
		return fmt.Errorf("%w: missing type", ErrInvalidRecord)
	case normalize(rec.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidRecord)
	case rec.Type == TypeA:
		if _, err := netip.ParseAddr(strings.TrimSpace(rec.Value)); err != nil {
			return fmt.Errorf("%w: A record value: %w", ErrInvalidRecord, err)
		}
	case rec.Type == TypeCNAME:
		if normalize(rec.Value) == "" {
			return fmt.Errorf("%w: missing CNAME target", ErrInvalidRecord)
		}
	}
	return nil
}

// normalize returns the lookup key for a name.
func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve resolves name to an address by following CNAME records.
//
// The returned events describe each step of the resolution. The address
// is only valid when the returned status is [Resolved].
func (r *Resolver) Resolve(name string) (netip.Addr, Status, []packet.Event) {
	var events []packet.Event
	emit := func(format string, args ...any) {
		events = append(events, packet.NewEvent(
			packet.LocationDNSResolver, fmt.Sprintf(format, args...)))
	}

	current := name
	for depth := 0; depth < MaxDepth; depth++ {
		rec, found := r.names[normalize(current)]
		if !found {
			emit("%s -> NXDOMAIN (no record)", current)
			return netip.Addr{}, NXDomain, events
		}

		switch rec.Type {
		case TypeA:
			emit("Resolved %s to %s (A record)", name, rec.Value)
			// Validated when constructing the resolver.
			addr := netip.MustParseAddr(strings.TrimSpace(rec.Value))
			return addr, Resolved, events

		case TypeCNAME:
			emit("%s is CNAME -> %s", current, rec.Value)
			current = rec.Value

		default:
			emit("Unsupported record type %s for %s", rec.Type, current)
			return netip.Addr{}, Unsupported, events
		}
	}

	emit("CNAME resolution depth exceeded")
	return netip.Addr{}, DepthExceeded, events
}
