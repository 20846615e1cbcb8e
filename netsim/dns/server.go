// SPDX-License-Identifier: GPL-3.0-or-later

package dns

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

// recordTTL is the TTL of the records we serve.
const recordTTL = 3600

// wireFormat returns the [dns.RR] for the record or nil if the
// record cannot be represented in wire format.
func (rec *Record) wireFormat() dns.RR {
	header := dns.RR_Header{
		Name:     dns.CanonicalName(strings.TrimSpace(rec.Name)),
		Rrtype:   0,
		Class:    dns.ClassINET,
		Ttl:      recordTTL,
		Rdlength: 0,
	}

	switch rec.Type {
	case TypeA:
		addr := netip.MustParseAddr(strings.TrimSpace(rec.Value))
		if addr.Is4() {
			header.Rrtype = dns.TypeA
			return &dns.A{Hdr: header, A: addr.AsSlice()}
		}
		header.Rrtype = dns.TypeAAAA
		return &dns.AAAA{Hdr: header, AAAA: addr.AsSlice()}

	case TypeCNAME:
		header.Rrtype = dns.TypeCNAME
		return &dns.CNAME{
			Hdr:    header,
			Target: dns.CanonicalName(strings.TrimSpace(rec.Value)),
		}

	default:
		rr, err := dns.NewRR(fmt.Sprintf(
			"%s %d IN %s %s", header.Name, recordTTL, rec.Type, rec.Value))
		if err != nil {
			return nil
		}
		return rr
	}
}

// Ensure [*Resolver] implements [dns.Handler].
var _ dns.Handler = (*Resolver)(nil)

// ServeDNS implements [dns.Handler] using the resolver records.
//
// This method is goroutine safe.
func (r *Resolver) ServeDNS(rw dns.ResponseWriter, query *dns.Msg) {
	response := &dns.Msg{}
	if query.Response || query.Opcode != dns.OpcodeQuery || len(query.Question) != 1 {
		response.SetRcode(query, dns.RcodeFormatError)
		r.writeMsg(rw, response)
		return
	}
	response.SetReply(query)
	response.Authoritative = true

	q0 := query.Question[0]
	switch {
	case q0.Qclass != dns.ClassINET:
		response.Rcode = dns.RcodeRefused
	default:
		var found bool
		response.Answer, found = r.lookup(q0.Qtype, dns.CanonicalName(q0.Name))
		if !found {
			response.Rcode = dns.RcodeNameError
		}
	}

	if r.Logger != nil {
		r.Logger.Info(
			"dnsQuery",
			slog.String("dnsQueryName", q0.Name),
			slog.String("dnsQueryType", dns.TypeToString[q0.Qtype]),
			slog.String("dnsRcode", dns.RcodeToString[response.Rcode]),
			slog.Int("dnsAnswers", len(response.Answer)),
		)
	}
	r.writeMsg(rw, response)
}

// writeMsg writes the response ignoring errors.
func (r *Resolver) writeMsg(rw dns.ResponseWriter, response *dns.Msg) {
	if err := rw.WriteMsg(response); err != nil && r.Logger != nil {
		r.Logger.Warn("dnsWriteMsg", slog.Any("err", err))
	}
}

// lookup returns the records for the given query type and canonical
// name, following CNAME redirects, and whether the name exists.
func (r *Resolver) lookup(qtype uint16, name string) ([]dns.RR, bool) {
	var chain []dns.RR
	for idx := 0; idx < MaxDepth; idx++ {

		// Search whether the current name is in the zone.
		interim, found := r.zone[name]
		if !found {
			return chain, idx > 0
		}

		// Collect the desired records and the CNAME redirect, if any.
		var (
			answers []dns.RR
			cname   *dns.CNAME
		)
		for _, rr := range interim {
			if qtype == rr.Header().Rrtype {
				answers = append(answers, rr)
			}
			if rr, ok := rr.(*dns.CNAME); ok && cname == nil {
				cname = rr
			}
		}
		if len(answers) > 0 {
			return append(chain, answers...), true
		}
		if cname == nil {
			return chain, true
		}

		// Continue searching from the CNAME target.
		chain = append(chain, cname)
		name = cname.Target
	}

	return chain, true
}
