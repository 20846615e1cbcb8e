// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rbmk-project/dnscore"
	"github.com/spf13/cobra"
)

// digOptions contains the dig command flags.
type digOptions struct {
	server  string
	qtype   string
	timeout time.Duration
}

func newDigCommand(a *app) *cobra.Command {
	opts := &digOptions{}
	cmd := &cobra.Command{
		Use:   "dig NAME",
		Short: "Query the DNS records exposed by a running pkttrace serve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dig(cmd.Context(), a.stdout, opts, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.server, "server", "127.0.0.1:5353", "DNS server endpoint")
	flags.StringVar(&opts.qtype, "type", "A", "query type")
	flags.DurationVar(&opts.timeout, "timeout", 5*time.Second, "query timeout")
	return cmd
}

// dig sends a single query over UDP and prints the response.
func dig(ctx context.Context, w io.Writer, opts *digOptions, name string) error {
	qtype, found := dns.StringToType[strings.ToUpper(opts.qtype)]
	if !found {
		return fmt.Errorf("--type: unknown query type %q", opts.qtype)
	}
	query, err := dnscore.NewQuery(name, qtype)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	txp := &dnscore.Transport{}
	serverAddr := dnscore.NewServerAddr(dnscore.ProtocolUDP, opts.server)
	resp, err := txp.Query(ctx, serverAddr, query)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "status: %s\n", dns.RcodeToString[resp.Rcode])
	for _, rr := range resp.Answer {
		fmt.Fprintf(w, "%s\n", rr.String())
	}
	return nil
}
