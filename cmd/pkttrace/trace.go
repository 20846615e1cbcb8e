// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/netip"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rbmk-project/pkttrace/netsim"
	"github.com/rbmk-project/pkttrace/netsim/packet"
	"github.com/spf13/cobra"
)

// traceOptions contains the trace command flags.
type traceOptions struct {
	src    string
	dst    string
	port   int
	proto  string
	ttl    int
	output string
}

func newTraceCommand(a *app) *cobra.Command {
	opts := &traceOptions{}
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Trace a single packet through the topology",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTrace(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.src, "src", "", "source IP address")
	flags.StringVar(&opts.dst, "dst", "", "destination IP address or hostname")
	flags.IntVar(&opts.port, "port", 80, "destination port")
	flags.StringVar(&opts.proto, "proto", "TCP", "transport protocol")
	flags.IntVar(&opts.ttl, "ttl", 16, "initial time to live")
	flags.StringVar(&opts.output, "output", "table", "output format (table or json)")
	cmd.MarkFlagRequired("src")
	cmd.MarkFlagRequired("dst")
	return cmd
}

// request validates the flags and returns the corresponding request.
func (opts *traceOptions) request() (*netsim.Request, error) {
	src, err := netip.ParseAddr(opts.src)
	if err != nil {
		return nil, fmt.Errorf("--src: not an IP address: %q", opts.src)
	}
	if opts.port < 0 || opts.port > math.MaxUint16 {
		return nil, fmt.Errorf("--port: out of range: %d", opts.port)
	}
	if opts.output != "table" && opts.output != "json" {
		return nil, fmt.Errorf("--output: unknown format %q", opts.output)
	}
	return &netsim.Request{
		Src:      src,
		Dst:      opts.dst,
		DstPort:  uint16(opts.port),
		Protocol: packet.ParseProtocol(opts.proto),
		TTL:      opts.ttl,
	}, nil
}

func (a *app) runTrace(cmd *cobra.Command, opts *traceOptions) error {
	req, err := opts.request()
	if err != nil {
		return err
	}
	scenario, _, err := a.loadScenario(cmd.Context())
	if err != nil {
		return err
	}
	res := scenario.Trace(cmd.Context(), req)
	if opts.output == "json" {
		return writeTraceJSON(a.stdout, res)
	}
	writeTraceTable(a.stdout, res)
	return nil
}

// traceJSON is the JSON representation of a [*netsim.Result].
type traceJSON struct {
	Outcome     netsim.Outcome `json:"outcome"`
	Hops        int            `json:"hops"`
	Destination string         `json:"destination,omitempty"`
	Events      []packet.Event `json:"events"`
}

func writeTraceJSON(w io.Writer, res *netsim.Result) error {
	out := traceJSON{Outcome: res.Outcome, Hops: res.Hops, Events: res.Events}
	if res.Destination.IsValid() {
		out.Destination = res.Destination.String()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeTraceTable(w io.Writer, res *netsim.Result) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"#", "LOCATION", "ACTION"})
	for idx, ev := range res.Events {
		table.Append([]string{strconv.Itoa(idx + 1), ev.Location, ev.Action})
	}
	table.Render()
	fmt.Fprintf(w, "\noutcome: %s\nhops: %d\n", res.Outcome, res.Hops)
}
