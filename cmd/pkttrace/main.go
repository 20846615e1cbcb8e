// SPDX-License-Identifier: GPL-3.0-or-later

// Command pkttrace traces packets through a simulated topology.
//
// Usage:
//
//	pkttrace [--config FILE] [--log-level LEVEL] COMMAND [flags]
//
// The commands are:
//
//	serve     serve the HTTP API and, optionally, the DNS records
//	trace     trace a single packet and print the events
//	resolve   resolve a name using the static DNS records
//	dig       query a running DNS server
//
// The configuration file defaults to config/scenario-complex.json
// and can also be set using the PACKET_TRACER_CONFIG variable.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run())
}

// run runs the command and returns the exit code.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd := newRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pkttrace: %s\n", err.Error())
		return 1
	}
	return 0
}
