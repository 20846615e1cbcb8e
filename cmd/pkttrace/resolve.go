// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/rbmk-project/pkttrace/netsim/dns"
	"github.com/spf13/cobra"
)

func newResolveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve NAME",
		Short: "Resolve a name using the static DNS records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, _, err := a.loadScenario(cmd.Context())
			if err != nil {
				return err
			}
			addr, status, events := scenario.Resolver().Resolve(args[0])
			for _, ev := range events {
				fmt.Fprintf(a.stdout, "%s: %s\n", ev.Location, ev.Action)
			}
			if status != dns.Resolved {
				fmt.Fprintf(a.stdout, "status: %s\n", status)
				return nil
			}
			fmt.Fprintf(a.stdout, "status: %s\naddress: %s\n", status, addr)
			return nil
		},
	}
}
