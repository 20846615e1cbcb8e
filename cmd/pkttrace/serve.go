// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/miekg/dns"
	"github.com/rbmk-project/pkttrace/httpapi"
	"github.com/rbmk-project/pkttrace/netsim"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// serveOptions contains the serve command flags.
type serveOptions struct {
	listen    string
	dnsListen string
}

func newServeCommand(a *app) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the trace HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, logger, err := a.loadScenario(cmd.Context())
			if err != nil {
				return err
			}
			srv, err := startServers(cmd.Context(), scenario, logger, opts)
			if err != nil {
				return err
			}
			return srv.wait()
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.listen, "listen", ":5000", "HTTP API endpoint")
	flags.StringVar(&opts.dnsListen, "dns-listen", "",
		"optional UDP endpoint serving the DNS records (e.g., 127.0.0.1:5353)")
	return cmd
}

// servers contains the running servers.
type servers struct {
	// httpAddr is the HTTP API endpoint.
	httpAddr net.Addr

	// dnsAddr is the DNS endpoint or nil.
	dnsAddr net.Addr

	// group contains the serving goroutines.
	group *errgroup.Group
}

// startServers binds the endpoints and serves until ctx is done.
func startServers(ctx context.Context,
	scenario *netsim.Scenario, logger *slog.Logger, opts *serveOptions) (*servers, error) {
	listener, err := net.Listen("tcp", opts.listen)
	if err != nil {
		return nil, err
	}
	var pconn net.PacketConn
	if opts.dnsListen != "" {
		pconn, err = net.ListenPacket("udp", opts.dnsListen)
		if err != nil {
			listener.Close()
			return nil, err
		}
	}

	api := httpapi.NewServer(scenario)
	api.Logger = logger
	httpServer := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	srv := &servers{httpAddr: listener.Addr(), group: group}

	logger.InfoContext(ctx, "httpServe", slog.String("addr", listener.Addr().String()))
	group.Go(func() error {
		if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if pconn != nil {
		srv.dnsAddr = pconn.LocalAddr()
		dnsServer := &dns.Server{PacketConn: pconn, Handler: scenario.Resolver()}
		logger.InfoContext(ctx, "dnsServe", slog.String("addr", pconn.LocalAddr().String()))
		group.Go(func() error {
			err := dnsServer.ActivateAndServe()
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		if pconn != nil {
			pconn.Close()
		}
		return nil
	})

	return srv, nil
}

// wait waits for the servers to terminate.
func (srv *servers) wait() error {
	return srv.group.Wait()
}
