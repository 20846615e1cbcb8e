// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbmk-project/pkttrace/config"
	"github.com/rbmk-project/pkttrace/netsim"
	"github.com/rogpeppe/go-internal/testscript"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"pkttrace": run,
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "script"),
	})
}

func TestServe(t *testing.T) {
	cfg, err := config.Load(filepath.Join("..", "..", "config", "scenario-complex.json"))
	require.NoError(t, err)
	scenario := netsim.MustNewScenarioFromConfig(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, err := startServers(ctx, scenario, logger, &serveOptions{
		listen:    "127.0.0.1:0",
		dnsListen: "127.0.0.1:0",
	})
	require.NoError(t, err)

	t.Run("HTTP API", func(t *testing.T) {
		resp, err := http.Get("http://" + srv.httpAddr.String() + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("DNS using dig", func(t *testing.T) {
		var out bytes.Buffer
		err := dig(ctx, &out, &digOptions{
			server:  srv.dnsAddr.String(),
			qtype:   "A",
			timeout: 10 * time.Second,
		}, "www.example.com")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "status: NOERROR")
		assert.Contains(t, out.String(), "www.example.com.")
		assert.Contains(t, out.String(), "192.168.2.10")
	})

	t.Run("dig with an unknown type", func(t *testing.T) {
		err := dig(ctx, io.Discard, &digOptions{qtype: "NOPE"}, "example.com")
		assert.Error(t, err)
	})

	cancel()
	assert.NoError(t, srv.wait())
}

func TestServe_bindError(t *testing.T) {
	cfg := config.MustParse([]byte(`{}`), config.FormatJSON)
	scenario := netsim.MustNewScenarioFromConfig(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := startServers(context.Background(), scenario, logger, &serveOptions{
		listen: "256.0.0.1:0",
	})
	assert.Error(t, err)
}

func TestLoadScenario_loggers(t *testing.T) {
	a := &app{stdout: io.Discard, stderr: io.Discard, v: viper.New()}
	a.v.Set(keyConfig, filepath.Join("..", "..", "config", "scenario-complex.json"))
	a.v.Set(keyLogLevel, "info")

	scenario, logger, err := a.loadScenario(context.Background())
	require.NoError(t, err)

	// Both loggers are in place before the scenario reaches any server.
	assert.Same(t, logger, scenario.Logger)
	assert.Same(t, logger, scenario.Resolver().Logger)
}
