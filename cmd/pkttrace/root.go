// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rbmk-project/common/errclass"
	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/pkttrace/config"
	"github.com/rbmk-project/pkttrace/netsim"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultConfigPath is the configuration file used by default.
const defaultConfigPath = "config/scenario-complex.json"

// Configuration keys.
const (
	keyConfig   = "config"
	keyLogLevel = "log_level"
)

// app contains the state shared by the commands.
type app struct {
	// stdout is where commands write their output.
	stdout io.Writer

	// stderr is where we write the structured logs.
	stderr io.Writer

	// v contains the global settings.
	v *viper.Viper
}

// newRootCommand creates the pkttrace command.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, v: viper.New()}

	root := &cobra.Command{
		Use:           "pkttrace",
		Short:         "Trace packets through a simulated network topology",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.String("config", defaultConfigPath,
		"topology configuration file (JSON, or TOML when ending in .toml)")
	flags.String("log-level", "warn", "minimum log level (debug, info, warn, error)")

	// Flags take precedence over the environment, which takes
	// precedence over the flags default values.
	runtimex.Try0(a.v.BindPFlag(keyConfig, flags.Lookup("config")))
	runtimex.Try0(a.v.BindPFlag(keyLogLevel, flags.Lookup("log-level")))
	runtimex.Try0(a.v.BindEnv(keyConfig, "PACKET_TRACER_CONFIG"))
	runtimex.Try0(a.v.BindEnv(keyLogLevel, "PKTTRACE_LOG_LEVEL"))

	root.AddCommand(
		newServeCommand(a),
		newTraceCommand(a),
		newResolveCommand(a),
		newDigCommand(a),
	)
	return root
}

// logger returns the structured logger writing to stderr.
func (a *app) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString(keyLogLevel))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	handler := slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler), nil
}

// loadScenario loads the configuration and builds the scenario.
func (a *app) loadScenario(ctx context.Context) (*netsim.Scenario, *slog.Logger, error) {
	logger, err := a.logger()
	if err != nil {
		return nil, nil, err
	}

	path := a.v.GetString(keyConfig)
	cfg, err := config.Load(path)
	var scenario *netsim.Scenario
	if err == nil {
		scenario, err = netsim.NewScenarioFromConfig(cfg)
	}
	if err != nil {
		logger.ErrorContext(
			ctx,
			"configLoaded",
			slog.String("path", path),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
		)
		return nil, nil, err
	}

	logger.InfoContext(
		ctx,
		"configLoaded",
		slog.String("path", path),
		slog.Int("dnsRecords", len(cfg.DNS)),
		slog.Int("firewallRules", len(cfg.Firewall)),
		slog.Int("routers", len(cfg.Routers)),
	)
	// Configure logging before sharing the scenario.
	scenario.Logger = logger
	scenario.Resolver().Logger = logger
	return scenario, logger, nil
}
