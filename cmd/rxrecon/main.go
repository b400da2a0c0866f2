package main

/*
rxrecon — DNS and Certificate Transparency reconnaissance in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

/*
Package main is the entry point for the rxrecon command-line application.

rxrecon gathers reconnaissance data about a domain:
  - certificates listed by crt.sh for a domain (--certificate),
  - DNS records of every catalogued type for one or more domains (--dnsinfo),
  - both combined: names discovered through crt.sh are followed up with DNS
    collection (--allinfo).

Results are previewed on stdout or exported as JSON, CSV, XLSX or SQLite.
The convert subcommand re-expands a nested DNS JSON export into rows.
*/

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/x-stp/rxrecon/internal/config"
	"github.com/x-stp/rxrecon/internal/core"
	"github.com/x-stp/rxrecon/internal/export"
	"github.com/x-stp/rxrecon/internal/metrics"
)

var version = "dev"

// options holds the parsed command-line flags.
type options struct {
	certificate string
	dnsinfo     string
	allinfo     string

	format  string
	outfile string

	validOnly bool
	nested    bool
	scope     string

	configPath  string
	logLevel    string
	logFormat   string
	metricsAddr string
	resolvers   []string
	timeout     time.Duration
	qps         float64

	input string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "rxrecon",
		Short:         "rxrecon - DNS records and crt.sh certificate discovery for a domain",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.certificate == "" && opts.dnsinfo == "" && opts.allinfo == "" {
				return cmd.Help()
			}
			return runModes(cmd, opts)
		},
	}

	rootCmd.Flags().StringVarP(&opts.certificate, "certificate", "c", "", "Domain to look up on crt.sh")
	rootCmd.Flags().StringVarP(&opts.dnsinfo, "dnsinfo", "d", "", "Comma separated domains to collect DNS records for")
	rootCmd.Flags().StringVarP(&opts.allinfo, "allinfo", "a", "", "Base domain: discover related names on crt.sh and collect their DNS records")
	rootCmd.Flags().BoolVar(&opts.validOnly, "valid-only", false, "Keep only certificates that have not expired (certificate mode)")
	rootCmd.Flags().BoolVar(&opts.nested, "nested", false, "Write one document per domain instead of expanded rows (json only)")
	rootCmd.Flags().StringVar(&opts.scope, "scope", string(core.ScopeAll), "Discovered names to follow up: all or registrable")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.format, "format", "f", "", "Export format: json, csv, xlsx or sqlite (default: preview on stdout)")
	pf.StringVarP(&opts.outfile, "outfile", "o", "", "Output file prefix (default \"output\")")
	pf.StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	pf.StringArrayVar(&opts.resolvers, "resolver", nil, "DNS server host[:port] (repeatable)")
	pf.DurationVar(&opts.timeout, "timeout", 0, "Per-query DNS timeout")
	pf.Float64Var(&opts.qps, "qps", 0, "Maximum DNS queries per second (0 = unpaced)")

	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Expand a nested DNS JSON export into rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts)
		},
	}
	convertCmd.Flags().StringVarP(&opts.input, "input", "i", "", "Nested DNS JSON file to convert")
	_ = convertCmd.MarkFlagRequired("input")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rxrecon %s\n", version)
		},
	}

	rootCmd.AddCommand(convertCmd, versionCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies flags the user set.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Export.Format = opts.format
	}
	if flags.Changed("outfile") && opts.outfile != "" {
		cfg.Export.Prefix = opts.outfile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if flags.Changed("resolver") {
		cfg.Resolver.Servers = opts.resolvers
	}
	if flags.Changed("timeout") {
		cfg.Resolver.Timeout = opts.timeout
	}
	if flags.Changed("qps") {
		cfg.Resolver.QPS = opts.qps
	}
	return cfg, cfg.Validate()
}

// newLogger builds the run logger. Every entry carries the run id.
func newLogger(cfg config.Config, runID string) (*logrus.Entry, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	logger.SetLevel(level)
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger.WithField("run", runID), nil
}

// startMetrics serves metrics when an address is configured. The returned
// function stops the server.
func startMetrics(cfg config.Config, log *logrus.Entry) func() {
	if cfg.Metrics.Addr == "" {
		return func() {}
	}
	metrics.EnableMetrics()
	if err := metrics.StartMetricsServer(cfg.Metrics.Addr, log); err != nil {
		log.WithError(err).Warn("Failed to start metrics server")
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.ShutdownMetricsServer(ctx); err != nil {
			log.WithError(err).Warn("Metrics server shutdown")
		}
	}
}

// setup performs the work shared by every command.
func setup(cmd *cobra.Command, opts *options) (*app, context.Context, func(), error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	runID := uuid.New().String()
	log, err := newLogger(cfg, runID)
	if err != nil {
		return nil, nil, nil, err
	}

	var exporter *export.Exporter
	if cfg.Export.Format != "" {
		format, err := export.ParseFormat(cfg.Export.Format)
		if err != nil {
			return nil, nil, nil, err
		}
		exporter = export.NewExporter(format, runID, log)
	}

	stopMetrics := startMetrics(cfg, log)
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	cleanup := func() {
		stop()
		stopMetrics()
	}

	a := &app{
		cfg:      cfg,
		opts:     opts,
		log:      log,
		out:      cmd.OutOrStdout(),
		exporter: exporter,
	}
	return a, ctx, cleanup, nil
}
