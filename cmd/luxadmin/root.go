// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/admin"
	"github.com/luxfi/admin/cluster"
)

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitValidation = 2
	exitNotFound   = 3
)

var version = "dev"

type globalOptions struct {
	addresses []string
	transport string
	home      string
	confDir   string
	noConfig  bool
	logLevel  string
	logJSON   bool
	output    string
	timeout   time.Duration

	stdout io.Writer
	stderr io.Writer
}

func run(args []string) int {
	root := newRootCmd(os.Stdout, os.Stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	var verr *admin.ValidationError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &verr):
		return exitValidation
	case admin.IsNotFound(err):
		return exitNotFound
	default:
		return exitError
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "luxadmin",
		Short:         "Administer a Lux cluster",
		Long:          "luxadmin sends cluster admin actions (health, state, settings, reroute) to a node over JSON-RPC, gRPC or the framed TCP transport.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return opts.validate()
		},
	}
	root.Version = version
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.PersistentFlags()
	f.StringSliceVarP(&opts.addresses, "addr", "a", nil, "node address (repeatable)")
	f.StringVarP(&opts.transport, "transport", "t", "", "transport type: http, grpc or framed")
	f.StringVar(&opts.home, "home", "", "home directory (default: working directory)")
	f.StringVar(&opts.confDir, "config-dir", "", "directory holding "+admin.ConfigFileName)
	f.BoolVar(&opts.noConfig, "no-config", false, "ignore the config file and LUXADMIN_ environment")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	f.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")
	f.StringVarP(&opts.output, "output", "o", outputTable, "output format: table or json")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(
		newHealthCmd(opts),
		newStateCmd(opts),
		newNodesCmd(opts),
		newSettingsCmd(opts),
		newRerouteCmd(opts),
		newActionsCmd(opts),
		newDevnodeCmd(opts),
	)
	return root
}

func (o *globalOptions) validate() error {
	if o.output != outputTable && o.output != outputJSON {
		return fmt.Errorf("unknown output format %q", o.output)
	}
	if _, err := parseLevel(o.logLevel); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

func (o *globalOptions) logger() *slog.Logger {
	level, _ := parseLevel(o.logLevel)
	handlerOpts := &slog.HandlerOptions{Level: level}
	if o.logJSON {
		return slog.New(slog.NewJSONHandler(o.stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(o.stderr, handlerOpts))
}

// settings holds only the flags the user set, so the config file and
// environment still apply to the rest.
func (o *globalOptions) settings() admin.Settings {
	b := admin.NewSettingsBuilder()
	if len(o.addresses) > 0 {
		b.Put(admin.SettingAddresses, o.addresses)
	}
	if o.transport != "" {
		b.Put(admin.SettingTransportType, strings.ToLower(o.transport))
	}
	if o.home != "" {
		b.Put(admin.SettingPathHome, o.home)
	}
	if o.confDir != "" {
		b.Put(admin.SettingPathConf, o.confDir)
	}
	return b.Build()
}

func (o *globalOptions) newClient() (*admin.Client, error) {
	return admin.New(o.settings(), !o.noConfig,
		admin.WithActions(cluster.Actions()...),
		admin.WithLogger(o.logger()),
	)
}

// withClient runs fn with a fresh client and a request deadline, then
// closes the client.
func (o *globalOptions) withClient(cmd *cobra.Command, fn func(context.Context, *admin.Client) error) (err error) {
	c, err := o.newClient()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()
	return fn(ctx, c)
}
