/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs prlint inside a GitHub Actions job: it lints and formats
// the files a pull request changed, reports findings as check run
// annotations and, with PRLINT_FIX=true, commits the fixes back.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chainguard.dev/prlint/config"
	"chainguard.dev/prlint/reconcilers/githubreconciler"
	"chainguard.dev/prlint/reconcilers/lintreconciler"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		clog.FatalContextf(ctx, "prlint: %v", err)
	}
}

type options struct {
	stages []string
	fix    bool
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "prlint",
		Short: "Lint and format the files changed by a pull request",
		Long: "prlint runs the repository's linter and formatter on the files a pull request changed, " +
			"reports findings as check run annotations and, in fix mode, commits fixes to the head branch.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("fix") {
				cfg.Fix = opts.fix
			}
			return run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.stages, "stage", nil, "run only the named stages (check names), e.g. --stage eslint")
	cmd.Flags().BoolVar(&opts.fix, "fix", false, "commit auto-fixed files to the head branch (overrides PRLINT_FIX)")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	ctx = clog.WithLogger(ctx, clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})))

	shutdown, err := setupMetrics(cfg.MetricsStdout)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			clog.FromContext(ctx).Warnf("Flushing metrics: %v", err)
		}
	}()

	res, err := githubreconciler.ResourceFromEvent(cfg.Event())
	if err != nil {
		return err
	}
	gh, err := githubreconciler.NewClient(ctx, cfg.Token, cfg.APIURL)
	if err != nil {
		return err
	}
	gql := githubreconciler.NewGraphQLClient(gh, cfg.GraphQLURL)

	var recOpts []lintreconciler.Option
	if len(opts.stages) > 0 {
		recOpts = append(recOpts, lintreconciler.WithStages(opts.stages...))
	}
	rec, err := lintreconciler.New(cfg, gh, gql, recOpts...)
	if err != nil {
		return fmt.Errorf("creating reconciler: %w", err)
	}

	clog.FromContext(ctx).Infof("Checking %s (fix=%v)", res, cfg.Fix)
	return rec.Reconcile(ctx, res)
}

// parseLevel maps PRLINT_LOG_LEVEL to a slog level, defaulting to info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// setupMetrics installs a global meter provider. Without stdout export the
// global no-op provider stays in place.
func setupMetrics(stdout bool) (func(context.Context) error, error) {
	if !stdout {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating stdout metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}
