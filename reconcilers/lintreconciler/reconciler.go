/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package lintreconciler

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/prlint/config"
	"chainguard.dev/prlint/metrics"
	"chainguard.dev/prlint/reconcilers/githubreconciler"
	"chainguard.dev/prlint/reconcilers/githubreconciler/changemanager"
	"chainguard.dev/prlint/reconcilers/githubreconciler/changeset"
	"chainguard.dev/prlint/reconcilers/githubreconciler/statusmanager"
	"chainguard.dev/prlint/reconcilers/githubreconciler/worktree"
	"chainguard.dev/prlint/report"
	"chainguard.dev/prlint/tools/analyzer"
	"chainguard.dev/prlint/tools/diagnostic"
	"chainguard.dev/prlint/tools/formatter"
	"chainguard.dev/prlint/tools/locator"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Identity names this automation in commit logs and telemetry.
const Identity = "prlint"

// Runner runs one tool over a list of workspace-relative files.
type Runner interface {
	Run(ctx context.Context, toolPath string, files []string) ([]diagnostic.Diagnostic, error)
}

// Resolver finds the executable for a tool name.
type Resolver interface {
	Resolve(ctx context.Context, dir, tool string) (string, error)
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithResolver replaces the package-manager tool locator.
func WithResolver(r Resolver) Option {
	return func(rec *Reconciler) { rec.resolver = r }
}

// WithRunner replaces the runner used for stages of kind.
func WithRunner(kind config.Kind, r Runner) Option {
	return func(rec *Reconciler) { rec.runners[kind] = r }
}

// WithWorktree supplies the worktree used to find rewritten files instead
// of opening the workspace repository.
func WithWorktree(wt changemanager.Worktree) Option {
	return func(rec *Reconciler) { rec.worktree = wt }
}

// WithStatusManager replaces the check run manager.
func WithStatusManager(sm *statusmanager.Manager) Option {
	return func(rec *Reconciler) { rec.status = sm }
}

// WithChangeManager replaces the commit-back manager.
func WithChangeManager(cm *changemanager.CM) Option {
	return func(rec *Reconciler) { rec.changes = cm }
}

// WithMetrics replaces the metric instruments.
func WithMetrics(m *metrics.Lint) Option {
	return func(rec *Reconciler) { rec.metrics = m }
}

// WithStages restricts the run to the stages whose check names are given.
// Unknown names are ignored.
func WithStages(names ...string) Option {
	return func(rec *Reconciler) { rec.only = names }
}

// Reconciler runs every configured stage against a pull request's changed
// files, reports each stage on its own check run and, in fix mode, commits
// rewritten files back to the head branch.
type Reconciler struct {
	cfg    *config.Config
	client *github.Client

	files    *changeset.Provider
	resolver Resolver
	runners  map[config.Kind]Runner
	status   *statusmanager.Manager
	changes  *changemanager.CM
	worktree changemanager.Worktree
	metrics  *metrics.Lint
	tracer   trace.Tracer
	only     []string
}

// New constructs a Reconciler from cfg. gql may be nil, in which case head
// data must come from the event.
func New(cfg *config.Config, client *github.Client, gql *githubv4.Client, opts ...Option) (*Reconciler, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if client == nil {
		return nil, errors.New("GitHub client is required")
	}
	r := &Reconciler{
		cfg:      cfg,
		client:   client,
		files:    changeset.New(client, gql),
		resolver: locator.New(),
		runners: map[config.Kind]Runner{
			config.KindLint:   analyzer.New(cfg.Workspace),
			config.KindFormat: formatter.New(cfg.Workspace),
		},
		status: statusmanager.New(statusmanager.WithDetailsURL(cfg.RunURL())),
		tracer: otel.Tracer(metrics.MeterName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.changes == nil {
		cm, err := changemanager.New(Identity, changemanager.WithCommitter(cfg.CommitterName, cfg.CommitterMail))
		if err != nil {
			return nil, err
		}
		r.changes = cm
	}
	if r.metrics == nil {
		r.metrics = metrics.New(nil)
	}
	return r, nil
}

// Reconcile processes res. A run without a pull request, or with an empty
// change set, does nothing. Tool failures are reported on the stage's check
// run and never returned; the returned error joins the GitHub failures of
// every stage.
func (r *Reconciler) Reconcile(ctx context.Context, res *githubreconciler.Resource) error {
	files, err := r.files.List(ctx, res)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		clog.FromContext(ctx).Info("No changed files to check")
		return nil
	}
	log := clog.FromContext(ctx).With("resource", res.String())
	ctx = clog.WithLogger(ctx, log)

	if res.HeadSHA == "" || res.HeadRef == "" {
		if err := r.files.ResolveHead(ctx, res); err != nil {
			if res.HeadSHA == "" {
				return err
			}
			log.Warnf("Could not resolve head ref: %v", err)
		}
	}
	r.metrics.SetAttributeEnricher(metrics.ResourceEnricher(res.Owner+"/"+res.Repo, res.Number))

	var errs []error
	for _, stage := range r.stages() {
		if err := r.runStage(ctx, res, stage, files); err != nil {
			errs = append(errs, fmt.Errorf("stage %s: %w", stage.CheckName, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Reconciler) stages() []config.Stage {
	if len(r.only) == 0 {
		return r.cfg.Stages
	}
	var out []config.Stage
	for _, s := range r.cfg.Stages {
		for _, name := range r.only {
			if s.CheckName == name {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// runStage drives one stage through its check run. The returned error is
// limited to failures talking to GitHub.
func (r *Reconciler) runStage(ctx context.Context, res *githubreconciler.Resource, stage config.Stage, files []changeset.ChangedFile) (err error) {
	ctx, span := r.tracer.Start(ctx, "prlint.stage", trace.WithAttributes(
		attribute.String("stage", stage.CheckName),
		attribute.String("tool", stage.Tool)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	log := clog.FromContext(ctx).With("stage", stage.CheckName)
	ctx = clog.WithLogger(ctx, log)

	session := r.status.NewSession(r.client, res)
	if err := session.Start(ctx, stage.CheckName); err != nil {
		r.metrics.RecordStage(ctx, stage.CheckName, metrics.OutcomeError)
		return err
	}

	toolPath, err := r.resolver.Resolve(ctx, r.cfg.Workspace, stage.Tool)
	if err != nil {
		return r.fail(ctx, session, stage, metrics.OutcomeUnavailable, err)
	}

	runner, ok := r.runners[stage.Kind]
	if !ok {
		return r.fail(ctx, session, stage, metrics.OutcomeError, fmt.Errorf("no runner for stage kind %q", stage.Kind))
	}
	targets := changeset.FilterExtensions(files, stage.Extensions)
	diags, err := runner.Run(ctx, toolPath, targets)
	if err != nil {
		return r.fail(ctx, session, stage, metrics.OutcomeError, err)
	}
	diags = diagnostic.Suppress(diags, r.cfg.Fix)

	if err := session.Report(ctx, diags); err != nil {
		r.metrics.RecordStage(ctx, stage.CheckName, metrics.OutcomeError)
		return err
	}
	r.metrics.RecordStage(ctx, stage.CheckName, session.Conclusion())
	errorCount := diagnostic.CountErrors(diags)
	r.metrics.RecordAnnotations(ctx, stage.CheckName, statusmanager.AnnotationLevel(diagnostic.SeverityError), errorCount)
	r.metrics.RecordAnnotations(ctx, stage.CheckName, statusmanager.AnnotationLevel(diagnostic.SeverityWarning), len(diags)-errorCount)

	summary := report.Stage{
		Name:        stage.CheckName,
		Conclusion:  session.Conclusion(),
		Files:       len(targets),
		Diagnostics: diags,
	}

	var commitErr error
	if r.cfg.Fix {
		result, err := r.commit(ctx, res, stage, targets)
		if result != nil {
			summary.Committed = result.Committed
			summary.Conflicted = result.Conflicted
			r.metrics.RecordCommits(ctx, stage.CheckName, "committed", len(result.Committed))
			r.metrics.RecordCommits(ctx, stage.CheckName, "skipped", len(result.Skipped))
			r.metrics.RecordCommits(ctx, stage.CheckName, "conflicted", len(result.Conflicted))
		}
		commitErr = err
	}

	r.writeSummary(ctx, summary)
	return commitErr
}

// fail completes the check run with cause. Only an error from GitHub is
// returned; cause itself is surfaced through the check run.
func (r *Reconciler) fail(ctx context.Context, session *statusmanager.Session, stage config.Stage, outcome string, cause error) error {
	clog.FromContext(ctx).Warnf("Stage failed: %v", cause)
	r.metrics.RecordStage(ctx, stage.CheckName, outcome)
	r.writeSummary(ctx, report.Stage{
		Name:       stage.CheckName,
		Conclusion: statusmanager.ConclusionFailure,
		Err:        cause,
	})
	return session.Fail(ctx, cause)
}

func (r *Reconciler) commit(ctx context.Context, res *githubreconciler.Resource, stage config.Stage, targets []string) (*changemanager.Result, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	if r.worktree == nil {
		wt, err := worktree.Open(r.cfg.Workspace)
		if err != nil {
			return nil, err
		}
		r.worktree = wt
	}
	return r.changes.NewSession(r.client, r.worktree, res).Reconcile(ctx, targets, stage.CommitPrefix)
}

func (r *Reconciler) writeSummary(ctx context.Context, s report.Stage) {
	if err := report.AppendToFile(r.cfg.StepSummary, s); err != nil {
		clog.FromContext(ctx).Warnf("Writing step summary: %v", err)
	}
}
