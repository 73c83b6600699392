/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package statusmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"chainguard.dev/prlint/reconcilers/githubreconciler"
	"chainguard.dev/prlint/reconcilers/githubreconciler/retry"
	"chainguard.dev/prlint/tools/diagnostic"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

const (
	statusInProgress = "in_progress"
	statusCompleted  = "completed"

	// ConclusionSuccess and ConclusionFailure are the only conclusions a
	// session reports.
	ConclusionSuccess = "success"
	ConclusionFailure = "failure"

	// GitHub rejects output fields longer than this.
	maxOutputLength = 65535
)

var (
	// ErrNotStarted is returned when reporting on a session whose check run
	// has not been created.
	ErrNotStarted = errors.New("check run not started")

	// ErrCompleted is returned when a session's check run has already
	// reached the completed status.
	ErrCompleted = errors.New("check run already completed")
)

// State is the lifecycle position of a Session's check run.
type State int

const (
	// StatePending: no check run exists yet.
	StatePending State = iota
	// StateCreated: the check run exists and is in progress.
	StateCreated
	// StateReporting: at least one non-final batch has been sent.
	StateReporting
	// StateCompleted: the terminal update has been sent.
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCreated:
		return "created"
	case StateReporting:
		return "reporting"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Manager creates check run sessions.
type Manager struct {
	cfg config
}

// New constructs a Manager.
func New(opts ...Option) *Manager {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Manager{cfg: *cfg}
}

// Session owns one check run for the duration of a tool stage. It is not
// safe for concurrent use.
type Session struct {
	manager *Manager
	client  *github.Client
	res     *githubreconciler.Resource

	name       string
	id         int64
	state      State
	sent       int
	total      int
	conclusion string
}

// NewSession returns a pending session for the resource's head commit.
func (m *Manager) NewSession(client *github.Client, res *githubreconciler.Resource) *Session {
	return &Session{
		manager: m,
		client:  client,
		res:     res,
	}
}

// ID returns the check run ID, or zero before Start.
func (s *Session) ID() int64 { return s.id }

// State returns the lifecycle position of the check run.
func (s *Session) State() State { return s.state }

// Conclusion returns the conclusion sent with the terminal update, or the
// empty string before completion.
func (s *Session) Conclusion() string { return s.conclusion }

// Progress returns the number of batches sent and the number planned by the
// current Report call.
func (s *Session) Progress() (sent, total int) { return s.sent, s.total }

// legal reports whether moving from the current state to the given one is
// allowed, without changing anything.
func (s *Session) legal(to State) error {
	switch {
	case s.state == StateCompleted:
		return ErrCompleted
	case to == StateCreated && s.state != StatePending:
		return fmt.Errorf("check run %q already started", s.name)
	case to != StateCreated && s.state == StatePending:
		return ErrNotStarted
	case to < s.state:
		return fmt.Errorf("illegal check run transition %s -> %s", s.state, to)
	}
	return nil
}

// transition is the only place the session state changes.
func (s *Session) transition(to State) error {
	if err := s.legal(to); err != nil {
		return err
	}
	s.state = to
	return nil
}

// Start creates the check run on the head commit with status in_progress.
func (s *Session) Start(ctx context.Context, name string) error {
	if err := s.legal(StateCreated); err != nil {
		return err
	}
	if s.res == nil || s.res.HeadSHA == "" {
		return errors.New("starting check run: head SHA is unknown")
	}

	opts := github.CreateCheckRunOptions{
		Name:      name,
		HeadSHA:   s.res.HeadSHA,
		Status:    github.Ptr(statusInProgress),
		StartedAt: &github.Timestamp{Time: time.Now()},
	}
	if s.manager.cfg.detailsURL != "" {
		opts.DetailsURL = github.Ptr(s.manager.cfg.detailsURL)
	}

	cr, err := retry.Do(ctx, s.manager.cfg.retry, "create_check_run", retry.IsRetryable, func() (*github.CheckRun, error) {
		cr, _, err := s.client.Checks.CreateCheckRun(ctx, s.res.Owner, s.res.Repo, opts)
		return cr, err
	})
	if err != nil {
		return fmt.Errorf("creating check run %q on %s: %w", name, s.res.HeadSHA, err)
	}

	s.name = name
	s.id = cr.GetID()
	clog.FromContext(ctx).With("check_run", name).With("id", s.id).Infof("Created check run on %s", s.res.HeadSHA)
	return s.transition(StateCreated)
}

// Report publishes diags as annotations in batches of at most the configured
// size, in order. Every batch carries the same summary; only the final batch
// completes the run with a conclusion derived from the total error count. An
// empty diags still sends one (final) update.
func (s *Session) Report(ctx context.Context, diags []diagnostic.Diagnostic) error {
	if err := s.legal(StateCompleted); err != nil {
		return err
	}
	log := clog.FromContext(ctx).With("check_run", s.name)

	errorCount := diagnostic.CountErrors(diags)
	conclusion := ConclusionSuccess
	if errorCount > 0 {
		conclusion = ConclusionFailure
	}
	summary := Summary(errorCount)

	batches := Batches(diags, s.manager.cfg.batchSize)
	s.sent, s.total = 0, len(batches)
	for i, batch := range batches {
		last := i == len(batches)-1

		opts := github.UpdateCheckRunOptions{
			Name: s.name,
			Output: &github.CheckRunOutput{
				Title:       github.Ptr(s.name),
				Summary:     github.Ptr(summary),
				Annotations: annotations(batch),
			},
		}
		next := StateReporting
		if last {
			next = StateCompleted
			opts.Status = github.Ptr(statusCompleted)
			opts.Conclusion = github.Ptr(conclusion)
			opts.CompletedAt = &github.Timestamp{Time: time.Now()}
		} else {
			opts.Status = github.Ptr(statusInProgress)
		}

		if err := s.update(ctx, opts); err != nil {
			return fmt.Errorf("updating check run %q (batch %d/%d): %w", s.name, i+1, len(batches), err)
		}
		if err := s.transition(next); err != nil {
			return err
		}
		s.sent = i + 1
		log.Debugf("Sent batch %d/%d with %d annotations", s.sent, s.total, len(batch))
	}

	s.conclusion = conclusion
	log.Infof("Completed check run: %s (%s)", conclusion, summary)
	return nil
}

// Fail completes the check run with a failure conclusion describing err. It
// is used when the stage's tool could not produce diagnostics.
func (s *Session) Fail(ctx context.Context, cause error) error {
	if err := s.legal(StateCompleted); err != nil {
		return err
	}
	if cause == nil {
		cause = errors.New("unknown failure")
	}

	opts := github.UpdateCheckRunOptions{
		Name:        s.name,
		Status:      github.Ptr(statusCompleted),
		Conclusion:  github.Ptr(ConclusionFailure),
		CompletedAt: &github.Timestamp{Time: time.Now()},
		Output: &github.CheckRunOutput{
			Title:   github.Ptr(s.name),
			Summary: github.Ptr(truncate(FailureSummary(cause))),
			Text:    github.Ptr(truncate(FailureText(cause))),
		},
	}
	if err := s.update(ctx, opts); err != nil {
		return fmt.Errorf("failing check run %q: %w", s.name, err)
	}
	s.conclusion = ConclusionFailure
	clog.FromContext(ctx).With("check_run", s.name).Warnf("Check run failed: %v", cause)
	return s.transition(StateCompleted)
}

func (s *Session) update(ctx context.Context, opts github.UpdateCheckRunOptions) error {
	_, err := retry.Do(ctx, s.manager.cfg.retry, "update_check_run", retry.IsRetryable, func() (*github.CheckRun, error) {
		cr, _, err := s.client.Checks.UpdateCheckRun(ctx, s.res.Owner, s.res.Repo, s.id, opts)
		return cr, err
	})
	return err
}

// Summary renders the error count with correct pluralization.
func Summary(errorCount int) string {
	if errorCount == 1 {
		return "1 error found"
	}
	return fmt.Sprintf("%d errors found", errorCount)
}

// Batches partitions diags into consecutive, disjoint groups of at most size
// entries. An empty input yields a single empty batch so that callers always
// have a final batch to complete the run with.
func Batches(diags []diagnostic.Diagnostic, size int) [][]diagnostic.Diagnostic {
	if size < 1 {
		size = MaxAnnotationsPerUpdate
	}
	if len(diags) == 0 {
		return [][]diagnostic.Diagnostic{nil}
	}
	out := make([][]diagnostic.Diagnostic, 0, (len(diags)+size-1)/size)
	for start := 0; start < len(diags); start += size {
		end := min(start+size, len(diags))
		out = append(out, diags[start:end])
	}
	return out
}

// AnnotationLevel maps a severity to GitHub's annotation level.
func AnnotationLevel(sev diagnostic.Severity) string {
	if sev == diagnostic.SeverityError {
		return "failure"
	}
	return "warning"
}

func annotations(batch []diagnostic.Diagnostic) []*github.CheckRunAnnotation {
	out := make([]*github.CheckRunAnnotation, 0, len(batch))
	for _, d := range batch {
		out = append(out, Annotation(d))
	}
	return out
}

// Annotation converts a diagnostic to a check run annotation. Columns are
// only set for single-line ranges, which is all GitHub accepts.
func Annotation(d diagnostic.Diagnostic) *github.CheckRunAnnotation {
	a := &github.CheckRunAnnotation{
		Path:            github.Ptr(d.Path),
		StartLine:       github.Ptr(d.StartLine),
		EndLine:         github.Ptr(d.EndLine),
		AnnotationLevel: github.Ptr(AnnotationLevel(d.Severity)),
		Message:         github.Ptr(d.Message),
	}
	if d.RuleID != "" {
		a.Title = github.Ptr(d.RuleID)
	}
	if d.StartLine == d.EndLine {
		a.StartColumn = github.Ptr(d.StartColumn)
		a.EndColumn = github.Ptr(d.EndColumn)
	}
	return a
}

// FailureSummary is the error message followed by the innermost cause of its
// chain, so the checks list shows why a stage failed without opening the run.
func FailureSummary(err error) string {
	root := errors.Unwrap(err)
	if root == nil {
		return err.Error()
	}
	for next := errors.Unwrap(root); next != nil; next = errors.Unwrap(root) {
		root = next
	}
	return fmt.Sprintf("%s\n\nCaused by: %s", err.Error(), root.Error())
}

// detailer is implemented by errors that carry captured tool output.
type detailer interface {
	Details() string
}

// FailureText renders the error chain, outermost first, followed by any
// captured tool output.
func FailureText(err error) string {
	var b strings.Builder
	b.WriteString("```\n")
	for e := err; e != nil; e = errors.Unwrap(e) {
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	b.WriteString("```\n")

	var d detailer
	if errors.As(err, &d) {
		if details := d.Details(); details != "" {
			b.WriteString("\nTool output:\n\n```\n")
			b.WriteString(details)
			b.WriteString("\n```\n")
		}
	}
	return b.String()
}

func truncate(s string) string {
	if len(s) <= maxOutputLength {
		return s
	}
	const marker = "\n... (truncated)"
	cut := maxOutputLength - len(marker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + marker
}
