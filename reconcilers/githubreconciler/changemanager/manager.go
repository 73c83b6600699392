/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changemanager

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"chainguard.dev/prlint/reconcilers/githubreconciler"
	"chainguard.dev/prlint/reconcilers/githubreconciler/retry"
	"github.com/google/go-github/v84/github"
)

// ErrNoHeadRef is returned when files need committing but the pull request's
// head branch is unknown.
var ErrNoHeadRef = errors.New("head ref is unknown, cannot commit fixes")

// Worktree is the local checkout whose rewritten files are reconciled.
type Worktree interface {
	// Modified returns the slash-separated paths that differ from the index.
	Modified(ctx context.Context) ([]string, error)
	// ReadFile returns the current local bytes of path.
	ReadFile(path string) ([]byte, error)
}

// Option configures a CM (ChangeManager).
type Option func(*CM)

// WithRetry overrides the backoff applied to contents API calls.
func WithRetry(cfg retry.Config) Option {
	return func(cm *CM) {
		cm.retry = cfg
	}
}

// WithCommitter sets the committer recorded on fix commits. Without it
// GitHub attributes commits to the token's identity.
func WithCommitter(name, email string) Option {
	return func(cm *CM) {
		if name == "" || email == "" {
			cm.committer = nil
			return
		}
		cm.committer = &github.CommitAuthor{Name: github.Ptr(name), Email: github.Ptr(email)}
	}
}

// CM commits locally rewritten files back to a pull request's head branch.
type CM struct {
	identity  string
	retry     retry.Config
	committer *github.CommitAuthor
}

// New creates a CM. The identity names the automation in logs.
func New(identity string, opts ...Option) (*CM, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, errors.New("identity is required")
	}
	cm := &CM{
		identity: identity,
		retry:    retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(cm)
	}
	if err := cm.retry.Validate(); err != nil {
		return nil, err
	}
	return cm, nil
}

// NewSession creates a Session committing wt's changes to res's head branch.
func (cm *CM) NewSession(client *github.Client, wt Worktree, res *githubreconciler.Resource) *Session {
	return &Session{
		manager:  cm,
		client:   client,
		worktree: wt,
		resource: res,
	}
}

// IsConflict reports whether err is GitHub rejecting a contents write
// because the branch moved since the file's SHA was read.
func IsConflict(err error) bool {
	var er *github.ErrorResponse
	if !errors.As(err, &er) || er.Response == nil {
		return false
	}
	switch er.Response.StatusCode {
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
