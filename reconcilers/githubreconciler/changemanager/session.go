/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changemanager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chainguard.dev/prlint/reconcilers/githubreconciler"
	"chainguard.dev/prlint/reconcilers/githubreconciler/retry"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// Session reconciles one pull request's head branch with the local worktree.
type Session struct {
	manager  *CM
	client   *github.Client
	worktree Worktree
	resource *githubreconciler.Resource
}

// Result records what happened to each eligible file.
type Result struct {
	// Committed files were written to the head branch.
	Committed []string
	// Skipped files already matched the head branch.
	Skipped []string
	// Conflicted files were rejected because the branch moved. They are
	// left for the next run.
	Conflicted []string
}

// Reconcile commits every candidate that was rewritten locally and differs
// from the head branch, one commit per file, with the message
// "{prefix} {path}". Candidates that were not modified locally are ignored,
// so running Reconcile twice makes no additional writes.
func (s *Session) Reconcile(ctx context.Context, candidates []string, prefix string) (*Result, error) {
	log := clog.FromContext(ctx).With("identity", s.manager.identity)
	result := &Result{}

	modified, err := s.worktree.Modified(ctx)
	if err != nil {
		return result, err
	}
	eligible := intersect(candidates, modified)
	if len(eligible) == 0 {
		log.Info("No rewritten files to commit")
		return result, nil
	}
	if s.resource == nil || s.resource.HeadRef == "" {
		return result, ErrNoHeadRef
	}

	var errs []error
	for _, path := range eligible {
		log := log.With("path", path)
		committed, err := s.reconcileFile(ctx, path, prefix)
		switch {
		case IsConflict(err):
			log.Warnf("Head branch %s moved, leaving %s for the next run: %v", s.resource.HeadRef, path, err)
			result.Conflicted = append(result.Conflicted, path)
		case err != nil:
			errs = append(errs, fmt.Errorf("reconciling %s: %w", path, err))
		case committed:
			log.Infof("Committed fix to %s", s.resource.HeadRef)
			result.Committed = append(result.Committed, path)
		default:
			log.Debug("Already up to date")
			result.Skipped = append(result.Skipped, path)
		}
	}
	return result, errors.Join(errs...)
}

// reconcileFile writes path to the head branch unless the remote bytes are
// identical. The write is keyed by the remote blob SHA read here.
func (s *Session) reconcileFile(ctx context.Context, path, prefix string) (bool, error) {
	local, err := s.worktree.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading local file: %w", err)
	}

	remote, sha, found, err := s.remoteContent(ctx, path)
	if err != nil {
		return false, err
	}
	if found && bytes.Equal(local, remote) {
		return false, nil
	}

	opts := &github.RepositoryContentFileOptions{
		Message:   github.Ptr(commitMessage(prefix, path)),
		Content:   local,
		Branch:    github.Ptr(s.resource.HeadRef),
		Committer: s.manager.committer,
	}
	res := s.resource
	_, err = retry.Do(ctx, s.manager.retry, "write_contents", retry.IsRetryable, func() (*github.RepositoryContentResponse, error) {
		if found {
			opts.SHA = github.Ptr(sha)
			rcr, _, err := s.client.Repositories.UpdateFile(ctx, res.Owner, res.Repo, path, opts)
			return rcr, err
		}
		rcr, _, err := s.client.Repositories.CreateFile(ctx, res.Owner, res.Repo, path, opts)
		return rcr, err
	})
	if err != nil {
		return false, fmt.Errorf("writing to %s: %w", res.HeadRef, err)
	}
	return true, nil
}

// remoteContent returns the bytes and blob SHA of path on the head branch.
// found is false when the file does not exist there.
func (s *Session) remoteContent(ctx context.Context, path string) (content []byte, sha string, found bool, err error) {
	res := s.resource
	opts := &github.RepositoryContentGetOptions{Ref: res.HeadRef}
	fc, err := retry.Do(ctx, s.manager.retry, "get_contents", retry.IsRetryable, func() (*github.RepositoryContent, error) {
		fc, _, _, err := s.client.Repositories.GetContents(ctx, res.Owner, res.Repo, path, opts)
		return fc, err
	})
	if err != nil {
		var er *github.ErrorResponse
		if errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound {
			return nil, "", false, nil
		}
		return nil, "", false, fmt.Errorf("fetching %s@%s: %w", path, res.HeadRef, err)
	}
	if fc == nil {
		return nil, "", false, fmt.Errorf("fetching %s@%s: not a file", path, res.HeadRef)
	}
	decoded, err := fc.GetContent()
	if err != nil {
		return nil, "", false, fmt.Errorf("decoding %s@%s: %w", path, res.HeadRef, err)
	}
	return []byte(decoded), fc.GetSHA(), true, nil
}

func commitMessage(prefix, path string) string {
	return strings.TrimSpace(prefix + " " + path)
}

// intersect returns the candidates present in modified, in candidate order
// and without duplicates.
func intersect(candidates, modified []string) []string {
	set := make(map[string]bool, len(modified))
	for _, m := range modified {
		set[m] = true
	}
	var out []string
	for _, c := range candidates {
		if set[c] {
			out = append(out, c)
			delete(set, c)
		}
	}
	return out
}
