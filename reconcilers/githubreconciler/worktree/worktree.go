/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package worktree inspects the local checkout the tools rewrite.
package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
)

// Worktree is a git checkout rooted at the workspace directory.
type Worktree struct {
	root string
	wt   *gogit.Worktree
}

// Open opens the git repository at root.
func Open(root string) (*Worktree, error) {
	repo, err := gogit.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", root, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	return &Worktree{root: wt.Filesystem.Root(), wt: wt}, nil
}

// Root returns the absolute worktree directory.
func (w *Worktree) Root() string {
	return w.root
}

// Modified returns the slash-separated paths of tracked files whose working
// copy differs from the index, sorted. Untracked files are not included.
func (w *Worktree) Modified(ctx context.Context) ([]string, error) {
	status, err := w.wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading worktree status: %w", err)
	}
	var out []string
	for path, fs := range status {
		if fs.Worktree == gogit.Modified {
			out = append(out, path)
		}
	}
	slices.Sort(out)
	clog.FromContext(ctx).Debugf("Worktree has %d modified files", len(out))
	return out, nil
}

// ReadFile reads path relative to the worktree root. Paths that resolve
// outside the root are rejected.
func (w *Worktree) ReadFile(path string) ([]byte, error) {
	full, err := w.validatePath(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func (w *Worktree) validatePath(path string) (string, error) {
	full := filepath.Join(w.root, filepath.Clean(filepath.FromSlash(path)))
	rel, err := filepath.Rel(w.root, full)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes worktree", path)
	}
	return full, nil
}
