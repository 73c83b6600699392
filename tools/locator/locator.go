/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package locator resolves the executable for a node tool installed in a
// project's local package-manager binary directory.
package locator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
)

// ErrToolUnavailable is wrapped by every Resolve failure.
var ErrToolUnavailable = errors.New("tool unavailable")

// PackageManager describes how to find the binary directory of one package
// manager.
type PackageManager struct {
	Name string
	// Lockfile selects this manager when present in the directory. An empty
	// Lockfile always matches and should be listed last.
	Lockfile string
	// Command prints a directory on stdout.
	Command []string
	// Subdir is joined onto the printed directory.
	Subdir string
}

// DefaultPackageManagers lists the managers in probe priority order.
func DefaultPackageManagers() []PackageManager {
	return []PackageManager{{
		Name:     "pnpm",
		Lockfile: "pnpm-lock.yaml",
		Command:  []string{"pnpm", "bin"},
	}, {
		Name:     "yarn",
		Lockfile: "yarn.lock",
		Command:  []string{"yarn", "bin"},
	}, {
		Name:    "npm",
		Command: []string{"npm", "prefix"},
		Subdir:  filepath.Join("node_modules", ".bin"),
	}}
}

// Option configures a Locator.
type Option func(*Locator)

// WithPackageManagers replaces the probe table.
func WithPackageManagers(pms ...PackageManager) Option {
	return func(l *Locator) {
		l.managers = pms
	}
}

// WithVersionArgs overrides the arguments used to verify a candidate binary.
func WithVersionArgs(args ...string) Option {
	return func(l *Locator) {
		l.versionArgs = args
	}
}

// Locator resolves tool binaries.
type Locator struct {
	managers    []PackageManager
	versionArgs []string
}

// New constructs a Locator using the default package managers.
func New(opts ...Option) *Locator {
	l := &Locator{
		managers:    DefaultPackageManagers(),
		versionArgs: []string{"--version"},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Resolve returns the path of tool inside the local binary directory of the
// package manager used by dir. Every failure wraps ErrToolUnavailable.
func (l *Locator) Resolve(ctx context.Context, dir, tool string) (string, error) {
	pm, ok := l.detect(dir)
	if !ok {
		return "", fmt.Errorf("%w: no package manager matched %s", ErrToolUnavailable, dir)
	}
	log := clog.FromContext(ctx).With("tool", tool, "package_manager", pm.Name)

	binDir, err := run(ctx, dir, pm.Command)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrToolUnavailable, strings.Join(pm.Command, " "), err)
	}
	if pm.Subdir != "" {
		binDir = filepath.Join(binDir, pm.Subdir)
	}
	candidate := filepath.Join(binDir, tool)

	version, err := run(ctx, dir, append([]string{candidate}, l.versionArgs...))
	if err != nil {
		return "", fmt.Errorf("%w: verifying %s: %v", ErrToolUnavailable, candidate, err)
	}
	log.Infof("Resolved %s %s at %s", tool, version, candidate)
	return candidate, nil
}

func (l *Locator) detect(dir string) (PackageManager, bool) {
	for _, pm := range l.managers {
		if pm.Lockfile == "" {
			return pm, true
		}
		if _, err := os.Stat(filepath.Join(dir, pm.Lockfile)); err == nil {
			return pm, true
		}
	}
	return PackageManager{}, false
}

// run executes argv in dir and returns its trimmed stdout.
func run(ctx context.Context, dir string, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("%s printed nothing", argv[0])
	}
	return out, nil
}
