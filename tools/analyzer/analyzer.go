/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package analyzer

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"

	"chainguard.dev/prlint/tools/diagnostic"
	"github.com/chainguard-dev/clog"
)

// Analyzer runs an ESLint-compatible linter and translates its JSON report.
type Analyzer struct {
	root string
}

// New returns an Analyzer that invokes tools from, and reports paths
// relative to, the workspace root.
func New(root string) *Analyzer {
	return &Analyzer{root: filepath.Clean(root)}
}

// Run lints files with the tool at toolPath. An empty file list returns no
// diagnostics without invoking the tool, since most linters treat a missing
// path argument as "lint everything". Failures are returned as *ToolError.
func (a *Analyzer) Run(ctx context.Context, toolPath string, files []string) ([]diagnostic.Diagnostic, error) {
	if len(files) == 0 {
		return nil, nil
	}
	log := clog.FromContext(ctx).With("tool", filepath.Base(toolPath))

	args := append([]string{"--fix", "--format", "json", "--"}, files...)
	cmd := exec.CommandContext(ctx, toolPath, args...)
	cmd.Dir = a.root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Infof("Linting %d files", len(files))
	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	// Linters exit non-zero when they find problems; only an empty report
	// means the process itself failed.
	if err != nil && len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		return nil, &ToolError{
			Tool:   filepath.Base(toolPath),
			Reason: "invocation failed",
			Output: stderr.String(),
			Err:    err,
		}
	}

	diags, perr := parseReport(stdout.Bytes(), a.root)
	if perr != nil {
		return nil, &ToolError{
			Tool:   filepath.Base(toolPath),
			Reason: "unreadable report",
			Output: stdout.String() + stderr.String(),
			Err:    perr,
		}
	}
	log.With("diagnostics", len(diags)).Info("Lint report parsed")
	return diags, nil
}
