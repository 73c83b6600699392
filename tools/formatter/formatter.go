/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package formatter runs a Prettier-compatible formatter that rewrites files
// in place. Only the exit status is consumed.
package formatter

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"

	"chainguard.dev/prlint/tools/analyzer"
	"chainguard.dev/prlint/tools/diagnostic"
	"github.com/chainguard-dev/clog"
)

// Formatter invokes `<tool> --ignore-unknown --write <files...>`.
type Formatter struct {
	root string
}

// New returns a Formatter that runs from the workspace root.
func New(root string) *Formatter {
	return &Formatter{root: filepath.Clean(root)}
}

// Run formats files in place. It never produces diagnostics; a non-zero exit
// is returned as *analyzer.ToolError.
func (f *Formatter) Run(ctx context.Context, toolPath string, files []string) ([]diagnostic.Diagnostic, error) {
	if len(files) == 0 {
		return nil, nil
	}

	args := append([]string{"--ignore-unknown", "--write", "--"}, files...)
	cmd := exec.CommandContext(ctx, toolPath, args...)
	cmd.Dir = f.root

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	clog.FromContext(ctx).Infof("Formatting %d files with %s", len(files), filepath.Base(toolPath))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &analyzer.ToolError{
			Tool:   filepath.Base(toolPath),
			Reason: "formatting failed",
			Output: stderr.String(),
			Err:    err,
		}
	}
	return nil, nil
}
