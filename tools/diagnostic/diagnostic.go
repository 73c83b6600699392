/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package diagnostic holds the tool-agnostic finding model shared by the
// analysis tools and the check run reporter.
package diagnostic

// Severity is the reported level of a Diagnostic.
type Severity string

const (
	// SeverityWarning findings are annotated but never fail a check run.
	SeverityWarning Severity = "warning"
	// SeverityError findings fail the check run they are reported on.
	SeverityError Severity = "error"
)

// Diagnostic is a single finding scoped to a line range of one file.
type Diagnostic struct {
	// Path is slash-separated and relative to the workspace root.
	Path string

	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int

	Severity Severity
	RuleID   string
	Message  string

	// AutoFixable is set when the tool offered a fix for the finding.
	AutoFixable bool
}

// CountErrors returns the number of diagnostics with SeverityError.
func CountErrors(diags []Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Suppress drops auto-fixable diagnostics when running in fix mode, since the
// tool has already corrected them on disk. Outside fix mode the input is
// returned unchanged.
func Suppress(diags []Diagnostic, fixMode bool) []Diagnostic {
	if !fixMode {
		return diags
	}
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.AutoFixable {
			continue
		}
		out = append(out, d)
	}
	return out
}
