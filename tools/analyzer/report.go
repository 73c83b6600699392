/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"chainguard.dev/prlint/tools/diagnostic"
)

// fileReport is one entry of the JSON array printed by `--format json`.
// Pointers distinguish absent fields from zero values.
type fileReport struct {
	FilePath *string          `json:"filePath"`
	Messages *[]messageReport `json:"messages"`
}

type messageReport struct {
	Line      int             `json:"line"`
	Column    int             `json:"column"`
	EndLine   *int            `json:"endLine"`
	EndColumn *int            `json:"endColumn"`
	Severity  *int            `json:"severity"`
	RuleID    *string         `json:"ruleId"`
	Message   *string         `json:"message"`
	Fix       json.RawMessage `json:"fix"`
}

// extractReport isolates the JSON array from tool stdout. Package-manager
// wrappers sometimes print banner lines before the report, so everything
// before the first line opening an array is dropped.
func extractReport(stdout []byte) []byte {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 || trimmed[0] == '[' {
		return trimmed
	}
	offset := 0
	for _, line := range bytes.SplitAfter(trimmed, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte("[")) {
			return bytes.TrimSpace(trimmed[offset:])
		}
		offset += len(line)
	}
	return trimmed
}

// parseReport strictly decodes a JSON report into diagnostics with paths
// relative to root.
func parseReport(data []byte, root string) ([]diagnostic.Diagnostic, error) {
	data = extractReport(data)
	if len(data) == 0 {
		return nil, errors.New("empty report")
	}

	var files []fileReport
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&files); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	if dec.More() {
		return nil, errors.New("trailing data after report")
	}

	var diags []diagnostic.Diagnostic
	for i, f := range files {
		if f.FilePath == nil || *f.FilePath == "" {
			return nil, fmt.Errorf("entry %d: missing filePath", i)
		}
		if f.Messages == nil {
			return nil, fmt.Errorf("entry %d (%s): missing messages", i, *f.FilePath)
		}
		path, err := relativePath(root, *f.FilePath)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		for j, m := range *f.Messages {
			d, err := toDiagnostic(path, m)
			if err != nil {
				return nil, fmt.Errorf("%s message %d: %w", path, j, err)
			}
			diags = append(diags, d)
		}
	}
	return diags, nil
}

func toDiagnostic(path string, m messageReport) (diagnostic.Diagnostic, error) {
	if m.Message == nil {
		return diagnostic.Diagnostic{}, errors.New("missing message")
	}
	if m.Severity == nil {
		return diagnostic.Diagnostic{}, errors.New("missing severity")
	}

	var sev diagnostic.Severity
	switch *m.Severity {
	case 1:
		sev = diagnostic.SeverityWarning
	case 2:
		sev = diagnostic.SeverityError
	default:
		return diagnostic.Diagnostic{}, fmt.Errorf("unknown severity %d", *m.Severity)
	}

	// File-level messages (e.g. ignored-file warnings) carry no position.
	startLine := max(m.Line, 1)
	startCol := max(m.Column, 1)
	endLine, endCol := startLine, startCol
	if m.EndLine != nil && *m.EndLine >= startLine {
		endLine = *m.EndLine
	}
	if m.EndColumn != nil && *m.EndColumn >= 1 {
		endCol = *m.EndColumn
	}

	d := diagnostic.Diagnostic{
		Path:        path,
		StartLine:   startLine,
		StartColumn: startCol,
		EndLine:     endLine,
		EndColumn:   endCol,
		Severity:    sev,
		Message:     *m.Message,
		AutoFixable: len(m.Fix) > 0 && string(m.Fix) != "null",
	}
	if m.RuleID != nil {
		d.RuleID = *m.RuleID
	}
	return d, nil
}

// relativePath converts a tool-reported path to a slash path under root.
func relativePath(root, p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", p, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside workspace %q", p, root)
	}
	return filepath.ToSlash(rel), nil
}
