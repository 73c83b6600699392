/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders per-stage markdown summaries for the workflow job
// summary page.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"chainguard.dev/prlint/tools/diagnostic"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// MaxRows caps the number of findings listed per stage. The check run
// annotations remain the complete record.
const MaxRows = 100

// Stage is the outcome of one tool stage.
type Stage struct {
	Name       string
	Conclusion string
	// Files is the number of files handed to the tool.
	Files       int
	Diagnostics []diagnostic.Diagnostic
	// Err is set when the tool could not run.
	Err error

	Committed  []string
	Conflicted []string
}

// createStandardTable creates a markdown table with left-aligned cells.
func createStandardTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// Render writes the markdown summary of s to w.
func Render(w io.Writer, s Stage) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "### %s: %s\n\n", s.Name, s.Conclusion)

	if s.Err != nil {
		fmt.Fprintf(&b, "The tool could not run:\n\n```\n%s\n```\n\n", s.Err)
		_, err := w.Write(b.Bytes())
		return err
	}

	errs := diagnostic.CountErrors(s.Diagnostics)
	stats := createStandardTable([]string{"Files", "Errors", "Warnings", "Committed", "Conflicted"}, &b)
	_ = stats.Append([]string{
		strconv.Itoa(s.Files),
		strconv.Itoa(errs),
		strconv.Itoa(len(s.Diagnostics) - errs),
		strconv.Itoa(len(s.Committed)),
		strconv.Itoa(len(s.Conflicted)),
	})
	if err := stats.Render(); err != nil {
		return fmt.Errorf("rendering stats: %w", err)
	}
	b.WriteString("\n")

	if len(s.Diagnostics) > 0 {
		findings := createStandardTable([]string{"Location", "Severity", "Rule", "Message"}, &b)
		for i, d := range s.Diagnostics {
			if i == MaxRows {
				break
			}
			_ = findings.Append([]string{
				fmt.Sprintf("`%s:%d:%d`", d.Path, d.StartLine, d.StartColumn),
				string(d.Severity),
				d.RuleID,
				escapeCell(d.Message),
			})
		}
		if err := findings.Render(); err != nil {
			return fmt.Errorf("rendering findings: %w", err)
		}
		if n := len(s.Diagnostics) - MaxRows; n > 0 {
			fmt.Fprintf(&b, "\n_%d more findings are listed on the check run._\n", n)
		}
		b.WriteString("\n")
	}

	if len(s.Conflicted) > 0 {
		fmt.Fprintf(&b, "Not committed because the branch moved: %s\n\n", strings.Join(s.Conflicted, ", "))
	}

	_, err := w.Write(b.Bytes())
	return err
}

// AppendToFile appends the summary of s to the file at path, as the job
// summary protocol expects. An empty path is a no-op.
func AppendToFile(path string, s Stage) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening step summary: %w", err)
	}
	if err := Render(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// escapeCell keeps a message on one table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
