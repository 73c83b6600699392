/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package analyzer runs an ESLint-compatible linter in auto-fix mode over a
// set of files and translates its machine-readable report into
// diagnostic.Diagnostic values.
//
// The tool is invoked as:
//
//	<tool> --fix --format json <files...>
//
// and is expected to print a JSON array of
//
//	{"filePath": "...", "messages": [{"line", "column", "endLine", "endColumn",
//	  "severity": 1|2, "ruleId", "message", "fix"}]}
//
// The report is decoded strictly. Missing required fields or unknown severity
// values produce a *ToolError rather than partially populated diagnostics.
package analyzer
