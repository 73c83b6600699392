/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package analyzer

import (
	"fmt"
	"strings"
)

// ToolError reports that an external tool could not run to completion or
// produced output that does not match its documented contract.
type ToolError struct {
	Tool   string
	Reason string
	// Output carries stderr (or the offending stdout) for the check run text.
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Tool, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Tool, e.Reason)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Details returns the captured tool output, trimmed.
func (e *ToolError) Details() string {
	return strings.TrimSpace(e.Output)
}
