/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package diagnostic

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCountErrors(t *testing.T) {
	tests := []struct {
		name  string
		diags []Diagnostic
		want  int
	}{{
		name: "empty",
		want: 0,
	}, {
		name: "warnings only",
		diags: []Diagnostic{
			{Severity: SeverityWarning},
			{Severity: SeverityWarning},
		},
		want: 0,
	}, {
		name: "mixed",
		diags: []Diagnostic{
			{Severity: SeverityError},
			{Severity: SeverityWarning},
			{Severity: SeverityError},
		},
		want: 2,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CountErrors(tc.diags); got != tc.want {
				t.Errorf("CountErrors: got = %d, wanted = %d", got, tc.want)
			}
		})
	}
}

func TestSuppress(t *testing.T) {
	diags := []Diagnostic{
		{Path: "a.ts", RuleID: "semi", Severity: SeverityError, AutoFixable: true},
		{Path: "a.ts", RuleID: "no-unused-vars", Severity: SeverityError},
		{Path: "b.ts", RuleID: "quotes", Severity: SeverityWarning, AutoFixable: true},
	}

	if diff := cmp.Diff(diags, Suppress(diags, false)); diff != "" {
		t.Errorf("Suppress(fix=false) (-want +got):\n%s", diff)
	}

	want := []Diagnostic{
		{Path: "a.ts", RuleID: "no-unused-vars", Severity: SeverityError},
	}
	got := Suppress(diags, true)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Suppress(fix=true) (-want +got):\n%s", diff)
	}
	if n := CountErrors(got); n != 1 {
		t.Errorf("suppressed fixables must not count: got = %d errors, wanted = 1", n)
	}
}
