/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package formatter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chainguard.dev/prlint/tools/analyzer"
)

func TestRun(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "b.ts"), []byte("const x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The fake formatter appends a semicolon to every file it is given.
	tool := filepath.Join(t.TempDir(), "prettier")
	script := `#!/bin/sh
for a in "$@"; do
  case "$a" in
    --*) ;;
    *) printf 'const x = 1;\n' > "$a" ;;
  esac
done
`
	if err := os.WriteFile(tool, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	diags, err := New(root).Run(context.Background(), tool, []string{"b.ts"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("Run: got = %v, wanted no diagnostics", diags)
	}

	got, err := os.ReadFile(filepath.Join(root, "b.ts"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "const x = 1;\n" {
		t.Errorf("content: got = %q, wanted formatted file", got)
	}
}

func TestRunSeparatesPathsFromFlags(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	tool := filepath.Join(dir, "prettier")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > " + argsFile + "\n"
	if err := os.WriteFile(tool, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := New(t.TempDir()).Run(context.Background(), tool, []string{"-weird.ts", "b.ts"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Split(strings.TrimSpace(string(raw)), "\n")
	want := []string{"--ignore-unknown", "--write", "--", "-weird.ts", "b.ts"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("args: got = %q, wanted = %q", got, want)
	}
}

func TestRunEmptyFiles(t *testing.T) {
	// A tool path that cannot exist proves the process is never started.
	diags, err := New(t.TempDir()).Run(context.Background(), "/nonexistent/prettier", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diags != nil {
		t.Errorf("Run: got = %v, wanted nil", diags)
	}
}

func TestRunFailure(t *testing.T) {
	tool := filepath.Join(t.TempDir(), "prettier")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\necho '[error] b.ts: SyntaxError' >&2\nexit 2\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := New(t.TempDir()).Run(context.Background(), tool, []string{"b.ts"})
	var te *analyzer.ToolError
	if !errors.As(err, &te) {
		t.Fatalf("Run: got err = %v, wanted *analyzer.ToolError", err)
	}
	if !strings.Contains(te.Details(), "SyntaxError") {
		t.Errorf("details: got = %q, wanted stderr", te.Details())
	}
}
