/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package worktree

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// initRepo creates a repository with a committed set of files.
func initRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		writeTestFile(t, dir, name, content)
	}
	if _, err := wt.Add("."); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestModified(t *testing.T) {
	dir := initRepo(t, map[string]string{
		"a.ts":         "const a = 1\n",
		"b.ts":         "const b = 2\n",
		"src/c.ts":     "const c = 3\n",
		"unchanged.md": "# hi\n",
	})
	writeTestFile(t, dir, "b.ts", "const b = 2;\n")
	writeTestFile(t, dir, "src/c.ts", "const c = 3;\n")
	writeTestFile(t, dir, "untracked.ts", "new\n")

	w, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := w.Modified(context.Background())
	if err != nil {
		t.Fatalf("Modified: %v", err)
	}
	if diff := cmp.Diff([]string{"b.ts", "src/c.ts"}, got); diff != "" {
		t.Errorf("Modified (-want +got):\n%s", diff)
	}
}

func TestModifiedClean(t *testing.T) {
	dir := initRepo(t, map[string]string{"a.ts": "x\n"})
	w, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := w.Modified(context.Background())
	if err != nil {
		t.Fatalf("Modified: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Modified: got = %v, wanted none", got)
	}
}

func TestReadFile(t *testing.T) {
	dir := initRepo(t, map[string]string{"src/a.ts": "hello\n"})
	w, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "src/a.ts", want: "hello\n"},
		{path: "./src/../src/a.ts", want: "hello\n"},
		{path: "../outside.txt", wantErr: true},
		{path: "src/../../etc/passwd", wantErr: true},
		{path: "missing.ts", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			got, err := w.ReadFile(tc.path)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ReadFile: got error = %v, wanted error = %v", err, tc.wantErr)
			}
			if string(got) != tc.want {
				t.Errorf("ReadFile: got = %q, wanted = %q", got, tc.want)
			}
		})
	}
}

func TestOpenNotARepository(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("Open: got = nil, wanted error")
	}
}
