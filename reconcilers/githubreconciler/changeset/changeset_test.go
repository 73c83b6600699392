/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changeset_test

import (
	"context"
	"fmt"
	"testing"

	"chainguard.dev/prlint/reconcilers/githubreconciler"
	"chainguard.dev/prlint/reconcilers/githubreconciler/changeset"
	"chainguard.dev/prlint/reconcilers/githubreconciler/githubtest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-github/v84/github"
)

func TestList(t *testing.T) {
	fake := githubtest.New(t, "o", "r")
	fake.SetFiles(1,
		githubtest.File("src/a.ts", "modified"),
		githubtest.File("old.js", changeset.StatusRemoved),
		githubtest.File("src/b.ts", "added"),
		githubtest.File("README.md", "renamed"),
	)

	p := changeset.New(fake.Client(), nil)
	got, err := p.List(context.Background(), &githubreconciler.Resource{Owner: "o", Repo: "r", Number: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []changeset.ChangedFile{
		{Path: "src/a.ts", Status: "modified"},
		{Path: "src/b.ts", Status: "added"},
		{Path: "README.md", Status: "renamed"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}
}

func TestListPaginates(t *testing.T) {
	fake := githubtest.New(t, "o", "r")
	const total = 2*changeset.PageSize + 17
	var files []*github.CommitFile
	var want []string
	for i := range total {
		name := fmt.Sprintf("f%03d.ts", i)
		status := "modified"
		if i%10 == 3 {
			status = changeset.StatusRemoved
		} else {
			want = append(want, name)
		}
		files = append(files, githubtest.File(name, status))
	}
	fake.SetFiles(9, files...)

	p := changeset.New(fake.Client(), nil)
	got, err := p.List(context.Background(), &githubreconciler.Resource{Owner: "o", Repo: "r", Number: 9})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff(want, changeset.Paths(got)); diff != "" {
		t.Errorf("List paths (-want +got):\n%s", diff)
	}
}

func TestListWithoutRequest(t *testing.T) {
	fake := githubtest.New(t, "o", "r")
	p := changeset.New(fake.Client(), nil)

	for _, res := range []*githubreconciler.Resource{nil, {Owner: "o", Repo: "r"}} {
		got, err := p.List(context.Background(), res)
		if err != nil {
			t.Fatalf("List(%v): %v", res, err)
		}
		if len(got) != 0 {
			t.Errorf("List(%v): got = %v, wanted empty", res, got)
		}
	}
}

func TestResolveHead(t *testing.T) {
	fake := githubtest.New(t, "o", "r")
	fake.SetHead(5, githubtest.Head{Ref: "feature", SHA: "cafe"})
	p := changeset.New(fake.Client(), fake.GraphQLClient())

	tests := []struct {
		name    string
		res     *githubreconciler.Resource
		want    *githubreconciler.Resource
		wantErr bool
	}{{
		name: "fills both",
		res:  &githubreconciler.Resource{Owner: "o", Repo: "r", Number: 5},
		want: &githubreconciler.Resource{Owner: "o", Repo: "r", Number: 5, HeadRef: "feature", HeadSHA: "cafe"},
	}, {
		name: "keeps known ref",
		res:  &githubreconciler.Resource{Owner: "o", Repo: "r", Number: 5, HeadRef: "mine"},
		want: &githubreconciler.Resource{Owner: "o", Repo: "r", Number: 5, HeadRef: "mine", HeadSHA: "cafe"},
	}, {
		name: "already complete",
		res:  &githubreconciler.Resource{Owner: "o", Repo: "r", Number: 404, HeadRef: "x", HeadSHA: "y"},
		want: &githubreconciler.Resource{Owner: "o", Repo: "r", Number: 404, HeadRef: "x", HeadSHA: "y"},
	}, {
		name:    "unknown request",
		res:     &githubreconciler.Resource{Owner: "o", Repo: "r", Number: 404},
		wantErr: true,
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := p.ResolveHead(context.Background(), tc.res)
			if tc.wantErr {
				if err == nil {
					t.Fatal("ResolveHead: got = nil, wanted error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveHead: %v", err)
			}
			if diff := cmp.Diff(tc.want, tc.res); diff != "" {
				t.Errorf("ResolveHead (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterExtensions(t *testing.T) {
	files := []changeset.ChangedFile{
		{Path: "a.ts"}, {Path: "b.TSX"}, {Path: "c.md"}, {Path: "Makefile"}, {Path: "d.js"},
	}
	tests := []struct {
		name string
		exts []string
		want []string
	}{
		{name: "none keeps all", exts: nil, want: []string{"a.ts", "b.TSX", "c.md", "Makefile", "d.js"}},
		{name: "typescript", exts: []string{".ts", ".tsx"}, want: []string{"a.ts", "b.TSX"}},
		{name: "no match", exts: []string{".go"}, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := changeset.FilterExtensions(files, tc.exts)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("FilterExtensions (-want +got):\n%s", diff)
			}
		})
	}
}
