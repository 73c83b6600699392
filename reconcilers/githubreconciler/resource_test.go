/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubreconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRepository(t *testing.T) {
	tests := []struct {
		in        string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{in: "chainguard-dev/prlint", wantOwner: "chainguard-dev", wantRepo: "prlint"},
		{in: "prlint", wantErr: true},
		{in: "/prlint", wantErr: true},
		{in: "owner/", wantErr: true},
		{in: "a/b/c", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			owner, repo, err := ParseRepository(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("error: got = %v, wanted error = %v", err, tc.wantErr)
			}
			if owner != tc.wantOwner || repo != tc.wantRepo {
				t.Errorf("got = %s/%s, wanted = %s/%s", owner, repo, tc.wantOwner, tc.wantRepo)
			}
		})
	}
}

func writeEvent(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResourceFromEvent(t *testing.T) {
	prEvent := writeEvent(t, `{
		"action": "synchronize",
		"number": 42,
		"pull_request": {
			"number": 42,
			"head": {"ref": "feature/x", "sha": "abc123"}
		}
	}`)
	pushEvent := writeEvent(t, `{"ref": "refs/heads/main"}`)

	tests := []struct {
		name    string
		ec      EventContext
		want    *Resource
		wantErr bool
	}{{
		name: "pull request event",
		ec: EventContext{
			Repository: "org/repo",
			EventName:  "pull_request",
			EventPath:  prEvent,
			SHA:        "merge-sha",
		},
		want: &Resource{Owner: "org", Repo: "repo", Number: 42, HeadRef: "feature/x", HeadSHA: "abc123"},
	}, {
		name: "head ref from env wins",
		ec: EventContext{
			Repository: "org/repo",
			EventName:  "pull_request",
			EventPath:  prEvent,
			HeadRef:    "from-env",
		},
		want: &Resource{Owner: "org", Repo: "repo", Number: 42, HeadRef: "from-env", HeadSHA: "abc123"},
	}, {
		name: "push event has no request",
		ec: EventContext{
			Repository: "org/repo",
			EventName:  "push",
			EventPath:  pushEvent,
			SHA:        "def456",
		},
		want: &Resource{Owner: "org", Repo: "repo", HeadSHA: "def456"},
	}, {
		name: "explicit number",
		ec: EventContext{
			Repository: "org/repo",
			EventName:  "workflow_dispatch",
			PRNumber:   7,
		},
		want: &Resource{Owner: "org", Repo: "repo", Number: 7},
	}, {
		name: "explicit number drops dispatch commit",
		ec: EventContext{
			Repository: "org/repo",
			EventName:  "workflow_dispatch",
			HeadRef:    "main",
			SHA:        "main-sha",
			PRNumber:   7,
		},
		want: &Resource{Owner: "org", Repo: "repo", Number: 7},
	}, {
		name: "explicit number matching payload keeps head",
		ec: EventContext{
			Repository: "org/repo",
			EventName:  "pull_request",
			EventPath:  prEvent,
			PRNumber:   42,
		},
		want: &Resource{Owner: "org", Repo: "repo", Number: 42, HeadRef: "feature/x", HeadSHA: "abc123"},
	}, {
		name: "explicit number overrides payload",
		ec: EventContext{
			Repository: "org/repo",
			EventName:  "pull_request",
			EventPath:  prEvent,
			PRNumber:   9,
		},
		want: &Resource{Owner: "org", Repo: "repo", Number: 9},
	}, {
		name: "unreadable payload",
		ec: EventContext{
			Repository: "org/repo",
			EventName:  "pull_request",
			EventPath:  filepath.Join(t.TempDir(), "missing.json"),
		},
		wantErr: true,
	}, {
		name:    "bad repository",
		ec:      EventContext{Repository: "nope"},
		wantErr: true,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResourceFromEvent(tc.ec)
			if tc.wantErr {
				if err == nil {
					t.Fatal("error: got = nil, wanted error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResourceFromEvent: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ResourceFromEvent (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHasRequest(t *testing.T) {
	var nilRes *Resource
	if nilRes.HasRequest() {
		t.Error("nil resource: got = true, wanted = false")
	}
	if (&Resource{Owner: "o", Repo: "r"}).HasRequest() {
		t.Error("zero number: got = true, wanted = false")
	}
	if !(&Resource{Owner: "o", Repo: "r", Number: 1}).HasRequest() {
		t.Error("numbered: got = false, wanted = true")
	}
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	if _, err := NewClient(ctx, "", ""); err == nil {
		t.Error("empty token: got = nil, wanted error")
	}

	gh, err := NewClient(ctx, "t0ken", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got := gh.BaseURL.String(); got != defaultAPIURL {
		t.Errorf("BaseURL: got = %q, wanted = %q", got, defaultAPIURL)
	}

	ghe, err := NewClient(ctx, "t0ken", "https://ghe.example.com/api/v3")
	if err != nil {
		t.Fatalf("NewClient(enterprise): %v", err)
	}
	if got, want := ghe.BaseURL.String(), "https://ghe.example.com/api/v3/"; got != want {
		t.Errorf("BaseURL: got = %q, wanted = %q", got, want)
	}
}
