/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githubreconciler holds the GitHub plumbing shared by the prlint
// reconcilers: the pull request Resource being reconciled, event payload
// decoding, and REST/GraphQL client construction.
package githubreconciler

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/go-github/v84/github"
)

// Resource identifies the pull request a run operates on.
type Resource struct {
	Owner string
	Repo  string

	// Number is zero when the run was not triggered by a pull request.
	Number int

	// HeadRef is the source branch of the pull request.
	HeadRef string
	// HeadSHA is the commit check runs are attached to.
	HeadSHA string
}

// String renders the resource as owner/repo#number.
func (r *Resource) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// HasRequest reports whether the resource refers to a pull request.
func (r *Resource) HasRequest() bool {
	return r != nil && r.Number > 0
}

// ParseRepository splits an "owner/repo" string.
func ParseRepository(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("repository %q is not of the form owner/repo", s)
	}
	return owner, repo, nil
}

// EventContext carries the values an Actions run exposes about its trigger.
type EventContext struct {
	Repository string
	EventName  string
	EventPath  string
	HeadRef    string
	SHA        string
	// PRNumber overrides the number found in the event payload.
	PRNumber int
}

// ResourceFromEvent builds the Resource for a run. Pull request events yield
// the number and head commit from the payload; other events yield a Resource
// with Number zero unless PRNumber is set. When PRNumber names a different
// request than the payload, the run's own ref and SHA (e.g. the default branch
// of a workflow_dispatch) say nothing about that request's head, so both are
// left empty for ResolveHead to fill.
func ResourceFromEvent(ec EventContext) (*Resource, error) {
	owner, repo, err := ParseRepository(ec.Repository)
	if err != nil {
		return nil, err
	}
	res := &Resource{
		Owner:   owner,
		Repo:    repo,
		HeadRef: ec.HeadRef,
		HeadSHA: ec.SHA,
	}

	if ec.EventPath != "" && isPullRequestEvent(ec.EventName) {
		raw, err := os.ReadFile(ec.EventPath)
		if err != nil {
			return nil, fmt.Errorf("reading event payload: %w", err)
		}
		var ev github.PullRequestEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decoding event payload: %w", err)
		}
		if pr := ev.GetPullRequest(); pr != nil {
			res.Number = pr.GetNumber()
			if sha := pr.GetHead().GetSHA(); sha != "" {
				res.HeadSHA = sha
			}
			if res.HeadRef == "" {
				res.HeadRef = pr.GetHead().GetRef()
			}
		}
	}

	if ec.PRNumber > 0 && ec.PRNumber != res.Number {
		res.Number = ec.PRNumber
		res.HeadRef, res.HeadSHA = "", ""
	}
	return res, nil
}

func isPullRequestEvent(name string) bool {
	switch name {
	case "pull_request", "pull_request_target":
		return true
	}
	return false
}
