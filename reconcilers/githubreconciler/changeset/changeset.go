/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package changeset lists the files touched by a pull request.
package changeset

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"chainguard.dev/prlint/reconcilers/githubreconciler"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
)

// PageSize is the number of files requested per page.
const PageSize = 100

// StatusRemoved is the status GitHub reports for deleted files.
const StatusRemoved = "removed"

// ChangedFile is one file of a pull request's change set.
type ChangedFile struct {
	Path   string
	Status string
}

// Provider reads change sets from GitHub.
type Provider struct {
	client *github.Client
	gql    *githubv4.Client
}

// New returns a Provider. gql may be nil when head lookup is not needed.
func New(client *github.Client, gql *githubv4.Client) *Provider {
	return &Provider{client: client, gql: gql}
}

// List returns the files changed by the resource's pull request in the order
// GitHub reports them, excluding removed files. A resource without a pull
// request yields an empty change set.
func (p *Provider) List(ctx context.Context, res *githubreconciler.Resource) ([]ChangedFile, error) {
	log := clog.FromContext(ctx)
	if !res.HasRequest() {
		log.Warn("Not triggered by a pull request, nothing to check")
		return nil, nil
	}

	var files []ChangedFile
	opts := &github.ListOptions{PerPage: PageSize}
	for {
		page, resp, err := p.client.PullRequests.ListFiles(ctx, res.Owner, res.Repo, res.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing files of %s (page %d): %w", res, opts.Page, err)
		}
		for _, f := range page {
			if f.GetStatus() == StatusRemoved {
				continue
			}
			files = append(files, ChangedFile{Path: f.GetFilename(), Status: f.GetStatus()})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	log.Infof("Found %d changed files in %s", len(files), res)
	return files, nil
}

// ResolveHead fills in HeadRef and HeadSHA from GitHub when either is
// missing.
func (p *Provider) ResolveHead(ctx context.Context, res *githubreconciler.Resource) error {
	if !res.HasRequest() || (res.HeadRef != "" && res.HeadSHA != "") {
		return nil
	}
	if p.gql == nil {
		return fmt.Errorf("resolving head of %s: no GraphQL client", res)
	}

	var query struct {
		Repository struct {
			PullRequest struct {
				HeadRefName string
				HeadRefOid  string
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}
	variables := map[string]any{
		"owner":  githubv4.String(res.Owner),
		"repo":   githubv4.String(res.Repo),
		"number": githubv4.Int(res.Number),
	}
	if err := p.gql.Query(ctx, &query, variables); err != nil {
		return fmt.Errorf("querying head of %s: %w", res, err)
	}

	pr := query.Repository.PullRequest
	if res.HeadRef == "" {
		res.HeadRef = pr.HeadRefName
	}
	if res.HeadSHA == "" {
		res.HeadSHA = pr.HeadRefOid
	}
	clog.FromContext(ctx).Infof("Resolved head of %s: %s@%s", res, res.HeadRef, res.HeadSHA)
	return nil
}

// Paths returns the paths of files.
func Paths(files []ChangedFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

// FilterExtensions returns the paths whose extension (case-insensitive) is
// in exts, preserving order. An empty exts keeps everything.
func FilterExtensions(files []ChangedFile, exts []string) []string {
	if len(exts) == 0 {
		return Paths(files)
	}
	var out []string
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Path))
		if slices.ContainsFunc(exts, func(e string) bool { return strings.EqualFold(e, ext) }) {
			out = append(out, f.Path)
		}
	}
	return out
}
