/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubreconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

const defaultAPIURL = "https://api.github.com/"

// NewClient returns a REST client authenticated with token. A non-default
// apiURL (GitHub Enterprise Server) is honoured.
func NewClient(ctx context.Context, token, apiURL string) (*github.Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("token cannot be empty")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if apiURL == "" || strings.TrimSuffix(apiURL, "/")+"/" == defaultAPIURL {
		return client, nil
	}
	client, err := client.WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("configuring API URL %q: %w", apiURL, err)
	}
	return client, nil
}

// NewGraphQLClient returns a GraphQL client sharing the REST client's
// authenticated transport. An empty url selects github.com.
func NewGraphQLClient(gh *github.Client, url string) *githubv4.Client {
	if url == "" {
		return githubv4.NewClient(gh.Client())
	}
	return githubv4.NewEnterpriseClient(url, gh.Client())
}
