/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package statusmanager

import (
	"chainguard.dev/prlint/reconcilers/githubreconciler/retry"
)

// MaxAnnotationsPerUpdate is the number of annotations GitHub accepts in a
// single check run update.
const MaxAnnotationsPerUpdate = 50

// Option customizes the Manager.
type Option func(*config)

type config struct {
	batchSize  int
	retry      retry.Config
	detailsURL string
}

func defaultConfig() *config {
	return &config{
		batchSize: MaxAnnotationsPerUpdate,
		retry:     retry.DefaultConfig(),
	}
}

// WithBatchSize lowers the number of annotations sent per update. Values
// outside [1, MaxAnnotationsPerUpdate] are ignored.
func WithBatchSize(n int) Option {
	return func(c *config) {
		if n >= 1 && n <= MaxAnnotationsPerUpdate {
			c.batchSize = n
		}
	}
}

// WithRetry overrides the backoff applied to check run API calls.
func WithRetry(cfg retry.Config) Option {
	return func(c *config) { c.retry = cfg }
}

// WithDetailsURL links every check run to url, typically the workflow run.
func WithDetailsURL(url string) Option {
	return func(c *config) { c.detailsURL = url }
}
