/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry wraps GitHub API calls with exponential backoff for rate
// limits and transient server errors.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// Config bounds how long a GitHub call is retried. A zero MaxRetries makes
// one attempt.
type Config struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxJitter   time.Duration
}

// Validate rejects negative settings.
func (c Config) Validate() error {
	switch {
	case c.MaxRetries < 0:
		return errors.New("max retries cannot be negative")
	case c.BaseBackoff < 0, c.MaxBackoff < 0, c.MaxJitter < 0:
		return fmt.Errorf("backoff durations cannot be negative: base=%v max=%v jitter=%v", c.BaseBackoff, c.MaxBackoff, c.MaxJitter)
	}
	return nil
}

// DefaultConfig returns a configuration suited to GitHub's secondary rate
// limits, which typically clear within a minute.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  4,
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  60 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// IsRetryable classifies GitHub API errors. Rate limits and 5xx responses
// are retryable; everything else, including 409 conflicts, is not.
func IsRetryable(err error) bool {
	var rle *github.RateLimitError
	var arle *github.AbuseRateLimitError
	var er *github.ErrorResponse
	switch {
	case errors.As(err, &rle), errors.As(err, &arle):
		return true
	case errors.As(err, &er) && er.Response != nil:
		return er.Response.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// Delay returns how long to wait before retry number attempt (zero based).
// A server hint (Retry-After on a secondary rate limit, the reset time on a
// primary one) wins over exponential backoff. Either way the wait is capped
// at MaxBackoff.
func (c Config) Delay(attempt int, err error) time.Duration {
	wait := c.BaseBackoff << attempt
	if hint, ok := serverHint(err); ok {
		wait = hint
	}
	return min(wait, c.MaxBackoff)
}

func serverHint(err error) (time.Duration, bool) {
	var arle *github.AbuseRateLimitError
	if errors.As(err, &arle) && arle.RetryAfter != nil {
		return *arle.RetryAfter, true
	}
	var rle *github.RateLimitError
	if errors.As(err, &rle) && !rle.Rate.Reset.IsZero() {
		return max(time.Until(rle.Rate.Reset.Time), 0), true
	}
	return 0, false
}

func (c Config) jitter() time.Duration {
	if c.MaxJitter <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(c.MaxJitter)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}

// Do calls fn until it succeeds, returns an error isRetryable rejects, or
// the retry budget runs out. The final error wraps fn's last error.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	log := clog.FromContext(ctx).With("operation", operation)
	for attempt := 0; ; attempt++ {
		result, err := fn()
		switch {
		case err == nil:
			return result, nil
		case !isRetryable(err):
			return result, err
		case attempt >= cfg.MaxRetries:
			return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, err)
		}

		wait := cfg.Delay(attempt, err) + cfg.jitter()
		log.Warnf("GitHub API call failed (attempt %d/%d), retrying in %v: %v", attempt+1, cfg.MaxRetries+1, wait, err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return result, ctx.Err()
		case <-t.C:
		}
	}
}
