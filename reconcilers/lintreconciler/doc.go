/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package lintreconciler ties the pieces of prlint together for one pull
// request.
//
// Reconcile lists the changed files once and then runs each configured
// stage in order, linter before formatter. A stage:
//
//  1. creates its check run on the head commit,
//  2. resolves the tool through the workspace's package manager,
//  3. runs it on the changed files it understands,
//  4. reports the diagnostics (dropping auto-fixed ones in fix mode),
//  5. appends a table to the job summary, and
//  6. in fix mode, commits rewritten files to the head branch.
//
// A tool that cannot be found or fails to run fails its own check run and
// the next stage still runs. A run with no pull request or no changed files
// creates no check runs and invokes no tools.
package lintreconciler
