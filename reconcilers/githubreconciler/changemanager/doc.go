/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package changemanager commits files rewritten by auto-fixing tools back to
// a pull request's head branch through the GitHub contents API.
//
// Only files that are both candidates (the change set handed to the tool)
// and modified in the local worktree are considered. Each one is compared
// with the head branch and written only when the bytes differ, keyed by the
// blob SHA just read. This makes a second run a no-op and keeps a fix commit
// from triggering another fix commit. A write rejected because the branch
// moved in between is reported in Result.Conflicted and never retried.
//
//	cm, err := changemanager.New("prlint")
//	if err != nil {
//	    return err
//	}
//	result, err := cm.NewSession(gh, wt, res).Reconcile(ctx, files, "style: fix")
package changemanager
