/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package statusmanager reports diagnostics to GitHub as check run
// annotations.
//
// A Session owns exactly one check run and moves it through an explicit
// lifecycle:
//
//	Pending --Start--> Created --Report--> Reporting(n/total) --> Completed{conclusion}
//	                       \------------------Fail-------------------/
//
// GitHub limits a single update to 50 annotations, so Report splits the
// diagnostics into ordered, disjoint batches. Every batch but the last is
// sent with status in_progress; the last one completes the run. The summary
// ("N errors found") is computed once from all diagnostics and sent on every
// batch, so a reader does not have to wait for the final update to know the
// outcome.
//
// # Basic Usage
//
//	mgr := statusmanager.New()
//	session := mgr.NewSession(gh, res)
//	if err := session.Start(ctx, "eslint"); err != nil {
//	    return err
//	}
//	diags, err := tool.Run(ctx, path, files)
//	if err != nil {
//	    return session.Fail(ctx, err)
//	}
//	return session.Report(ctx, diags)
//
// Calling Report or Fail on a completed session returns ErrCompleted, and
// calling either before Start returns ErrNotStarted.
package statusmanager
