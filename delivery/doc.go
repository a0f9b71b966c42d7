// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

// Package delivery implements the push-triggered continuous-delivery
// pipeline: a webhook trigger for pushes to the watched branch, a
// per-run environment provisioner, a two-step build stage, and an
// idempotent release publisher that maintains a single rolling
// pre-release tag whose assets are replaced wholesale on every run.
//
// The pipeline is strictly linear and fail-fast. A run is
// Trigger → Provision → Build → Publish; any stage failure aborts the
// run, reports a failure status on the triggering commit, and leaves
// the previously published release untouched. Runs for the same
// release tag are serialized, so rapid successive pushes publish one
// after the other with the later push winning.
package delivery
