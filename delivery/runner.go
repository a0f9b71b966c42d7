// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gen192-dev/gen192/lib/clock"
	"github.com/gen192-dev/gen192/lib/github"
)

// statusContext identifies this pipeline's commit statuses in the
// GitHub UI.
const statusContext = "delivery/gen192"

// Stage interfaces let tests substitute fakes for the real
// provisioner, builder, and publisher.

type environmentProvisioner interface {
	Provision(ctx context.Context, event PushEvent) (string, error)
}

type artifactBuilder interface {
	Build(ctx context.Context, workspace string) error
}

type releasePublisher interface {
	Publish(ctx context.Context, spec ReleaseSpec) (*PublishResult, error)
}

// StatusReporter posts commit statuses back to GitHub. Satisfied by
// *github.Client. A nil reporter disables status reporting.
type StatusReporter interface {
	CreateCommitStatus(ctx context.Context, owner, repo, sha string, request github.CreateStatusRequest) (*github.CommitStatus, error)
}

// Runner orchestrates one run per qualifying push: provision, build,
// publish, strictly in that order. Any stage failure aborts the run;
// the daemon survives and waits for the next push.
//
// Runs for the same release tag are serialized with a per-tag mutex,
// so two rapid pushes execute their publish steps one after the
// other instead of racing. The later push's run still publishes last
// and wins.
type Runner struct {
	provisioner environmentProvisioner
	builder     artifactBuilder
	publisher   releasePublisher

	owner   string
	repo    string
	release ReleaseConfig

	// statuses is optional; nil disables commit status reporting.
	statuses StatusReporter

	// journal is optional; nil disables run journaling.
	journal *Journal

	clock  clock.Clock
	logger *slog.Logger

	// tagLocks serializes runs per release tag.
	mu       sync.Mutex
	tagLocks map[string]*sync.Mutex
}

// RunnerConfig wires a Runner's collaborators.
type RunnerConfig struct {
	Provisioner environmentProvisioner
	Builder     artifactBuilder
	Publisher   releasePublisher

	Owner   string
	Repo    string
	Release ReleaseConfig

	Statuses StatusReporter
	Journal  *Journal

	// Clock defaults to clock.Real().
	Clock  clock.Clock
	Logger *slog.Logger
}

// NewRunner creates a runner. Panics on missing stage collaborators.
func NewRunner(config RunnerConfig) *Runner {
	if config.Provisioner == nil || config.Builder == nil || config.Publisher == nil {
		panic("Runner: provisioner, builder, and publisher are required")
	}
	if config.Logger == nil {
		panic("Runner: logger is required")
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Runner{
		provisioner: config.Provisioner,
		builder:     config.Builder,
		publisher:   config.Publisher,
		owner:       config.Owner,
		repo:        config.Repo,
		release:     config.Release,
		statuses:    config.Statuses,
		journal:     config.Journal,
		clock:       clk,
		logger:      config.Logger,
		tagLocks:    make(map[string]*sync.Mutex),
	}
}

// Run executes one full pipeline run for the push. Returns the run's
// error for callers that care; the daemon invokes Run from the
// webhook callback and only logs it.
func (r *Runner) Run(ctx context.Context, event PushEvent) error {
	lock := r.tagLock(r.release.Tag)
	lock.Lock()
	defer lock.Unlock()

	record := RunRecord{
		Commit:         event.Commit,
		Branch:         event.Branch,
		Sender:         event.Sender,
		StartedAt:      r.clock.Now(),
		StageDurations: make(map[string]int64),
	}

	r.setStatus(ctx, event.Commit, "pending", "run started")

	result, err := r.runStages(ctx, event, &record)
	record.FinishedAt = r.clock.Now()

	if err != nil {
		record.Outcome = "failure"
		record.Error = err.Error()
		r.setStatus(ctx, event.Commit, "failure", err.Error())
		r.logger.Error("run failed", "commit", event.Commit, "error", err)
	} else {
		record.Outcome = "success"
		for _, asset := range result.Assets {
			record.Assets = append(record.Assets, AssetRecord{
				Name:   asset.Name,
				Size:   asset.Size,
				Digest: asset.Digest.String(),
			})
		}
		r.setStatus(ctx, event.Commit, "success",
			fmt.Sprintf("published %d assets to %s", len(result.Assets), r.release.Tag))
		r.logger.Info("run succeeded", "commit", event.Commit, "assets", len(result.Assets))
	}

	if r.journal != nil {
		if journalErr := r.journal.Append(record); journalErr != nil {
			r.logger.Error("journal append failed", "error", journalErr)
		}
	}

	return err
}

// runStages executes provision, build, publish in order, timing each
// stage into the record.
func (r *Runner) runStages(ctx context.Context, event PushEvent, record *RunRecord) (*PublishResult, error) {
	stageStart := r.clock.Now()
	workspace, err := r.provisioner.Provision(ctx, event)
	record.StageDurations["provision"] = int64(r.clock.Now().Sub(stageStart))
	if err != nil {
		return nil, fmt.Errorf("provision: %w", err)
	}

	stageStart = r.clock.Now()
	err = r.builder.Build(ctx, workspace)
	record.StageDurations["build"] = int64(r.clock.Now().Sub(stageStart))
	if err != nil {
		// The workspace is kept for inspection.
		return nil, fmt.Errorf("build: %w", err)
	}

	stageStart = r.clock.Now()
	result, err := r.publisher.Publish(ctx, ReleaseSpec{
		Tag:        r.release.Tag,
		Name:       r.release.Name,
		Prerelease: r.release.Prerelease,
		Glob:       r.release.Glob,
		Dir:        workspace,
		Commit:     event.Commit,
	})
	record.StageDurations["publish"] = int64(r.clock.Now().Sub(stageStart))
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	// Successful runs leave nothing behind. Failed runs keep their
	// workspace so the build output can be inspected.
	if err := os.RemoveAll(workspace); err != nil {
		r.logger.Warn("workspace cleanup failed", "path", workspace, "error", err)
	}

	return result, nil
}

// setStatus posts a commit status, truncating the description to
// GitHub's 140-character limit. Status failures are logged, never
// fatal: the run's outcome does not depend on reporting it.
func (r *Runner) setStatus(ctx context.Context, sha, state, description string) {
	if r.statuses == nil {
		return
	}
	if len(description) > 140 {
		description = description[:137] + "..."
	}
	_, err := r.statuses.CreateCommitStatus(ctx, r.owner, r.repo, sha, github.CreateStatusRequest{
		State:       state,
		Description: description,
		Context:     statusContext,
	})
	if err != nil {
		r.logger.Warn("commit status update failed",
			"sha", sha,
			"state", state,
			"error", err,
		)
	}
}

// tagLock returns the mutex serializing runs for a tag, creating it
// on first use.
func (r *Runner) tagLock(tag string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.tagLocks[tag]
	if !ok {
		lock = &sync.Mutex{}
		r.tagLocks[tag] = lock
	}
	return lock
}
