// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gen192-dev/gen192/lib/digest"
	"github.com/gen192-dev/gen192/lib/github"
)

// zipContentType is the MIME type attached to uploaded archives.
const zipContentType = "application/zip"

// ReleaseSpec describes one publication: which tag to maintain, what
// to call it, and which files to attach.
type ReleaseSpec struct {
	// Tag is the mutable release tag ("dev").
	Tag string

	// Name is the release's display name ("Development Build").
	Name string

	// Prerelease marks the release as a pre-release.
	Prerelease bool

	// Glob selects the artifact files, relative to Dir ("dist/*.zip").
	Glob string

	// Dir is the workspace the glob is resolved against.
	Dir string

	// Commit is the SHA the release tag is pointed at.
	Commit string
}

// PublishedAsset records one uploaded artifact.
type PublishedAsset struct {
	Name   string
	Size   int64
	Digest digest.Digest
}

// PublishResult summarizes a completed publication.
type PublishResult struct {
	ReleaseID int64

	// Created is true when the publication created the release record
	// rather than updating an existing one.
	Created bool

	// Assets are the artifacts now attached, in upload order.
	Assets []PublishedAsset
}

// ReleaseAPI is the slice of the GitHub releases API the publisher
// needs. Satisfied by APIClient in production and by fakes in tests.
type ReleaseAPI interface {
	GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*github.Release, error)
	CreateRelease(ctx context.Context, owner, repo string, request github.CreateReleaseRequest) (*github.Release, error)
	UpdateRelease(ctx context.Context, owner, repo string, releaseID int64, request github.UpdateReleaseRequest) (*github.Release, error)
	ListReleaseAssets(ctx context.Context, owner, repo string, releaseID int64) ([]github.ReleaseAsset, error)
	DeleteReleaseAsset(ctx context.Context, owner, repo string, assetID int64) error
	UploadReleaseAsset(ctx context.Context, uploadURL, name, contentType string, data []byte) (*github.ReleaseAsset, error)
}

// APIClient adapts *github.Client to ReleaseAPI. The only
// non-delegating method is ListReleaseAssets, which drains the
// client's page iterator.
type APIClient struct {
	Client *github.Client
}

func (a APIClient) GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*github.Release, error) {
	return a.Client.GetReleaseByTag(ctx, owner, repo, tag)
}

func (a APIClient) CreateRelease(ctx context.Context, owner, repo string, request github.CreateReleaseRequest) (*github.Release, error) {
	return a.Client.CreateRelease(ctx, owner, repo, request)
}

func (a APIClient) UpdateRelease(ctx context.Context, owner, repo string, releaseID int64, request github.UpdateReleaseRequest) (*github.Release, error) {
	return a.Client.UpdateRelease(ctx, owner, repo, releaseID, request)
}

func (a APIClient) ListReleaseAssets(ctx context.Context, owner, repo string, releaseID int64) ([]github.ReleaseAsset, error) {
	return a.Client.ListReleaseAssets(ctx, owner, repo, releaseID).Collect(ctx)
}

func (a APIClient) DeleteReleaseAsset(ctx context.Context, owner, repo string, assetID int64) error {
	return a.Client.DeleteReleaseAsset(ctx, owner, repo, assetID)
}

func (a APIClient) UploadReleaseAsset(ctx context.Context, uploadURL, name, contentType string, data []byte) (*github.ReleaseAsset, error) {
	return a.Client.UploadReleaseAsset(ctx, uploadURL, name, contentType, data)
}

// Publisher maintains a single mutable release per tag: exactly one
// release record, whose asset set is replaced wholesale on every
// publication. Publication is idempotent over identical build output;
// re-running it converges on the same release state.
type Publisher struct {
	api    ReleaseAPI
	owner  string
	repo   string
	logger *slog.Logger
}

// NewPublisher creates a publisher for the given repository.
func NewPublisher(api ReleaseAPI, owner, repo string, logger *slog.Logger) *Publisher {
	return &Publisher{api: api, owner: owner, repo: repo, logger: logger}
}

// Publish resolves the ReleaseSpec glob, creates or updates the release
// record for the tag, deletes every previously attached asset, and
// uploads the current set. Zero glob matches is legal and yields a
// release with no assets; a glob that matches nothing is how a
// removed artifact class disappears from the release.
//
// Any API failure aborts the publication with an error. There is no
// rollback of partially applied changes; the next successful run
// converges the release to a consistent state.
func (p *Publisher) Publish(ctx context.Context, spec ReleaseSpec) (*PublishResult, error) {
	files, err := resolveArtifacts(spec.Dir, spec.Glob)
	if err != nil {
		return nil, err
	}
	p.logger.Info("publishing release",
		"tag", spec.Tag,
		"commit", spec.Commit,
		"artifacts", len(files),
	)

	release, created, err := p.createOrUpdate(ctx, spec)
	if err != nil {
		return nil, err
	}

	if err := p.deleteAssets(ctx, release); err != nil {
		return nil, err
	}

	result := &PublishResult{ReleaseID: release.ID, Created: created}
	for _, file := range files {
		asset, err := p.uploadArtifact(ctx, release.UploadURL, file)
		if err != nil {
			return nil, err
		}
		result.Assets = append(result.Assets, *asset)
	}

	p.logger.Info("release published",
		"tag", spec.Tag,
		"release_id", release.ID,
		"created", created,
		"assets", len(result.Assets),
	)
	return result, nil
}

// createOrUpdate looks up the release by tag and either creates it
// (404) or updates it in place, retargeting the tag at the
// triggering commit. Reports whether the record was created.
func (p *Publisher) createOrUpdate(ctx context.Context, spec ReleaseSpec) (*github.Release, bool, error) {
	release, err := p.api.GetReleaseByTag(ctx, p.owner, p.repo, spec.Tag)
	if github.IsNotFound(err) {
		created, err := p.api.CreateRelease(ctx, p.owner, p.repo, github.CreateReleaseRequest{
			TagName:         spec.Tag,
			TargetCommitish: spec.Commit,
			Name:            spec.Name,
			Prerelease:      spec.Prerelease,
		})
		if err != nil {
			return nil, false, fmt.Errorf("creating release: %w", err)
		}
		return created, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("looking up release: %w", err)
	}

	prerelease := spec.Prerelease
	updated, err := p.api.UpdateRelease(ctx, p.owner, p.repo, release.ID, github.UpdateReleaseRequest{
		TargetCommitish: spec.Commit,
		Name:            spec.Name,
		Prerelease:      &prerelease,
	})
	if err != nil {
		return nil, false, fmt.Errorf("updating release: %w", err)
	}
	return updated, false, nil
}

// deleteAssets removes every asset currently attached to the release.
// The release's embedded asset list only covers the first page, so
// the explicit list endpoint is consulted.
func (p *Publisher) deleteAssets(ctx context.Context, release *github.Release) error {
	assets, err := p.api.ListReleaseAssets(ctx, p.owner, p.repo, release.ID)
	if err != nil {
		return fmt.Errorf("listing existing assets: %w", err)
	}
	for _, asset := range assets {
		p.logger.Debug("deleting stale asset", "name", asset.Name, "asset_id", asset.ID)
		if err := p.api.DeleteReleaseAsset(ctx, p.owner, p.repo, asset.ID); err != nil {
			return fmt.Errorf("deleting asset %q: %w", asset.Name, err)
		}
	}
	return nil
}

// uploadArtifact reads one artifact file, digests it, and attaches it
// to the release.
func (p *Publisher) uploadArtifact(ctx context.Context, uploadURL, path string) (*PublishedAsset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	name := filepath.Base(path)
	assetDigest := digest.HashAsset(data)

	p.logger.Debug("uploading asset",
		"name", name,
		"size", len(data),
		"digest", assetDigest.String(),
	)
	if _, err := p.api.UploadReleaseAsset(ctx, uploadURL, name, zipContentType, data); err != nil {
		return nil, fmt.Errorf("uploading %q: %w", name, err)
	}

	return &PublishedAsset{
		Name:   name,
		Size:   int64(len(data)),
		Digest: assetDigest,
	}, nil
}

// resolveArtifacts expands the glob relative to dir. The match set is
// sorted so upload order (and therefore journal order) is stable
// across runs with identical output.
func resolveArtifacts(dir, glob string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, fmt.Errorf("resolving artifact glob %q: %w", glob, err)
	}
	sort.Strings(files)
	return files, nil
}
