// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gen192-dev/gen192/lib/netutil"
)

// CreateReleaseRequest contains the fields for creating a release.
type CreateReleaseRequest struct {
	// TagName is the tag to create the release under. If the tag does
	// not exist, GitHub creates it pointing at TargetCommitish.
	TagName string `json:"tag_name"`

	// TargetCommitish is the commit SHA or branch the tag should point
	// at. Ignored when the tag already exists.
	TargetCommitish string `json:"target_commitish,omitempty"`

	Name       string `json:"name,omitempty"`
	Body       string `json:"body,omitempty"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// UpdateReleaseRequest contains the fields for updating an existing
// release. Nil/empty fields are omitted from the request and left
// unchanged by GitHub.
type UpdateReleaseRequest struct {
	TagName         string `json:"tag_name,omitempty"`
	TargetCommitish string `json:"target_commitish,omitempty"`
	Name            string `json:"name,omitempty"`
	Body            string `json:"body,omitempty"`
	Draft           *bool  `json:"draft,omitempty"`
	Prerelease      *bool  `json:"prerelease,omitempty"`
}

// GetReleaseByTag fetches the release published under the given tag.
// Returns an *APIError satisfying IsNotFound when no release exists
// for the tag, which callers use to decide between create and update.
func (client *Client) GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*Release, error) {
	var release Release
	path := fmt.Sprintf("/repos/%s/%s/releases/tags/%s", owner, repo, url.PathEscape(tag))
	if err := client.get(ctx, path, &release); err != nil {
		return nil, fmt.Errorf("getting release %q on %s/%s: %w", tag, owner, repo, err)
	}
	return &release, nil
}

// CreateRelease creates a new release.
func (client *Client) CreateRelease(ctx context.Context, owner, repo string, request CreateReleaseRequest) (*Release, error) {
	var release Release
	path := fmt.Sprintf("/repos/%s/%s/releases", owner, repo)
	if err := client.post(ctx, path, request, &release); err != nil {
		return nil, fmt.Errorf("creating release %q on %s/%s: %w", request.TagName, owner, repo, err)
	}
	return &release, nil
}

// UpdateRelease updates an existing release in place.
func (client *Client) UpdateRelease(ctx context.Context, owner, repo string, releaseID int64, request UpdateReleaseRequest) (*Release, error) {
	var release Release
	path := fmt.Sprintf("/repos/%s/%s/releases/%d", owner, repo, releaseID)
	if err := client.patch(ctx, path, request, &release); err != nil {
		return nil, fmt.Errorf("updating release %d on %s/%s: %w", releaseID, owner, repo, err)
	}
	return &release, nil
}

// ListReleaseAssets returns a paginated iterator over the assets
// attached to a release. The release object embedded in API responses
// also carries assets, but only the first page; releases with many
// attachments need the explicit list endpoint.
func (client *Client) ListReleaseAssets(ctx context.Context, owner, repo string, releaseID int64) *PageIterator[ReleaseAsset] {
	path := fmt.Sprintf("/repos/%s/%s/releases/%d/assets", owner, repo, releaseID)
	return list[ReleaseAsset](client, path)
}

// DeleteReleaseAsset removes an asset from its release.
func (client *Client) DeleteReleaseAsset(ctx context.Context, owner, repo string, assetID int64) error {
	path := fmt.Sprintf("/repos/%s/%s/releases/assets/%d", owner, repo, assetID)
	if err := client.delete(ctx, path); err != nil {
		return fmt.Errorf("deleting release asset %d on %s/%s: %w", assetID, owner, repo, err)
	}
	return nil
}

// UploadReleaseAsset attaches a file to a release. The uploadURL is
// the release's UploadURL template; name is the asset filename shown
// to downloaders; contentType describes the payload (e.g.
// "application/zip").
//
// Asset uploads go to a different host than API requests
// (uploads.github.com on the public service), so this bypasses the
// base-URL path helpers and expands the template directly.
func (client *Client) UploadReleaseAsset(ctx context.Context, uploadURL, name, contentType string, data []byte) (*ReleaseAsset, error) {
	target, err := expandUploadURL(uploadURL, name)
	if err != nil {
		return nil, err
	}

	if err := client.rateLimit.wait(ctx); err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("github: creating upload request: %w", err)
	}
	request.ContentLength = int64(len(data))

	authHeader, err := client.auth.AuthorizationHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("github: authentication: %w", err)
	}
	request.Header.Set("Authorization", authHeader)
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", apiVersion)
	request.Header.Set("Content-Type", contentType)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("github: uploading asset %q: %w", name, err)
	}
	defer response.Body.Close()

	client.rateLimit.update(response.Header)

	if response.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("uploading asset %q: %w", name, parseAPIError(response))
	}

	var asset ReleaseAsset
	if err := netutil.DecodeResponse(response.Body, &asset); err != nil {
		return nil, fmt.Errorf("github: decoding upload response for %q: %w", name, err)
	}
	return &asset, nil
}

// expandUploadURL expands a release's RFC 6570 upload URL template
// with the asset name. The template always ends in "{?name,label}";
// everything from the first "{" is replaced with an explicit query
// string.
func expandUploadURL(uploadURL, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("github: asset name is empty")
	}
	base := uploadURL
	if brace := strings.IndexByte(base, '{'); brace >= 0 {
		base = base[:brace]
	}
	if base == "" {
		return "", fmt.Errorf("github: upload URL %q is empty after template expansion", uploadURL)
	}
	return base + "?name=" + url.QueryEscape(name), nil
}
