// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package github

import "time"

// User is a GitHub user reference. Appears as release author and
// asset uploader.
type User struct {
	Login   string `json:"login"`
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
}

// Release is a GitHub release. The delivery pipeline maintains exactly
// one of these per rolling tag; it is looked up by tag, mutated in
// place, and never duplicated.
type Release struct {
	ID         int64  `json:"id"`
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`

	// TargetCommitish is the commit SHA or branch the tag points at
	// (or will point at, for tags that do not exist yet).
	TargetCommitish string `json:"target_commitish"`

	// UploadURL is an RFC 6570 URI template for asset uploads, e.g.
	// "https://uploads.github.com/repos/o/r/releases/1/assets{?name,label}".
	UploadURL string `json:"upload_url"`

	HTMLURL     string         `json:"html_url"`
	Author      User           `json:"author"`
	Assets      []ReleaseAsset `json:"assets"`
	CreatedAt   time.Time      `json:"created_at"`
	PublishedAt *time.Time     `json:"published_at"`
}

// ReleaseAsset is a file attached to a release.
type ReleaseAsset struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Label              string    `json:"label"`
	ContentType        string    `json:"content_type"`
	Size               int64     `json:"size"`
	BrowserDownloadURL string    `json:"browser_download_url"`
	Uploader           User      `json:"uploader"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CommitStatus is a GitHub commit status.
type CommitStatus struct {
	ID          int64     `json:"id"`
	State       string    `json:"state"` // "error", "failure", "pending", "success"
	TargetURL   string    `json:"target_url"`
	Description string    `json:"description"`
	Context     string    `json:"context"`
	CreatedAt   time.Time `json:"created_at"`
}

// Webhook is a GitHub webhook configuration.
type Webhook struct {
	ID     int64         `json:"id"`
	Active bool          `json:"active"`
	Events []string      `json:"events"`
	Config WebhookConfig `json:"config"`
}

// WebhookConfig holds the webhook endpoint configuration.
type WebhookConfig struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Secret      string `json:"secret,omitempty"` // masked in responses
	InsecureSSL string `json:"insecure_ssl"`
}
