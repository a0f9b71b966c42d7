// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
)

// CreateStatusRequest posts a commit status. The delivery pipeline
// marks the pushed commit pending when a run starts and success or
// failure when it ends.
type CreateStatusRequest struct {
	// State is one of "error", "failure", "pending", "success".
	State string `json:"state"`

	// TargetURL backs the "Details" link in the GitHub UI.
	TargetURL string `json:"target_url,omitempty"`

	// Description is a short summary, at most 140 characters.
	Description string `json:"description,omitempty"`

	// Context names the status line. One SHA carries one status per
	// context, so separate systems report side by side.
	Context string `json:"context,omitempty"`
}

// CreateCommitStatus posts a status on a commit, identified by its
// full 40-character SHA.
func (client *Client) CreateCommitStatus(ctx context.Context, owner, repo, sha string, request CreateStatusRequest) (*CommitStatus, error) {
	var status CommitStatus
	path := fmt.Sprintf("/repos/%s/%s/statuses/%s", owner, repo, sha)
	if err := client.post(ctx, path, request, &status); err != nil {
		return nil, fmt.Errorf("creating status on %s/%s@%s: %w", owner, repo, sha[:min(len(sha), 8)], err)
	}
	return &status, nil
}
