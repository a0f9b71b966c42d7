// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
)

// Repository webhook management. The delivery daemon uses these to
// register its own push webhook at startup instead of requiring
// manual setup in the repository settings.

// CreateWebhookRequest creates a repository webhook.
type CreateWebhookRequest struct {
	// Events to deliver, e.g. ["push"]. ["*"] subscribes to all.
	Events []string `json:"events"`

	// Config is the endpoint configuration.
	Config CreateWebhookConfig `json:"config"`

	// Active enables delivery. Nil defaults to true on GitHub's side.
	Active *bool `json:"active,omitempty"`
}

// CreateWebhookConfig is the webhook endpoint configuration. GitHub
// masks Secret in every response, so it can only ever be written.
type CreateWebhookConfig struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"` // "json" or "form"
	Secret      string `json:"secret,omitempty"`
	InsecureSSL string `json:"insecure_ssl,omitempty"` // "0" (verify) or "1" (skip)
}

// UpdateWebhookRequest patches an existing webhook; zero fields are
// left untouched.
type UpdateWebhookRequest struct {
	Events []string             `json:"events,omitempty"`
	Config *CreateWebhookConfig `json:"config,omitempty"`
	Active *bool                `json:"active,omitempty"`
}

// ListRepoWebhooks iterates the webhooks configured on a repository.
func (client *Client) ListRepoWebhooks(ctx context.Context, owner, repo string) *PageIterator[Webhook] {
	return list[Webhook](client, fmt.Sprintf("/repos/%s/%s/hooks", owner, repo))
}

// CreateRepoWebhook creates a webhook on a repository.
func (client *Client) CreateRepoWebhook(ctx context.Context, owner, repo string, request CreateWebhookRequest) (*Webhook, error) {
	var webhook Webhook
	path := fmt.Sprintf("/repos/%s/%s/hooks", owner, repo)
	if err := client.post(ctx, path, request, &webhook); err != nil {
		return nil, fmt.Errorf("creating webhook on %s/%s: %w", owner, repo, err)
	}
	return &webhook, nil
}

// UpdateRepoWebhook patches a repository webhook.
func (client *Client) UpdateRepoWebhook(ctx context.Context, owner, repo string, hookID int64, request UpdateWebhookRequest) (*Webhook, error) {
	var webhook Webhook
	path := fmt.Sprintf("/repos/%s/%s/hooks/%d", owner, repo, hookID)
	if err := client.patch(ctx, path, request, &webhook); err != nil {
		return nil, fmt.Errorf("updating webhook %d on %s/%s: %w", hookID, owner, repo, err)
	}
	return &webhook, nil
}

// DeleteRepoWebhook removes a repository webhook.
func (client *Client) DeleteRepoWebhook(ctx context.Context, owner, repo string, hookID int64) error {
	path := fmt.Sprintf("/repos/%s/%s/hooks/%d", owner, repo, hookID)
	if err := client.delete(ctx, path); err != nil {
		return fmt.Errorf("deleting webhook %d on %s/%s: %w", hookID, owner, repo, err)
	}
	return nil
}
