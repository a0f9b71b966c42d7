// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gen192-dev/gen192/lib/github"
)

// WebhookAPI is the slice of the GitHub API webhook registration
// needs. Satisfied by HookClient; tests substitute a fake.
type WebhookAPI interface {
	ListRepoWebhooks(ctx context.Context, owner, repo string) ([]github.Webhook, error)
	CreateRepoWebhook(ctx context.Context, owner, repo string, request github.CreateWebhookRequest) (*github.Webhook, error)
	UpdateRepoWebhook(ctx context.Context, owner, repo string, hookID int64, request github.UpdateWebhookRequest) (*github.Webhook, error)
}

// HookClient adapts *github.Client to WebhookAPI, draining the list
// iterator into a slice.
type HookClient struct {
	Client *github.Client
}

func (h *HookClient) ListRepoWebhooks(ctx context.Context, owner, repo string) ([]github.Webhook, error) {
	return h.Client.ListRepoWebhooks(ctx, owner, repo).Collect(ctx)
}

func (h *HookClient) CreateRepoWebhook(ctx context.Context, owner, repo string, request github.CreateWebhookRequest) (*github.Webhook, error) {
	return h.Client.CreateRepoWebhook(ctx, owner, repo, request)
}

func (h *HookClient) UpdateRepoWebhook(ctx context.Context, owner, repo string, hookID int64, request github.UpdateWebhookRequest) (*github.Webhook, error) {
	return h.Client.UpdateRepoWebhook(ctx, owner, repo, hookID, request)
}

// EnsureWebhook registers the daemon's webhook on the repository,
// idempotently: an existing hook with the same delivery URL is updated
// in place (events, secret, active), otherwise a new push-only hook is
// created. GitHub masks hook secrets in responses, so the secret is
// re-sent on update rather than compared.
func EnsureWebhook(ctx context.Context, api WebhookAPI, owner, repo, publicURL string, secret []byte, logger *slog.Logger) error {
	hooks, err := api.ListRepoWebhooks(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("listing webhooks: %w", err)
	}

	active := true
	config := github.CreateWebhookConfig{
		URL:         publicURL,
		ContentType: "json",
		Secret:      string(secret),
	}

	for _, hook := range hooks {
		if hook.Config.URL != publicURL {
			continue
		}
		_, err := api.UpdateRepoWebhook(ctx, owner, repo, hook.ID, github.UpdateWebhookRequest{
			Events: []string{"push"},
			Config: &config,
			Active: &active,
		})
		if err != nil {
			return fmt.Errorf("updating webhook %d: %w", hook.ID, err)
		}
		logger.Info("webhook updated", "url", publicURL, "id", hook.ID)
		return nil
	}

	hook, err := api.CreateRepoWebhook(ctx, owner, repo, github.CreateWebhookRequest{
		Events: []string{"push"},
		Config: config,
		Active: &active,
	})
	if err != nil {
		return fmt.Errorf("creating webhook: %w", err)
	}
	logger.Info("webhook created", "url", publicURL, "id", hook.ID)
	return nil
}
