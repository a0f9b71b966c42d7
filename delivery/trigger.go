// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gen192-dev/gen192/lib/service"
)

// maxWebhookBodySize is the maximum size of a webhook payload we will
// accept. GitHub's documented maximum is ~25 MB for push events with
// large commit histories. 32 MB gives comfortable headroom.
const maxWebhookBodySize = 32 * 1024 * 1024

// deduplicationWindow is how long we track delivery IDs for replay
// protection. GitHub typically retries within minutes, so 1 hour is
// conservative.
const deduplicationWindow = 1 * time.Hour

// PushEvent is a qualifying push to the watched branch. Consumed once
// by the Runner; never persisted.
type PushEvent struct {
	// Branch is the short branch name ("main"), derived from Ref.
	Branch string

	// Commit is the new HEAD SHA after the push. The run checks out
	// and publishes exactly this commit.
	Commit string

	// Ref is the full git ref ("refs/heads/main").
	Ref string

	// Repo is the "owner/name" repository slug.
	Repo string

	// Sender is the GitHub login that performed the push.
	Sender string
}

// ghPushPayload is the webhook payload for a "push" event. Only the
// fields the trigger needs.
type ghPushPayload struct {
	Ref        string `json:"ref"`   // "refs/heads/main"
	After      string `json:"after"` // new HEAD SHA
	Deleted    bool   `json:"deleted"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
}

// WebhookHandler processes incoming GitHub webhooks. It verifies
// HMAC-SHA256 signatures, deduplicates deliveries, and forwards
// qualifying push events to the Runner. Everything else (other event
// types, other branches, branch deletions) is acknowledged and
// dropped.
//
// The handler is an http.Handler suitable for use with
// service.HTTPServer or any standard Go HTTP server/mux.
type WebhookHandler struct {
	secret []byte
	branch string
	logger *slog.Logger

	// onPush is called for each verified push to the watched branch.
	// The daemon wires this to Runner.Run.
	onPush func(event PushEvent)

	// deliveries tracks recently processed delivery IDs for replay
	// protection. Keys are X-GitHub-Delivery values; values are the
	// time the delivery was first processed.
	mu         sync.Mutex
	deliveries map[string]time.Time
}

// NewWebhookHandler creates a handler that verifies webhooks with the
// given HMAC secret and forwards pushes to the given branch. Panics
// if secret is empty, branch is empty, logger is nil, or onPush is
// nil. A nil callback would silently discard events.
func NewWebhookHandler(secret []byte, branch string, logger *slog.Logger, onPush func(PushEvent)) *WebhookHandler {
	if len(secret) == 0 {
		panic("WebhookHandler: secret is required")
	}
	if branch == "" {
		panic("WebhookHandler: branch is required")
	}
	if logger == nil {
		panic("WebhookHandler: logger is required")
	}
	if onPush == nil {
		panic("WebhookHandler: onPush callback is required")
	}
	return &WebhookHandler{
		secret:     secret,
		branch:     branch,
		logger:     logger,
		onPush:     onPush,
		deliveries: make(map[string]time.Time),
	}
}

// ServeHTTP handles a single webhook request.
func (h *WebhookHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	// Read the body first. HMAC verification requires the raw bytes.
	body, err := io.ReadAll(io.LimitReader(request.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Error("webhook: failed to read body", "error", err)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	// Verify HMAC-SHA256 signature.
	signature := request.Header.Get("X-Hub-Signature-256")
	if err := service.VerifyWebhookHMAC(h.secret, body, signature); err != nil {
		h.logger.Warn("webhook: HMAC verification failed",
			"error", err,
			"remote_addr", request.RemoteAddr,
		)
		// 401 with no information disclosure.
		http.Error(writer, "", http.StatusUnauthorized)
		return
	}

	eventType := request.Header.Get("X-GitHub-Event")
	deliveryID := request.Header.Get("X-GitHub-Delivery")

	if eventType == "" {
		h.logger.Warn("webhook: missing X-GitHub-Event header")
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	// Replay protection: reject duplicate delivery IDs.
	if deliveryID != "" && h.isDuplicate(deliveryID) {
		h.logger.Debug("webhook: duplicate delivery, ignoring",
			"delivery_id", deliveryID,
			"event_type", eventType,
		)
		// Return 200 so GitHub doesn't retry.
		writer.WriteHeader(http.StatusOK)
		return
	}

	if eventType != "push" {
		// ping, installation, and anything GitHub adds later.
		// Acknowledge and drop.
		h.logger.Debug("webhook: unhandled event type, ignoring",
			"event_type", eventType,
			"delivery_id", deliveryID,
		)
		writer.WriteHeader(http.StatusOK)
		return
	}

	event, err := h.translatePush(body)
	if err != nil {
		h.logger.Error("webhook: translation failed",
			"delivery_id", deliveryID,
			"error", err,
		)
		// Return 200 since retrying cannot fix a translation error.
		writer.WriteHeader(http.StatusOK)
		return
	}

	if event == nil {
		// Push to another branch, or a branch deletion. Not a
		// qualifying trigger.
		writer.WriteHeader(http.StatusOK)
		return
	}

	h.logger.Info("push accepted",
		"repo", event.Repo,
		"branch", event.Branch,
		"commit", event.Commit,
		"sender", event.Sender,
		"delivery_id", deliveryID,
	)

	h.onPush(*event)
	writer.WriteHeader(http.StatusOK)
}

// isDuplicate checks and records a delivery ID. Returns true if the
// delivery was already processed within the deduplication window.
// Periodically prunes expired entries.
func (h *WebhookHandler) isDuplicate(deliveryID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()

	// Prune expired entries every time we check. The map is small
	// (one entry per webhook over the last hour) so this is cheap.
	for id, receivedAt := range h.deliveries {
		if now.Sub(receivedAt) > deduplicationWindow {
			delete(h.deliveries, id)
		}
	}

	if _, exists := h.deliveries[deliveryID]; exists {
		return true
	}
	h.deliveries[deliveryID] = now
	return false
}

// translatePush converts a raw push payload into a PushEvent. Returns
// nil (not an error) for pushes that don't qualify: other branches,
// tag pushes, and branch deletions.
func (h *WebhookHandler) translatePush(body []byte) (*PushEvent, error) {
	var payload ghPushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing push payload: %w", err)
	}

	wantRef := "refs/heads/" + h.branch
	if payload.Ref != wantRef {
		h.logger.Debug("webhook: push to non-watched ref, ignoring",
			"ref", payload.Ref,
			"watched", wantRef,
		)
		return nil, nil
	}

	// A branch deletion arrives as a push with deleted=true and a
	// zero "after" SHA. There is nothing to build.
	if payload.Deleted || payload.After == "" || payload.After == strings.Repeat("0", 40) {
		h.logger.Debug("webhook: branch deletion, ignoring", "ref", payload.Ref)
		return nil, nil
	}

	return &PushEvent{
		Branch: h.branch,
		Commit: payload.After,
		Ref:    payload.Ref,
		Repo:   payload.Repository.FullName,
		Sender: payload.Sender.Login,
	}, nil
}
