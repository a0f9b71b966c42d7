// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the HTTP serving scaffold for the delivery
// daemon.
//
// The daemon is a standalone binary that listens for GitHub webhook
// deliveries over TCP. This package extracts the scaffolding it needs:
//
//   - HTTP server: TCP listener lifecycle with readiness signaling
//     and graceful shutdown on context cancellation.
//   - Webhook signature verification: constant-time HMAC-SHA256
//     checks against the X-Hub-Signature-256 header.
//
// The daemon composes these utilities in its own main() function. The
// package provides building blocks, not a runtime.
package service
