// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

// Package github provides a typed Go client for the GitHub REST API,
// covering the surface the delivery pipeline needs: releases and their
// assets (the publication target), commit statuses (run outcome
// reporting), and repository webhooks (trigger registration).
//
// The client authenticates via GitHub App installation tokens
// (preferred) or personal access tokens. It handles rate limiting
// (X-RateLimit-* headers with automatic backoff), pagination (RFC 5988
// Link headers), conditional requests (ETags), and structured error
// mapping.
//
// All requests are made over HTTPS. The client refuses non-HTTPS base
// URLs.
package github
