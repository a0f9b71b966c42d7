// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx GitHub REST API response: the top-level
// message, an optional documentation link, and (on 422) field-level
// validation failures.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the top-level error description from GitHub.
	Message string

	// DocumentationURL points to the relevant API documentation.
	DocumentationURL string

	// Errors holds the field-level failures of a 422 response.
	Errors []ValidationError
}

// ValidationError is one field-level failure from a 422 response.
// The Message is often empty; Code ("missing_field",
// "already_exists") is always present.
type ValidationError struct {
	Resource string `json:"resource"`
	Code     string `json:"code"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (err *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "github: HTTP %d: %s", err.StatusCode, err.Message)
	for _, detail := range err.Errors {
		description := detail.Message
		if description == "" {
			description = detail.Code
		}
		fmt.Fprintf(&builder, "; %s.%s: %s", detail.Resource, detail.Field, description)
	}
	return builder.String()
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return hasStatus(err, 404)
}

// IsRateLimited reports whether err is a rate limit response: 429 for
// secondary (abuse) limits, or 403 whose message names a rate limit
// rather than a permission problem.
func IsRateLimited(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.StatusCode == 429 ||
		(apiError.StatusCode == 403 && isRateLimitMessage(apiError.Message))
}

// IsValidationFailed reports whether err is a 422 validation failure.
func IsValidationFailed(err error) bool {
	return hasStatus(err, 422)
}

// IsConflict reports whether err is a 409 Conflict.
func IsConflict(err error) bool {
	return hasStatus(err, 409)
}

func hasStatus(err error, status int) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == status
}

// isRateLimitMessage distinguishes rate limit 403s from permission
// 403s by the phrases GitHub puts in them.
func isRateLimitMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "abuse detection")
}
