// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"fmt"
	"testing"
)

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "message only",
			err:  &APIError{StatusCode: 404, Message: "Not Found"},
			want: "github: HTTP 404: Not Found",
		},
		{
			name: "validation detail with message",
			err: &APIError{
				StatusCode: 422,
				Message:    "Validation Failed",
				Errors: []ValidationError{
					{Resource: "Release", Field: "tag_name", Message: "is required"},
				},
			},
			want: "github: HTTP 422: Validation Failed; Release.tag_name: is required",
		},
		{
			name: "validation detail falls back to code",
			err: &APIError{
				StatusCode: 422,
				Message:    "Validation Failed",
				Errors: []ValidationError{
					{Resource: "Release", Field: "tag_name", Code: "missing_field"},
				},
			},
			want: "github: HTTP 422: Validation Failed; Release.tag_name: missing_field",
		},
		{
			name: "several validation details",
			err: &APIError{
				StatusCode: 422,
				Message:    "Validation Failed",
				Errors: []ValidationError{
					{Resource: "Release", Field: "tag_name", Code: "missing_field"},
					{Resource: "Release", Field: "body", Message: "is too long"},
				},
			},
			want: "github: HTTP 422: Validation Failed; Release.tag_name: missing_field; Release.body: is too long",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.err.Error(); got != test.want {
				t.Errorf("Error() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
		want      bool
	}{
		{"404 is not found", &APIError{StatusCode: 404}, IsNotFound, true},
		{"403 is not not-found", &APIError{StatusCode: 403}, IsNotFound, false},
		{"plain error is not not-found", fmt.Errorf("network error"), IsNotFound, false},
		{"422 is validation failure", &APIError{StatusCode: 422}, IsValidationFailed, true},
		{"400 is not validation failure", &APIError{StatusCode: 400}, IsValidationFailed, false},
		{"409 is conflict", &APIError{StatusCode: 409}, IsConflict, true},
		{"422 is not conflict", &APIError{StatusCode: 422}, IsConflict, false},
		{"429 is rate limited", &APIError{StatusCode: 429}, IsRateLimited, true},
		{
			"403 with rate limit message is rate limited",
			&APIError{StatusCode: 403, Message: "API rate limit exceeded for installation ID 12345"},
			IsRateLimited, true,
		},
		{
			"403 abuse detection is rate limited",
			&APIError{StatusCode: 403, Message: "You have triggered an abuse detection mechanism"},
			IsRateLimited, true,
		},
		{
			"permission 403 is not rate limited",
			&APIError{StatusCode: 403, Message: "Resource not accessible by integration"},
			IsRateLimited, false,
		},
		{"plain error is not rate limited", fmt.Errorf("network error"), IsRateLimited, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.predicate(test.err); got != test.want {
				t.Errorf("predicate = %v, want %v", got, test.want)
			}
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("fetching release: %w", &APIError{StatusCode: 404, Message: "Not Found"})
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through fmt.Errorf wrapping")
	}
}
