// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// PageIterator walks a paginated list endpoint one page per Next
// call, following the Link headers GitHub attaches to list responses.
// Not safe for concurrent use.
type PageIterator[T any] struct {
	client  *Client
	nextURL string
	done    bool
}

// Next fetches one page and returns its items, or nil, nil once every
// page has been consumed. Page fetches authenticate and rate limit
// like any other call.
func (iterator *PageIterator[T]) Next(ctx context.Context) ([]T, error) {
	if iterator.done || iterator.nextURL == "" {
		return nil, nil
	}

	response, err := iterator.client.doRaw(ctx, http.MethodGet, iterator.nextURL, nil)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, parseAPIError(response)
	}

	var items []T
	if err := json.NewDecoder(response.Body).Decode(&items); err != nil {
		return nil, err
	}

	iterator.nextURL = nextLink(response.Header.Get("Link"))
	iterator.done = iterator.nextURL == ""

	return items, nil
}

// Collect drains the iterator and returns every remaining item.
func (iterator *PageIterator[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for {
		items, err := iterator.Next(ctx)
		if err != nil {
			return all, err
		}
		if items == nil {
			return all, nil
		}
		all = append(all, items...)
	}
}

// nextLink pulls the rel="next" URL out of an RFC 5988 Link header:
//
//	<https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
//
// Returns "" when the header has no next link.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		url, rel, found := strings.Cut(part, ";")
		if !found || !strings.Contains(rel, `rel="next"`) {
			continue
		}
		url = strings.TrimSpace(url)
		if strings.HasPrefix(url, "<") && strings.HasSuffix(url, ">") {
			return url[1 : len(url)-1]
		}
	}
	return ""
}
