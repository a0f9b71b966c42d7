// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package github

import "sync"

// etagCache remembers the ETag and body of every GET response that
// carried one. Repeat GETs send If-None-Match; a 304 answer is served
// from the cache and does not count against the rate limit. There is
// no eviction: the cache lives as long as the Client and grows with
// the number of distinct URLs, which for this client is small.
type etagCache struct {
	mu      sync.Mutex
	entries map[string]etagEntry
}

type etagEntry struct {
	etag string
	body []byte
}

func newETagCache() *etagCache {
	return &etagCache{entries: make(map[string]etagEntry)}
}

// get returns the cached ETag for a URL, or "" when none is cached.
func (cache *etagCache) get(url string) string {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.entries[url].etag
}

// body returns the cached response body for a URL, or nil.
func (cache *etagCache) body(url string) []byte {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.entries[url].body
}

func (cache *etagCache) put(url, etag string, body []byte) {
	if etag == "" {
		return
	}
	cache.mu.Lock()
	cache.entries[url] = etagEntry{etag: etag, body: body}
	cache.mu.Unlock()
}
