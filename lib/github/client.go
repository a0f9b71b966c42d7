// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gen192-dev/gen192/lib/clock"
	"github.com/gen192-dev/gen192/lib/netutil"
)

// apiVersion pins the GitHub REST API version sent with every
// request.
const apiVersion = "2022-11-28"

// defaultBaseURL is the public GitHub API endpoint.
const defaultBaseURL = "https://api.github.com"

// Config holds configuration for creating a GitHub API Client.
//
// Exactly one authentication mode must be configured:
//   - App authentication: set AppID, PrivateKey, and InstallationID
//   - Token authentication: set Token
type Config struct {
	// BaseURL is the root URL for API requests. Defaults to
	// "https://api.github.com". Must use HTTPS.
	BaseURL string

	// AppID is the GitHub App's numeric ID. Required for App auth.
	AppID int64

	// PrivateKey is the PEM-encoded RSA private key for the GitHub App.
	// Required for App auth.
	PrivateKey []byte

	// InstallationID is the GitHub App installation's numeric ID.
	// Required for App auth.
	InstallationID int64

	// Token is a personal access token or fine-grained token. Required
	// for token auth. Mutually exclusive with App auth fields.
	Token string

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real().
	// Inject clock.Fake() in tests for deterministic behavior.
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed GitHub REST API client. It authenticates every
// request, respects rate limits (with a single header-driven retry),
// caches ETags for conditional GETs, and parses API errors into
// *APIError values.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       authenticator
	rateLimit  *rateLimitTracker
	etagCache  *etagCache
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient creates a GitHub API client. Fails on an invalid
// configuration: ambiguous or missing auth, a non-HTTPS base URL, or
// an unparseable App private key.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("github: API client requires HTTPS (got %q)", baseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	auth, err := config.authenticator(baseURL, httpClient, clk)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		auth:       auth,
		rateLimit:  newRateLimitTracker(clk),
		etagCache:  newETagCache(),
		clock:      clk,
		logger:     logger,
	}, nil
}

// authenticator resolves the config's auth fields into exactly one
// authentication mode.
func (config Config) authenticator(baseURL string, httpClient *http.Client, clk clock.Clock) (authenticator, error) {
	hasApp := config.AppID != 0 || len(config.PrivateKey) > 0 || config.InstallationID != 0
	hasToken := config.Token != ""

	switch {
	case hasApp && hasToken:
		return nil, fmt.Errorf("github: cannot configure both App auth and token auth")
	case hasToken:
		return newTokenAuth(config.Token), nil
	case hasApp:
		if config.AppID == 0 {
			return nil, fmt.Errorf("github: AppID is required for App auth")
		}
		if len(config.PrivateKey) == 0 {
			return nil, fmt.Errorf("github: PrivateKey is required for App auth")
		}
		if config.InstallationID == 0 {
			return nil, fmt.Errorf("github: InstallationID is required for App auth")
		}
		appAuth, err := newAppAuth(config.AppID, config.InstallationID, config.PrivateKey, clk)
		if err != nil {
			return nil, err
		}
		// The App authenticator makes its own HTTP calls to exchange
		// the JWT for installation tokens.
		appAuth.httpClient = httpClient
		appAuth.baseURL = baseURL
		return appAuth, nil
	default:
		return nil, fmt.Errorf("github: no authentication configured (set AppID+PrivateKey+InstallationID or Token)")
	}
}

// execute performs one authenticated API call against a path relative
// to the base URL, returning the response body and headers. Rate
// limited responses (429, or 403 with a rate limit message) are
// retried once after the header-indicated backoff; everything else
// non-2xx becomes an *APIError.
func (client *Client) execute(ctx context.Context, method, path string, payload any) ([]byte, http.Header, error) {
	url := client.baseURL + path

	for attempt := 0; ; attempt++ {
		response, err := client.doRaw(ctx, method, url, payload)
		if err != nil {
			return nil, nil, err
		}

		body, header, retry, err := client.consume(response, method, url, attempt == 0)
		if err != nil {
			return nil, nil, err
		}
		if !retry {
			return body, header, nil
		}
	}
}

// consume reads one response. When retry is true the caller should
// re-issue the request; the rate limit backoff has already elapsed.
func (client *Client) consume(response *http.Response, method, url string, mayRetry bool) (body []byte, header http.Header, retry bool, err error) {
	defer response.Body.Close()

	// A 304 means our cached copy is current.
	if response.StatusCode == http.StatusNotModified {
		if cached := client.etagCache.body(url); cached != nil {
			return cached, response.Header, false, nil
		}
		// 304 without a cache entry: fall through and read the empty
		// body rather than failing silently.
	}

	body, err = netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, nil, false, fmt.Errorf("github: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		rateLimited := response.StatusCode == 429 ||
			(response.StatusCode == 403 && isRateLimitMessage(string(body)))
		if mayRetry && rateLimited {
			if backoff := client.rateLimit.retryAfter(response.Header); backoff > 0 {
				client.logger.Info("rate limited, backing off",
					"duration", backoff,
					"method", method,
					"url", url,
				)
				select {
				case <-client.clock.After(backoff):
					return nil, nil, true, nil
				case <-response.Request.Context().Done():
					return nil, nil, false, response.Request.Context().Err()
				}
			}
		}
		return nil, nil, false, parseAPIErrorFromBody(response.StatusCode, body)
	}

	if method == http.MethodGet {
		if etag := response.Header.Get("ETag"); etag != "" {
			client.etagCache.put(url, etag, body)
		}
	}
	return body, response.Header, false, nil
}

// doRaw issues one authenticated request to an absolute URL and
// returns the raw response; the caller closes the body. Waits out a
// known-exhausted rate limit before sending. PageIterator uses this
// directly because it needs the Link header before the body is
// parsed.
func (client *Client) doRaw(ctx context.Context, method, url string, payload any) (*http.Response, error) {
	if err := client.rateLimit.wait(ctx); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("github: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("github: creating request: %w", err)
	}

	authHeader, err := client.auth.AuthorizationHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("github: authentication: %w", err)
	}
	request.Header.Set("Authorization", authHeader)
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", apiVersion)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodGet {
		if etag := client.etagCache.get(url); etag != "" {
			request.Header.Set("If-None-Match", etag)
		}
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("github: %s %s: %w", method, url, err)
	}

	client.rateLimit.update(response.Header)
	return response, nil
}

// get / post / patch / delete are the JSON convenience wrappers the
// typed endpoint methods build on. A nil result discards the response
// body.

func (client *Client) get(ctx context.Context, path string, result any) error {
	body, _, err := client.execute(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}

func (client *Client) post(ctx context.Context, path string, payload any, result any) error {
	body, _, err := client.execute(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}

func (client *Client) patch(ctx context.Context, path string, payload any, result any) error {
	body, _, err := client.execute(ctx, http.MethodPatch, path, payload)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}

func (client *Client) delete(ctx context.Context, path string) error {
	_, _, err := client.execute(ctx, http.MethodDelete, path, nil)
	return err
}

// list creates a PageIterator over a paginated GET endpoint.
func list[T any](client *Client, path string) *PageIterator[T] {
	return &PageIterator[T]{
		client:  client,
		nextURL: client.baseURL + path,
	}
}

// parseAPIError reads a GitHub API error from an HTTP response.
func parseAPIError(response *http.Response) *APIError {
	body, _ := netutil.ReadResponse(response.Body)
	return parseAPIErrorFromBody(response.StatusCode, body)
}

// parseAPIErrorFromBody decodes GitHub's error envelope. Bodies that
// are not the standard envelope become the error message verbatim.
func parseAPIErrorFromBody(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Message          string            `json:"message"`
		DocumentationURL string            `json:"documentation_url"`
		Errors           []ValidationError `json:"errors"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Message != "" {
		apiError.Message = wireError.Message
		apiError.DocumentationURL = wireError.DocumentationURL
		apiError.Errors = wireError.Errors
	} else {
		apiError.Message = string(body)
	}

	return apiError
}
