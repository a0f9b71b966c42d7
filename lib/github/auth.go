// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gen192-dev/gen192/lib/clock"
	"github.com/gen192-dev/gen192/lib/netutil"
)

// authenticator produces Authorization header values. The token
// implementation is static; the App implementation rotates
// installation tokens as they approach expiry.
type authenticator interface {
	AuthorizationHeader(ctx context.Context) (string, error)
}

// tokenRotationMargin is how long before expiry an installation token
// is replaced. GitHub issues 1-hour tokens; rotating 5 minutes early
// keeps a token from expiring mid-request.
const tokenRotationMargin = 5 * time.Minute

// jwtValidity is the lifetime of the App JWT used for token exchange.
// GitHub caps it at 10 minutes.
const jwtValidity = 10 * time.Minute

// jwtClockSkew is subtracted from the JWT's issued-at time so a
// slightly fast local clock does not produce a not-yet-valid JWT.
const jwtClockSkew = 60 * time.Second

// tokenAuth holds a personal access token or fine-grained token.
type tokenAuth struct {
	header string
}

func newTokenAuth(token string) *tokenAuth {
	return &tokenAuth{header: "Bearer " + token}
}

func (auth *tokenAuth) AuthorizationHeader(_ context.Context) (string, error) {
	return auth.header, nil
}

// appAuth authenticates as a GitHub App installation: it signs RS256
// JWTs with the App's private key, exchanges them for short-lived
// installation tokens, and rotates the token before it expires.
type appAuth struct {
	appID          int64
	installationID int64
	privateKey     *rsa.PrivateKey
	clock          clock.Clock

	// Set by the Client after construction. The authenticator needs
	// the client's HTTP transport for token exchange, and the client
	// needs the authenticator for request headers, so one of the two
	// references is wired late.
	httpClient *http.Client
	baseURL    string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newAppAuth(appID, installationID int64, privateKeyPEM []byte, clk clock.Clock) (*appAuth, error) {
	privateKey, err := parseRSAPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &appAuth{
		appID:          appID,
		installationID: installationID,
		privateKey:     privateKey,
		clock:          clk,
	}, nil
}

// parseRSAPrivateKey accepts the PKCS1 keys GitHub hands out and the
// PKCS8 keys some key tooling re-encodes them into.
func parseRSAPrivateKey(privateKeyPEM []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, fmt.Errorf("github: failed to decode PEM block from private key")
	}

	privateKey, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if pkcs1Err == nil {
		return privateKey, nil
	}

	keyInterface, pkcs8Err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if pkcs8Err != nil {
		return nil, fmt.Errorf("github: parsing private key: %w (also tried PKCS8: %v)", pkcs1Err, pkcs8Err)
	}
	rsaKey, ok := keyInterface.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("github: private key is not RSA")
	}
	return rsaKey, nil
}

func (auth *appAuth) AuthorizationHeader(ctx context.Context) (string, error) {
	auth.mu.Lock()
	defer auth.mu.Unlock()

	if auth.token != "" && auth.clock.Now().Before(auth.expiresAt.Add(-tokenRotationMargin)) {
		return "Bearer " + auth.token, nil
	}

	token, expiresAt, err := auth.exchangeToken(ctx)
	if err != nil {
		return "", err
	}
	auth.token = token
	auth.expiresAt = expiresAt
	return "Bearer " + token, nil
}

// exchangeToken signs a fresh JWT and trades it for an installation
// access token. Called with auth.mu held.
func (auth *appAuth) exchangeToken(ctx context.Context) (string, time.Time, error) {
	jwt, err := auth.generateJWT()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("github: generating JWT: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", auth.baseURL, auth.installationID)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("github: creating token exchange request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+jwt)
	request.Header.Set("Accept", "application/vnd.github+json")

	response, err := auth.httpClient.Do(request)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("github: token exchange request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusCreated {
		body, _ := netutil.ReadResponse(response.Body)
		return "", time.Time{}, fmt.Errorf("github: token exchange returned HTTP %d: %s", response.StatusCode, body)
	}

	var grant struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(response.Body).Decode(&grant); err != nil {
		return "", time.Time{}, fmt.Errorf("github: decoding token exchange response: %w", err)
	}
	if grant.Token == "" {
		return "", time.Time{}, fmt.Errorf("github: token exchange returned empty token")
	}
	return grant.Token, grant.ExpiresAt, nil
}

// generateJWT builds the RS256-signed App JWT. The shape is fixed
// (three claims, one algorithm, ten-minute lifetime), so it is signed
// directly with stdlib crypto rather than pulling in a JWT library.
func (auth *appAuth) generateJWT() (string, error) {
	now := auth.clock.Now()

	claims, err := json.Marshal(struct {
		IssuedAt  int64  `json:"iat"`
		ExpiresAt int64  `json:"exp"`
		Issuer    string `json:"iss"`
	}{
		IssuedAt:  now.Add(-jwtClockSkew).Unix(),
		ExpiresAt: now.Add(jwtValidity).Unix(),
		Issuer:    strconv.FormatInt(auth.appID, 10),
	})
	if err != nil {
		return "", fmt.Errorf("marshaling claims: %w", err)
	}

	encode := base64.RawURLEncoding.EncodeToString
	signingInput := encode([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." + encode(claims)

	hash := sha256.Sum256([]byte(signingInput))
	signature, err := rsa.SignPKCS1v15(rand.Reader, auth.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("signing JWT: %w", err)
	}
	return signingInput + "." + encode(signature), nil
}
