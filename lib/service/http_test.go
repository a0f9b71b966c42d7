// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"
)

func signHMAC(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookHMAC(t *testing.T) {
	secret := []byte("webhook-secret-for-testing")
	body := []byte(`{"ref":"refs/heads/main","after":"abc123"}`)
	valid := signHMAC(secret, body)

	tests := []struct {
		name      string
		secret    []byte
		body      []byte
		signature string
		wantErr   string // empty means the signature must verify
	}{
		{name: "valid with prefix", secret: secret, body: body, signature: "sha256=" + valid},
		{name: "valid without prefix", secret: secret, body: body, signature: valid},
		{name: "wrong signature", secret: secret, body: body,
			signature: "sha256=" + strings.Repeat("ab", 32), wantErr: "signature mismatch"},
		{name: "wrong secret", secret: []byte("wrong-secret"), body: body,
			signature: "sha256=" + valid, wantErr: "signature mismatch"},
		{name: "different body", secret: secret, body: []byte("different body"),
			signature: "sha256=" + valid, wantErr: "signature mismatch"},
		{name: "truncated signature", secret: secret, body: body,
			signature: "sha256=" + valid[:32], wantErr: "signature mismatch"},
		{name: "empty secret", secret: nil, body: body,
			signature: "sha256=" + valid, wantErr: "secret is empty"},
		{name: "empty body", secret: secret, body: nil,
			signature: "sha256=" + valid, wantErr: "body is empty"},
		{name: "empty signature", secret: secret, body: body,
			signature: "", wantErr: "signature is empty"},
		{name: "invalid hex", secret: secret, body: body,
			signature: "sha256=not-valid-hex", wantErr: "invalid hex"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := VerifyWebhookHMAC(test.secret, test.body, test.signature)
			if test.wantErr == "" {
				if err != nil {
					t.Errorf("VerifyWebhookHMAC() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("VerifyWebhookHMAC() = nil, want error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error = %q, want %q", err, test.wantErr)
			}
		})
	}
}

func TestHTTPServerLifecycle(t *testing.T) {
	server := NewHTTPServer(HTTPServerConfig{
		Address: "127.0.0.1:0",
		Handler: http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			io.WriteString(writer, "ok")
		}),
		ShutdownTimeout: 2 * time.Second,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()

	// deadlineCtx is cancelled at the test deadline, so these waits
	// need no wall-clock timeout of their own.
	deadlineCtx := context.Background()
	if deadline, ok := t.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		deadlineCtx, cancelDeadline = context.WithDeadline(context.Background(), deadline)
		defer cancelDeadline()
	}
	select {
	case <-server.Ready():
	case <-deadlineCtx.Done():
		t.Fatal("server did not become ready before test deadline")
	}

	response, err := http.Get("http://" + server.Addr().String() + "/test")
	if err != nil {
		t.Fatalf("GET /test: %v", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", response.StatusCode)
	}
	if body, _ := io.ReadAll(response.Body); string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}

	cancel()

	select {
	case err := <-serveDone:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-deadlineCtx.Done():
		t.Fatal("server did not shut down before test deadline")
	}
}

func TestHTTPServerPanicsOnMissingConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	tests := []struct {
		name   string
		config HTTPServerConfig
	}{
		{name: "missing address", config: HTTPServerConfig{Handler: handler, Logger: logger}},
		{name: "missing handler", config: HTTPServerConfig{Address: ":0", Logger: logger}},
		{name: "missing logger", config: HTTPServerConfig{Address: ":0", Handler: handler}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("NewHTTPServer did not panic")
				}
			}()
			NewHTTPServer(test.config)
		})
	}
}
