package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	svcerrors "github.com/R3E-Network/greeno_layer/internal/errors"
)

// =============================================================================
// Client Tests
// =============================================================================

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(ClientConfig{})
	if c.httpClient.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", c.httpClient.Timeout)
	}
	if c.maxBody != 1<<20 {
		t.Errorf("maxBody = %d, want 1MiB", c.maxBody)
	}
}

func TestClient_GetRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Write([]byte(`{"rates":{"TND":3.1}}`))
	}))
	defer server.Close()

	body, err := NewClient(ClientConfig{}).GetRaw(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetRaw() error = %v", err)
	}
	if string(body) != `{"rates":{"TND":3.1}}` {
		t.Errorf("body = %s", body)
	}
}

func TestClient_GetRawStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer server.Close()

	_, err := NewClient(ClientConfig{}).GetRaw(context.Background(), server.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Body != "slow down" {
		t.Errorf("status error = %+v", statusErr)
	}
}

func TestClient_GetRawBodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	_, err := NewClient(ClientConfig{MaxBody: 16}).GetRaw(context.Background(), server.URL)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("error = %v, want ErrBodyTooLarge", err)
	}
}

// =============================================================================
// Response Tests
// =============================================================================

func TestWriteServiceError_PromotesDetails(t *testing.T) {
	se := svcerrors.Upstream(http.StatusBadRequest, "Token transfer failed", nil).
		WithDetails("details", "INSUFFICIENT_TOKEN_BALANCE").
		WithDetails("status", "INSUFFICIENT_TOKEN_BALANCE")

	rr := httptest.NewRecorder()
	WriteServiceError(rr, httptest.NewRequest(http.MethodPost, "/transferTokens", nil), se)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`"error":"Token transfer failed"`, `"details":"INSUFFICIENT_TOKEN_BALANCE"`, `"code":"UPSTREAM_ERROR"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	var v map[string]interface{}
	if err := DecodeJSON(req, &v); err == nil {
		t.Fatal("expected decode error")
	}
}
