package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ltnam/categorize/internal/classify"
)

func testProvider(endpoint string) *Provider {
	return NewProvider(Config{
		APIKey:    "test-key",
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 100,
		Timeout:   5 * time.Second,
		Endpoint:  endpoint,
	})
}

func TestInvokeSuccess(t *testing.T) {
	var gotReq messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != apiVersion {
			t.Errorf("anthropic-version = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"Lawyers"}]}`))
	}))
	defer srv.Close()

	p := testProvider(srv.URL)
	defer p.Close()

	got, err := p.Invoke(context.Background(), "classify this contributor")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "Lawyers" {
		t.Errorf("expected Lawyers, got %q", got)
	}

	if gotReq.Model != "claude-sonnet-4-20250514" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if gotReq.MaxTokens != 100 {
		t.Errorf("request max_tokens = %d", gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
	if gotReq.Messages[0].Content != "classify this contributor" {
		t.Errorf("request prompt = %q", gotReq.Messages[0].Content)
	}
}

func TestInvokeRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := testProvider(srv.URL)
	_, err := p.Invoke(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for 429")
	}
	if !strings.Contains(err.Error(), "rate limited (429)") {
		t.Errorf("unexpected error text: %v", err)
	}
	if !classify.Retryable(err) {
		t.Error("expected 429 error to be retryable")
	}
}

func TestInvokeOverloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		w.Write([]byte("overloaded_error"))
	}))
	defer srv.Close()

	p := testProvider(srv.URL)
	_, err := p.Invoke(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for 529")
	}
	if !strings.Contains(err.Error(), "service overloaded (529)") {
		t.Errorf("unexpected error text: %v", err)
	}
	if !classify.Retryable(err) {
		t.Error("expected 529 error to be retryable")
	}
}

func TestInvokeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"max_tokens required"}}`))
	}))
	defer srv.Close()

	p := testProvider(srv.URL)
	_, err := p.Invoke(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for 400")
	}
	if !strings.Contains(err.Error(), "invalid_request_error") {
		t.Errorf("expected api error type in message, got: %v", err)
	}
	if classify.Retryable(err) {
		t.Error("expected 400 error to be terminal")
	}
}

func TestInvokeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	p := testProvider(srv.URL)
	_, err := p.Invoke(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parse response") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestInvokeEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	p := testProvider(srv.URL)
	_, err := p.Invoke(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for empty content")
	}
	if !strings.Contains(err.Error(), "empty response content") {
		t.Errorf("unexpected error text: %v", err)
	}
}
