package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"portfolio-feeds/pkg/config"
)

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Expected User-Agent 'test-agent', got '%s'", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Expected Accept 'application/json', got '%s'", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"hello","count":3}`))
	}))
	defer server.Close()

	client := New(APIClient, Options{UserAgent: "test-agent"})

	var got struct {
		Title string `json:"title"`
		Count int    `json:"count"`
	}
	if err := client.GetJSON(context.Background(), server.URL, &got); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}

	if got.Title != "hello" || got.Count != 3 {
		t.Errorf("Expected {hello 3}, got %+v", got)
	}
}

func TestGetJSON_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(APIClient)

	var v map[string]any
	err := client.GetJSON(context.Background(), server.URL+"/missing", &v)

	var fetchErr *RemoteFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected RemoteFetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", fetchErr.StatusCode)
	}
	if fetchErr.URL != server.URL+"/missing" {
		t.Errorf("Expected URL '%s', got '%s'", server.URL+"/missing", fetchErr.URL)
	}
}

func TestGetJSON_InvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := NewClient(APIClient)

	var v map[string]any
	err := client.GetJSON(context.Background(), server.URL, &v)

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if parseErr.URL != server.URL {
		t.Errorf("Expected URL '%s', got '%s'", server.URL, parseErr.URL)
	}
	if parseErr.Unwrap() == nil {
		t.Error("Expected ParseError to carry its cause")
	}
}

func TestGetBody_NoRetryByDefault(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(FeedClient)

	if _, err := client.GetBody(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error for 503, got nil")
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 request, got %d", got)
	}
}

func TestGetBody_RetriesRetryableStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := New(FeedClient, Options{
		Retry: config.RetryPolicy{MaxAttempts: 3, InitialDelayMs: 1, MaxDelayMs: 5, BackoffMultiplier: 2.0},
	})

	body, err := client.GetBody(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetBody failed: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Expected body 'ok', got '%s'", body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 requests, got %d", got)
	}
}

func TestGetBody_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := New(APIClient, Options{
		Retry: config.RetryPolicy{MaxAttempts: 3, InitialDelayMs: 1, BackoffMultiplier: 1.0},
	})

	if _, err := client.GetBody(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error for 403, got nil")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 request, got %d", got)
	}
}

func TestGetBody_LimitsBodySize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	client := New(FeedClient, Options{MaxBodyBytes: 4})

	body, err := client.GetBody(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetBody failed: %v", err)
	}
	if string(body) != "0123" {
		t.Errorf("Expected truncated body '0123', got '%s'", body)
	}
}

func TestGetBody_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := New(APIClient, Options{
		Retry: config.RetryPolicy{MaxAttempts: 5, InitialDelayMs: 1000, BackoffMultiplier: 2.0},
	})

	start := time.Now()
	if _, err := client.GetBody(ctx, server.URL); err == nil {
		t.Fatal("Expected error for cancelled context, got nil")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected GetBody to return promptly after cancellation, took %v", elapsed)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()

	opts := OptionsFromConfig(cfg)

	want := "portfolio-feeds/1.0 (+https://rancorder.vercel.app)"
	if opts.UserAgent != want {
		t.Errorf("Expected user agent '%s', got '%s'", want, opts.UserAgent)
	}
	if opts.Retry.MaxAttempts != 1 {
		t.Errorf("Expected a single attempt by default, got %d", opts.Retry.MaxAttempts)
	}
}
