package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"portfolio-feeds/pkg/config"
)

// ClientType represents the type of HTTP client configuration
type ClientType string

const (
	// APIClient identifies itself and asks for JSON.
	// Used for the platform listing and detail endpoints
	APIClient ClientType = "api"

	// FeedClient identifies itself and asks for RSS/Atom or XML documents.
	// Used for RSS feeds and sitemaps
	FeedClient ClientType = "feed"
)

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "portfolio-feeds/1.0"

// DefaultMaxBodyBytes caps response bodies when no limit is configured
const DefaultMaxBodyBytes = 5 << 20

// RemoteFetchError is returned when an upstream endpoint answers with a non-2xx status
type RemoteFetchError struct {
	StatusCode int
	URL        string
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("remote fetch failed: %s returned status %d", e.URL, e.StatusCode)
}

// ParseError is returned when a response body cannot be decoded
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse response from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options configures an HTTPClient. Zero values fall back to defaults:
// default user agent, no timeout, 5 MiB bodies, a single attempt.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	Retry        config.RetryPolicy
}

// OptionsFromConfig builds client options from the fetch section of the configuration
func OptionsFromConfig(cfg *config.Config) Options {
	userAgent := cfg.Fetch.UserAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("%s (+%s)", DefaultUserAgent, cfg.Site.BaseURL)
	}

	return Options{
		UserAgent:    userAgent,
		Timeout:      cfg.Fetch.Timeout(),
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		Retry:        cfg.Fetch.Retry,
	}
}

// HTTPClient wraps an http.Client with configuration
type HTTPClient struct {
	client     *http.Client
	clientType ClientType
	opts       Options
}

// NewClient creates a new HTTP client with the specified type and default options
func NewClient(clientType ClientType) *HTTPClient {
	return New(clientType, Options{})
}

// New creates a new HTTP client with the specified type and options
func New(clientType ClientType, opts Options) *HTTPClient {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Follow up to 10 redirects
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &HTTPClient{
		client:     client,
		clientType: clientType,
		opts:       opts,
	}
}

// Do executes an HTTP request with the appropriate headers for the client type
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.setHeaders(req)
	return c.client.Do(req)
}

// GetJSON fetches url and decodes the JSON body into v
func (c *HTTPClient) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.GetBody(ctx, url)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return &ParseError{URL: url, Err: err}
	}

	return nil
}

// GetBody fetches url and returns the raw body of a 2xx response.
// Transport errors and retryable statuses are retried according to the retry policy.
func (c *HTTPClient) GetBody(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	maxAttempts := c.opts.Retry.MaxAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, retryable, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable || attempt == maxAttempts {
			break
		}

		if err := wait(ctx, c.opts.Retry.GetRetryDelay(attempt)); err != nil {
			return nil, fmt.Errorf("retry of %s abandoned: %w", url, err)
		}
	}

	return nil, lastErr
}

func (c *HTTPClient) get(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		// A cancelled context is final
		return nil, ctx.Err() == nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
		return nil, isRetryableStatus(resp.StatusCode), &RemoteFetchError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body from %s: %w", url, err)
	}

	return body, false, nil
}

// setHeaders sets the appropriate headers based on client type
func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.opts.UserAgent)

	switch c.clientType {
	case APIClient:
		req.Header.Set("Accept", "application/json")

	case FeedClient:
		req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	default:
		// Default: user agent only
	}
}

// isRetryableStatus returns true for statuses worth another attempt
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// wait sleeps for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
