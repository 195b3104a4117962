// Package clients holds the HTTP clients for the upstream evidence sources.
// All clients share one base that handles retries with backoff, a circuit
// breaker per source and error classification, so the analysis pipeline only
// ever sees upstream errors tagged with the source name.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"pathmind/internal/util"
	"pathmind/pkg/common"
	"pathmind/pkg/logger"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultMaxTries  = 3
	defaultBaseDelay = 250 * time.Millisecond

	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
)

// Status is the result of one upstream health probe.
type Status struct {
	Source    string        `json:"source"`
	Reachable bool          `json:"reachable"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// breaker trips after a run of consecutive failures and rejects calls until
// the cooldown elapses. One probe is let through after the cooldown; its
// outcome decides whether the breaker closes again.
type breaker struct {
	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < breakerThreshold {
		return true
	}
	if time.Now().After(b.openUntil) {
		b.openUntil = time.Now().Add(breakerCooldown)
		return true
	}
	return false
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures == breakerThreshold {
		b.openUntil = time.Now().Add(breakerCooldown)
	}
}

// Client is the shared HTTP transport for one upstream source.
type Client struct {
	source   string
	baseURL  string
	http     *http.Client
	breaker  breaker
	maxTries int
}

// Option tweaks client construction, primarily for tests.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithMaxTries overrides the retry attempt limit.
func WithMaxTries(maxTries int) Option {
	return func(c *Client) {
		c.maxTries = maxTries
	}
}

// NewClient builds the base client for one source.
func NewClient(source, baseURL string, options ...Option) *Client {
	client := &Client{
		source:   source,
		baseURL:  baseURL,
		http:     &http.Client{Timeout: defaultTimeout},
		maxTries: defaultMaxTries,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Source returns the source name used in version snapshots and errors.
func (c *Client) Source() string {
	return c.source
}

// statusError distinguishes permanent HTTP failures (bad request, not found)
// from transient ones (timeouts, 5xx, rate limits).
type statusError struct {
	source string
	code   int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.source, e.code)
}

func (e *statusError) permanent() bool {
	return e.code >= 400 && e.code < 500 && e.code != http.StatusTooManyRequests
}

func isPermanentStatus(err error) bool {
	if statusErr, ok := err.(*statusError); ok {
		return statusErr.permanent()
	}
	return false
}

// getJSON performs a GET against the source and decodes the JSON body into
// out. Transient failures are retried with exponential backoff; everything
// that still fails is reported as an upstream error for this source.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// postJSON sends a JSON body and decodes the JSON response into out.
func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if !c.breaker.allow() {
		return common.NewUpstreamError(c.source, fmt.Errorf("circuit open"))
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", c.source, err)
		}
		payload = encoded
	}

	err := retryRequest(ctx, c.maxTries, func(ctx context.Context) error {
		request, err := newRequest(ctx, method, requestURL, payload)
		if err != nil {
			return err
		}
		response, err := c.http.Do(request)
		if err != nil {
			return err
		}
		defer response.Body.Close()

		if response.StatusCode >= 400 {
			io.Copy(io.Discard, response.Body)
			return &statusError{source: c.source, code: response.StatusCode}
		}
		if out == nil {
			io.Copy(io.Discard, response.Body)
			return nil
		}
		return json.NewDecoder(response.Body).Decode(out)
	})
	if err != nil {
		c.breaker.failure()
		logger.Warn("[Clients] Upstream request failed", "source", c.source, "path", path, "error", err)
		return common.NewUpstreamError(c.source, err)
	}
	c.breaker.success()
	return nil
}

func newRequest(ctx context.Context, method, requestURL string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = jsonBody(payload)
	}
	request, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	return request, nil
}

func retryRequest(ctx context.Context, maxTries int, fn func(context.Context) error) error {
	return util.RetryBackoffErr(ctx, maxTries, defaultBaseDelay, isPermanentStatus, fn)
}

func jsonBody(payload []byte) io.Reader {
	return bytes.NewReader(payload)
}

// Ping probes the source's health path and reports reachability with the
// observed latency. Ping bypasses retries so health reflects a single probe.
func (c *Client) Ping(ctx context.Context, path string) Status {
	status := Status{Source: c.source}
	start := time.Now()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	response, err := c.http.Do(request)
	status.Latency = time.Since(start)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer response.Body.Close()
	io.Copy(io.Discard, response.Body)

	if response.StatusCode >= 500 {
		status.Error = fmt.Sprintf("status %d", response.StatusCode)
		return status
	}
	status.Reachable = true
	return status
}
