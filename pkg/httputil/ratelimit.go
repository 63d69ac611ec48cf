package httputil

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/observability"
)

// UserAgent identifies this tool to crates.io, as its crawler policy requires.
const UserAgent = "cargo supply-chain (https://github.com/rust-secure-code/cargo-supply-chain)"

// DefaultInterval is the minimum spacing between requests.
// See https://crates.io/data-access.
const DefaultInterval = time.Second

// RateLimitedClient issues GET requests no closer together than its interval.
// The zero value is not usable; create one with [NewRateLimitedClient].
type RateLimitedClient struct {
	http     *http.Client
	headers  map[string]string
	interval time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	last time.Time
}

// Option configures a [RateLimitedClient].
type Option func(*RateLimitedClient)

// WithHTTPClient replaces the underlying *http.Client.
// The default client has no overall timeout because the crates.io dump is a
// multi-hundred-megabyte download; bound individual calls with a context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *RateLimitedClient) { c.http = hc }
}

// WithInterval overrides the minimum spacing between requests.
func WithInterval(d time.Duration) Option {
	return func(c *RateLimitedClient) { c.interval = d }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *RateLimitedClient) { c.headers[key] = value }
}

// WithClock replaces the time source and the sleep function. Used by tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *RateLimitedClient) {
		c.now = now
		c.sleep = sleep
	}
}

// NewRateLimitedClient creates a client with the crates.io User-Agent and a
// one second request interval.
func NewRateLimitedClient(opts ...Option) *RateLimitedClient {
	c := &RateLimitedClient{
		http:     &http.Client{},
		headers:  map[string]string{"User-Agent": UserAgent},
		interval: DefaultInterval,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get waits for the rate limit and then issues a GET to url.
// Per-request headers override the client defaults. The caller owns the
// response body and is responsible for interpreting the status code.
func (c *RateLimitedClient) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, err
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))
	return resp, nil
}

// wait blocks until at least interval has passed since the previous request,
// then records the current time as the new previous request.
func (c *RateLimitedClient) wait(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.last.IsZero() {
		if d := c.last.Add(c.interval).Sub(c.now()); d > 0 {
			if err := c.sleep(ctx, d); err != nil {
				return err
			}
		}
	}
	c.last = c.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
