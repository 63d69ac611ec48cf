package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/cache"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/errors"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/httputil"
)

// requestTimeout bounds a single API call, not counting rate-limit waits.
const requestTimeout = 10 * time.Second

// Client provides shared HTTP functionality for registry API clients.
// It handles response caching, rate limiting and status classification.
type Client struct {
	http   *httputil.RateLimitedClient
	cache  cache.Cache
	prefix string
	ttl    time.Duration
}

// NewClient creates a Client. Cache keys are namespaced with prefix and
// entries live for ttl. A nil backend disables caching.
func NewClient(hc *httputil.RateLimitedClient, backend cache.Cache, prefix string, ttl time.Duration) *Client {
	if hc == nil {
		hc = httputil.NewRateLimitedClient()
	}
	if backend == nil {
		backend = cache.NewNullCache()
	}
	return &Client{http: hc, cache: backend, prefix: prefix, ttl: ttl}
}

// Close releases the response cache.
func (c *Client) Close() error {
	return c.cache.Close()
}

// Cached retrieves v from the cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// Cache failures are never fatal; the request is simply made.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	key = cache.Key(c.prefix, key)
	if !refresh {
		if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			if json.Unmarshal(data, v) == nil {
				return nil
			}
		}
	}
	if err := fetch(); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
	}
	return nil
}

// Get performs a rate-limited GET and JSON-decodes a 200 response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.http.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		if ctx.Err() != nil && ctx.Err() != context.DeadlineExceeded {
			return err
		}
		return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", url))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, url); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeDeserialize, err, "decode %s", url)
	}
	return nil
}

func checkStatus(resp *http.Response, url string) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "GET %s: not found", url)
	case code == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return httputil.Retryable(errors.Wrap(errors.ErrCodeRateLimited,
			&errors.RateLimitedError{RetryAfter: retryAfter}, "GET %s", url))
	case code >= 500:
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork, "GET %s: status %d", url, code))
	default:
		return errors.New(errors.ErrCodeInvalidResponse, "GET %s: status %d", url, code)
	}
}
