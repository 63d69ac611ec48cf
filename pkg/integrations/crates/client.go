package crates

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/cache"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/errors"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/httputil"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/integrations"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/publishers"
)

// DefaultBaseURL is the crates.io API root.
const DefaultBaseURL = "https://crates.io/api/v1"

// Client provides access to the crates.io owner endpoints.
// Responses are cached in the backend for the TTL given to [NewClient].
type Client struct {
	*integrations.Client
	baseURL string
	refresh bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, such as a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRefresh bypasses cached responses. Fresh answers are still stored.
func WithRefresh(refresh bool) Option {
	return func(c *Client) { c.refresh = refresh }
}

// NewClient creates a crates.io client sharing the given rate-limited
// transport. A ttl of zero keeps cached responses indefinitely.
func NewClient(hc *httputil.RateLimitedClient, backend cache.Cache, ttl time.Duration, opts ...Option) *Client {
	c := &Client{
		Client:  integrations.NewClient(hc, backend, "crates", ttl),
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type usersResponse struct {
	Users []publishers.PublisherData `json:"users"`
}

type teamsResponse struct {
	Teams []publishers.PublisherData `json:"teams"`
}

// OwnerUsers returns the individual accounts that can publish crate.
//
// Returns:
//   - NOT_FOUND if crates.io does not know the crate
//   - NETWORK_ERROR or RATE_LIMITED (retryable) for transient failures
//   - INVALID_PACKAGE for names crates.io could never accept
func (c *Client) OwnerUsers(ctx context.Context, crate string) ([]publishers.PublisherData, error) {
	if err := errors.ValidateCrateName(crate); err != nil {
		return nil, err
	}
	var data usersResponse
	err := c.Cached(ctx, crate+"/owner_user", c.refresh, &data, func() error {
		return c.Get(ctx, c.endpoint(crate, "owner_user"), &data)
	})
	if err != nil {
		return nil, fmt.Errorf("crate %s: %w", crate, err)
	}
	return nonNil(data.Users), nil
}

// OwnerTeams returns the teams whose members can publish crate.
// Errors are as for [Client.OwnerUsers].
func (c *Client) OwnerTeams(ctx context.Context, crate string) ([]publishers.PublisherData, error) {
	if err := errors.ValidateCrateName(crate); err != nil {
		return nil, err
	}
	var data teamsResponse
	err := c.Cached(ctx, crate+"/owner_team", c.refresh, &data, func() error {
		return c.Get(ctx, c.endpoint(crate, "owner_team"), &data)
	})
	if err != nil {
		return nil, fmt.Errorf("crate %s: %w", crate, err)
	}
	return nonNil(data.Teams), nil
}

func (c *Client) endpoint(crate, kind string) string {
	return fmt.Sprintf("%s/crates/%s/%s", c.baseURL, url.PathEscape(crate), kind)
}

func nonNil(ps []publishers.PublisherData) []publishers.PublisherData {
	if ps == nil {
		return []publishers.PublisherData{}
	}
	return ps
}
