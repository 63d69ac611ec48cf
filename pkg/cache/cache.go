// Package cache stores live-API responses on disk between runs.
//
// It complements the crates.io dump cache: crates missing from the dump, or
// every crate when the dump is stale, are looked up one request per second,
// and keeping those answers for a while makes repeated runs cheap.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a
	// miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data, which must be a JSON document, under key. A ttl of
	// zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
