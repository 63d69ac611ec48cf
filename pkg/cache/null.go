package cache

import (
	"context"
	"time"
)

// NullCache is the response cache behind --no-api-cache: every owner
// lookup misses and goes to crates.io, and nothing is written under the
// api cache directory.
type NullCache struct{}

// NewNullCache returns a Cache that keeps nothing.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
