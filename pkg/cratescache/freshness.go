package cratescache

import (
	"time"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/errors"
)

// DefaultMaxAge is how old the cache may be before it is ignored.
const DefaultMaxAge = 48 * time.Hour

// CacheState is the verdict of [Cache.Expire].
type CacheState int

const (
	CacheFresh CacheState = iota
	CacheExpired
	CacheUnknown
)

func (s CacheState) String() string {
	switch s {
	case CacheFresh:
		return "fresh"
	case CacheExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Age reports how long ago the cached dump was produced.
func (c *Cache) Age() (time.Duration, error) {
	meta, err := loadCached[StoredMetadata](c, Metadata)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeNotFound, err, "no valid cache metadata")
	}
	return c.age(meta)
}

func (c *Cache) age(meta StoredMetadata) (time.Duration, error) {
	age := c.now().Sub(meta.Timestamp)
	if age < 0 {
		return 0, errors.New(errors.ErrCodeNotFound, "cache timestamp %s is in the future", meta.Timestamp.Format(time.RFC3339))
	}
	return age, nil
}

// Expire checks the cache against maxAge. Anything but CacheFresh detaches
// the handle, so every later lookup in this run misses.
func (c *Cache) Expire(maxAge time.Duration) CacheState {
	state := CacheUnknown
	if age, err := c.Age(); err == nil {
		state = CacheExpired
		if age < maxAge {
			state = CacheFresh
		}
	}
	if state != CacheFresh {
		c.attached = false
	}
	return state
}
