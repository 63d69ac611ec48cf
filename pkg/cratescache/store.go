package cratescache

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/errors"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/observability"
)

// AppName is the directory name used under the user cache directory.
const AppName = "cargo-supply-chain"

// Collection identifies one of the files that make up the cache.
type Collection int

const (
	Metadata Collection = iota
	Crates
	CrateOwners
	Users
	Teams
	Versions

	numCollections
)

var collectionFiles = [numCollections]string{
	Metadata:    "metadata.json",
	Crates:      "crates.json",
	CrateOwners: "crate_owners.json",
	Users:       "users.json",
	Teams:       "teams.json",
	Versions:    "versions.json",
}

// File returns the collection's file name inside the cache directory.
func (c Collection) File() string { return collectionFiles[c] }

func (c Collection) String() string {
	return strings.TrimSuffix(c.File(), ".json")
}

// Cache is a handle on the on-disk crates.io cache.
//
// Collections are loaded lazily on first use and memoized for the lifetime
// of the handle. A Cache is not safe for concurrent use; at most one
// refresh may run against a directory at a time (see the .lock file).
type Cache struct {
	dir      string
	attached bool
	slots    [numCollections]any

	dumpURL  string
	logger   *log.Logger
	now      func() time.Time
	progress ProgressFunc
	rename   func(oldpath, newpath string) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithDir places the cache in dir instead of the per-user cache directory.
func WithDir(dir string) Option {
	return func(c *Cache) { c.dir = dir }
}

// WithDumpURL overrides the URL of the database dump.
func WithDumpURL(url string) Option {
	return func(c *Cache) { c.dumpURL = url }
}

// WithLogger sets the logger for cache diagnostics. Nil is ignored.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the time source used for freshness decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithProgress registers a callback driven by the archive download.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Cache) { c.progress = fn }
}

// DefaultDir returns the per-user cache directory for this tool.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNotFound, err, "no user cache directory")
	}
	return filepath.Join(base, AppName), nil
}

// New returns a cache handle. Without WithDir the per-user cache directory
// is used; if that cannot be determined the handle starts detached and
// every load reports NotFound.
func New(opts ...Option) *Cache {
	c := &Cache{
		dumpURL: DefaultDumpURL,
		logger:  log.New(io.Discard),
		now:     time.Now,
		rename:  os.Rename,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dir == "" {
		if dir, err := DefaultDir(); err == nil {
			c.dir = dir
		}
	}
	c.attached = c.dir != ""
	return c
}

// Dir returns the cache directory, attached or not.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) path(coll Collection) string {
	return filepath.Join(c.dir, coll.File())
}

// loadCached returns the memoized value of coll, reading and decoding the
// whole file on first use.
func loadCached[T any](c *Cache, coll Collection) (T, error) {
	var zero T
	if !c.attached {
		return zero, errors.New(errors.ErrCodeNotFound, "crates.io cache directory not available")
	}
	if v, ok := c.slots[coll].(T); ok {
		observability.Cache().OnCacheHit(coll.String())
		return v, nil
	}
	observability.Cache().OnCacheMiss(coll.String())

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return zero, errors.New(errors.ErrCodeNotFound, "crates.io cache directory %s does not exist", c.dir)
	}
	data, err := os.ReadFile(c.path(coll))
	if err != nil {
		return zero, errors.Wrap(errors.ErrCodeIO, err, "read %s", coll.File())
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, errors.Wrap(errors.ErrCodeDeserialize, err, "decode %s", coll.File())
	}
	c.slots[coll] = v
	return v, nil
}

// updater stages replacement collections next to the live ones and
// publishes them with commit.
type updater struct {
	c      *Cache
	lock   *dirLock
	staged []Collection
}

func (c *Cache) newUpdater() (*updater, error) {
	if c.dir == "" {
		return nil, errors.New(errors.ErrCodeNotFound, "no cache directory configured")
	}
	info, err := os.Stat(c.dir)
	switch {
	case err == nil && !info.IsDir():
		return nil, errors.New(errors.ErrCodeAlreadyExists, "%s exists and is not a directory", c.dir)
	case err != nil && !os.IsNotExist(err):
		return nil, errors.Wrap(errors.ErrCodeIO, err, "stat %s", c.dir)
	case err != nil:
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "create %s", c.dir)
		}
	}
	lock, err := acquireLock(c.dir)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("refresh lock acquired", "dir", c.dir, "holder", lock.id)
	return &updater{c: c, lock: lock}, nil
}

func partPath(path string) string { return path + ".part" }

// stage writes value to the collection's .part file and makes it the
// in-memory value at once.
func (u *updater) stage(coll Collection, value any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(value); err != nil {
		return errors.Wrap(errors.ErrCodeDeserialize, err, "encode %s", coll.File())
	}
	if err := os.WriteFile(partPath(u.c.path(coll)), buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", coll.File())
	}
	u.c.slots[coll] = value
	u.staged = append(u.staged, coll)
	observability.Cache().OnCacheStage(coll.String(), int64(buf.Len()))
	return nil
}

func stageMap[K comparable, T any](u *updater, coll Collection, records []T, key func(T) K) error {
	m := make(map[K]T, len(records))
	for _, r := range records {
		m[key(r)] = r
	}
	return u.stage(coll, m)
}

func stageMultiMap[K comparable, T any](u *updater, coll Collection, records []T, key func(T) K) error {
	m := make(map[K][]T)
	for _, r := range records {
		k := key(r)
		m[k] = append(m[k], r)
	}
	return u.stage(coll, m)
}

// commit renames every staged file into place. Metadata goes last so
// that a reader never sees a new timestamp over old data.
func (u *updater) commit() error {
	order := append([]Collection(nil), u.staged...)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i] != Metadata && order[j] == Metadata
	})
	for _, coll := range order {
		path := u.c.path(coll)
		if err := u.c.rename(partPath(path), path); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "commit %s", coll.File())
		}
	}
	u.staged = nil
	return nil
}

// abort drops staged in-memory values. The .part files stay on disk and
// are overwritten by the next refresh.
func (u *updater) abort() {
	for _, coll := range u.staged {
		u.c.slots[coll] = nil
	}
	u.staged = nil
}

func (u *updater) close() error {
	return u.lock.release()
}

// Clear deletes every collection and any leftover .part file. Metadata is
// removed first, so an interrupted Clear leaves a cache that reads as
// missing. It takes the refresh lock and fails with AlreadyExists while a
// refresh runs.
func (c *Cache) Clear() (removed int, err error) {
	if c.dir == "" {
		return 0, errors.New(errors.ErrCodeNotFound, "no cache directory configured")
	}
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return 0, nil
	}
	lock, err := acquireLock(c.dir)
	if err != nil {
		return 0, err
	}
	defer func() {
		if rerr := lock.release(); err == nil && rerr != nil {
			err = rerr
		}
	}()

	for coll := Collection(0); coll < numCollections; coll++ {
		path := c.path(coll)
		for _, p := range []string{path, partPath(path)} {
			switch err := os.Remove(p); {
			case err == nil:
				removed++
			case !os.IsNotExist(err):
				return removed, errors.Wrap(errors.ErrCodeIO, err, "remove %s", filepath.Base(p))
			}
		}
		c.slots[coll] = nil
	}
	return removed, nil
}
