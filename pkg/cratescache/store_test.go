package cratescache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/errors"
)

func TestLoadCachedErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, Crates.File()), []byte(`{"serde":`), 0o644); err != nil {
		t.Fatal(err)
	}
	c := newTestCache(t, dir, &clock{now: dumpTime})

	if _, err := loadCached[map[uint64]User](c, Users); !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("missing file: %v, want IO_ERROR", err)
	}
	if _, err := loadCached[map[string]Crate](c, Crates); !errors.Is(err, errors.ErrCodeDeserialize) {
		t.Errorf("malformed file: %v, want DESERIALIZE_ERROR", err)
	}

	c.attached = false
	if _, err := loadCached[map[string]Crate](c, Crates); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("detached: %v, want NOT_FOUND", err)
	}

	absent := newTestCache(t, filepath.Join(dir, "absent"), &clock{now: dumpTime})
	if _, err := loadCached[StoredMetadata](absent, Metadata); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing directory: %v, want NOT_FOUND", err)
	}
}

func TestLoadCachedMemoizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Crates.File())
	if err := os.WriteFile(path, []byte(`{"serde":{"name":"serde","id":1,"repository":null}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	c := newTestCache(t, dir, &clock{now: dumpTime})
	first, err := loadCached[map[string]Crate](c, Crates)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	second, err := loadCached[map[string]Crate](c, Crates)
	if err != nil {
		t.Fatalf("second load went back to disk: %v", err)
	}
	if len(first) != 1 || second["serde"].ID != 1 {
		t.Errorf("memoized value = %v", second)
	}
}

func TestStageAndCommit(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, dir, &clock{now: dumpTime})
	u, err := c.newUpdater()
	if err != nil {
		t.Fatal(err)
	}
	defer u.close()

	owners := []CrateOwner{
		{CrateID: 1, OwnerID: 10, OwnerKind: OwnerUser},
		{CrateID: 1, OwnerID: 20, OwnerKind: OwnerTeam},
		{CrateID: 2, OwnerID: 10, OwnerKind: OwnerUser},
	}
	if err := stageMultiMap(u, CrateOwners, owners, func(o CrateOwner) uint64 { return o.CrateID }); err != nil {
		t.Fatal(err)
	}

	// Staged values are visible in memory before commit, but not on disk.
	m, err := loadCached[map[uint64][]CrateOwner](c, CrateOwners)
	if err != nil {
		t.Fatal(err)
	}
	if len(m[1]) != 2 || len(m[2]) != 1 {
		t.Errorf("staged multimap = %v", m)
	}
	if _, err := os.Stat(filepath.Join(dir, CrateOwners.File())); !os.IsNotExist(err) {
		t.Error("staging wrote the final file")
	}
	if _, err := os.Stat(filepath.Join(dir, CrateOwners.File()+".part")); err != nil {
		t.Errorf("no .part file: %v", err)
	}

	if err := u.commit(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, CrateOwners.File()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"owner_kind":1`) {
		t.Errorf("committed document = %s", data)
	}
}

func TestAbortClearsStagedSlots(t *testing.T) {
	c := newTestCache(t, t.TempDir(), &clock{now: dumpTime})
	u, err := c.newUpdater()
	if err != nil {
		t.Fatal(err)
	}
	defer u.close()

	if err := stageMap(u, Users, []User{{ID: 1, GHLogin: "a"}}, func(u User) uint64 { return u.ID }); err != nil {
		t.Fatal(err)
	}
	u.abort()
	if _, err := loadCached[map[uint64]User](c, Users); !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("aborted value still served: %v", err)
	}
}

func TestLockExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := acquireLock(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := acquireLock(dir); !errors.Is(err, errors.ErrCodeAlreadyExists) {
		t.Fatalf("second lock = %v, want ALREADY_EXISTS", err)
	}
	if err := first.release(); err != nil {
		t.Fatal(err)
	}
	if err := first.release(); err != nil {
		t.Errorf("second release: %v", err)
	}
	second, err := acquireLock(dir)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	if second.id == first.id {
		t.Error("holders share an id")
	}
	if err := second.release(); err != nil {
		t.Fatal(err)
	}
}

func TestLeftoverLockFileDoesNotBlock(t *testing.T) {
	dir := t.TempDir()
	// A refresh killed mid-way leaves the file behind but holds no lock.
	if err := os.WriteFile(filepath.Join(dir, lockFile), []byte("token-of-dead-process"), 0o644); err != nil {
		t.Fatal(err)
	}
	lock, err := acquireLock(dir)
	if err != nil {
		t.Fatalf("acquireLock over leftover file: %v", err)
	}
	if err := lock.release(); err != nil {
		t.Fatal(err)
	}
}

func TestCollectionNames(t *testing.T) {
	tests := []struct {
		coll Collection
		file string
		name string
	}{
		{Metadata, "metadata.json", "metadata"},
		{Crates, "crates.json", "crates"},
		{CrateOwners, "crate_owners.json", "crate_owners"},
		{Users, "users.json", "users"},
		{Teams, "teams.json", "teams"},
		{Versions, "versions.json", "versions"},
	}
	for _, tt := range tests {
		if tt.coll.File() != tt.file || tt.coll.String() != tt.name {
			t.Errorf("%d: File=%q String=%q", tt.coll, tt.coll.File(), tt.coll.String())
		}
	}
}

func TestNewDetachedWithoutDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "")
	c := New()
	if c.Dir() != "" {
		t.Skip("platform provides a cache directory without HOME")
	}
	if state := c.Expire(DefaultMaxAge); state != CacheUnknown {
		t.Errorf("Expire = %v, want unknown", state)
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{Metadata.File(), Crates.File(), partPath(Users.File()), "unrelated.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	c := newTestCache(t, dir, &clock{now: dumpTime})
	if _, err := loadCached[map[string]Crate](c, Crates); err != nil {
		t.Fatal(err)
	}

	removed, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "unrelated.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
	assertUnlocked(t, dir)
	if _, err := loadCached[map[string]Crate](c, Crates); !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("load after Clear: %v, want IO_ERROR", err)
	}
}

func TestClearMissingDir(t *testing.T) {
	c := newTestCache(t, filepath.Join(t.TempDir(), "absent"), &clock{now: dumpTime})
	removed, err := c.Clear()
	if err != nil || removed != 0 {
		t.Errorf("Clear() = %d, %v; want 0, nil", removed, err)
	}
}

func TestClearWhileLocked(t *testing.T) {
	dir := t.TempDir()
	lock, err := acquireLock(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.release()

	c := newTestCache(t, dir, &clock{now: dumpTime})
	if _, err := c.Clear(); !errors.Is(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("Clear() while locked: %v, want ALREADY_EXISTS", err)
	}
}

func TestClearAfterKilledRefresh(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{lockFile, Metadata.File()} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := newTestCache(t, dir, &clock{now: dumpTime}).Clear()
	if err != nil {
		t.Fatalf("Clear() with leftover lock file: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}
