package cratescache

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/publishers"
)

func populatedCache(t *testing.T) *Cache {
	t.Helper()
	c := newTestCache(t, t.TempDir(), &clock{now: dumpTime.Add(time.Hour)})
	get := &fakeGetter{status: http.StatusOK, etag: `"v1"`, body: standardDump(t, dumpTime)}
	if _, err := c.Download(context.Background(), get, DefaultMaxAge); err != nil {
		t.Fatalf("Download: %v", err)
	}
	return c
}

func TestPublisherLookups(t *testing.T) {
	c := populatedCache(t)

	tests := []struct {
		name      string
		lookup    func(string) ([]publishers.PublisherData, bool)
		crate     string
		wantOK    bool
		wantLogin []string
	}{
		{"users with dangling edge", c.PublisherUsers, "serde", true, []string{"dtolnay"}},
		{"teams", c.PublisherTeams, "serde", true, []string{"github:rust-lang:libs"}},
		{"team-only crate has no users", c.PublisherUsers, "libc", true, []string{}},
		{"team-only crate", c.PublisherTeams, "libc", true, []string{"github:rust-lang:libs"}},
		{"crate without owner edges", c.PublisherUsers, "orphan", false, nil},
		{"crate without owner edges, teams", c.PublisherTeams, "orphan", false, nil},
		{"unknown crate", c.PublisherUsers, "left-pad", false, nil},
		{"unknown crate, teams", c.PublisherTeams, "left-pad", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.lookup(tt.crate)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got == nil {
				t.Fatal("known crate returned a nil list")
			}
			if len(got) != len(tt.wantLogin) {
				t.Fatalf("got %d publishers, want %d", len(got), len(tt.wantLogin))
			}
			for i, p := range got {
				if p.Login != tt.wantLogin[i] {
					t.Errorf("publisher %d login = %q, want %q", i, p.Login, tt.wantLogin[i])
				}
			}
		})
	}
}

func TestPublisherDataFromRecords(t *testing.T) {
	c := populatedCache(t)

	users, _ := c.PublisherUsers("serde")
	u := users[0]
	if u.ID != 10 || u.Kind != publishers.KindUser {
		t.Errorf("user = %+v", u)
	}
	if u.Avatar == nil || *u.Avatar != "https://avatars.example/10" {
		t.Errorf("avatar = %v", u.Avatar)
	}
	if u.URL != nil {
		t.Errorf("cached user should have no URL, got %q", *u.URL)
	}

	teams, _ := c.PublisherTeams("serde")
	tm := teams[0]
	if tm.ID != 20 || tm.Kind != publishers.KindTeam || tm.Name == nil || *tm.Name != "libs" {
		t.Errorf("team = %+v", tm)
	}
	if tm.Avatar != nil {
		t.Errorf("empty avatar should be nil, got %q", *tm.Avatar)
	}
}

func TestLookupAfterExpireMisses(t *testing.T) {
	c := populatedCache(t)
	if _, ok := c.PublisherUsers("serde"); !ok {
		t.Fatal("fresh cache did not answer")
	}
	c.now = func() time.Time { return dumpTime.Add(DefaultMaxAge) }
	if state := c.Expire(DefaultMaxAge); state != CacheExpired {
		t.Fatalf("Expire = %v, want expired", state)
	}
	if _, ok := c.PublisherUsers("serde"); ok {
		t.Error("expired cache still answered from memoized data")
	}
}

func TestVersionPublishers(t *testing.T) {
	c := populatedCache(t)
	if _, ok := c.VersionPublishers("serde"); ok {
		t.Fatal("VersionPublishers answered without versions.json")
	}

	doc := `{"1":[{"crate_id":1,"published_by":10},{"crate_id":1,"published_by":3},{"crate_id":1,"published_by":10}]}`
	if err := os.WriteFile(filepath.Join(c.Dir(), Versions.File()), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	c.slots[Versions] = nil

	got, ok := c.VersionPublishers("serde")
	if !ok {
		t.Fatal("VersionPublishers(serde) not found")
	}
	if len(got) != 2 || got[0] != 3 || got[1] != 10 {
		t.Errorf("VersionPublishers(serde) = %v, want [3 10]", got)
	}
	if _, ok := c.VersionPublishers("libc"); ok {
		t.Error("crate without version records should miss")
	}
}
