package cli

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzip"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/httputil"
)

// syncWriter serializes writes from the spinner goroutine and the test.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

const testLockfile = `version = 3

[[package]]
name = "myapp"
version = "0.1.0"
dependencies = ["gitdep", "libc", "serde", "uncached"]

[[package]]
name = "gitdep"
version = "0.2.0"
source = "git+https://github.com/example/gitdep#abcdef0"

[[package]]
name = "libc"
version = "0.2.155"
source = "registry+https://github.com/rust-lang/crates.io-index"

[[package]]
name = "serde"
version = "1.0.200"
source = "registry+https://github.com/rust-lang/crates.io-index"

[[package]]
name = "uncached"
version = "0.1.0"
source = "sparse+https://index.crates.io/"
`

// writeLockfile stores testLockfile in a temp dir and returns its path.
func writeLockfile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Cargo.lock")
	if err := os.WriteFile(path, []byte(testLockfile), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeCargo puts a shell script that prints metadata in place of cargo.
func fakeCargo(t *testing.T, metadata string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for cargo")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(out, []byte(metadata), 0o644); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "cargo")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncat "+out+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CARGO", script)
}

// testDump knows serde (user dtolnay and team libs) and libc (team libs).
// "uncached" is deliberately missing so it is fetched from the API.
func testDump(t *testing.T, ts time.Time) []byte {
	t.Helper()
	files := []struct{ name, body string }{
		{"2024-05-01-020000/metadata.json", `{"timestamp":"` + ts.Format(time.RFC3339) + `","crates_io_commit":"abc123"}`},
		{"2024-05-01-020000/data/crates.csv", "created_at,description,id,name,repository\n" +
			"2015-01-01,,1,serde,https://github.com/serde-rs/serde\n" +
			"2015-01-02,,2,libc,\n"},
		{"2024-05-01-020000/data/crate_owners.csv", "crate_id,created_at,created_by,owner_id,owner_kind\n" +
			"1,2015-01-01,,10,0\n" +
			"1,2015-01-01,,20,1\n" +
			"2,2015-01-02,,20,1\n"},
		{"2024-05-01-020000/data/users.csv", "gh_avatar,gh_id,gh_login,id,name\n" +
			"https://avatars.example/10,1000,dtolnay,10,David Tolnay\n"},
		{"2024-05-01-020000/data/teams.csv", "avatar,github_id,id,login,name,org_id\n" +
			",5,20,github:rust-lang:libs,libs,6\n"},
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, f := range files {
		if err := tw.WriteHeader(&tar.Header{Name: f.name, Mode: 0o644, Size: int64(len(f.body)), Typeflag: tar.TypeReg}); err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(tw, f.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeCratesIO serves the dump and the owner endpoints.
type fakeCratesIO struct {
	*httptest.Server
	dump      []byte
	etag      string
	dumpHits  atomic.Int32
	apiHits   sync.Map // crate name -> *atomic.Int32
	notModified atomic.Int32
}

func newFakeCratesIO(t *testing.T) *fakeCratesIO {
	t.Helper()
	f := &fakeCratesIO{
		dump: testDump(t, time.Now().Add(-time.Hour).UTC().Truncate(time.Second)),
		etag: `"dump-1"`,
	}

	r := chi.NewRouter()
	r.Get("/db-dump.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		f.dumpHits.Add(1)
		if r.Header.Get("If-None-Match") == f.etag {
			f.notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", f.etag)
		w.Write(f.dump)
	})
	r.Get("/api/v1/crates/{name}/{kind}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		n, _ := f.apiHits.LoadOrStore(name, new(atomic.Int32))
		n.(*atomic.Int32).Add(1)

		switch chi.URLParam(r, "kind") + "/" + name {
		case "owner_user/uncached":
			w.Write([]byte(`{"users":[{"id":7,"login":"alice","kind":"user","url":"https://github.com/alice","name":"Alice","avatar":null}]}`))
		case "owner_team/uncached":
			w.Write([]byte(`{"teams":[]}`))
		case "owner_user/serde":
			w.Write([]byte(`{"users":[{"id":10,"login":"dtolnay","kind":"user","url":"https://github.com/dtolnay","name":"David Tolnay","avatar":null}]}`))
		case "owner_team/serde", "owner_team/libc":
			w.Write([]byte(`{"teams":[{"id":20,"login":"github:rust-lang:libs","kind":"team","url":"https://github.com/rust-lang","name":"libs","avatar":null}]}`))
		case "owner_user/libc":
			w.Write([]byte(`{"users":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeCratesIO) apiCalls(name string) int {
	n, ok := f.apiHits.Load(name)
	if !ok {
		return 0
	}
	return int(n.(*atomic.Int32).Load())
}

// newTestCLI returns a CLI pointed at f with a private cache directory and
// no rate limiting. Status output is captured into the returned buffer.
func newTestCLI(t *testing.T, f *fakeCratesIO) (*CLI, *bytes.Buffer) {
	t.Helper()
	status := captureStatus(t)
	var logs bytes.Buffer
	c := New(&logs, LogInfo)
	c.cacheDir = t.TempDir()
	c.dumpURL = f.URL + "/db-dump.tar.gz"
	c.apiBaseURL = f.URL + "/api/v1"
	c.http = httputil.NewRateLimitedClient(httputil.WithInterval(0))
	return c, status
}

// execute runs one command line against a fresh command tree and returns
// what it printed to stdout. Registering --cache-dir resets c.cacheDir, so
// the test directory is passed back in as a flag.
func execute(t *testing.T, c *CLI, args ...string) (string, error) {
	t.Helper()
	dir := c.cacheDir
	root := c.RootCommand()
	if dir != "" {
		args = append(args, "--cache-dir="+dir)
	}
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}
