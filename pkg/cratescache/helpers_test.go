package cratescache

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

var dumpTime = time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC)

type tarEntry struct {
	name string
	body string
	dir  bool
}

func buildDump(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(tw, e.body); err != nil {
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

func dumpMetadata(ts time.Time) string {
	return `{"timestamp":"` + ts.Format(time.RFC3339) + `","crates_io_commit":"abc123"}`
}

// standardDump knows three crates: serde (one user, one team and a dangling
// user edge), libc (team only) and orphan (no owners at all).
func standardDump(t *testing.T, ts time.Time) []byte {
	t.Helper()
	return buildDump(t, []tarEntry{
		{name: "2024-05-01-020000/metadata.json", body: dumpMetadata(ts)},
		{name: "2024-05-01-020000/README.md", body: "# crates.io dump\n"},
		{name: "2024-05-01-020000/data/crates.csv", body: "created_at,description,id,name,repository\n" +
			"2015-01-01,\"A generic serialization/deserialization framework, fast\",1,serde,https://github.com/serde-rs/serde\n" +
			"2015-01-02,\"Raw FFI bindings\",2,libc,\n" +
			"2015-01-03,,3,orphan,\n"},
		{name: "2024-05-01-020000/data/crate_owners.csv", body: "crate_id,created_at,created_by,owner_id,owner_kind\n" +
			"1,2015-01-01,,10,0\n" +
			"1,2015-01-01,,20,1\n" +
			"1,2015-01-01,,99,0\n" +
			"2,2015-01-02,,20,1\n" +
			"2,2015-01-02,,30,7\n"},
		{name: "2024-05-01-020000/data/users.csv", body: "gh_avatar,gh_id,gh_login,id,name\n" +
			"https://avatars.example/10,1000,dtolnay,10,\"Tolnay, David\"\n" +
			",1001,unrelated,11,\n"},
		{name: "2024-05-01-020000/data/teams.csv", body: "avatar,github_id,id,login,name,org_id\n" +
			",5,20,github:rust-lang:libs,libs,6\n"},
	})
}

// fakeGetter answers every request with a canned response and records the
// headers it was sent.
type fakeGetter struct {
	status int
	etag   string
	body   []byte
	noLen  bool
	wrap   func(io.Reader) io.Reader

	calls   int
	headers []map[string]string
}

func (f *fakeGetter) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	f.calls++
	f.headers = append(f.headers, headers)
	if f.status == http.StatusOK && headers["If-None-Match"] != "" && headers["If-None-Match"] == f.etag {
		return &http.Response{StatusCode: http.StatusNotModified, Status: "304 Not Modified", Header: http.Header{}, Body: http.NoBody}, nil
	}
	var r io.Reader = bytes.NewReader(f.body)
	if f.wrap != nil {
		r = f.wrap(r)
	}
	h := http.Header{}
	if f.etag != "" {
		h.Set("ETag", f.etag)
	}
	length := int64(len(f.body))
	if f.noLen {
		length = -1
	}
	return &http.Response{
		StatusCode:    f.status,
		Status:        http.StatusText(f.status),
		Header:        h,
		Body:          io.NopCloser(r),
		ContentLength: length,
	}, nil
}

// countingReader records how many bytes were pulled through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestCache(t *testing.T, dir string, clk *clock) *Cache {
	t.Helper()
	return New(WithDir(dir), WithDumpURL("https://dump.test/db-dump.tar.gz"), WithClock(clk.Now))
}

// assertUnlocked fails the test if the refresh lock on dir is still held.
func assertUnlocked(t *testing.T, dir string) {
	t.Helper()
	lock, err := acquireLock(dir)
	if err != nil {
		t.Errorf("lock not released: %v", err)
		return
	}
	if err := lock.release(); err != nil {
		t.Fatal(err)
	}
}
