package cratescache

import (
	"archive/tar"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/errors"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/observability"
)

// DefaultDumpURL is the location of the crates.io database dump.
// See https://crates.io/data-access.
const DefaultDumpURL = "https://static.crates.io/db-dump.tar.gz"

// Getter issues rate-limited GET requests. It is satisfied by
// *httputil.RateLimitedClient.
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error)
}

// ProgressFunc observes a running download. total is -1 when the server
// did not announce a length; entry is the archive member being read.
type ProgressFunc func(read, total int64, entry string)

// DownloadState is the outcome of a successful refresh.
type DownloadState int

const (
	// DownloadFresh: the server confirmed the cached dump is current.
	DownloadFresh DownloadState = iota
	// DownloadExpired: a new dump was downloaded and committed.
	DownloadExpired
	// DownloadStale: the dump was downloaded again but is the same one
	// already cached.
	DownloadStale
)

func (s DownloadState) String() string {
	switch s {
	case DownloadFresh:
		return "fresh"
	case DownloadExpired:
		return "expired"
	case DownloadStale:
		return "stale"
	default:
		return "unknown"
	}
}

// dumpEntries maps archive member names to the collection they fill.
var dumpEntries = map[string]Collection{
	"metadata.json":    Metadata,
	"crates.csv":       Crates,
	"crate_owners.csv": CrateOwners,
	"users.csv":        Users,
	"teams.csv":        Teams,
}

// Download refreshes the cache from the crates.io database dump.
//
// When the stored metadata is younger than maxAge the request is made
// conditional on its ETag, and a 304 answer leaves the cache untouched.
// Otherwise the archive is streamed, the needed members are decoded and
// staged, and everything is committed at once; reading stops as soon as
// every needed member has been staged. On failure nothing is committed.
// The directory and its lock are only created once a 200 arrives.
func (c *Cache) Download(ctx context.Context, client Getter, maxAge time.Duration) (state DownloadState, err error) {
	hooks := observability.Refresh()
	start := time.Now()
	hooks.OnRefreshStart(ctx, c.dumpURL)
	defer func() {
		label := state.String()
		if err != nil {
			label = "failed"
		}
		hooks.OnRefreshComplete(ctx, label, time.Since(start), err)
	}()

	if err := errors.ValidateURL(c.dumpURL); err != nil {
		return 0, err
	}
	if c.dir == "" {
		return 0, errors.New(errors.ErrCodeNotFound, "no cache directory configured")
	}

	// A refresh reads the directory again even if an earlier freshness
	// check detached the handle.
	wasAttached := c.attached
	c.attached = true
	var u *updater
	defer func() {
		if err != nil {
			if u != nil {
				u.abort()
			}
			c.attached = wasAttached
		}
	}()

	var oldETag *string
	headers := map[string]string{}
	if meta, merr := loadCached[StoredMetadata](c, Metadata); merr == nil {
		oldETag = meta.ETag
		if age, aerr := c.age(meta); aerr == nil && age < maxAge && meta.ETag != nil {
			headers["If-None-Match"] = *meta.ETag
		}
	}

	resp, err := client.Get(ctx, c.dumpURL, headers)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", c.dumpURL)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		c.logger.Info("crates.io dump is up to date")
		return DownloadFresh, nil
	case http.StatusOK:
	default:
		return 0, errors.New(errors.ErrCodeInvalidResponse, "GET %s: unexpected status %s", c.dumpURL, resp.Status)
	}

	u, err = c.newUpdater()
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := u.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var newETag *string
	if etag := resp.Header.Get("ETag"); etag != "" {
		newETag = &etag
	}
	total := resp.ContentLength
	if total < 0 {
		c.logger.Info("downloading crates.io dump", "size", "length unspecified, expect at least 250MiB")
	} else {
		c.logger.Info("downloading crates.io dump", "size", FormatBytes(total))
	}

	body := &progressReader{r: resp.Body, total: total, fn: c.progress}
	if err := c.ingest(ctx, u, body, newETag); err != nil {
		return 0, err
	}
	if err := u.commit(); err != nil {
		return 0, err
	}

	if equalETag(oldETag, newETag) {
		return DownloadStale, nil
	}
	return DownloadExpired, nil
}

// ingest reads the gzip-compressed tarball from r and stages every needed
// member.
func (c *Cache) ingest(ctx context.Context, u *updater, r *progressReader, etag *string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDeserialize, err, "open dump")
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	pending := make(map[Collection]bool, len(dumpEntries))
	for _, coll := range dumpEntries {
		pending[coll] = true
	}

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return errors.New(errors.ErrCodeDeserialize, "dump incomplete: %d required entries missing", len(pending))
		}
		if err != nil {
			return errors.Wrap(errors.ErrCodeDeserialize, err, "read dump")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Base(hdr.Name)
		coll, ok := dumpEntries[name]
		if !ok || !pending[coll] {
			continue
		}
		r.setEntry(name)
		c.logger.Debug("reading dump entry", "entry", hdr.Name)

		n, err := c.stageEntry(u, coll, tr, etag)
		if err != nil {
			return err
		}
		observability.Refresh().OnEntryStaged(ctx, name, n)
		delete(pending, coll)
	}
	return nil
}

func (c *Cache) stageEntry(u *updater, coll Collection, r io.Reader, etag *string) (int, error) {
	switch coll {
	case Metadata:
		var dm DumpMetadata
		if err := json.NewDecoder(r).Decode(&dm); err != nil {
			return 0, errors.Wrap(errors.ErrCodeDeserialize, err, "decode dump metadata")
		}
		return 1, u.stage(Metadata, StoredMetadata{Timestamp: dm.Timestamp, ETag: etag})

	case Crates:
		recs, err := decodeTable(c.logger, coll, r, decodeCrate)
		if err != nil {
			return 0, err
		}
		return len(recs), stageMap(u, Crates, recs, func(r Crate) string { return r.Name })

	case CrateOwners:
		recs, err := decodeTable(c.logger, coll, r, decodeCrateOwner)
		if err != nil {
			return 0, err
		}
		return len(recs), stageMultiMap(u, CrateOwners, recs, func(r CrateOwner) uint64 { return r.CrateID })

	case Users:
		recs, err := decodeTable(c.logger, coll, r, decodeUser)
		if err != nil {
			return 0, err
		}
		return len(recs), stageMap(u, Users, recs, func(r User) uint64 { return r.ID })

	case Teams:
		recs, err := decodeTable(c.logger, coll, r, decodeTeam)
		if err != nil {
			return 0, err
		}
		return len(recs), stageMap(u, Teams, recs, func(r Team) uint64 { return r.ID })
	}
	return 0, nil
}

func decodeTable[T any](logger *log.Logger, coll Collection, r io.Reader, decode func(csvRow) (T, error)) ([]T, error) {
	recs, skipped, err := readCSV(r, decode)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDeserialize, err, "decode %s", coll)
	}
	if skipped > 0 {
		logger.Warn("skipped rows with unknown owner kind", "table", coll.String(), "count", skipped)
	}
	return recs, nil
}

func equalETag(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// progressReader counts bytes read from the response body.
type progressReader struct {
	r     io.Reader
	read  int64
	total int64
	entry string
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.fn != nil && n > 0 {
		p.fn(p.read, p.total, p.entry)
	}
	return n, err
}

func (p *progressReader) setEntry(name string) {
	p.entry = name
	if p.fn != nil {
		p.fn(p.read, p.total, name)
	}
}

// FormatBytes renders n using binary units, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
