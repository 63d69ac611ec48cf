package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Resolved 42 crates (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// =============================================================================
// Debug Hooks
// =============================================================================

// EnableDebugHooks routes cache, refresh and HTTP events to the logger at
// debug level. main calls it for --verbose.
func (c *CLI) EnableDebugHooks() {
	h := logHooks{logger: c.Logger}
	observability.SetRefreshHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

// logHooks implements every observability hook interface by logging.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnRefreshStart(_ context.Context, url string) {
	h.logger.Debug("refresh started", "url", url)
}

func (h logHooks) OnEntryStaged(_ context.Context, entry string, records int) {
	h.logger.Debug("entry staged", "entry", entry, "records", records)
}

func (h logHooks) OnRefreshComplete(_ context.Context, state string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("refresh failed", "duration", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("refresh complete", "state", state, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnCacheHit(collection string) {
	h.logger.Debug("cache hit", "collection", collection)
}

func (h logHooks) OnCacheMiss(collection string) {
	h.logger.Debug("cache load", "collection", collection)
}

func (h logHooks) OnCacheStage(collection string, size int64) {
	h.logger.Debug("collection staged", "collection", collection, "bytes", size)
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path,
		"status", status, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}
