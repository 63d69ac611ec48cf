// Package httputil provides HTTP utilities for talking to crates.io.
//
// # Overview
//
//   - [RateLimitedClient]: a GET-only client that spaces requests at least one
//     second apart, as required by the crates.io data access policy
//   - [Retry]: automatic retry with exponential backoff
//
// # Rate Limiting
//
// The limiter is a plain "sleep until last request + interval" gate. There is
// no token bucket and no burst allowance: the first request goes out
// immediately and every following one waits for the remainder of the interval.
//
//	client := httputil.NewRateLimitedClient()
//	resp, err := client.Get(ctx, "https://crates.io/api/v1/crates/serde/owner_user", nil)
//
// # Retry
//
// [Retry] re-runs an operation only when it fails with a [RetryableError].
// Wrap transient failures (network errors, 5xx, 429) so they are retried;
// anything else is returned immediately:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return fetch()
//	})
//
// The schedule is bounded: [RetryWithBackoff] makes 3 attempts with a 1 second
// initial delay, doubling between attempts, then surfaces the last error.
package httputil
