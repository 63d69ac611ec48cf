// Package integrations provides the shared HTTP plumbing for registry API
// clients.
//
// # Overview
//
// [Client] issues JSON GET requests through a rate-limited transport,
// classifies HTTP failures into structured errors, and keeps decoded
// responses in a [cache.Cache] between runs. Registry-specific clients live
// in subpackages:
//
//   - [crates]: crates.io owner lookups
//
// # Error Classification
//
//   - 404: NOT_FOUND
//   - 429: RATE_LIMITED, retryable
//   - 5xx and transport failures: NETWORK_ERROR, retryable
//   - anything else but 200: INVALID_RESPONSE
//
// Retryable errors are wrapped in [httputil.RetryableError] so callers can
// hand the request to [httputil.RetryWithBackoff].
package integrations
