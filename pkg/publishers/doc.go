// Package publishers describes the accounts allowed to publish crates to
// crates.io and collects them for a set of crates.
//
// [Fetch] answers from the local dump cache when it can and falls back to
// the rate-limited live API otherwise. Both sources are consumed through
// the small [Lookup] and [API] interfaces, so this package depends on
// neither the cache nor the HTTP client.
package publishers
