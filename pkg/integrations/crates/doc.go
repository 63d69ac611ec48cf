// Package crates provides an HTTP client for the crates.io owner API.
//
// # Overview
//
// crates.io lists who may publish a crate through two endpoints, one for
// individual users and one for teams:
//
//	GET /api/v1/crates/{name}/owner_user  ->  {"users": [...]}
//	GET /api/v1/crates/{name}/owner_team  ->  {"teams": [...]}
//
// The entries decode directly into [publishers.PublisherData].
//
// # Usage
//
//	rl := httputil.NewRateLimitedClient()
//	client := crates.NewClient(rl, cache.NewNullCache(), 0)
//	users, err := client.OwnerUsers(ctx, "serde")
//
// # Rate Limits
//
// crates.io asks crawlers for at most one request per second and a
// User-Agent naming the tool; both come from [httputil.RateLimitedClient].
// Expect roughly two seconds per crate.
package crates
