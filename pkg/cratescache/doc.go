// Package cratescache keeps a local, indexed copy of the parts of the
// crates.io database dump needed to answer "who can publish this crate".
//
// # Layout
//
// The cache directory holds one JSON document per collection:
//
//	metadata.json      dump timestamp and the ETag it was served with
//	crates.json        crate name -> crate
//	crate_owners.json  crate id -> owner edges
//	users.json         user id -> user
//	teams.json         team id -> team
//	versions.json      crate id -> version publishers (optional)
//
// # Refresh
//
// [Cache.Download] streams the gzip-compressed tarball, decodes the needed
// CSV members, and writes each collection to a ".part" file. Only when every
// member has been staged are the files renamed into place, metadata.json
// last. A reader therefore never pairs a new timestamp with old data, and an
// interrupted refresh leaves the previous cache intact.
//
// # Freshness
//
// [Cache.Expire] compares the dump timestamp against a maximum age. A cache
// that is not fresh is detached for the rest of the run, so every lookup
// misses and callers fall back to the live API.
//
// # Concurrency
//
// A Cache is meant for one goroutine. Refreshes against the same directory
// are serialised by an advisory ".lock" file; lookups take no lock.
package cratescache
