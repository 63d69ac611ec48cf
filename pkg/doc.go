// Package pkg holds the libraries behind cargo supply-chain.
//
// # Overview
//
// The tool answers who can publish new versions of the crates a Rust
// project depends on. The pkg directory is organized as:
//
//  1. [cratescache] - Local copy of the crates.io database dump: refresh,
//     freshness policy and publisher lookups
//  2. [publishers] - Publisher types and cache-first, API-fallback collection
//  3. [integrations] - crates.io API client with response caching
//  4. [deps] - Classification of a dependency graph by package source
//  5. [render/ownership] - Ownership graph as Graphviz DOT or SVG
//  6. [cache], [httputil], [errors], [observability] - Shared infrastructure
//
// # Data Flow
//
//	cargo metadata / Cargo.lock
//	         ↓
//	    [deps] (local, crates.io, foreign)
//	         ↓
//	    [publishers].Fetch ← [cratescache] (fresh dump)
//	         ↓             ← [integrations/crates] (live API)
//	    reports, JSON, ownership graph
package pkg
