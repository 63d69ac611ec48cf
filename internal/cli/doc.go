// Package cli implements the cargo supply-chain command-line interface.
//
// The commands answer one question: who can publish new versions of the
// crates a project depends on. Dependencies are classified from `cargo
// metadata` (or a Cargo.lock with --lockfile), and publishers are read from
// the local crates.io dump when it is fresh, falling back to the live API.
//
// # Commands
//
//   - authors: self-declared authors from Cargo.toml, local or unknown registry
//   - publishers: publishers and the crates each can release
//   - crates: crates and who can release each
//   - json: the same data as a JSON document (--print-schema for its schema)
//   - graph: ownership graph as Graphviz DOT or SVG
//   - update: download the crates.io database dump
//   - cache: inspect or clear the local cache
//
// # Logging
//
// Reports go to stdout. Status lines, the spinner and the charmbracelet/log
// logger write to stderr; --verbose lowers the log level to debug and logs
// cache, refresh and HTTP events.
package cli
