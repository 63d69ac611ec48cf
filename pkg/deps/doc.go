// Package deps classifies the packages in a Cargo dependency graph by where
// they come from.
//
// # Overview
//
// Every package is one of:
//
//   - [Local]: a workspace member, built from the local filesystem
//   - [CratesIO]: downloaded from the crates.io registry
//   - [Foreign]: anything else (git, path outside the workspace, other registries)
//
// Only crates.io packages have publishers that can be audited; the other
// two kinds are reported separately.
//
// # Sources
//
// [Exec] runs `cargo metadata` and [FromMetadata] classifies its output.
// This sees the real resolve graph, including features and target
// filtering, and can drop development-only dependencies.
//
// [FromLockfile] reads a Cargo.lock directly. It needs no Rust toolchain
// but cannot tell development dependencies apart.
//
//	meta, err := deps.Exec(ctx, deps.MetadataArgs{ManifestPath: "Cargo.toml"})
//	pkgs := deps.FromMetadata(meta, true)
//	names := deps.CrateNames(pkgs, deps.CratesIO)
package deps
