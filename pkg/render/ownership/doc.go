// Package ownership renders who can publish which crate as a directed graph.
//
// Publishers point at the crates they can publish. Users are drawn as
// ellipses, teams as boxes, and crates with a single publisher are filled
// in a warning colour: one compromised account is enough to ship a
// malicious release of them.
//
//	dot := ownership.ToDOT(owners, ownership.Options{})
//	svg, err := ownership.RenderSVG(ctx, dot)
package ownership
