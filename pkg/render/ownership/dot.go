package ownership

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-graphviz"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/publishers"
)

// Options configures ownership graph rendering.
type Options struct {
	// ShowNames adds the display name below each publisher's login.
	ShowNames bool
	// LeftToRight lays the graph out horizontally instead of top to bottom.
	LeftToRight bool
}

// ToDOT converts crate ownership to Graphviz DOT. Output is deterministic:
// publishers are ordered by login and crates by name.
func ToDOT(owners publishers.Owners, opts Options) string {
	var buf bytes.Buffer
	rankdir := "TB"
	if opts.LeftToRight {
		rankdir = "LR"
	}
	buf.WriteString("digraph ownership {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontname=\"Helvetica\", fontsize=14, style=filled, fillcolor=white];\n")
	buf.WriteString("  ranksep=1.0;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	crates := owners.Crates()
	var all []publishers.PublisherData
	seen := make(map[uint64]bool)
	for _, c := range crates {
		for _, p := range owners.All(c) {
			if !seen[p.ID] {
				seen[p.ID] = true
				all = append(all, p)
			}
		}
	}
	slices.SortFunc(all, func(a, b publishers.PublisherData) int {
		return strings.Compare(a.Login, b.Login)
	})

	for _, p := range all {
		fmt.Fprintf(&buf, "  %s [%s];\n", dotQuote(publisherID(p)), strings.Join(publisherAttrs(p, opts), ", "))
	}
	buf.WriteString("\n")
	for _, c := range crates {
		fmt.Fprintf(&buf, "  %s [%s];\n", dotQuote(crateID(c)), strings.Join(crateAttrs(c, len(owners.All(c))), ", "))
	}

	buf.WriteString("\n")
	for _, c := range crates {
		ps := owners.All(c)
		slices.SortFunc(ps, func(a, b publishers.PublisherData) int {
			return strings.Compare(a.Login, b.Login)
		})
		for _, p := range ps {
			fmt.Fprintf(&buf, "  %s -> %s;\n", dotQuote(publisherID(p)), dotQuote(crateID(c)))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// Node IDs are namespaced so a crate and a user with the same name stay apart.
func publisherID(p publishers.PublisherData) string {
	return string(p.Kind) + ":" + strconv.FormatUint(p.ID, 10)
}

func crateID(name string) string { return "crate:" + name }

func publisherAttrs(p publishers.PublisherData, opts Options) []string {
	label := p.Login
	if opts.ShowNames && p.Name != nil && *p.Name != "" {
		label += "\n" + *p.Name
	}
	attrs := []string{"label=" + dotQuote(label)}
	switch p.Kind {
	case publishers.KindTeam:
		attrs = append(attrs, "shape=box", "fillcolor=\"#dbeafe\"")
	default:
		attrs = append(attrs, "shape=ellipse", "fillcolor=\"#f3f4f6\"")
	}
	if p.URL != nil {
		attrs = append(attrs, "URL="+dotQuote(*p.URL))
	}
	return attrs
}

func crateAttrs(name string, publisherCount int) []string {
	attrs := []string{"label=" + dotQuote(name), "shape=box", "style=\"rounded,filled\""}
	if publisherCount == 1 {
		attrs = append(attrs, "fillcolor=\"#fde68a\"")
	}
	return attrs
}

// dotQuote returns s as a DOT string literal. Control characters are
// dropped; logins come from a remote service and could otherwise carry
// terminal escapes into the output.
func dotQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one that
// scales in a browser.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
