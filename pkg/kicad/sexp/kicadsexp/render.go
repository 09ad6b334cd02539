package kicadsexp

import (
	"strings"
)

// Render pretty-prints a node in KiCad schematic style: tab indentation, one
// nested list per line, closing paren on its own line. Leading atoms stay on
// the opening line, so (property "Reference" "R1" (at ...)) renders with the
// key and both strings together.
//
// Rendered output is stable: rendering the same node twice produces identical
// bytes. Byte-identity with hand-written files is not a goal here; untouched
// nodes are re-emitted verbatim from their source span instead.
func Render(n *Node, depth int) string {
	var b strings.Builder
	render(&b, n, depth)
	return b.String()
}

func render(b *strings.Builder, n *Node, depth int) {
	if n == nil {
		return
	}
	if n.RawText != "" {
		b.WriteString(n.RawText)
		return
	}
	if !n.IsList {
		b.WriteString(renderAtom(n))
		return
	}

	if !hasListChild(n) {
		writeCompact(b, n)
		return
	}

	b.WriteByte('(')
	i := 0
	for ; i < len(n.Children) && !n.Children[i].IsList && n.Children[i].RawText == ""; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(renderAtom(n.Children[i]))
	}
	for ; i < len(n.Children); i++ {
		b.WriteByte('\n')
		indent(b, depth+1)
		render(b, n.Children[i], depth+1)
	}
	b.WriteByte('\n')
	indent(b, depth)
	b.WriteByte(')')
}

func hasListChild(n *Node) bool {
	for _, c := range n.Children {
		if c.IsList || c.RawText != "" {
			return true
		}
	}
	return false
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteByte('\t')
	}
}

func renderAtom(n *Node) string {
	if n.Quoted {
		return quoteString(n.Value)
	}
	return n.Value
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
