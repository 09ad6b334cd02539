// Package kicadsexp provides a lightweight S-expression parser for KiCad
// schematic files. Every parsed node carries the byte span it occupies in the
// source, so callers can re-emit untouched subtrees verbatim instead of
// round-tripping them through a pretty-printer.
package kicadsexp

import (
	"io"
	"strings"
)

// Span is a half-open byte range [Start, End) into the parsed source.
type Span struct {
	Start int
	End   int
}

// Node is a single S-expression: either an atom or a list.
type Node struct {
	// IsList distinguishes lists from atoms. An empty list is still a list.
	IsList   bool
	Value    string // atom value, unescaped (empty for lists)
	Quoted   bool   // atom was written as a quoted string
	Children []*Node
	Span     Span

	// RawText, when non-empty, makes the renderer emit this node as verbatim
	// text. Used to splice preserved source fragments into rebuilt trees.
	RawText string
}

// Name returns the leading symbol of a list, or the atom value itself.
// KiCad lists are keyed by their first symbol: (at 100 50 0) has name "at".
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	if !n.IsList {
		return n.Value
	}
	if len(n.Children) == 0 || n.Children[0].IsList {
		return ""
	}
	return n.Children[0].Value
}

// Child returns the first child list with the given name.
func (n *Node) Child(name string) *Node {
	if n == nil || !n.IsList {
		return nil
	}
	for _, c := range n.Children {
		if c.IsList && c.Name() == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all child lists with the given name, in order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	if n == nil || !n.IsList {
		return out
	}
	for _, c := range n.Children {
		if c.IsList && c.Name() == name {
			out = append(out, c)
		}
	}
	return out
}

// Arg returns the i-th element of a list (0 is the key symbol), or nil.
func (n *Node) Arg(i int) *Node {
	if n == nil || !n.IsList || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// HasFlag reports whether a bare symbol appears among the list elements,
// e.g. the "hide" flag in (effects ... hide).
func (n *Node) HasFlag(flag string) bool {
	if n == nil || !n.IsList {
		return false
	}
	for _, c := range n.Children {
		if !c.IsList && c.Value == flag && !c.Quoted {
			return true
		}
	}
	return false
}

// Raw returns the verbatim source text for this node. The source must be the
// same byte slice the node was parsed from.
func (n *Node) Raw(source []byte) string {
	if n == nil || n.Span.End <= n.Span.Start || n.Span.End > len(source) {
		return ""
	}
	return string(source[n.Span.Start:n.Span.End])
}

// Atom builds an unquoted atom node.
func Atom(v string) *Node { return &Node{Value: v} }

// Str builds a quoted string atom node.
func Str(v string) *Node { return &Node{Value: v, Quoted: true} }

// List builds a list node from the given children.
func List(children ...*Node) *Node {
	return &Node{IsList: true, Children: children}
}

// RawNode builds a verbatim passthrough node from preserved source text.
func RawNode(text string) *Node {
	return &Node{RawText: text}
}

func (n *Node) String() string {
	var b strings.Builder
	writeCompact(&b, n)
	return b.String()
}

func writeCompact(b *strings.Builder, n *Node) {
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
	b.WriteByte('(')
	for i, c := range n.Children {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeCompact(b, c)
	}
	b.WriteByte(')')
}

// Parse parses all top-level S-expressions from a reader.
func Parse(r io.Reader) ([]*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// ParseString parses S-expressions from a string.
func ParseString(s string) ([]*Node, error) {
	return ParseBytes([]byte(s))
}
