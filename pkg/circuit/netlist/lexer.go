// Package netlist parses the declarative circuit description format (.ckt)
// into the snapshot model the synchronization engine consumes.
package netlist

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// CktLexer defines the lexical structure of circuit description files.
// Keywords are lowercase and case-sensitive; identifiers cover component
// references, pin names, and bare net names including rail spellings such
// as +3V3.
var CktLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run from # to end of line
	{Name: "Comment", Pattern: `#[^\n]*`},

	// Whitespace
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Keywords
	{Name: "KwSheet", Pattern: `\bsheet\b`},
	{Name: "KwFile", Pattern: `\bfile\b`},
	{Name: "KwComponent", Pattern: `\bcomponent\b`},
	{Name: "KwLib", Pattern: `\blib\b`},
	{Name: "KwValue", Pattern: `\bvalue\b`},
	{Name: "KwFootprint", Pattern: `\bfootprint\b`},
	{Name: "KwProp", Pattern: `\bprop\b`},
	{Name: "KwNet", Pattern: `\bnet\b`},
	{Name: "KwPower", Pattern: `\bpower\b`},
	{Name: "KwSignal", Pattern: `\bsignal\b`},
	{Name: "KwSymbol", Pattern: `\bsymbol\b`},
	{Name: "KwPort", Pattern: `\bport\b`},
	{Name: "KwInput", Pattern: `\binput\b`},
	{Name: "KwOutput", Pattern: `\boutput\b`},
	{Name: "KwBidi", Pattern: `\bbidirectional\b`},
	{Name: "KwPin", Pattern: `\bpin\b`},
	{Name: "KwName", Pattern: `\bname\b`},
	{Name: "KwType", Pattern: `\btype\b`},
	{Name: "KwAt", Pattern: `\bat\b`},
	{Name: "KwAngle", Pattern: `\bangle\b`},
	{Name: "KwLength", Pattern: `\blength\b`},

	// Literals. Float must precede Ident so -3.81 lexes as one number
	// rather than an identifier followed by a fraction.
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Float", Pattern: `[+\-]?[0-9]+\.[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_+\-][A-Za-z0-9_+\-]*`},
	{Name: "Int", Pattern: `[0-9]+`},

	// Punctuation
	{Name: "Dot", Pattern: `\.`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
})
