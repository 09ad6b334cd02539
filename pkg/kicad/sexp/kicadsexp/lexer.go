package kicadsexp

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenSymbol
	TokenString
)

// Token is a lexical token with its byte span in the source.
type Token struct {
	Type  TokenType
	Value string
	Start int
	End   int
}

// Lexer tokenizes S-expressions from a byte slice, tracking byte offsets so
// the parser can attach spans to nodes.
type Lexer struct {
	src []byte
	pos int
}

// NewLexer creates a lexer over the given source.
func NewLexer(src []byte) *Lexer {
	return &Lexer{src: src}
}

// NextToken reads the next token from the input.
func (l *Lexer) NextToken() (Token, error) {
	l.skipSpaceAndComments()

	if l.pos >= len(l.src) {
		return Token{Type: TokenEOF, Start: l.pos, End: l.pos}, nil
	}

	start := l.pos
	switch l.src[l.pos] {
	case '(':
		l.pos++
		return Token{Type: TokenLeftParen, Value: "(", Start: start, End: l.pos}, nil
	case ')':
		l.pos++
		return Token{Type: TokenRightParen, Value: ")", Start: start, End: l.pos}, nil
	case '"':
		return l.readString()
	default:
		return l.readSymbol()
	}
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRune(l.src[l.pos:])
		if unicode.IsSpace(r) {
			l.pos += size
			continue
		}
		// Comments run from # to end of line
		if r == '#' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		return
	}
}

// readString reads a quoted string, handling backslash escapes and the
// doubled-quote escape some KiCad versions emit.
func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // opening quote

	var result []byte
	for {
		if l.pos >= len(l.src) {
			return Token{}, fmt.Errorf("unexpected EOF in string at offset %d", start)
		}
		ch := l.src[l.pos]
		l.pos++

		if ch == '"' {
			// Doubled quote is an escaped quote
			if l.pos < len(l.src) && l.src[l.pos] == '"' {
				l.pos++
				result = append(result, '"')
				continue
			}
			break
		}

		if ch == '\\' {
			if l.pos >= len(l.src) {
				return Token{}, fmt.Errorf("unexpected EOF after backslash at offset %d", l.pos)
			}
			esc := l.src[l.pos]
			l.pos++
			switch esc {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case 'r':
				result = append(result, '\r')
			case '\\':
				result = append(result, '\\')
			case '"':
				result = append(result, '"')
			default:
				result = append(result, esc)
			}
			continue
		}

		result = append(result, ch)
	}

	return Token{Type: TokenString, Value: string(result), Start: start, End: l.pos}, nil
}

// readSymbol reads an unquoted symbol (identifier, number, flag).
func (l *Lexer) readSymbol() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRune(l.src[l.pos:])
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' {
			break
		}
		l.pos += size
	}
	if l.pos == start {
		return Token{}, fmt.Errorf("empty symbol at offset %d", start)
	}
	return Token{Type: TokenSymbol, Value: string(l.src[start:l.pos]), Start: start, End: l.pos}, nil
}
