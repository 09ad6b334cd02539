package kicadsexp

import (
	"fmt"
)

// Parser parses S-expressions from a lexer, attaching byte spans to every
// node it produces.
type Parser struct {
	lexer   *Lexer
	current Token
}

// NewParser creates a parser over the given source bytes.
func NewParser(src []byte) *Parser {
	return &Parser{lexer: NewLexer(src)}
}

// ParseBytes parses all top-level S-expressions from a byte slice.
func ParseBytes(src []byte) ([]*Node, error) {
	return NewParser(src).ParseAll()
}

// ParseAll parses all top-level S-expressions until EOF.
func (p *Parser) ParseAll() ([]*Node, error) {
	var result []*Node

	if err := p.advance(); err != nil {
		return nil, err
	}

	for p.current.Type != TokenEOF {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		result = append(result, expr)

		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (p *Parser) advance() error {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

// parseExpr parses a single expression starting at the current token.
func (p *Parser) parseExpr() (*Node, error) {
	switch p.current.Type {
	case TokenLeftParen:
		return p.parseList()

	case TokenSymbol:
		return &Node{
			Value: p.current.Value,
			Span:  Span{Start: p.current.Start, End: p.current.End},
		}, nil

	case TokenString:
		return &Node{
			Value:  p.current.Value,
			Quoted: true,
			Span:   Span{Start: p.current.Start, End: p.current.End},
		}, nil

	case TokenRightParen:
		return nil, fmt.Errorf("unexpected ')' at offset %d", p.current.Start)

	case TokenEOF:
		return nil, fmt.Errorf("unexpected EOF")

	default:
		return nil, fmt.Errorf("unexpected token type: %v", p.current.Type)
	}
}

// parseList parses a list. The current token must be '('.
func (p *Parser) parseList() (*Node, error) {
	if p.current.Type != TokenLeftParen {
		return nil, fmt.Errorf("expected '(', got %v", p.current.Type)
	}
	start := p.current.Start

	node := &Node{IsList: true}

	for {
		if err := p.advance(); err != nil {
			return nil, err
		}

		if p.current.Type == TokenRightParen {
			node.Span = Span{Start: start, End: p.current.End}
			return node, nil
		}

		if p.current.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected EOF in list opened at offset %d", start)
		}

		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, elem)
	}
}
