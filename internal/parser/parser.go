package parser

import (
	"fmt"

	"calx/internal/ast"
	"calx/internal/diag"
	"calx/internal/lexer"
	"calx/internal/token"
)

const CodeSyntax = "CA0001"

type Parser struct {
	l      *lexer.Lexer
	errors []string
	diags  []diag.Diagnostic

	curToken token.Token

	keepComments bool
	incomplete   bool
}

type Option func(*Parser)

// KeepComments retains comment nodes in the tree, for the formatter.
func KeepComments() Option {
	return func(p *Parser) { p.keepComments = true }
}

func New(l *lexer.Lexer, opts ...Option) *Parser {
	p := &Parser{
		l:      l,
		errors: []string{},
		diags:  []diag.Diagnostic{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.nextToken()
	return p
}

func (p *Parser) Diagnostics() []diag.Diagnostic { return p.diags }
func (p *Parser) Errors() []string               { return p.errors }

// Incomplete reports whether input ended inside an open list, so more
// input could still make it valid.
func (p *Parser) Incomplete() bool { return p.incomplete }

func (p *Parser) ParseFile() *ast.File {
	file := &ast.File{}
	for p.curToken.Type != token.EOF {
		if n := p.parseNode(); n != nil {
			file.Nodes = append(file.Nodes, n)
		}
	}
	return file
}

// Parse is a convenience wrapper over New and ParseFile.
func Parse(src string, opts ...Option) (*ast.File, []diag.Diagnostic) {
	p := New(lexer.New(src), opts...)
	f := p.ParseFile()
	return f, p.Diagnostics()
}

// parseNode consumes one datum. It returns nil for skipped comments and
// for tokens that were reported as errors.
func (p *Parser) parseNode() *ast.Node {
	tok := p.curToken
	switch tok.Type {
	case token.ATOM:
		p.nextToken()
		return &ast.Node{Kind: ast.Atom, Token: tok, Value: tok.Literal}
	case token.STRING:
		p.nextToken()
		return &ast.Node{Kind: ast.String, Token: tok, Value: tok.Literal}
	case token.COMMENT:
		p.nextToken()
		if !p.keepComments {
			return nil
		}
		return &ast.Node{Kind: ast.Comment, Token: tok, Value: tok.Literal}
	case token.LPAREN:
		return p.parseList()
	case token.RPAREN:
		p.errorAt(tok, "unexpected )")
		p.nextToken()
		return nil
	case token.ILLEGAL:
		p.errorAt(tok, tok.Literal)
		p.nextToken()
		return nil
	}
	p.errorAt(tok, fmt.Sprintf("unexpected token %s", tok.Type))
	p.nextToken()
	return nil
}

func (p *Parser) parseList() *ast.Node {
	list := &ast.Node{Kind: ast.List, Token: p.curToken, Children: []*ast.Node{}}
	p.nextToken()
	for p.curToken.Type != token.RPAREN {
		if p.curToken.Type == token.EOF {
			p.incomplete = true
			p.errorAt(list.Token, "unclosed (")
			return list
		}
		if n := p.parseNode(); n != nil {
			list.Children = append(list.Children, n)
		}
	}
	list.End = p.curToken
	p.nextToken()
	return list
}

/* -------------------- helpers -------------------- */

func (p *Parser) nextToken() {
	p.curToken = p.l.NextToken()
}

func (p *Parser) errorAt(tok token.Token, msg string) {
	length := 1
	if tok.Literal != "" {
		length = len([]rune(tok.Literal))
	}
	p.diags = append(p.diags, diag.Errorf(CodeSyntax, diag.Range{Line: tok.Line, Col: tok.Col, Length: length}, "%s", msg))
	p.errors = append(p.errors, msg)
}

// IsIncomplete reports whether src leaves a list open.
func IsIncomplete(src string) bool {
	p := New(lexer.New(src))
	p.ParseFile()
	return p.Incomplete()
}
