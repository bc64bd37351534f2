package lexer

import (
	"strings"

	"calx/internal/token"
)

type Lexer struct {
	input string

	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination

	line int // 1-based
	col  int // 1-based column of current char
}

func New(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0, // readChar() will advance to col=1 for first char
	}
	l.readChar()
	return l
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	if l.ch == 0 {
		return l.newToken(token.EOF, "", l.line, l.col)
	}

	startLine, startCol := l.line, l.col
	startIdx := l.position

	switch l.ch {
	case '(':
		tok := l.newToken(token.LPAREN, "(", startLine, startCol)
		l.readChar()
		return tok
	case ')':
		tok := l.newToken(token.RPAREN, ")", startLine, startCol)
		l.readChar()
		return tok
	case ';':
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
		text := l.input[startIdx:l.position]
		tok := l.newToken(token.COMMENT, strings.TrimRight(text, " \t\r"), startLine, startCol)
		tok.Raw = text
		return tok
	case '"':
		return l.readStringToken(startLine, startCol, startIdx)
	}

	for !isDelimiter(l.ch) {
		l.readChar()
	}
	return l.newToken(token.ATOM, l.input[startIdx:l.position], startLine, startCol)
}

// Tokens lexes the whole input, including the trailing EOF token.
func Tokens(input string) []token.Token {
	l := New(input)
	var out []token.Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}

func isDelimiter(ch byte) bool {
	switch ch {
	case 0, ' ', '\t', '\n', '\r', '(', ')', '"', ';':
		return true
	}
	return false
}

func (l *Lexer) newToken(t token.Type, lit string, line, col int) token.Token {
	return token.Token{
		Type:    t,
		Literal: lit,
		Line:    line,
		Col:     col,
	}
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}

	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++

	// Track line/col for current char
	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readStringToken(startLine, startCol, startIdx int) token.Token {
	// Current l.ch == '"'
	l.readChar() // move past opening quote

	var b strings.Builder
	for {
		if l.ch == 0 || l.ch == '\n' {
			return l.newToken(token.ILLEGAL, "unterminated string", startLine, startCol)
		}
		if l.ch == '"' {
			break
		}

		if l.ch == '\\' {
			switch l.peekChar() {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				// Unknown escape: keep the backslash literally
				b.WriteByte(l.ch)
				l.readChar()
				continue
			}
			l.readChar()
			l.readChar()
			continue
		}

		b.WriteByte(l.ch)
		l.readChar()
	}

	l.readChar() // consume closing quote
	tok := l.newToken(token.STRING, b.String(), startLine, startCol)
	tok.Raw = l.input[startIdx:l.position]
	return tok
}
