package lsp

import (
	"strings"
	"unicode/utf16"

	"calx/internal/diag"
	"calx/internal/token"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Pos is a 1-based line and byte column, as produced by the lexer.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) before(line, col int) bool {
	if p.Line != line {
		return p.Line < line
	}
	return p.Col < col
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

func byteColToUTF16(lineText string, byteCol int) uint32 {
	if byteCol <= 1 {
		return 0
	}
	limit := byteCol - 1
	if limit > len(lineText) {
		limit = len(lineText)
	}
	return uint32(utf16Len(lineText[:limit]))
}

func utf16ColToByte(lineText string, utf16Col int) int {
	if utf16Col <= 0 {
		return 1
	}
	count := 0
	for idx, r := range lineText {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if count+n > utf16Col {
			return idx + 1
		}
		count += n
	}
	return len(lineText) + 1
}

func utf16Len(s string) int {
	count := 0
	for _, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		count += n
	}
	return count
}

func positionToByte(text string, pos protocol.Position) (Pos, bool) {
	lines := splitLines(text)
	lineIdx := int(pos.Line)
	if lineIdx < 0 || lineIdx >= len(lines) {
		return Pos{}, false
	}
	byteCol := utf16ColToByte(lines[lineIdx], int(pos.Character))
	return Pos{Line: lineIdx + 1, Col: byteCol}, true
}

// diagRange converts a diagnostic range (byte column, rune length) to an
// LSP range in UTF-16 units. The range never spans lines.
func diagRange(lines []string, r diag.Range) protocol.Range {
	if r.Line <= 0 || r.Line > len(lines) {
		return protocol.Range{}
	}
	lineText := lines[r.Line-1]
	start := protocol.Position{Line: uint32(r.Line - 1), Character: byteColToUTF16(lineText, r.Col)}

	from := r.Col - 1
	if from < 0 {
		from = 0
	}
	if from > len(lineText) {
		from = len(lineText)
	}
	runes := []rune(lineText[from:])
	n := r.Length
	if n <= 0 {
		n = 1
	}
	width := n
	if n <= len(runes) {
		width = utf16Len(string(runes[:n]))
	}
	end := protocol.Position{Line: start.Line, Character: start.Character + uint32(width)}
	return protocol.Range{Start: start, End: end}
}

// tokenRange covers tok's source text.
func tokenRange(lines []string, tok token.Token) protocol.Range {
	src := sourceText(tok)
	return diagRange(lines, diag.Range{Line: tok.Line, Col: tok.Col, Length: len([]rune(src))})
}

// spanRange covers from the start of first to the end of last. An unset
// last, as on an unclosed list, yields first alone.
func spanRange(lines []string, first, last token.Token) protocol.Range {
	r := tokenRange(lines, first)
	if last.Line > 0 {
		r.End = tokenRange(lines, last).End
	}
	return r
}

func sourceText(tok token.Token) string {
	if tok.Raw != "" {
		return tok.Raw
	}
	return tok.Literal
}
