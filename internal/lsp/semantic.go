package lsp

import (
	"calx/internal/lexer"
	"calx/internal/token"
)

// semantic token type indices (must match SemanticTokenTypes order)
const (
	ttKeyword  = 0
	ttString   = 1
	ttNumber   = 2
	ttOperator = 3
	ttFunction = 4
	ttType     = 5
	ttComment  = 6
)

const (
	modDecl     = 1 << 0
	modReadonly = 1 << 1
)

var (
	SemanticTokenTypes     = []string{"keyword", "string", "number", "operator", "function", "type", "comment"}
	SemanticTokenModifiers = []string{"declaration", "readonly"}
)

// SemTok is one highlighted span. Col and Length are in UTF-16 units,
// Col 1-based.
type SemTok struct {
	Line   int
	Col    int
	Length int
	Type   int
	Mods   int
}

func classify(kind OccKind) (int, int) {
	switch kind {
	case OccKeyword:
		return ttKeyword, 0
	case OccMnemonic:
		return ttOperator, 0
	case OccFuncDecl:
		return ttFunction, modDecl
	case OccCall:
		return ttFunction, 0
	case OccType:
		return ttType, 0
	case OccNumber:
		return ttNumber, 0
	case OccString:
		return ttString, 0
	default:
		return ttKeyword, modReadonly
	}
}

// SemanticTokensForText returns unencoded semantic tokens for text.
func SemanticTokensForText(text string) []SemTok {
	lines := splitLines(text)
	an := Analyze(text)
	sem := make([]SemTok, 0, len(an.Occurrences))
	for _, o := range an.Occurrences {
		typ, mods := classify(o.Kind)
		sem = appendSemTok(sem, lines, o.Node.Token, typ, mods)
	}
	for _, tok := range lexer.Tokens(text) {
		if tok.Type == token.COMMENT {
			sem = appendSemTok(sem, lines, tok, ttComment, 0)
		}
	}
	return sem
}

func appendSemTok(sem []SemTok, lines []string, tok token.Token, typ, mods int) []SemTok {
	r := tokenRange(lines, tok)
	return append(sem, SemTok{
		Line:   int(r.Start.Line) + 1,
		Col:    int(r.Start.Character) + 1,
		Length: int(r.End.Character - r.Start.Character),
		Type:   typ,
		Mods:   mods,
	})
}
