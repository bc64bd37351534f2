package lsp

import "testing"

func TestSemanticTokens(t *testing.T) {
	text := `; entry
(fn main (i64)
  (const "é")
  (const 2)
  (call main)
  dup)
`
	toks := SemanticTokensForText(text)

	cases := []struct {
		name            string
		line, col       int
		length, typ, md int
	}{
		{"comment", 1, 1, 7, ttComment, 0},
		{"fn keyword", 2, 2, 2, ttKeyword, 0},
		{"declaration", 2, 5, 4, ttFunction, modDecl},
		{"param type", 2, 11, 3, ttType, 0},
		{"mnemonic", 3, 4, 5, ttOperator, 0},
		{"string", 3, 10, 3, ttString, 0},
		{"number", 4, 10, 1, ttNumber, 0},
		{"call target", 5, 9, 4, ttFunction, 0},
		{"bare mnemonic", 6, 3, 3, ttOperator, 0},
	}
	for _, tc := range cases {
		if !hasToken(toks, tc.line, tc.col, tc.length, tc.typ, tc.md) {
			t.Fatalf("%s: expected token at %d:%d len %d type %d, got %+v", tc.name, tc.line, tc.col, tc.length, tc.typ, toks)
		}
	}
}

func TestEncodeSemanticTokens(t *testing.T) {
	toks := []SemTok{
		{Line: 2, Col: 3, Length: 5, Type: ttOperator},
		{Line: 1, Col: 2, Length: 2, Type: ttKeyword},
		{Line: 1, Col: 5, Length: 4, Type: ttFunction, Mods: modDecl},
		{Line: 3, Col: 1, Length: 0, Type: ttComment},
	}
	got := EncodeSemanticTokens(toks)
	want := []uint32{
		0, 1, 2, ttKeyword, 0,
		0, 3, 4, ttFunction, modDecl,
		1, 2, 5, ttOperator, 0,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if toks[0].Line != 2 {
		t.Fatalf("input must not be reordered")
	}
}

func hasToken(toks []SemTok, line, col, length, typ, mods int) bool {
	for _, tok := range toks {
		if tok.Line == line && tok.Col == col && tok.Length == length && tok.Type == typ && tok.Mods == mods {
			return true
		}
	}
	return false
}
