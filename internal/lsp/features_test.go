package lsp

import (
	"strings"
	"testing"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const callsSrc = `(fn add (i64 i64)
  (local.get 0)
  (local.get 1)
  i.add)

(fn main ()
  (const 1)
  (const 2)
  (call add)
  (call add)
  (call log2))
`

func TestDiagnostics(t *testing.T) {
	ds := Diagnostics("(fn main () bogus)")
	if len(ds) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(ds))
	}
	d := ds[0]
	if d.Code == nil || d.Code.Value != "CA0002" {
		t.Fatalf("expected CA0002, got %+v", d.Code)
	}
	if d.Source == nil || *d.Source != "calx" {
		t.Fatalf("expected source calx")
	}
	if d.Range.Start.Line != 0 || d.Range.Start.Character != 12 || d.Range.End.Character != 17 {
		t.Fatalf("unexpected range %+v", d.Range)
	}

	ds = Diagnostics("(fn main ()\n  return\n  nop)")
	if len(ds) != 1 || *ds[0].Severity != protocol.DiagnosticSeverityWarning {
		t.Fatalf("expected one lint warning, got %+v", ds)
	}
	if ds[0].Range.Start.Line != 2 || ds[0].Range.Start.Character != 2 {
		t.Fatalf("unexpected lint range %+v", ds[0].Range)
	}
}

func TestDiagnosticsUTF16Columns(t *testing.T) {
	ds := Diagnostics(`(fn main () (const "π") bogus)`)
	if len(ds) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(ds))
	}
	if got := ds[0].Range.Start.Character; got != 24 {
		t.Fatalf("expected start 24, got %d", got)
	}
}

func TestHover(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"mnemonic", strings.Replace(callsSrc, "  i.add)", "  |i.add)", 1), []string{"instruction: i.add", "pops 2, pushes 1", "integer addition"}},
		{"call target", strings.Replace(callsSrc, "(call add)\n  (call log2)", "(call a|dd)\n  (call log2)", 1), []string{"function: add", "add (i64 i64)"}},
		{"declaration", strings.Replace(callsSrc, "(fn main", "(fn ma|in", 1), []string{"function: main", "main ()"}},
		{"import", strings.Replace(callsSrc, "log2", "lo|g2", 1), []string{"import: log2"}},
		{"keyword", strings.Replace(callsSrc, "(fn add", "(f|n add", 1), []string{"keyword: fn"}},
		{"type", strings.Replace(callsSrc, "(i64 i64)", "(i64 i|64)", 1), []string{"type: i64"}},
	}
	for _, tt := range tests {
		clean, pos := extractPos(t, tt.text)
		hover, err := HoverAt(clean, pos)
		if err != nil || hover == nil {
			t.Fatalf("%s: expected hover, err=%v", tt.name, err)
		}
		content := hoverContents(hover)
		for _, w := range tt.want {
			if !strings.Contains(content, w) {
				t.Fatalf("%s: expected %q in hover, got %q", tt.name, w, content)
			}
		}
	}
}

func TestHoverNothing(t *testing.T) {
	clean, pos := extractPos(t, "(fn main ()\n  |\n  nop)")
	hover, err := HoverAt(clean, pos)
	if err != nil || hover != nil {
		t.Fatalf("expected no hover, got %+v err=%v", hover, err)
	}
}

func TestDefinitionAndReferences(t *testing.T) {
	clean, pos := extractPos(t, strings.Replace(callsSrc, "(call add)\n  (call log2)", "(call |add)\n  (call log2)", 1))
	locs, err := DefinitionAt("file:///t.calx", clean, pos)
	if err != nil || len(locs) != 1 {
		t.Fatalf("expected one definition, got %v err=%v", locs, err)
	}
	if locs[0].Range.Start.Line != 0 || locs[0].Range.Start.Character != 4 || locs[0].Range.End.Character != 7 {
		t.Fatalf("unexpected definition range %+v", locs[0].Range)
	}

	refs, _ := ReferencesAt("file:///t.calx", clean, pos, false)
	if len(refs) != 2 {
		t.Fatalf("expected 2 references, got %d", len(refs))
	}
	refs, _ = ReferencesAt("file:///t.calx", clean, pos, true)
	if len(refs) != 3 {
		t.Fatalf("expected 3 references with declaration, got %d", len(refs))
	}

	clean, pos = extractPos(t, strings.Replace(callsSrc, "log2", "|log2", 1))
	if locs, _ := DefinitionAt("file:///t.calx", clean, pos); len(locs) != 0 {
		t.Fatalf("imports have no definition, got %v", locs)
	}
}

func TestDocumentSymbols(t *testing.T) {
	syms := DocumentSymbols("(global 7)\n" + callsSrc)
	if len(syms) != 3 {
		t.Fatalf("expected 3 symbols, got %d", len(syms))
	}
	if syms[0].Name != "add" || syms[0].Kind != protocol.SymbolKindFunction || *syms[0].Detail != "add (i64 i64)" {
		t.Fatalf("unexpected first symbol %+v", syms[0])
	}
	if syms[0].Range.Start.Line != 1 || syms[0].Range.End.Line != 4 {
		t.Fatalf("expected add to span lines 1-4, got %+v", syms[0].Range)
	}
	if syms[1].Name != "main" {
		t.Fatalf("expected main, got %s", syms[1].Name)
	}
	if syms[2].Name != "global 0" || *syms[2].Detail != "7" || syms[2].Kind != protocol.SymbolKindVariable {
		t.Fatalf("unexpected global symbol %+v", syms[2])
	}
}

func TestCompletionContexts(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []string
		missing []string
	}{
		{"top level", "(|", []string{"fn", "global"}, []string{"i.add"}},
		{"top level prefix", "(f|", []string{"fn"}, []string{"block"}},
		{"body", "(fn main ()\n  (|", []string{"block", "loop", "i.add", "const"}, []string{"fn"}},
		{"call target", "(fn f () nop)\n(fn main ()\n  (call |", []string{"f", "main"}, []string{"i.add"}},
		{"call prefix", "(fn f () nop)\n(fn main ()\n  (call m|", []string{"main"}, []string{"const"}},
		{"param list", "(fn main (i64 |", []string{"i64", "str", "link"}, []string{"i.add"}},
	}
	for _, tt := range tests {
		clean, pos := extractPos(t, tt.text)
		items := CompletionItems(clean, pos)
		for _, w := range tt.want {
			if indexOfCompletion(items, w) == -1 {
				t.Fatalf("%s: expected %q in completions", tt.name, w)
			}
		}
		for _, m := range tt.missing {
			if indexOfCompletion(items, m) != -1 {
				t.Fatalf("%s: did not expect %q in completions", tt.name, m)
			}
		}
	}
}

func TestCompletionOrdering(t *testing.T) {
	clean, pos := extractPos(t, "(fn main ()\n  (|")
	items := CompletionItems(clean, pos)
	if idx := indexOfCompletion(items, "block"); idx != 0 {
		t.Fatalf("expected block first, got index %d", idx)
	}
	if indexOfCompletion(items, "loop") > indexOfCompletion(items, "const") {
		t.Fatalf("expected keywords before mnemonics")
	}
}

func TestCodeActions(t *testing.T) {
	text := "(fn main ()\n  return\n  nop)"
	actions := CodeActions("file:///t.calx", text, Diagnostics(text))
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	edits := actions[0].Edit.Changes["file:///t.calx"]
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}
	r := edits[0].Range
	if r.Start.Line != 2 || r.Start.Character != 0 || r.End.Line != 2 || r.End.Character != 6 {
		t.Fatalf("unexpected edit range %+v", r)
	}
}

func TestStoreIgnoresStaleVersions(t *testing.T) {
	s := NewStore()
	s.Set("file:///a.calx", "new", 3)
	if s.Set("file:///a.calx", "old", 2) {
		t.Fatalf("expected stale update to be rejected")
	}
	if text, _ := s.Get("file:///a.calx"); text != "new" {
		t.Fatalf("expected new, got %q", text)
	}
	s.Delete("file:///a.calx")
	if s.Len() != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestURIs(t *testing.T) {
	if !IsSourceURI("file:///x/Main.CALX") || IsSourceURI("file:///x/main.go") {
		t.Fatalf("unexpected source uri classification")
	}
	if got := UriToPath(PathToURI("/tmp/a b.calx")); got != "/tmp/a b.calx" {
		t.Fatalf("unexpected round trip %q", got)
	}
	if UriToPath("untitled:1") != "" {
		t.Fatalf("expected empty path for non-file uri")
	}
}

func extractPos(t *testing.T, text string) (string, protocol.Position) {
	idx := strings.Index(text, "|")
	if idx == -1 {
		t.Fatalf("missing cursor marker")
	}
	before := text[:idx]
	after := text[idx+1:]
	clean := before + after
	line := uint32(0)
	col := uint32(0)
	for _, r := range before {
		if r == '\n' {
			line++
			col = 0
			continue
		}
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		col += uint32(n)
	}
	return clean, protocol.Position{Line: line, Character: col}
}

func indexOfCompletion(items []protocol.CompletionItem, label string) int {
	for i, it := range items {
		if it.Label == label {
			return i
		}
	}
	return -1
}

func hoverContents(h *protocol.Hover) string {
	if h == nil {
		return ""
	}
	switch v := h.Contents.(type) {
	case protocol.MarkupContent:
		return v.Value
	default:
		return ""
	}
}
