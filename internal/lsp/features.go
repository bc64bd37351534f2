package lsp

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"calx/internal/asm"
	"calx/internal/code"
	"calx/internal/lexer"
	"calx/internal/object"
	"calx/internal/token"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

var keywordDocs = map[string]string{
	"fn":     "(fn name (types...) body...)\n\nDeclare a function. Parameter types are checked on entry.",
	"global": "(global const)\n\nDeclare a global slot with an initial value.",
	"block":  "(block body...)\n\nOpen a block. A branch to it leaves the block.",
	"loop":   "(loop body...)\n\nOpen a loop block. A branch to it restarts the body.",
}

// Diagnostics assembles and lints text.
func Diagnostics(text string) []protocol.Diagnostic {
	return ToLspDiagnostics(text, Analyze(text).Diagnostics)
}

func HoverAt(text string, pos protocol.Position) (*protocol.Hover, error) {
	p, ok := positionToByte(text, pos)
	if !ok {
		return nil, nil
	}
	an := Analyze(text)
	occ, ok := an.OccurrenceAt(p)
	if !ok {
		return nil, nil
	}

	var kindLabel, signature, doc string
	name := occ.Name()
	switch occ.Kind {
	case OccKeyword:
		kindLabel = "keyword"
		doc = keywordDocs[name]
	case OccMnemonic:
		op, found := code.LookupName(name)
		if !found {
			return nil, nil
		}
		def, _ := code.Lookup(op)
		kindLabel = "instruction"
		signature = fmt.Sprintf("pops %d, pushes %d", def.Pops, def.Pushes)
		doc = def.Doc
	case OccFuncDecl, OccCall:
		if fn, _, found := an.Function(name); found {
			kindLabel = "function"
			signature = fn.Signature()
			if n := fn.NumLocals(); n > 0 {
				doc = fmt.Sprintf("%d local(s)", n)
			}
		} else {
			kindLabel = "import"
			doc = "resolved by the host when called"
		}
	case OccType:
		kindLabel = "type"
	default:
		return nil, nil
	}

	lines := []string{fmt.Sprintf("%s: %s", kindLabel, name)}
	if signature != "" {
		lines = append(lines, signature)
	}
	if doc != "" {
		lines = append(lines, "", doc)
	}
	contents := protocol.MarkupContent{Kind: "markdown", Value: strings.Join(lines, "\n")}
	rng := tokenRange(splitLines(text), occ.Node.Token)
	return &protocol.Hover{Contents: contents, Range: &rng}, nil
}

// DefinitionAt jumps from a call target or function name to the function.
func DefinitionAt(uri string, text string, pos protocol.Position) ([]protocol.Location, error) {
	p, ok := positionToByte(text, pos)
	if !ok {
		return nil, nil
	}
	an := Analyze(text)
	occ, ok := an.OccurrenceAt(p)
	if !ok || (occ.Kind != OccCall && occ.Kind != OccFuncDecl) {
		return nil, nil
	}
	_, info, found := an.Function(occ.Name())
	if !found {
		return nil, nil
	}
	loc := protocol.Location{
		URI:   protocol.DocumentUri(uri),
		Range: diagRange(splitLines(text), info.NameRange),
	}
	return []protocol.Location{loc}, nil
}

// ReferencesAt lists every call of the function under pos.
func ReferencesAt(uri string, text string, pos protocol.Position, includeDecl bool) ([]protocol.Location, error) {
	p, ok := positionToByte(text, pos)
	if !ok {
		return nil, nil
	}
	an := Analyze(text)
	occ, ok := an.OccurrenceAt(p)
	if !ok || (occ.Kind != OccCall && occ.Kind != OccFuncDecl) {
		return nil, nil
	}
	name := occ.Name()
	lines := splitLines(text)
	var out []protocol.Location
	for _, o := range an.Occurrences {
		if o.Name() != name {
			continue
		}
		if o.Kind == OccCall || (includeDecl && o.Kind == OccFuncDecl) {
			out = append(out, protocol.Location{
				URI:   protocol.DocumentUri(uri),
				Range: tokenRange(lines, o.Node.Token),
			})
		}
	}
	return out, nil
}

func DocumentSymbols(text string) []protocol.DocumentSymbol {
	an := Analyze(text)
	lines := splitLines(text)
	out := make([]protocol.DocumentSymbol, 0, len(an.Unit.Funcs))
	for _, info := range an.Unit.Funcs {
		form, ok := an.forms[info.Name]
		if !ok {
			continue
		}
		fn, _, _ := an.Function(info.Name)
		sym := protocol.DocumentSymbol{
			Name:           info.Name,
			Kind:           protocol.SymbolKindFunction,
			Range:          spanRange(lines, form.Token, form.End),
			SelectionRange: diagRange(lines, info.NameRange),
		}
		if fn != nil {
			sym.Detail = ptrString(fn.Signature())
		}
		out = append(out, sym)
	}
	globals := 0
	for _, n := range an.Unit.File.Nodes {
		if n.Head() != "global" {
			continue
		}
		detail := ""
		if globals < len(an.Unit.Program.Globals) {
			detail = code.FormatConst(an.Unit.Program.Globals[globals])
		}
		out = append(out, protocol.DocumentSymbol{
			Name:           fmt.Sprintf("global %d", globals),
			Detail:         ptrString(detail),
			Kind:           protocol.SymbolKindVariable,
			Range:          spanRange(lines, n.Token, n.End),
			SelectionRange: tokenRange(lines, n.Children[0].Token),
		})
		globals++
	}
	return out
}

type completionCandidate struct {
	name   string
	kind   protocol.CompletionItemKind
	detail string
	weight int
}

var paramListRE = regexp.MustCompile(`\(\s*fn\s+[^\s()]+\s+\([^()]*$`)

func CompletionItems(text string, pos protocol.Position) []protocol.CompletionItem {
	p, ok := positionToByte(text, pos)
	if !ok {
		return nil
	}
	an := Analyze(text)
	ctx := completionContextAt(text, p)

	var items []completionCandidate
	switch {
	case ctx.topLevel:
		items = append(items,
			completionCandidate{name: "fn", kind: protocol.CompletionItemKindKeyword},
			completionCandidate{name: "global", kind: protocol.CompletionItemKindKeyword},
		)
	case ctx.callTarget:
		for _, fn := range an.Unit.Program.Functions {
			items = append(items, completionCandidate{
				name:   fn.Name,
				kind:   protocol.CompletionItemKindFunction,
				detail: fn.Signature(),
			})
		}
	case ctx.paramList:
		for _, t := range object.Types() {
			items = append(items, completionCandidate{name: t.String(), kind: protocol.CompletionItemKindTypeParameter})
		}
	default:
		items = append(items,
			completionCandidate{name: "block", kind: protocol.CompletionItemKindKeyword},
			completionCandidate{name: "loop", kind: protocol.CompletionItemKindKeyword},
		)
		for _, name := range asm.Mnemonics() {
			if name == "loop" || name == "block" {
				continue
			}
			c := completionCandidate{name: name, kind: protocol.CompletionItemKindOperator, weight: 1}
			if op, ok := code.LookupName(name); ok {
				def, _ := code.Lookup(op)
				c.detail = def.Doc
			}
			items = append(items, c)
		}
	}
	return buildCompletionItems(items)
}

func buildCompletionItems(items []completionCandidate) []protocol.CompletionItem {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].weight != items[j].weight {
			return items[i].weight < items[j].weight
		}
		return items[i].name < items[j].name
	})
	out := make([]protocol.CompletionItem, 0, len(items))
	for i, it := range items {
		kind := it.kind
		item := protocol.CompletionItem{
			Label:    it.name,
			Kind:     &kind,
			SortText: ptrString(fmt.Sprintf("%04d", i)),
		}
		if it.detail != "" {
			item.Detail = ptrString(it.detail)
		}
		out = append(out, item)
	}
	return out
}

type completionContext struct {
	topLevel   bool
	callTarget bool
	paramList  bool
}

type openList struct {
	head  string
	items int
}

// completionContextAt reads the open lists before p. The token p sits in
// is the prefix being typed and is not counted.
func completionContextAt(text string, p Pos) completionContext {
	var stack []*openList
	offset := 0
	lines := splitLines(text)
	for i := 0; i < p.Line-1 && i < len(lines); i++ {
		offset += len(lines[i]) + 1
	}
	offset += p.Col - 1
	if offset > len(text) {
		offset = len(text)
	}

	for _, tok := range lexer.Tokens(text) {
		if tok.Type == token.EOF || !(Pos{Line: tok.Line, Col: tok.Col}).before(p.Line, p.Col) {
			break
		}
		if tok.Line == p.Line && p.Col <= tok.Col+len(sourceText(tok)) && tok.Type == token.ATOM {
			break
		}
		switch tok.Type {
		case token.LPAREN:
			if len(stack) > 0 {
				stack[len(stack)-1].items++
			}
			stack = append(stack, &openList{})
		case token.RPAREN:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case token.ATOM, token.STRING:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if top.items == 0 && tok.Type == token.ATOM {
				top.head = tok.Literal
			}
			top.items++
		}
	}

	switch {
	case len(stack) == 0:
		return completionContext{topLevel: true}
	case len(stack) == 1 && stack[0].items == 0:
		return completionContext{topLevel: true}
	}
	top := stack[len(stack)-1]
	if top.head == "call" && top.items == 1 {
		return completionContext{callTarget: true}
	}
	if len(stack) == 2 && paramListRE.MatchString(text[:offset]) {
		return completionContext{paramList: true}
	}
	return completionContext{}
}
