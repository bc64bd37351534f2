package lsp

import (
	"calx/internal/asm"
	"calx/internal/ast"
	"calx/internal/code"
	"calx/internal/diag"
	"calx/internal/lint"
	"calx/internal/numlit"
)

type OccKind int

const (
	OccKeyword  OccKind = iota // fn, global, block, loop
	OccMnemonic                // instruction name
	OccFuncDecl                // name in (fn name ...)
	OccCall                    // operand of call
	OccType                    // parameter type
	OccNumber
	OccString
	OccLiteral // nil, true, false
)

// Occurrence is one classified atom or string in a document.
type Occurrence struct {
	Node *ast.Node
	Kind OccKind
	Func string // enclosing function, "" at top level
}

func (o Occurrence) Name() string { return o.Node.Value }

func (o Occurrence) contains(p Pos) bool {
	tok := o.Node.Token
	return p.Line == tok.Line && p.Col >= tok.Col && p.Col < tok.Col+len(sourceText(tok))
}

// Analysis is everything the server knows about one document.
type Analysis struct {
	Unit        *asm.Unit
	Diagnostics []diag.Diagnostic
	Occurrences []Occurrence

	forms map[string]*ast.Node
}

func Analyze(text string) *Analysis {
	unit := asm.AssembleUnit(text)
	an := &Analysis{
		Unit:  unit,
		forms: map[string]*ast.Node{},
	}
	an.Diagnostics = append(an.Diagnostics, unit.Diagnostics...)
	an.Diagnostics = append(an.Diagnostics, lint.Run(unit)...)
	an.collect(unit.File)
	return an
}

// Function returns the assembled function and its source info.
func (an *Analysis) Function(name string) (*code.Function, asm.FuncInfo, bool) {
	info, ok := an.Unit.Func(name)
	if !ok || info.Index >= len(an.Unit.Program.Functions) {
		return nil, asm.FuncInfo{}, false
	}
	return an.Unit.Program.Functions[info.Index], info, true
}

// OccurrenceAt finds the classified atom under p.
func (an *Analysis) OccurrenceAt(p Pos) (Occurrence, bool) {
	for _, o := range an.Occurrences {
		if o.contains(p) {
			return o, true
		}
	}
	return Occurrence{}, false
}

func (an *Analysis) add(n *ast.Node, kind OccKind, fn string) {
	an.Occurrences = append(an.Occurrences, Occurrence{Node: n, Kind: kind, Func: fn})
}

func (an *Analysis) collect(file *ast.File) {
	if file == nil {
		return
	}
	for _, n := range file.Nodes {
		if n.Kind != ast.List || len(n.Children) == 0 {
			continue
		}
		switch n.Head() {
		case "fn":
			an.add(n.Children[0], OccKeyword, "")
			args := n.Args()
			if len(args) == 0 || args[0].Kind != ast.Atom {
				continue
			}
			name := args[0].Value
			an.add(args[0], OccFuncDecl, name)
			if _, dup := an.forms[name]; !dup {
				an.forms[name] = n
			}
			if len(args) < 2 {
				continue
			}
			if args[1].Kind == ast.List {
				for _, p := range args[1].Children {
					if p.Kind == ast.Atom {
						an.add(p, OccType, name)
					}
				}
			}
			for _, body := range args[2:] {
				an.instr(body, name)
			}
		case "global":
			an.add(n.Children[0], OccKeyword, "")
			for _, c := range n.Args() {
				an.constant(c, "")
			}
		}
	}
}

func (an *Analysis) instr(n *ast.Node, fn string) {
	switch n.Kind {
	case ast.Atom:
		an.add(n, OccMnemonic, fn)
	case ast.List:
		if len(n.Children) == 0 || n.Children[0].Kind != ast.Atom {
			return
		}
		head := n.Children[0]
		switch head.Value {
		case "block", "loop":
			an.add(head, OccKeyword, fn)
			for _, c := range n.Args() {
				if c.IsAtom("loop") {
					an.add(c, OccKeyword, fn)
					continue
				}
				an.instr(c, fn)
			}
		case "call":
			an.add(head, OccMnemonic, fn)
			for _, c := range n.Args() {
				if c.Kind == ast.Atom {
					an.add(c, OccCall, fn)
				}
			}
		default:
			an.add(head, OccMnemonic, fn)
			for _, c := range n.Args() {
				an.constant(c, fn)
			}
		}
	}
}

func (an *Analysis) constant(n *ast.Node, fn string) {
	switch n.Kind {
	case ast.String:
		an.add(n, OccString, fn)
	case ast.List:
		for _, c := range n.Children {
			an.constant(c, fn)
		}
	case ast.Atom:
		switch {
		case n.Value == "nil" || n.Value == "true" || n.Value == "false":
			an.add(n, OccLiteral, fn)
		case numlit.LooksNumeric(n.Value):
			an.add(n, OccNumber, fn)
		}
	}
}
