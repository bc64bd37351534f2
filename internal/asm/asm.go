// Package asm turns list-structured assembly source into code.Programs.
package asm

import (
	"fmt"
	"sort"

	"calx/internal/ast"
	"calx/internal/code"
	"calx/internal/diag"
	"calx/internal/numlit"
	"calx/internal/object"
	"calx/internal/parser"
)

const (
	CodeSyntax            = parser.CodeSyntax
	CodeUnknownMnemonic   = "CA0002"
	CodeBadOperand        = "CA0003"
	CodeDuplicateFunction = "CA0004"
	CodeUnknownType       = "CA0005"
)

// FuncInfo locates an assembled function in its source.
type FuncInfo struct {
	Name      string
	Index     int
	Range     diag.Range   // the whole fn form
	NameRange diag.Range   // the name atom
	Positions []diag.Range // one per instruction
}

// Unit is the full result of assembling one source file.
type Unit struct {
	File        *ast.File
	Program     *code.Program
	Funcs       []FuncInfo
	Diagnostics []diag.Diagnostic
}

// HasErrors reports whether any diagnostic is an error.
func (u *Unit) HasErrors() bool { return diag.HasErrors(u.Diagnostics) }

// Func returns the position info of the named function.
func (u *Unit) Func(name string) (FuncInfo, bool) {
	for _, f := range u.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return FuncInfo{}, false
}

type Option func(*assembler)

// WithFunctions makes calls in a body resolve against an existing
// function table, e.g. the program loaded into a REPL.
func WithFunctions(funcs []*code.Function) Option {
	return func(a *assembler) {
		for i, fn := range funcs {
			a.names[fn.Name] = i
		}
	}
}

type assembler struct {
	names map[string]int
	diags []diag.Diagnostic

	out []code.Instruction
	pos []diag.Range
}

func newAssembler(opts []Option) *assembler {
	a := &assembler{names: map[string]int{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AssembleUnit parses and assembles src, keeping source positions.
func AssembleUnit(src string) *Unit {
	file, diags := parser.Parse(src)
	a := newAssembler(nil)
	a.diags = append(a.diags, diags...)
	u := &Unit{File: file, Program: &code.Program{}}

	// Names first, so calls may refer forward.
	forms := make([]*ast.Node, 0, len(file.Nodes))
	for _, n := range file.Nodes {
		switch n.Head() {
		case "fn":
			args := n.Args()
			if len(args) == 0 || args[0].Kind != ast.Atom {
				a.errorAt(n, CodeSyntax, "fn needs a name")
				continue
			}
			name := args[0].Value
			if _, dup := a.names[name]; dup {
				a.errorAt(args[0], CodeDuplicateFunction, fmt.Sprintf("duplicate function %q", name))
				continue
			}
			a.names[name] = len(forms)
			forms = append(forms, n)
		case "global":
			a.global(u.Program, n)
		default:
			a.errorAt(n, CodeSyntax, fmt.Sprintf("expected (fn ...) or (global ...), got %s", n))
		}
	}

	for i, n := range forms {
		fn := a.function(n)
		u.Program.Functions = append(u.Program.Functions, fn)
		u.Funcs = append(u.Funcs, FuncInfo{
			Name:      fn.Name,
			Index:     i,
			Range:     formRange(n),
			NameRange: nodeRange(n.Args()[0]),
			Positions: a.pos,
		})
	}
	u.Diagnostics = a.diags
	return u
}

// Assemble builds a program from source. The program is incomplete when
// any error diagnostic is returned.
func Assemble(src string) (*code.Program, []diag.Diagnostic) {
	u := AssembleUnit(src)
	return u.Program, u.Diagnostics
}

// AssembleBody assembles a bare instruction sequence, as typed at a REPL.
func AssembleBody(src string, opts ...Option) ([]code.Instruction, []diag.Diagnostic) {
	file, diags := parser.Parse(src)
	a := newAssembler(opts)
	a.diags = append(a.diags, diags...)
	for _, n := range file.Nodes {
		a.instr(n)
	}
	return a.out, a.diags
}

// Mnemonics lists every instruction name the assembler accepts, sorted.
func Mnemonics() []string {
	names := []string{"loop"}
	for _, op := range code.Opcodes() {
		names = append(names, op.String())
	}
	sort.Strings(names)
	return names
}

func (a *assembler) global(p *code.Program, n *ast.Node) {
	args := n.Args()
	if len(args) != 1 {
		a.errorAt(n, CodeBadOperand, "global takes exactly one constant")
		return
	}
	if v, ok := a.constant(args[0]); ok {
		p.Globals = append(p.Globals, v)
	}
}

func (a *assembler) function(n *ast.Node) *code.Function {
	args := n.Args()
	fn := &code.Function{Name: args[0].Value}
	a.out, a.pos = nil, nil

	if len(args) < 2 || args[1].Kind != ast.List {
		a.errorAt(n, CodeSyntax, fmt.Sprintf("fn %s needs a parameter list", fn.Name))
		return fn
	}
	for _, p := range args[1].Children {
		t, ok := object.ParseType(p.Value)
		if p.Kind != ast.Atom || !ok {
			a.errorAt(p, CodeUnknownType, fmt.Sprintf("unknown type %s", p))
			continue
		}
		fn.Params = append(fn.Params, t)
		a.emit(code.Make(code.OpParam), p)
	}
	for _, body := range args[2:] {
		a.instr(body)
	}
	fn.Instructions = a.out
	return fn
}

func (a *assembler) instr(n *ast.Node) {
	switch n.Kind {
	case ast.Atom:
		a.simple(n, n.Value, nil)
	case ast.List:
		switch head := n.Head(); head {
		case "":
			a.errorAt(n, CodeSyntax, "instruction must start with a mnemonic")
		case "block":
			a.block(n, false)
		case "loop":
			a.block(n, true)
		default:
			a.simple(n, head, n.Args())
		}
	default:
		a.errorAt(n, CodeSyntax, fmt.Sprintf("unexpected %s %s", n.Kind, n))
	}
}

func (a *assembler) simple(n *ast.Node, name string, args []*ast.Node) {
	op, ok := code.LookupName(name)
	if name == "loop" || (ok && op == code.OpBlock) {
		a.errorAt(n, CodeBadOperand, fmt.Sprintf("%s must be written as a list", name))
		return
	}
	if !ok {
		a.errorAt(n, CodeUnknownMnemonic, fmt.Sprintf("unknown mnemonic %q", name))
		return
	}
	def, _ := code.Lookup(op)

	want := 1
	if def.Operands == code.OperandNone {
		want = 0
	}
	if len(args) != want {
		a.errorAt(n, CodeBadOperand, fmt.Sprintf("%s takes %d operand(s), got %d", name, want, len(args)))
		return
	}

	switch def.Operands {
	case code.OperandNone:
		a.emit(code.Make(op), n)
	case code.OperandIndex:
		v, err := numlit.Parse(args[0].Value)
		if args[0].Kind != ast.Atom || err != nil || v.Float {
			a.errorAt(args[0], CodeBadOperand, fmt.Sprintf("%s expects an integer operand, got %s", name, args[0]))
			return
		}
		a.emit(code.Make(op, int(v.Int)), n)
	case code.OperandConst:
		if v, ok := a.constant(args[0]); ok {
			a.emit(code.Const(v), n)
		}
	case code.OperandCall:
		if args[0].Kind != ast.Atom {
			a.errorAt(args[0], CodeBadOperand, fmt.Sprintf("call expects a name, got %s", args[0]))
			return
		}
		target := args[0].Value
		idx, ok := a.names[target]
		if !ok {
			idx = code.ImportIndex
		}
		a.emit(code.Call(idx, target), n)
	}
}

// block emits the block header, then its body inline, then patches the
// header with the body extent.
func (a *assembler) block(n *ast.Node, loop bool) {
	body := n.Args()
	if !loop && len(body) > 0 && body[0].IsAtom("loop") {
		loop = true
		body = body[1:]
	}
	at := len(a.out)
	a.emit(code.Block(loop, 0, 0), n)
	for _, c := range body {
		a.instr(c)
	}
	a.out[at].A = at + 1
	a.out[at].B = len(a.out) - (at + 1)
}

func (a *assembler) constant(n *ast.Node) (object.Object, bool) {
	switch n.Kind {
	case ast.String:
		return &object.String{Value: n.Value}, true
	case ast.List:
		l := &object.List{Elements: make([]object.Object, 0, len(n.Children))}
		for _, c := range n.Children {
			v, ok := a.constant(c)
			if !ok {
				return nil, false
			}
			l.Elements = append(l.Elements, v)
		}
		return l, true
	case ast.Atom:
		switch n.Value {
		case "nil":
			return object.NilValue, true
		case "true":
			return object.True, true
		case "false":
			return object.False, true
		}
		if !numlit.LooksNumeric(n.Value) {
			break
		}
		v, err := numlit.Parse(n.Value)
		if err != nil {
			a.errorAt(n, CodeBadOperand, err.Error())
			return nil, false
		}
		if v.Float {
			return &object.Float{Value: v.F64}, true
		}
		return &object.Integer{Value: v.Int}, true
	}
	a.errorAt(n, CodeBadOperand, fmt.Sprintf("invalid constant %s", n))
	return nil, false
}

func (a *assembler) emit(ins code.Instruction, n *ast.Node) {
	a.out = append(a.out, ins)
	a.pos = append(a.pos, nodeRange(n))
}

func (a *assembler) errorAt(n *ast.Node, id, msg string) {
	a.diags = append(a.diags, diag.Errorf(id, nodeRange(n), "%s", msg))
}

func nodeRange(n *ast.Node) diag.Range {
	length := len([]rune(n.Token.Literal))
	if n.Kind == ast.List {
		length = 1
		if len(n.Children) > 0 && n.Children[0].Kind == ast.Atom {
			length += len([]rune(n.Children[0].Value))
		}
	} else if n.Token.Raw != "" {
		length = len([]rune(n.Token.Raw))
	}
	if length == 0 {
		length = 1
	}
	return diag.Range{Line: n.Token.Line, Col: n.Token.Col, Length: length}
}

// formRange covers a list from its opening to its closing paren when both
// are on one line, otherwise just the head.
func formRange(n *ast.Node) diag.Range {
	r := nodeRange(n)
	if n.End.Line == n.Token.Line && n.End.Col >= n.Token.Col {
		r.Length = n.End.Col - n.Token.Col + 1
	}
	return r
}
