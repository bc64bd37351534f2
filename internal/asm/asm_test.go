package asm

import (
	"sort"
	"testing"

	"calx/internal/code"
	"calx/internal/object"
)

func mustAssemble(t *testing.T, src string) *code.Program {
	t.Helper()
	prog, diags := Assemble(src)
	if len(diags) > 0 {
		for _, d := range diags {
			t.Error(d.Format("test.calx"))
		}
		t.Fatalf("assembler had %d diagnostics", len(diags))
	}
	return prog
}

func TestAssemble_CallsResolve(t *testing.T) {
	prog := mustAssemble(t, `
(fn main () (const 1) (call id) (call log2) (call later))
(fn id (i64) (local.get 0))
(fn later () nop)
(global "g")`)

	if len(prog.Functions) != 3 {
		t.Fatalf("expected 3 functions, got %d", len(prog.Functions))
	}
	main := prog.Functions[0].Instructions
	want := []code.Instruction{
		code.Const(&object.Integer{Value: 1}),
		code.Call(1, "id"),
		code.Call(code.ImportIndex, "log2"),
		code.Call(2, "later"),
	}
	if len(main) != len(want) {
		t.Fatalf("expected %d instructions, got %d", len(want), len(main))
	}
	for i := 1; i < len(want); i++ {
		if main[i].Op != want[i].Op || main[i].A != want[i].A || main[i].Name != want[i].Name {
			t.Fatalf("ins[%d]: expected %s, got %s", i, want[i], main[i])
		}
	}

	id := prog.Functions[1]
	if id.Arity() != 1 || id.Params[0] != object.INTEGER_OBJ {
		t.Fatalf("unexpected signature %s", id.Signature())
	}
	if id.Instructions[0].Op != code.OpParam {
		t.Fatalf("expected a param marker first, got %s", id.Instructions[0])
	}

	if len(prog.Globals) != 1 || object.Inspect(prog.Globals[0]) != "g" {
		t.Fatalf("unexpected globals %v", prog.Globals)
	}
}

func TestAssemble_BlocksFlatten(t *testing.T) {
	prog := mustAssemble(t, `
(fn main ()
  (block (const 1) (loop (br 0)) drop)
  nop)`)

	want := "fn main ()\n" +
		"  0000 block 1 4\n" +
		"  0001 const 1\n" +
		"  0002 block loop 3 1\n" +
		"  0003 br 0\n" +
		"  0004 drop\n" +
		"  0005 nop\n"
	if got := prog.Functions[0].String(); got != want {
		t.Fatalf("listing wrong.\nwant=%q\ngot=%q", want, got)
	}
}

func TestAssemble_BlockLoopKeyword(t *testing.T) {
	prog := mustAssemble(t, `(fn main () (block loop (br 0)))`)
	ins := prog.Functions[0].Instructions[0]
	if ins.Op != code.OpBlock || !ins.Loop || ins.A != 1 || ins.B != 1 {
		t.Fatalf("unexpected header %+v", ins)
	}
}

func TestAssemble_Constants(t *testing.T) {
	prog := mustAssemble(t, `(fn main ()
  (const (1 2.5 "s" nil true))
  (const -0x10)
  (const 1e2)
  (const false))`)

	ins := prog.Functions[0].Instructions
	tests := []string{
		`const (1 2.5 "s" nil true)`,
		`const -16`,
		`const 100.0`,
		`const false`,
	}
	for i, want := range tests {
		if got := ins[i].String(); got != want {
			t.Fatalf("ins[%d]: expected %q, got %q", i, want, got)
		}
	}
}

func TestAssemble_Diagnostics(t *testing.T) {
	tests := []struct {
		src  string
		code string
	}{
		{`(fn main () bogus)`, CodeUnknownMnemonic},
		{`(fn main () (local.get x))`, CodeBadOperand},
		{`(fn main () (local.get 1.5))`, CodeBadOperand},
		{`(fn main () (const 1 2))`, CodeBadOperand},
		{`(fn main () (const 0x))`, CodeBadOperand},
		{`(fn main () (const what))`, CodeBadOperand},
		{`(fn main () i.add 1)`, CodeUnknownMnemonic},
		{`(fn main () block)`, CodeBadOperand},
		{`(fn main () (drop 1))`, CodeBadOperand},
		{`(fn f ()) (fn f ())`, CodeDuplicateFunction},
		{`(fn f (i32))`, CodeUnknownType},
		{`(fn main ()`, CodeSyntax},
		{`(wat)`, CodeSyntax},
		{`(fn)`, CodeSyntax},
		{`(fn f)`, CodeSyntax},
		{`(global)`, CodeBadOperand},
	}
	for _, tt := range tests {
		_, diags := Assemble(tt.src)
		if len(diags) == 0 {
			t.Fatalf("%q: expected diagnostics", tt.src)
		}
		if diags[0].Code != tt.code {
			t.Fatalf("%q: expected %s, got %s (%s)", tt.src, tt.code, diags[0].Code, diags[0].Message)
		}
	}
}

func TestAssemble_DiagnosticPosition(t *testing.T) {
	_, diags := Assemble("(fn main ()\n  (const 1)\n  bogus)")
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}
	got := diags[0].Format("m.calx")
	want := `m.calx:3:3: error CA0002: unknown mnemonic "bogus"`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestAssembleUnit_Positions(t *testing.T) {
	u := AssembleUnit("(fn main ()\n  (const 1)\n  drop)")
	if u.HasErrors() {
		t.Fatalf("unexpected diagnostics %v", u.Diagnostics)
	}
	info, ok := u.Func("main")
	if !ok {
		t.Fatalf("main not found")
	}
	if info.NameRange.Line != 1 || info.NameRange.Col != 5 || info.NameRange.Length != 4 {
		t.Fatalf("unexpected name range %+v", info.NameRange)
	}
	if len(info.Positions) != 2 || info.Positions[1].Line != 3 || info.Positions[1].Col != 3 {
		t.Fatalf("unexpected instruction positions %+v", info.Positions)
	}
}

func TestAssembleBody_WithFunctions(t *testing.T) {
	funcs := []*code.Function{{Name: "g"}, {Name: "f"}}
	body, diags := AssembleBody(`(const 1) (call f) (call g) (call h)`, WithFunctions(funcs))
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics %v", diags)
	}
	if body[1].A != 1 || body[2].A != 0 || body[3].A != code.ImportIndex {
		t.Fatalf("unexpected call targets %v", code.Instructions(body))
	}
}

func TestMnemonics(t *testing.T) {
	names := Mnemonics()
	if !sort.StringsAreSorted(names) {
		t.Fatalf("mnemonics not sorted: %v", names)
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range []string{"loop", "block", "i.add", "br-if", "list.new", "echo"} {
		if !seen[want] {
			t.Fatalf("missing mnemonic %q", want)
		}
	}
}
