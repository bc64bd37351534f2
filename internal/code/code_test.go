package code

import (
	"testing"

	"calx/internal/object"
)

func TestEveryOpcodeHasUniqueDefinition(t *testing.T) {
	seen := map[string]Opcode{}
	for op := OpConst; op <= OpQuit; op++ {
		def, ok := Lookup(op)
		if !ok {
			t.Fatalf("opcode %d has no definition", op)
		}
		if prev, dup := seen[def.Name]; dup {
			t.Fatalf("mnemonic %q used by %d and %d", def.Name, prev, op)
		}
		seen[def.Name] = op
		back, ok := LookupName(def.Name)
		if !ok || back != op {
			t.Fatalf("LookupName(%q) = %d, %v", def.Name, back, ok)
		}
	}
	if len(Opcodes()) != len(seen) {
		t.Fatalf("Opcodes() returned %d, want %d", len(Opcodes()), len(seen))
	}
}

func TestStackEffects(t *testing.T) {
	tests := []struct {
		ins          Instruction
		pops, pushes int
	}{
		{Const(&object.Integer{Value: 1}), 0, 1},
		{Make(OpDup), 1, 2},
		{Make(OpDrop), 1, 0},
		{Make(OpIntAdd), 2, 1},
		{Make(OpNeg), 1, 1},
		{Make(OpListSet, 0), 2, 1},
		{Make(OpNewLink), 3, 1},
		{Make(OpBrIf, 0), 1, 0},
		{Block(true, 1, 2), 0, 0},
		{Call(0, "f"), 0, 0},
		{Instruction{Op: Opcode(250)}, 0, 0},
	}
	for _, tt := range tests {
		pops, pushes := tt.ins.StackEffect()
		if pops != tt.pops || pushes != tt.pushes {
			t.Fatalf("%s: effect %d/%d, want %d/%d", tt.ins, pops, pushes, tt.pops, tt.pushes)
		}
	}
}

func TestInstructionsString(t *testing.T) {
	ins := Instructions{
		Const(&object.String{Value: "hi"}),
		Const(&object.Float{Value: 2}),
		Make(OpLocalGet, 1),
		Block(true, 4, 2),
		Block(false, 5, 0),
		Call(2, "f"),
		Call(ImportIndex, "log2"),
		Make(OpQuit),
		{Op: Opcode(250)},
	}
	expected := `0000 const "hi"
0001 const 2.0
0002 local.get 1
0003 block loop 4 2
0004 block 5 0
0005 call f #2
0006 call log2
0007 quit
0008 UNKNOWN_OPCODE 250
`
	if got := ins.String(); got != expected {
		t.Fatalf("wrong listing.\nwant=%q\ngot=%q", expected, got)
	}
}

func TestFormatConstList(t *testing.T) {
	v := &object.List{Elements: []object.Object{&object.Integer{Value: 1}, &object.String{Value: "a b"}, object.NilValue}}
	if got := FormatConst(v); got != `(1 "a b" nil)` {
		t.Fatalf("got %s", got)
	}
}

func TestFunctionString(t *testing.T) {
	fn := &Function{
		Name:   "sum",
		Params: []object.Type{object.INTEGER_OBJ, object.INTEGER_OBJ},
		Instructions: Instructions{
			Make(OpParam),
			Make(OpParam),
			Make(OpLocal),
			Make(OpLocalGet, 0),
			Make(OpLocalGet, 1),
			Make(OpIntAdd),
		},
	}
	expected := `fn sum (i64 i64)
  0000 param
  0001 param
  0002 local
  0003 local.get 0
  0004 local.get 1
  0005 i.add
`
	if got := fn.String(); got != expected {
		t.Fatalf("wrong listing.\nwant=%q\ngot=%q", expected, got)
	}
	if fn.Arity() != 2 || fn.NumLocals() != 1 {
		t.Fatalf("arity %d locals %d", fn.Arity(), fn.NumLocals())
	}
}

func TestProgramFunctionIndex(t *testing.T) {
	p := &Program{Functions: []*Function{{Name: "main"}, {Name: "f"}}}
	if p.FunctionIndex("f") != 1 || p.FunctionIndex("g") != -1 {
		t.Fatal("unexpected index")
	}
}
