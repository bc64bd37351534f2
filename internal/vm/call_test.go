package vm

import (
	"bytes"
	"errors"
	"testing"

	"calx/internal/object"
)

func intArgs(args []object.Object) []int64 {
	out := make([]int64, len(args))
	for i, a := range args {
		if n, ok := a.(*object.Integer); ok {
			out[i] = n.Value
		}
	}
	return out
}

func testImports() Imports {
	return Imports{
		"sub": {Arity: 2, Fn: func(args []object.Object) (object.Object, error) {
			v := intArgs(args)
			return &object.Integer{Value: v[0] - v[1]}, nil
		}},
		"void": {Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
			return nil, nil
		}},
	}
}

func TestImportCall(t *testing.T) {
	m, err := runProgram(t, "(fn main () (const 10) (const 3) (call sub))", testImports())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertStack(t, m, "[7]")

	m, err = runProgram(t, "(fn main () (const 1) (call void))", testImports())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertStack(t, m, "[nil]")
}

func TestImportArity(t *testing.T) {
	m, err := runProgram(t, "(fn main () (const 10) (call sub))", testImports())
	e := asError(t, err, ArityMismatch)
	if e.Want != 2 || e.Got != 1 {
		t.Fatalf("expected 2/1, got %d/%d", e.Want, e.Got)
	}
	assertStack(t, m, "[10]")

	// A callee's import call only sees its own frame.
	src := "(fn f (i64) (local.get 0) (call sub)) (fn main () (const 1) (const 2) (call f))"
	_, err = runProgram(t, src, testImports())
	asError(t, err, ArityMismatch)
}

func TestUnknownImport(t *testing.T) {
	m, err := runProgram(t, "(fn main () (const 1) (call nothing))", testImports())
	e := asError(t, err, UnknownImport)
	if e.PC != 1 {
		t.Fatalf("expected the call site pc=1, got %d", e.PC)
	}
	assertStack(t, m, "[1]")
}

func TestImportFailed(t *testing.T) {
	boom := errors.New("boom")
	imports := Imports{"fail": {Arity: 1, Fn: func([]object.Object) (object.Object, error) {
		return nil, boom
	}}}
	m, err := runProgram(t, "(fn main () (const 1) (call fail))", imports)
	asError(t, err, ImportFailed)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the host error to be wrapped, got %v", err)
	}
	assertStack(t, m, "[1]")
}

func TestImportArgsAreCopies(t *testing.T) {
	imports := Imports{"poke": {Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		args[0].(*object.List).Elements[0] = &object.Integer{Value: 99}
		return nil, nil
	}}}
	src := "(global (1)) (fn main () (global.get 0) (call poke) drop (global.get 0))"
	m, err := runProgram(t, src, imports)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertStack(t, m, "[(1)]")
}

func TestLogImport(t *testing.T) {
	var out bytes.Buffer
	imports := Imports{"log2": LogImport(&out, 2)}
	m, err := runProgram(t, `(fn main () (const 1) (const "a") (call log2))`, imports)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "log: [1 a]\n" {
		t.Fatalf("unexpected log output %q", out.String())
	}
	assertStack(t, m, "[nil]")
}

func TestImportsMerge(t *testing.T) {
	a := Imports{"x": {Arity: 1}, "y": {Arity: 1}}
	b := Imports{"y": {Arity: 2}}
	got := a.Merge(b)
	if len(got) != 2 || got["y"].Arity != 2 {
		t.Fatalf("unexpected merge %v", got)
	}
	if a["y"].Arity != 1 {
		t.Fatalf("merge modified its receiver")
	}
}
