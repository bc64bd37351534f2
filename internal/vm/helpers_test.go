package vm

import (
	"errors"
	"io"
	"testing"

	"calx/internal/asm"
	"calx/internal/object"
)

func assemble(t *testing.T, src string, imports Imports, opts ...Option) *VM {
	t.Helper()
	prog, diags := asm.Assemble(src)
	if len(diags) > 0 {
		for _, d := range diags {
			t.Error(d.Format("test.calx"))
		}
		t.Fatalf("assembler had %d diagnostics", len(diags))
	}
	m, err := NewFromProgram(prog, imports, append([]Option{WithEcho(io.Discard)}, opts...)...)
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	return m
}

func runProgram(t *testing.T, src string, imports Imports, opts ...Option) (*VM, error) {
	t.Helper()
	m := assemble(t, src, imports, opts...)
	return m, m.Run()
}

// runMain wraps body in a parameterless main function.
func runMain(t *testing.T, body string) (*VM, error) {
	t.Helper()
	return runProgram(t, "(fn main ()\n"+body+")", nil)
}

func assertStack(t *testing.T, m *VM, want string) {
	t.Helper()
	if got := object.InspectAll(m.Stack()); got != want {
		t.Fatalf("stack wrong. want=%s, got=%s", want, got)
	}
}

func asError(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got no error", kind)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *vm.Error, got %T (%v)", err, err)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %s, got %s (%v)", kind, e.Kind, err)
	}
	return e
}
