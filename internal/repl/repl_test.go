package repl

import (
	"bytes"
	"strings"
	"testing"

	"calx/internal/asm"
	"calx/internal/vm"
)

func runREPL(t *testing.T, input string, opts Options) string {
	t.Helper()
	var out bytes.Buffer
	if err := Start(strings.NewReader(input), &out, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out.String()
}

func TestREPL_StackPersists(t *testing.T) {
	out := runREPL(t, "(const 2)\n(const 3) i.add\n:stack\n", Options{})
	for _, want := range []string{"[2]\n", "[5]\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Count(out, "[5]\n") != 2 {
		t.Fatalf("expected :stack to repeat [5]:\n%s", out)
	}
}

func TestREPL_Continuation(t *testing.T) {
	out := runREPL(t, "(block\n  (const 1)\n  (const 2))\n", Options{})
	if !strings.Contains(out, prompt2) {
		t.Fatalf("expected a continuation prompt:\n%s", out)
	}
	if !strings.Contains(out, "[1 2]\n") {
		t.Fatalf("expected [1 2]:\n%s", out)
	}
}

func TestREPL_ErrorsKeepSession(t *testing.T) {
	out := runREPL(t, "bogus\n(const 1)\ndrop drop\n:stack\n", Options{})
	if !strings.Contains(out, `<repl>:1:1: error CA0002: unknown mnemonic "bogus"`) {
		t.Fatalf("expected assembler diagnostic:\n%s", out)
	}
	if !strings.Contains(out, "error: stack underflow") {
		t.Fatalf("expected runtime error:\n%s", out)
	}
	if !strings.HasSuffix(out, "[]\n"+prompt1+"\n") {
		t.Fatalf("expected empty stack after failed drop:\n%s", out)
	}
}

func TestREPL_Commands(t *testing.T) {
	prog, diags := asm.Assemble("(global 7) (fn double (i64) (local.get 0) (const 2) i.mul)")
	if len(diags) > 0 {
		t.Fatalf("assemble: %v", diags)
	}
	var logs bytes.Buffer
	opts := Options{
		Program: prog,
		Imports: vm.Imports{"log2": vm.LogImport(&logs, 2)},
	}
	out := runREPL(t, ":funcs\n(global.get 0) (call double)\n(const 1) (call log2)\n:globals\n:reset\n:stack\n:nope\n:quit\n(const 9)\n", opts)

	for _, want := range []string{
		"double (i64)\n",
		"[14]\n",
		"[nil]\n",
		"[7]\n",
		"reset\n",
		"unknown command :nope. Type :quit to exit.\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if logs.String() != "log: [14 1]\n" {
		t.Fatalf("unexpected log output %q", logs.String())
	}
	if strings.Contains(out, "[9]") {
		t.Fatalf("expected :quit to stop the loop:\n%s", out)
	}
}

func TestREPL_Echo(t *testing.T) {
	out := runREPL(t, "(const \"hi\") echo\n", Options{})
	if !strings.Contains(out, "hi\n[]\n") {
		t.Fatalf("expected echo before the stack:\n%s", out)
	}
}
