package image

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"calx/internal/asm"
	"calx/internal/code"
	"calx/internal/object"
)

const sample = `
(global (1 "two" 3.5 (nil true)))
(global -0.0)
(fn add (i64 i64) (local.get 0) (local.get 1) i.add)
(fn main ()
  local
  (const "s") (local.set 0)
  (block loop (const false) (br-if 0) (br 0))
  (const 2) (const 3) (call add)
  (call log2)
  list.new (const 1) (list.set 0) (list.get 0)
  (const nil) (const nil) (const nil) link.new (link.get 2) drop
  global.new (global.get 0) (global.set 2)
  nop unreachable quit return)`

func assembleSample(t *testing.T) *code.Program {
	t.Helper()
	p, diags := asm.Assemble(sample)
	if len(diags) > 0 {
		t.Fatalf("assemble: %v", diags)
	}
	return p
}

func TestRoundTrip(t *testing.T) {
	p := assembleSample(t)
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !IsImage(data) {
		t.Fatalf("expected image header")
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Functions) != len(p.Functions) {
		t.Fatalf("expected %d functions, got %d", len(p.Functions), len(got.Functions))
	}
	for i := range p.Functions {
		if got.Functions[i].String() != p.Functions[i].String() {
			t.Fatalf("function %d differs.\nwant=%s\ngot=%s", i, p.Functions[i], got.Functions[i])
		}
		for j, ins := range p.Functions[i].Instructions {
			g := got.Functions[i].Instructions[j]
			if g.Op != ins.Op || g.A != ins.A || g.B != ins.B || g.Loop != ins.Loop || g.Name != ins.Name {
				t.Fatalf("%s pc=%d: want %+v, got %+v", p.Functions[i].Name, j, ins, g)
			}
		}
	}
	if got.Functions[0].Signature() != "add (i64 i64)" {
		t.Fatalf("unexpected signature %s", got.Functions[0].Signature())
	}

	if len(got.Globals) != 2 {
		t.Fatalf("expected 2 globals, got %d", len(got.Globals))
	}
	if s := code.FormatConst(got.Globals[0]); s != `(1 "two" 3.5 (nil true))` {
		t.Fatalf("unexpected global %s", s)
	}
	f, ok := got.Globals[1].(*object.Float)
	if !ok || !math.Signbit(f.Value) {
		t.Fatalf("expected negative zero, got %v", got.Globals[1])
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(assembleSample(t))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := Encode(assembleSample(t))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("expected identical encodings")
	}
}

func TestEncodeRejectsLinks(t *testing.T) {
	p := &code.Program{Globals: []object.Object{&object.Link{Ref: 0}}}
	if _, err := Encode(p); !errors.Is(err, ErrLinkValue) {
		t.Fatalf("expected ErrLinkValue, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte("nope")); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}

	data, err := Encode(&code.Program{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	bad := append([]byte{}, data...)
	bad[5] = 9
	if _, err := Decode(bad); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}

	if _, err := Decode(append(append([]byte{}, data[:headerSize]...), 0xff)); err == nil {
		t.Fatalf("expected a payload error")
	}
}

func TestDecodeRejectsUnknownOpcode(t *testing.T) {
	p := &code.Program{Functions: []*code.Function{{
		Name:         "main",
		Instructions: code.Instructions{{Op: code.Opcode(250)}},
	}}}
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(data); err == nil {
		t.Fatalf("expected unknown opcode error")
	}
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.calxb")
	if err := WriteFile(path, assembleSample(t)); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if p.FunctionIndex("main") != 1 {
		t.Fatalf("expected main at index 1, got %d", p.FunctionIndex("main"))
	}
}
