package vm

import (
	"calx/internal/code"
	"calx/internal/object"
)

// block is an open control scope. depth is the operand-stack depth at entry.
type block struct {
	loop   bool
	start  int
	length int
	depth  int
}

func (b block) end() int { return b.start + b.length }

type Frame struct {
	fn      *code.Function
	fnIndex int
	locals  []object.Object
	pc      int
	base    int
	blocks  []block
}

func NewFrame(fn *code.Function, fnIndex int, base int) *Frame {
	locals := make([]object.Object, fn.Arity()+fn.NumLocals())
	for i := range locals {
		locals[i] = object.NilValue
	}
	return &Frame{fn: fn, fnIndex: fnIndex, locals: locals, base: base}
}

func (f *Frame) Function() *code.Function { return f.fn }
func (f *Frame) PC() int                  { return f.pc }
func (f *Frame) Locals() []object.Object  { return f.locals }

func (f *Frame) pushBlock(b block) { f.blocks = append(f.blocks, b) }

// closeEnded drops every block whose extent the pc has left.
func (f *Frame) closeEnded() {
	for len(f.blocks) > 0 && f.pc >= f.blocks[len(f.blocks)-1].end() {
		f.blocks = f.blocks[:len(f.blocks)-1]
	}
}
