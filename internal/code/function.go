package code

import (
	"bytes"
	"fmt"
	"strings"

	"calx/internal/object"
)

// Function is the unit of call dispatch. It is not modified after load.
type Function struct {
	Name         string
	Params       []object.Type
	Instructions Instructions
}

func (f *Function) Arity() int { return len(f.Params) }

// NumLocals counts local declarations in the body.
func (f *Function) NumLocals() int {
	n := 0
	for _, ins := range f.Instructions {
		if ins.Op == OpLocal {
			n++
		}
	}
	return n
}

// Signature renders "name (i64 str)".
func (f *Function) Signature() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s (%s)", f.Name, strings.Join(params, " "))
}

func (f *Function) String() string {
	var out bytes.Buffer
	out.WriteString("fn ")
	out.WriteString(f.Signature())
	out.WriteString("\n")
	for i, ins := range f.Instructions {
		fmt.Fprintf(&out, "  %04d %s\n", i, ins.String())
	}
	return out.String()
}

// Program is what an assembler produces and what an image stores.
type Program struct {
	Functions []*Function
	Globals   []object.Object
}

// FunctionIndex returns the table index of name, or -1.
func (p *Program) FunctionIndex(name string) int {
	for i, f := range p.Functions {
		if f.Name == name {
			return i
		}
	}
	return -1
}
