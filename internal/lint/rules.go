package lint

import (
	"fmt"

	"calx/internal/asm"
	"calx/internal/code"
	"calx/internal/diag"
)

const (
	CodeUnreachable = "CL0001"
	CodeUnusedLocal = "CL0002"
)

type Runner struct {
	diags []diag.Diagnostic
	opts  Options
}

func (r *Runner) warn(rng diag.Range, code string, msg string) {
	if rng.Length <= 0 {
		rng.Length = 1
	}
	r.diags = append(r.diags, diag.Warnf(code, rng, "%s", msg))
}

func (r *Runner) checkFunction(fn *code.Function, info asm.FuncInfo) {
	pos := func(pc int) diag.Range {
		if pc >= 0 && pc < len(info.Positions) {
			return info.Positions[pc]
		}
		return info.Range
	}
	r.checkUnreachable(fn, pos)
	if r.opts.CheckUnusedLocals {
		r.checkUnusedLocals(fn, pos)
	}
}

func terminates(op code.Opcode) bool {
	switch op {
	case code.OpBr, code.OpReturn, code.OpQuit, code.OpUnreachable:
		return true
	}
	return false
}

// checkUnreachable reports the first instruction after a terminator in
// each block extent and skips the rest of that extent.
func (r *Runner) checkUnreachable(fn *code.Function, pos func(int) diag.Range) {
	ins := fn.Instructions
	ends := []int{len(ins)}
	for pc := 0; pc < len(ins); pc++ {
		for len(ends) > 1 && pc >= ends[len(ends)-1] {
			ends = ends[:len(ends)-1]
		}
		in := ins[pc]
		if in.Op == code.OpBlock {
			ends = append(ends, min(in.A+in.B, len(ins)))
			continue
		}
		if !terminates(in.Op) {
			continue
		}
		end := ends[len(ends)-1]
		if pc+1 < end {
			r.warn(pos(pc+1), CodeUnreachable, fmt.Sprintf("unreachable code after %s in %s", in.Op, fn.Name))
			pc = end - 1
		}
	}
}

func (r *Runner) checkUnusedLocals(fn *code.Function, pos func(int) diag.Range) {
	read := map[int]bool{}
	for _, in := range fn.Instructions {
		if in.Op == code.OpLocalGet {
			read[in.A] = true
		}
	}
	slot := fn.Arity()
	for pc, in := range fn.Instructions {
		if in.Op != code.OpLocal {
			continue
		}
		if !read[slot] {
			r.warn(pos(pc), CodeUnusedLocal, fmt.Sprintf("local %d of %s is never read", slot, fn.Name))
		}
		slot++
	}
}
