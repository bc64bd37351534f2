package lint

import (
	"calx/internal/asm"
	"calx/internal/diag"
)

type Options struct {
	CheckUnusedLocals bool
}

func DefaultOptions() Options {
	return Options{CheckUnusedLocals: true}
}

type Linter struct {
	opts Options
}

func New() *Linter {
	return &Linter{opts: DefaultOptions()}
}

func NewWithOptions(opts Options) *Linter {
	return &Linter{opts: opts}
}

func Run(unit *asm.Unit) []diag.Diagnostic {
	return New().Run(unit)
}

func RunWithOptions(unit *asm.Unit, opts Options) []diag.Diagnostic {
	return NewWithOptions(opts).Run(unit)
}

// Run checks every function of unit. Units with assembler errors are still
// linted; only the functions that assembled are inspected.
func (l *Linter) Run(unit *asm.Unit) []diag.Diagnostic {
	if unit == nil || unit.Program == nil {
		return nil
	}
	r := &Runner{opts: l.opts}
	for i, fn := range unit.Program.Functions {
		if i >= len(unit.Funcs) {
			break
		}
		r.checkFunction(fn, unit.Funcs[i])
	}
	return r.diags
}
