package vm

import (
	"fmt"
	"io"

	"calx/internal/object"
)

// LogImport prints its arguments as "log: [a b]" and returns nil.
func LogImport(w io.Writer, arity int) Import {
	return Import{
		Arity: arity,
		Fn: func(args []object.Object) (object.Object, error) {
			if _, err := fmt.Fprintf(w, "log: %s\n", object.InspectAll(args)); err != nil {
				return nil, err
			}
			return object.NilValue, nil
		},
	}
}

// Merge returns the union of tables; later tables win on name clashes.
func (imp Imports) Merge(others ...Imports) Imports {
	out := Imports{}
	for name, i := range imp {
		out[name] = i
	}
	for _, o := range others {
		for name, i := range o {
			out[name] = i
		}
	}
	return out
}
