package vm

import (
	"fmt"
	"strings"

	"calx/internal/code"
	"calx/internal/object"
)

// RecentStackSize bounds how many top-of-stack values an Error keeps.
const RecentStackSize = 8

type Kind int

const (
	StackUnderflow Kind = iota + 1
	TypeMismatch
	IndexOutOfRange
	ArityMismatch
	UnknownImport
	UnknownFunction
	BlockDepthExceeded
	UnreachableExecuted
	InvalidOperand
	ImportFailed
	CallDepthExceeded
)

var kindNames = map[Kind]string{
	StackUnderflow:      "stack underflow",
	TypeMismatch:        "type mismatch",
	IndexOutOfRange:     "index out of range",
	ArityMismatch:       "arity mismatch",
	UnknownImport:       "unknown import",
	UnknownFunction:     "unknown function",
	BlockDepthExceeded:  "block depth exceeded",
	UnreachableExecuted: "unreachable executed",
	InvalidOperand:      "invalid operand",
	ImportFailed:        "import failed",
	CallDepthExceeded:   "call depth exceeded",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error lets a Kind be used as an errors.Is target.
func (k Kind) Error() string { return k.String() }

// Space names the index space an IndexOutOfRange refers to.
type Space string

const (
	SpaceLocals   Space = "locals"
	SpaceGlobals  Space = "globals"
	SpaceSequence Space = "sequence"
	SpaceFunction Space = "function"
	SpaceBlock    Space = "block"
	SpaceSlot     Space = "slot"
)

// Error is the failure record of a run. It keeps the context of the
// frame that was executing when the failure happened.
type Error struct {
	Kind    Kind
	Message string

	Function     string
	PC           int
	Instructions code.Instructions
	RecentStack  []object.Object
	Trace        []string

	Expected object.Type
	Found    object.Type
	Space    Space
	Index    int
	Want     int
	Got      int

	Err error
}

func (e *Error) Error() string {
	var out strings.Builder
	out.WriteString("error: ")
	out.WriteString(e.Message)
	if e.Function != "" {
		fmt.Fprintf(&out, "\n  at %s pc=%d", e.Function, e.PC)
		if e.PC >= 0 && e.PC < len(e.Instructions) {
			fmt.Fprintf(&out, " (%s)", e.Instructions[e.PC])
		}
	}
	for _, name := range e.Trace[min(1, len(e.Trace)):] {
		fmt.Fprintf(&out, "\n  from %s", name)
	}
	out.WriteString("\nrecent stack: ")
	out.WriteString(object.InspectAll(e.RecentStack))
	return out.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Window returns up to radius instructions on each side of the failing pc.
func (e *Error) Window(radius int) code.Instructions {
	if len(e.Instructions) == 0 {
		return nil
	}
	lo := max(0, e.PC-radius)
	hi := min(len(e.Instructions), e.PC+radius+1)
	if lo >= hi {
		return nil
	}
	return e.Instructions[lo:hi]
}

func (m *VM) newError(kind Kind, format string, args ...any) *Error {
	e := &Error{
		Kind:    kind,
		Message: kind.String(),
		PC:      -1,
	}
	if format != "" {
		e.Message += ": " + fmt.Sprintf(format, args...)
	}
	if f := m.currentFrame(); f != nil {
		e.Function = f.fn.Name
		e.PC = f.pc
		e.Instructions = f.fn.Instructions
	}
	for i := len(m.frames) - 1; i >= 0; i-- {
		e.Trace = append(e.Trace, m.frames[i].fn.Name)
	}
	n := min(len(m.stack), RecentStackSize)
	e.RecentStack = append([]object.Object{}, m.stack[len(m.stack)-n:]...)
	return e
}

func (m *VM) underflow(need int) *Error {
	return m.newError(StackUnderflow, "need %d value(s), have %d", need, m.available())
}

func (m *VM) typeMismatch(expected object.Type, found object.Object) *Error {
	e := m.newError(TypeMismatch, "expected %s, found %s", expected, typeOf(found))
	e.Expected = expected
	e.Found = typeOf(found)
	return e
}

func (m *VM) outOfRange(space Space, index, length int) *Error {
	e := m.newError(IndexOutOfRange, "%s index %d, length %d", space, index, length)
	e.Space = space
	e.Index = index
	return e
}

func (m *VM) arityMismatch(name string, want, got int) *Error {
	e := m.newError(ArityMismatch, "%s expects %d argument(s), %d supplied", name, want, got)
	e.Want = want
	e.Got = got
	return e
}

func typeOf(v object.Object) object.Type {
	if v == nil {
		return object.NIL_OBJ
	}
	return v.Type()
}
