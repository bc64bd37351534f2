package vm

import (
	"calx/internal/code"
	"calx/internal/object"
)

// NativeFunc is a host function. args are in push order.
type NativeFunc func(args []object.Object) (object.Object, error)

type Import struct {
	Fn    NativeFunc
	Arity int
}

// Imports binds names to host functions. Arity is checked when a call
// happens, not when the table is built.
type Imports map[string]Import

type calleeKind int

const (
	calleeUnresolved calleeKind = iota
	calleeInternal
	calleeNative
)

type callee struct {
	kind   calleeKind
	index  int
	fn     *code.Function
	native Import
}

type callSite struct {
	fn int
	pc int
}

func (m *VM) resolve(in code.Instruction) callee {
	if in.A >= 0 && in.A < len(m.funcs) {
		return callee{kind: calleeInternal, index: in.A, fn: m.funcs[in.A]}
	}
	if imp, ok := m.imports[in.Name]; ok && imp.Fn != nil {
		return callee{kind: calleeNative, native: imp}
	}
	return callee{kind: calleeUnresolved}
}

// resolveAll fixes every call site of the loaded functions up front.
func (m *VM) resolveAll() {
	for fi, fn := range m.funcs {
		for pc, in := range fn.Instructions {
			if in.Op == code.OpCall {
				m.callees[callSite{fn: fi, pc: pc}] = m.resolve(in)
			}
		}
	}
}

func (m *VM) calleeAt(frame *Frame, pc int, in code.Instruction) callee {
	if frame.fnIndex >= 0 {
		if c, ok := m.callees[callSite{fn: frame.fnIndex, pc: pc}]; ok {
			return c
		}
	}
	return m.resolve(in)
}

// call leaves frame.pc on the call instruction until the callee has been
// entered, so failures report the call site.
func (m *VM) call(frame *Frame, in code.Instruction) error {
	site := frame.pc
	c := m.calleeAt(frame, site, in)
	var err error
	switch c.kind {
	case calleeInternal:
		err = m.enter(c.fn, c.index)
	case calleeNative:
		err = m.callNative(in.Name, c.native)
	default:
		if in.A >= 0 {
			return m.outOfRange(SpaceFunction, in.A, len(m.funcs))
		}
		return m.newError(UnknownImport, "%q", in.Name)
	}
	if err != nil {
		return err
	}
	frame.pc = site + 1
	return nil
}

// enter pops fn's arguments into a new frame. Nothing is popped unless
// the arguments satisfy the signature.
func (m *VM) enter(fn *code.Function, index int) error {
	arity := fn.Arity()
	if avail := m.available(); avail < arity {
		return m.arityMismatch(fn.Name, arity, avail)
	}
	args := m.peek(arity)
	for i, want := range fn.Params {
		if got := typeOf(args[i]); got != want {
			return m.typeMismatch(want, args[i])
		}
	}

	f := NewFrame(fn, index, len(m.stack)-arity)
	copy(f.locals, args)
	if err := m.pushFrame(f); err != nil {
		return err
	}
	m.drop(arity)
	return nil
}

func (m *VM) callNative(name string, imp Import) error {
	if avail := m.available(); avail < imp.Arity {
		return m.arityMismatch(name, imp.Arity, avail)
	}
	args := append([]object.Object{}, m.peek(imp.Arity)...)
	res, err := imp.Fn(args)
	if err != nil {
		e := m.newError(ImportFailed, "%s: %v", name, err)
		e.Err = err
		return e
	}
	if res == nil {
		res = object.NilValue
	}
	m.replace(imp.Arity, res)
	return nil
}
