package vm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"calx/internal/code"
	"calx/internal/limits"
	"calx/internal/object"
)

const DefaultEntry = "main"

// VM owns everything a run touches. It must not be used from more than
// one goroutine at a time; separate VMs share nothing.
type VM struct {
	funcs   []*code.Function
	index   map[string]int
	callees map[callSite]callee
	imports Imports

	globals []object.Object
	stack   []object.Object
	frames  []*Frame
	arena   *object.Arena

	entry  string
	echo   io.Writer
	budget *limits.Budget
	halted bool
}

type Option func(*VM)

func WithEntry(name string) Option {
	return func(m *VM) { m.entry = name }
}

func WithEcho(w io.Writer) Option {
	return func(m *VM) {
		if w != nil {
			m.echo = w
		}
	}
}

// WithMaxFrames bounds call depth. Zero means unlimited.
func WithMaxFrames(n int) Option {
	return func(m *VM) { m.budget = limits.NewBudget(int64(n)) }
}

func New(funcs []*code.Function, globals []object.Object, imports Imports, opts ...Option) (*VM, error) {
	m := &VM{
		funcs:   funcs,
		index:   make(map[string]int, len(funcs)),
		callees: map[callSite]callee{},
		imports: imports,
		globals: append([]object.Object{}, globals...),
		stack:   make([]object.Object, 0, 64),
		arena:   object.NewArena(),
		entry:   DefaultEntry,
		echo:    os.Stdout,
		budget:  limits.NewBudget(0),
	}
	if m.imports == nil {
		m.imports = Imports{}
	}
	for i, fn := range funcs {
		if fn == nil {
			return nil, fmt.Errorf("function %d is nil", i)
		}
		if _, dup := m.index[fn.Name]; dup {
			return nil, fmt.Errorf("duplicate function %q", fn.Name)
		}
		m.index[fn.Name] = i
	}
	for name, imp := range m.imports {
		if imp.Arity < 0 {
			return nil, fmt.Errorf("import %q has negative arity", name)
		}
	}
	for i, g := range m.globals {
		if g == nil {
			m.globals[i] = object.NilValue
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	m.resolveAll()
	return m, nil
}

// NewFromProgram is New for an assembled or decoded program.
func NewFromProgram(p *code.Program, imports Imports, opts ...Option) (*VM, error) {
	return New(p.Functions, p.Globals, imports, opts...)
}

func (m *VM) Functions() []*code.Function { return m.funcs }
func (m *VM) Stack() []object.Object      { return m.stack }
func (m *VM) Globals() []object.Object    { return m.globals }
func (m *VM) Arena() *object.Arena        { return m.arena }

// Push seeds the operand stack, e.g. with arguments for the entry function.
func (m *VM) Push(v object.Object) {
	if v == nil {
		v = object.NilValue
	}
	m.stack = append(m.stack, v)
}

// ResetStack empties the operand stack.
func (m *VM) ResetStack() {
	clear(m.stack)
	m.stack = m.stack[:0]
}

// Run calls the entry function and executes until it returns or quits.
// On failure the stack is left as it was at the failing instruction.
func (m *VM) Run() error {
	m.resetFrames()
	idx, ok := m.index[m.entry]
	if !ok {
		return m.newError(UnknownFunction, "entry %q", m.entry)
	}
	if err := m.enter(m.funcs[idx], idx); err != nil {
		return err
	}
	return m.run()
}

// Eval runs body as a parameterless top-level function against the
// current stack and globals.
func (m *VM) Eval(body []code.Instruction) error {
	fn := &code.Function{Name: "<eval>", Instructions: body}
	m.resetFrames()
	if err := m.enter(fn, -1); err != nil {
		return err
	}
	// The eval frame owns the whole stack, including values left by
	// earlier inputs.
	m.currentFrame().base = 0
	return m.run()
}

func (m *VM) currentFrame() *Frame {
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}

func (m *VM) pushFrame(f *Frame) error {
	if err := m.budget.Charge(1); err != nil {
		var le limits.LimitError
		if errors.As(err, &le) {
			return m.newError(CallDepthExceeded, "%d frames", le.Limit)
		}
		return m.newError(CallDepthExceeded, "%v", err)
	}
	m.frames = append(m.frames, f)
	return nil
}

func (m *VM) popFrame() *Frame {
	f := m.frames[len(m.frames)-1]
	m.frames[len(m.frames)-1] = nil
	m.frames = m.frames[:len(m.frames)-1]
	m.budget.Release(1)
	return f
}

func (m *VM) resetFrames() {
	for len(m.frames) > 0 {
		m.popFrame()
	}
	m.halted = false
}

// available is how many values the current frame may pop.
func (m *VM) available() int {
	base := 0
	if f := m.currentFrame(); f != nil {
		base = f.base
	}
	return len(m.stack) - base
}

func (m *VM) push(v object.Object) {
	m.stack = append(m.stack, v)
}

func (m *VM) pop() object.Object {
	v := m.stack[len(m.stack)-1]
	m.stack[len(m.stack)-1] = nil
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

// peek returns the top n values in push order without removing them.
func (m *VM) peek(n int) []object.Object {
	return m.stack[len(m.stack)-n:]
}

func (m *VM) drop(n int) {
	top := len(m.stack) - n
	clear(m.stack[top:])
	m.stack = m.stack[:top]
}

// replace pops n values and pushes v in their place.
func (m *VM) replace(n int, v object.Object) {
	m.drop(n)
	m.push(v)
}

func (m *VM) truncate(depth int) {
	if depth < len(m.stack) {
		clear(m.stack[depth:])
		m.stack = m.stack[:depth]
	}
}

func (m *VM) run() error {
	for len(m.frames) > 0 && !m.halted {
		frame := m.currentFrame()
		frame.closeEnded()
		ins := frame.fn.Instructions
		if frame.pc >= len(ins) {
			m.popFrame()
			continue
		}

		in := ins[frame.pc]
		def, ok := code.Lookup(in.Op)
		if !ok {
			return m.newError(InvalidOperand, "unknown opcode %d", in.Op)
		}
		if def.Pops > m.available() {
			return m.underflow(def.Pops)
		}

		if err := m.exec(frame, in); err != nil {
			return err
		}
	}
	if m.halted {
		m.resetFrames()
	}
	return nil
}

// exec performs one instruction. Instructions that redirect control set
// the pc themselves; all others advance it by one.
func (m *VM) exec(frame *Frame, in code.Instruction) error {
	switch in.Op {
	case code.OpBr, code.OpBrIf, code.OpBlock:
		return m.execControl(frame, in)

	case code.OpCall:
		return m.call(frame, in)

	case code.OpReturn:
		m.popFrame()
		return nil

	case code.OpQuit:
		m.halted = true
		return nil

	case code.OpUnreachable:
		return m.newError(UnreachableExecuted, "")
	}

	if err := m.execSimple(frame, in); err != nil {
		return err
	}
	frame.pc++
	return nil
}

func (m *VM) execSimple(frame *Frame, in code.Instruction) error {
	switch in.Op {
	case code.OpNop, code.OpParam, code.OpLocal:
		return nil

	case code.OpConst:
		m.push(object.Clone(in.Const))

	case code.OpDup:
		m.push(object.Clone(m.stack[len(m.stack)-1]))

	case code.OpDrop:
		m.pop()

	case code.OpLocalGet:
		if in.A < 0 || in.A >= len(frame.locals) {
			return m.outOfRange(SpaceLocals, in.A, len(frame.locals))
		}
		m.push(object.Clone(frame.locals[in.A]))

	case code.OpLocalSet:
		if in.A < 0 || in.A >= len(frame.locals) {
			return m.outOfRange(SpaceLocals, in.A, len(frame.locals))
		}
		frame.locals[in.A] = m.pop()

	case code.OpGlobalGet:
		if in.A < 0 || in.A >= len(m.globals) {
			return m.outOfRange(SpaceGlobals, in.A, len(m.globals))
		}
		m.push(object.Clone(m.globals[in.A]))

	case code.OpGlobalSet:
		if in.A < 0 || in.A >= len(m.globals) {
			return m.outOfRange(SpaceGlobals, in.A, len(m.globals))
		}
		m.globals[in.A] = m.pop()

	case code.OpGlobalNew:
		m.globals = append(m.globals, object.NilValue)

	case code.OpEcho:
		v := m.pop()
		fmt.Fprintln(m.echo, object.Inspect(v))

	case code.OpNewList, code.OpListGet, code.OpListSet,
		code.OpNewLink, code.OpLinkGet, code.OpLinkSet:
		return m.execComposite(in)

	default:
		return m.execArith(in)
	}
	return nil
}
