package vm

import (
	"calx/internal/code"
	"calx/internal/object"
)

func (m *VM) execControl(frame *Frame, in code.Instruction) error {
	switch in.Op {
	case code.OpBlock:
		n := len(frame.fn.Instructions)
		if in.A < 0 || in.B < 0 || in.A > n || in.A+in.B > n {
			return m.outOfRange(SpaceBlock, in.A+in.B, n)
		}
		// A body must start after its header.
		if in.A <= frame.pc {
			return m.outOfRange(SpaceBlock, in.A, n)
		}
		frame.pushBlock(block{
			loop:   in.Loop,
			start:  in.A,
			length: in.B,
			depth:  len(m.stack),
		})
		frame.pc = in.A
		return nil

	case code.OpBr:
		return m.branch(frame, in.A)

	case code.OpBrIf:
		cond, ok := m.peek(1)[0].(*object.Boolean)
		if !ok {
			return m.typeMismatch(object.BOOLEAN_OBJ, m.peek(1)[0])
		}
		if in.A < 0 || in.A >= len(frame.blocks) {
			return m.depthExceeded(frame, in.A)
		}
		m.pop()
		if !cond.Value {
			frame.pc++
			return nil
		}
		return m.branch(frame, in.A)
	}
	return nil
}

// branch targets the open block depth levels out from the innermost.
// A loop restarts its body; any other block is left.
func (m *VM) branch(frame *Frame, depth int) error {
	if depth < 0 || depth >= len(frame.blocks) {
		return m.depthExceeded(frame, depth)
	}
	idx := len(frame.blocks) - 1 - depth
	target := frame.blocks[idx]
	m.truncate(target.depth)
	if target.loop {
		frame.blocks = frame.blocks[:idx+1]
		frame.pc = target.start
		return nil
	}
	frame.blocks = frame.blocks[:idx]
	frame.pc = target.end()
	return nil
}

func (m *VM) depthExceeded(frame *Frame, depth int) *Error {
	e := m.newError(BlockDepthExceeded, "depth %d with %d open block(s)", depth, len(frame.blocks))
	e.Index = depth
	return e
}
