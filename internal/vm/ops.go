package vm

import (
	"calx/internal/code"
	"calx/internal/object"
)

// Operands are inspected in place and only popped once every check has
// passed, so a failing instruction leaves the stack untouched.

func (m *VM) execArith(in code.Instruction) error {
	switch in.Op {
	case code.OpIntAdd, code.OpIntMul, code.OpIntRem, code.OpIntShl, code.OpIntShr:
		return m.intBinary(in.Op)
	case code.OpIntEq, code.OpIntNe, code.OpIntLt, code.OpIntLe, code.OpIntGt, code.OpIntGe:
		return m.intCompare(in.Op)
	case code.OpIntNeg:
		x, ok := m.peek(1)[0].(*object.Integer)
		if !ok {
			return m.typeMismatch(object.INTEGER_OBJ, m.peek(1)[0])
		}
		m.replace(1, &object.Integer{Value: -x.Value})
		return nil
	case code.OpAdd, code.OpMul, code.OpDiv:
		return m.numBinary(in.Op)
	case code.OpNeg:
		switch x := m.peek(1)[0].(type) {
		case *object.Integer:
			m.replace(1, &object.Integer{Value: -x.Value})
		case *object.Float:
			m.replace(1, &object.Float{Value: -x.Value})
		default:
			return m.typeMismatch(object.INTEGER_OBJ, x)
		}
		return nil
	case code.OpEq:
		args := m.peek(2)
		m.replace(2, object.NativeBool(object.Equal(args[0], args[1])))
		return nil
	case code.OpAnd, code.OpOr:
		return m.boolBinary(in.Op)
	case code.OpNot:
		b, ok := m.peek(1)[0].(*object.Boolean)
		if !ok {
			return m.typeMismatch(object.BOOLEAN_OBJ, m.peek(1)[0])
		}
		m.replace(1, object.NativeBool(!b.Value))
		return nil
	}
	return m.newError(InvalidOperand, "unhandled opcode %s", in.Op)
}

func (m *VM) intOperands() (int64, int64, error) {
	args := m.peek(2)
	a, ok := args[0].(*object.Integer)
	if !ok {
		return 0, 0, m.typeMismatch(object.INTEGER_OBJ, args[0])
	}
	b, ok := args[1].(*object.Integer)
	if !ok {
		return 0, 0, m.typeMismatch(object.INTEGER_OBJ, args[1])
	}
	return a.Value, b.Value, nil
}

func (m *VM) intBinary(op code.Opcode) error {
	a, b, err := m.intOperands()
	if err != nil {
		return err
	}
	var r int64
	switch op {
	case code.OpIntAdd:
		r = a + b
	case code.OpIntMul:
		r = a * b
	case code.OpIntRem:
		if b == 0 {
			return m.newError(InvalidOperand, "remainder by zero")
		}
		r = a % b
	case code.OpIntShl, code.OpIntShr:
		if b < 0 {
			return m.newError(InvalidOperand, "negative shift count %d", b)
		}
		if op == code.OpIntShl {
			r = a << uint64(b)
		} else {
			r = a >> uint64(b)
		}
	}
	m.replace(2, &object.Integer{Value: r})
	return nil
}

func (m *VM) intCompare(op code.Opcode) error {
	a, b, err := m.intOperands()
	if err != nil {
		return err
	}
	var r bool
	switch op {
	case code.OpIntEq:
		r = a == b
	case code.OpIntNe:
		r = a != b
	case code.OpIntLt:
		r = a < b
	case code.OpIntLe:
		r = a <= b
	case code.OpIntGt:
		r = a > b
	case code.OpIntGe:
		r = a >= b
	}
	m.replace(2, object.NativeBool(r))
	return nil
}

// numBinary requires both operands to carry the first operand's tag.
func (m *VM) numBinary(op code.Opcode) error {
	args := m.peek(2)
	switch a := args[0].(type) {
	case *object.Integer:
		b, ok := args[1].(*object.Integer)
		if !ok {
			return m.typeMismatch(object.INTEGER_OBJ, args[1])
		}
		var r int64
		switch op {
		case code.OpAdd:
			r = a.Value + b.Value
		case code.OpMul:
			r = a.Value * b.Value
		case code.OpDiv:
			if b.Value == 0 {
				return m.newError(InvalidOperand, "integer division by zero")
			}
			r = a.Value / b.Value
		}
		m.replace(2, &object.Integer{Value: r})
	case *object.Float:
		b, ok := args[1].(*object.Float)
		if !ok {
			return m.typeMismatch(object.FLOAT_OBJ, args[1])
		}
		var r float64
		switch op {
		case code.OpAdd:
			r = a.Value + b.Value
		case code.OpMul:
			r = a.Value * b.Value
		case code.OpDiv:
			r = a.Value / b.Value
		}
		m.replace(2, &object.Float{Value: r})
	default:
		return m.typeMismatch(object.INTEGER_OBJ, args[0])
	}
	return nil
}

func (m *VM) boolBinary(op code.Opcode) error {
	args := m.peek(2)
	a, ok := args[0].(*object.Boolean)
	if !ok {
		return m.typeMismatch(object.BOOLEAN_OBJ, args[0])
	}
	b, ok := args[1].(*object.Boolean)
	if !ok {
		return m.typeMismatch(object.BOOLEAN_OBJ, args[1])
	}
	if op == code.OpAnd {
		m.replace(2, object.NativeBool(a.Value && b.Value))
	} else {
		m.replace(2, object.NativeBool(a.Value || b.Value))
	}
	return nil
}

func (m *VM) execComposite(in code.Instruction) error {
	switch in.Op {
	case code.OpNewList:
		m.push(&object.List{})

	case code.OpListGet:
		l, ok := m.peek(1)[0].(*object.List)
		if !ok {
			return m.typeMismatch(object.LIST_OBJ, m.peek(1)[0])
		}
		if in.A < 0 || in.A >= len(l.Elements) {
			return m.outOfRange(SpaceSequence, in.A, len(l.Elements))
		}
		m.replace(1, l.Elements[in.A])

	case code.OpListSet:
		args := m.peek(2)
		l, ok := args[0].(*object.List)
		if !ok {
			return m.typeMismatch(object.LIST_OBJ, args[0])
		}
		switch {
		case in.A >= 0 && in.A < len(l.Elements):
			l.Elements[in.A] = args[1]
		case in.A == len(l.Elements):
			l.Elements = append(l.Elements, args[1])
		default:
			return m.outOfRange(SpaceSequence, in.A, len(l.Elements))
		}
		m.replace(2, l)

	case code.OpNewLink:
		args := m.peek(3)
		link := m.arena.Alloc(args[0], args[1], args[2])
		m.replace(3, link)

	case code.OpLinkGet:
		l, ok := m.peek(1)[0].(*object.Link)
		if !ok {
			return m.typeMismatch(object.LINK_OBJ, m.peek(1)[0])
		}
		if in.A < 0 || in.A >= object.LinkSlots {
			return m.outOfRange(SpaceSlot, in.A, object.LinkSlots)
		}
		v, err := m.arena.Get(l, in.A)
		if err != nil {
			return m.newError(InvalidOperand, "%v", err)
		}
		m.replace(1, v)

	case code.OpLinkSet:
		args := m.peek(2)
		l, ok := args[0].(*object.Link)
		if !ok {
			return m.typeMismatch(object.LINK_OBJ, args[0])
		}
		if in.A < 0 || in.A >= object.LinkSlots {
			return m.outOfRange(SpaceSlot, in.A, object.LinkSlots)
		}
		if err := m.arena.Set(l, in.A, args[1]); err != nil {
			return m.newError(InvalidOperand, "%v", err)
		}
		m.replace(2, l)
	}
	return nil
}
