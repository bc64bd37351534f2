package code

import (
	"bytes"
	"fmt"
	"strconv"

	"calx/internal/object"
)

type Instructions []Instruction

func (ins Instruction) String() string {
	def, ok := Lookup(ins.Op)
	if !ok {
		return fmt.Sprintf("UNKNOWN_OPCODE %d", ins.Op)
	}
	switch def.Operands {
	case OperandIndex:
		return fmt.Sprintf("%s %d", def.Name, ins.A)
	case OperandConst:
		return def.Name + " " + FormatConst(ins.Const)
	case OperandBlock:
		if ins.Loop {
			return fmt.Sprintf("%s loop %d %d", def.Name, ins.A, ins.B)
		}
		return fmt.Sprintf("%s %d %d", def.Name, ins.A, ins.B)
	case OperandCall:
		if ins.A == ImportIndex {
			return fmt.Sprintf("%s %s", def.Name, ins.Name)
		}
		return fmt.Sprintf("%s %s #%d", def.Name, ins.Name, ins.A)
	}
	return def.Name
}

func (ins Instructions) String() string {
	var out bytes.Buffer
	for i, in := range ins {
		fmt.Fprintf(&out, "%04d %s\n", i, in.String())
	}
	return out.String()
}

// FormatConst renders a constant so that it reads back as the same value.
// Strings are quoted, unlike object display.
func FormatConst(v object.Object) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case *object.String:
		return strconv.Quote(x.Value)
	case *object.Float:
		s := x.Inspect()
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			s += ".0"
		}
		return s
	case *object.List:
		var out bytes.Buffer
		out.WriteString("(")
		for i, el := range x.Elements {
			if i > 0 {
				out.WriteString(" ")
			}
			out.WriteString(FormatConst(el))
		}
		out.WriteString(")")
		return out.String()
	}
	return v.Inspect()
}
