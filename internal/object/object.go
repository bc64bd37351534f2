package object

import (
	"bytes"
	"strconv"
)

type Type string

const (
	NIL_OBJ     Type = "nil"
	BOOLEAN_OBJ Type = "bool"
	INTEGER_OBJ Type = "i64"
	FLOAT_OBJ   Type = "f64"
	STRING_OBJ  Type = "str"
	LIST_OBJ    Type = "list"
	LINK_OBJ    Type = "link"
)

var types = []Type{NIL_OBJ, BOOLEAN_OBJ, INTEGER_OBJ, FLOAT_OBJ, STRING_OBJ, LIST_OBJ, LINK_OBJ}

// Types returns every type tag in rank order.
func Types() []Type {
	return append([]Type{}, types...)
}

// ParseType maps a tag such as "i64" back to its Type.
func ParseType(s string) (Type, bool) {
	for _, t := range types {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

func (t Type) String() string { return string(t) }

// rank orders variants for structural comparison.
func (t Type) rank() int {
	for i, x := range types {
		if x == t {
			return i
		}
	}
	return len(types)
}

type Object interface {
	Type() Type
	Inspect() string
}

type Nil struct{}

func (*Nil) Type() Type      { return NIL_OBJ }
func (*Nil) Inspect() string { return "nil" }

type Boolean struct{ Value bool }

func (*Boolean) Type() Type { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string {
	if b.Value {
		return "true"
	}
	return "false"
}

type Integer struct{ Value int64 }

func (*Integer) Type() Type        { return INTEGER_OBJ }
func (i *Integer) Inspect() string { return strconv.FormatInt(i.Value, 10) }

type Float struct{ Value float64 }

func (*Float) Type() Type { return FLOAT_OBJ }
func (f *Float) Inspect() string {
	return strconv.FormatFloat(f.Value, 'g', -1, 64)
}

type String struct{ Value string }

func (*String) Type() Type        { return STRING_OBJ }
func (s *String) Inspect() string { return s.Value }

// List is the only mutable composite. Whoever holds a *List owns it.
type List struct {
	Elements []Object
}

func (*List) Type() Type { return LIST_OBJ }
func (l *List) Inspect() string {
	var out bytes.Buffer
	out.WriteString("(")
	for i, el := range l.Elements {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(el.Inspect())
	}
	out.WriteString(")")
	return out.String()
}

// Link is a handle to a three-slot node stored in an Arena.
type Link struct{ Ref int }

func (*Link) Type() Type { return LINK_OBJ }
func (l *Link) Inspect() string {
	return "link#" + strconv.Itoa(l.Ref)
}

var (
	NilValue = &Nil{}
	True     = &Boolean{Value: true}
	False    = &Boolean{Value: false}
)

func NativeBool(b bool) *Boolean {
	if b {
		return True
	}
	return False
}

// Clone copies v so the result shares no mutable state with it.
// Scalars are immutable and returned as is; links copy the handle only.
func Clone(v Object) Object {
	switch x := v.(type) {
	case nil:
		return NilValue
	case *List:
		elems := make([]Object, len(x.Elements))
		for i, el := range x.Elements {
			elems[i] = Clone(el)
		}
		return &List{Elements: elems}
	case *Link:
		return &Link{Ref: x.Ref}
	default:
		return v
	}
}

func Inspect(v Object) string {
	if v == nil {
		return "nil"
	}
	return v.Inspect()
}

// InspectAll renders a stack-like slice as [a b c].
func InspectAll(vs []Object) string {
	var out bytes.Buffer
	out.WriteString("[")
	for i, v := range vs {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(Inspect(v))
	}
	out.WriteString("]")
	return out.String()
}
