package code

import (
	"fmt"

	"calx/internal/object"
)

type Opcode byte

const (
	OpConst Opcode = iota // push Const
	OpDup
	OpDrop

	OpParam // declaration marker, no runtime effect
	OpLocal // declaration marker, sizes the locals array
	OpLocalGet
	OpLocalSet
	OpGlobalGet
	OpGlobalSet
	OpGlobalNew

	OpIntAdd
	OpIntMul
	OpIntRem
	OpIntNeg
	OpIntShl
	OpIntShr

	OpIntEq
	OpIntNe
	OpIntLt
	OpIntLe
	OpIntGt
	OpIntGe

	OpAdd
	OpMul
	OpDiv
	OpNeg

	OpEq

	OpNewList
	OpListGet
	OpListSet

	OpNewLink
	OpLinkGet
	OpLinkSet

	OpAnd
	OpOr
	OpNot

	OpBr   // operand: depth
	OpBrIf // operand: depth
	OpBlock

	OpEcho
	OpCall
	OpReturn
	OpUnreachable
	OpNop
	OpQuit
)

// OperandKind describes which immediates an instruction carries.
type OperandKind int

const (
	OperandNone  OperandKind = iota
	OperandIndex             // A
	OperandConst             // Const
	OperandBlock             // Loop, A (start), B (length)
	OperandCall              // A (callee index), Name
)

type Definition struct {
	Name     string
	Operands OperandKind
	Pops     int
	Pushes   int
	Doc      string
}

var definitions = map[Opcode]*Definition{
	OpConst:       {"const", OperandConst, 0, 1, "push a constant"},
	OpDup:         {"dup", OperandNone, 1, 2, "duplicate the top value"},
	OpDrop:        {"drop", OperandNone, 1, 0, "discard the top value"},
	OpParam:       {"param", OperandNone, 0, 0, "declare a parameter slot"},
	OpLocal:       {"local", OperandNone, 0, 0, "declare a local slot"},
	OpLocalGet:    {"local.get", OperandIndex, 0, 1, "push a copy of local i"},
	OpLocalSet:    {"local.set", OperandIndex, 1, 0, "pop into local i"},
	OpGlobalGet:   {"global.get", OperandIndex, 0, 1, "push a copy of global i"},
	OpGlobalSet:   {"global.set", OperandIndex, 1, 0, "pop into existing global i"},
	OpGlobalNew:   {"global.new", OperandNone, 0, 0, "append a nil global slot"},
	OpIntAdd:      {"i.add", OperandNone, 2, 1, "integer addition"},
	OpIntMul:      {"i.mul", OperandNone, 2, 1, "integer multiplication"},
	OpIntRem:      {"i.rem", OperandNone, 2, 1, "integer remainder"},
	OpIntNeg:      {"i.neg", OperandNone, 1, 1, "integer negation"},
	OpIntShl:      {"i.shl", OperandNone, 2, 1, "integer shift left"},
	OpIntShr:      {"i.shr", OperandNone, 2, 1, "arithmetic shift right"},
	OpIntEq:       {"i.eq", OperandNone, 2, 1, "integer equality"},
	OpIntNe:       {"i.ne", OperandNone, 2, 1, "integer inequality"},
	OpIntLt:       {"i.lt", OperandNone, 2, 1, "integer less than"},
	OpIntLe:       {"i.le", OperandNone, 2, 1, "integer less or equal"},
	OpIntGt:       {"i.gt", OperandNone, 2, 1, "integer greater than"},
	OpIntGe:       {"i.ge", OperandNone, 2, 1, "integer greater or equal"},
	OpAdd:         {"add", OperandNone, 2, 1, "numeric addition, operands share a tag"},
	OpMul:         {"mul", OperandNone, 2, 1, "numeric multiplication, operands share a tag"},
	OpDiv:         {"div", OperandNone, 2, 1, "numeric division, operands share a tag"},
	OpNeg:         {"neg", OperandNone, 1, 1, "numeric negation"},
	OpEq:          {"eq", OperandNone, 2, 1, "structural equality"},
	OpNewList:     {"list.new", OperandNone, 0, 1, "push an empty list"},
	OpListGet:     {"list.get", OperandIndex, 1, 1, "replace a list with its element i"},
	OpListSet:     {"list.set", OperandIndex, 2, 1, "store into element i (i == len appends)"},
	OpNewLink:     {"link.new", OperandNone, 3, 1, "build a three-slot node"},
	OpLinkGet:     {"link.get", OperandIndex, 1, 1, "replace a link with slot i"},
	OpLinkSet:     {"link.set", OperandIndex, 2, 1, "store into slot i"},
	OpAnd:         {"and", OperandNone, 2, 1, "boolean and"},
	OpOr:          {"or", OperandNone, 2, 1, "boolean or"},
	OpNot:         {"not", OperandNone, 1, 1, "boolean not"},
	OpBr:          {"br", OperandIndex, 0, 0, "branch to the open block at depth"},
	OpBrIf:        {"br-if", OperandIndex, 1, 0, "pop a bool and branch if true"},
	OpBlock:       {"block", OperandBlock, 0, 0, "open a block or loop over a body extent"},
	OpEcho:        {"echo", OperandNone, 1, 0, "pop and print the top value"},
	OpCall:        {"call", OperandCall, 0, 0, "call a function or import"},
	OpReturn:      {"return", OperandNone, 0, 0, "leave the current function"},
	OpUnreachable: {"unreachable", OperandNone, 0, 0, "always fails"},
	OpNop:         {"nop", OperandNone, 0, 0, "do nothing"},
	OpQuit:        {"quit", OperandNone, 0, 0, "stop the whole run"},
}

var byName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(definitions))
	for op, def := range definitions {
		m[def.Name] = op
	}
	return m
}()

func Lookup(op Opcode) (*Definition, bool) {
	def, ok := definitions[op]
	return def, ok
}

func LookupName(name string) (Opcode, bool) {
	op, ok := byName[name]
	return op, ok
}

// Opcodes lists every defined opcode in numeric order.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, len(definitions))
	for op := OpConst; op <= OpQuit; op++ {
		if _, ok := definitions[op]; ok {
			ops = append(ops, op)
		}
	}
	return ops
}

func (op Opcode) String() string {
	if def, ok := definitions[op]; ok {
		return def.Name
	}
	return fmt.Sprintf("op(%d)", byte(op))
}

// ImportIndex marks a call whose target is looked up in the import table.
const ImportIndex = -1

type Instruction struct {
	Op    Opcode
	A     int
	B     int
	Loop  bool
	Name  string
	Const object.Object
}

func Make(op Opcode, operands ...int) Instruction {
	ins := Instruction{Op: op}
	if len(operands) > 0 {
		ins.A = operands[0]
	}
	if len(operands) > 1 {
		ins.B = operands[1]
	}
	return ins
}

func Const(v object.Object) Instruction {
	return Instruction{Op: OpConst, Const: v}
}

func Block(loop bool, start, length int) Instruction {
	return Instruction{Op: OpBlock, Loop: loop, A: start, B: length}
}

func Call(index int, name string) Instruction {
	return Instruction{Op: OpCall, A: index, Name: name}
}

// StackEffect returns the static pops and pushes of ins.
// Calls report zero; their effect depends on the resolved callee.
func (ins Instruction) StackEffect() (pops, pushes int) {
	def, ok := definitions[ins.Op]
	if !ok {
		return 0, 0
	}
	return def.Pops, def.Pushes
}
