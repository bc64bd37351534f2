package object

import (
	"cmp"
	"math"
	"strings"
)

// Compare orders values by variant first and payload second.
// NaN sorts before every other float so the order stays total.
func Compare(a, b Object) int {
	if a == nil {
		a = NilValue
	}
	if b == nil {
		b = NilValue
	}
	if c := cmp.Compare(a.Type().rank(), b.Type().rank()); c != 0 {
		return c
	}
	switch x := a.(type) {
	case *Nil:
		return 0
	case *Boolean:
		y := b.(*Boolean)
		switch {
		case x.Value == y.Value:
			return 0
		case !x.Value:
			return -1
		default:
			return 1
		}
	case *Integer:
		return cmp.Compare(x.Value, b.(*Integer).Value)
	case *Float:
		return compareFloat(x.Value, b.(*Float).Value)
	case *String:
		return strings.Compare(x.Value, b.(*String).Value)
	case *List:
		y := b.(*List)
		for i := 0; i < len(x.Elements) && i < len(y.Elements); i++ {
			if c := Compare(x.Elements[i], y.Elements[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(x.Elements), len(y.Elements))
	case *Link:
		return cmp.Compare(x.Ref, b.(*Link).Ref)
	}
	return 0
}

func compareFloat(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	return cmp.Compare(a, b)
}

func Equal(a, b Object) bool {
	return Compare(a, b) == 0
}
