package object

import "fmt"

// LinkSlots is the number of owned slots in a node.
const LinkSlots = 3

type Node struct {
	Slots [LinkSlots]Object
}

// Arena stores nodes in a flat table. Links refer to nodes by index,
// so cyclic structures need no shared pointers.
type Arena struct {
	nodes []Node
}

func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) Len() int { return len(a.nodes) }

func (a *Arena) Alloc(value, first, second Object) *Link {
	a.nodes = append(a.nodes, Node{Slots: [LinkSlots]Object{value, first, second}})
	return &Link{Ref: len(a.nodes) - 1}
}

func (a *Arena) node(l *Link) (*Node, error) {
	if l == nil || l.Ref < 0 || l.Ref >= len(a.nodes) {
		return nil, fmt.Errorf("dangling link")
	}
	return &a.nodes[l.Ref], nil
}

// Get returns a copy of the value held in slot.
func (a *Arena) Get(l *Link, slot int) (Object, error) {
	if slot < 0 || slot >= LinkSlots {
		return nil, fmt.Errorf("link slot %d out of range", slot)
	}
	n, err := a.node(l)
	if err != nil {
		return nil, err
	}
	return Clone(n.Slots[slot]), nil
}

func (a *Arena) Set(l *Link, slot int, v Object) error {
	if slot < 0 || slot >= LinkSlots {
		return fmt.Errorf("link slot %d out of range", slot)
	}
	n, err := a.node(l)
	if err != nil {
		return err
	}
	n.Slots[slot] = v
	return nil
}
