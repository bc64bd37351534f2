package ast

import (
	"bytes"
	"strconv"

	"calx/internal/token"
)

type Kind int

const (
	Atom Kind = iota
	String
	List
	Comment
)

func (k Kind) String() string {
	switch k {
	case Atom:
		return "atom"
	case String:
		return "string"
	case List:
		return "list"
	case Comment:
		return "comment"
	}
	return "unknown"
}

// Node is one datum of source. Lists keep their opening and closing
// tokens so tools can report ranges that cover the whole form.
type Node struct {
	Kind     Kind
	Token    token.Token // first token
	End      token.Token // closing paren, lists only
	Value    string      // atom text, decoded string, or comment text
	Children []*Node
}

func (n *Node) TokenLiteral() string { return n.Token.Literal }

func (n *Node) Line() int { return n.Token.Line }
func (n *Node) Col() int  { return n.Token.Col }

// IsAtom reports whether n is the atom s.
func (n *Node) IsAtom(s string) bool {
	return n != nil && n.Kind == Atom && n.Value == s
}

// Head returns the leading atom of a list, or "".
func (n *Node) Head() string {
	if n == nil || n.Kind != List || len(n.Children) == 0 || n.Children[0].Kind != Atom {
		return ""
	}
	return n.Children[0].Value
}

// Args returns the children after the head.
func (n *Node) Args() []*Node {
	if n == nil || n.Kind != List || len(n.Children) == 0 {
		return nil
	}
	return n.Children[1:]
}

func (n *Node) String() string {
	switch n.Kind {
	case Atom, Comment:
		return n.Value
	case String:
		if n.Token.Raw != "" {
			return n.Token.Raw
		}
		return strconv.Quote(n.Value)
	}
	var out bytes.Buffer
	out.WriteString("(")
	first := true
	for _, c := range n.Children {
		if c.Kind == Comment {
			continue
		}
		if !first {
			out.WriteString(" ")
		}
		first = false
		out.WriteString(c.String())
	}
	out.WriteString(")")
	return out.String()
}

// File is a parsed source unit. Comments are only kept inside Nodes when
// the parser was asked to retain them.
type File struct {
	Nodes []*Node
}

func (f *File) String() string {
	var out bytes.Buffer
	for _, n := range f.Nodes {
		if n.Kind == Comment {
			continue
		}
		out.WriteString(n.String())
		out.WriteString("\n")
	}
	return out.String()
}

// Walk visits n and its children depth first until fn returns false.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}
