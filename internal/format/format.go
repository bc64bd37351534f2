// Package format re-indents assembly source into its canonical layout:
// top-level forms separated by a blank line, one instruction per line,
// block bodies indented one level, comments kept where they were.
package format

import (
	"bytes"
	"fmt"
	"strings"

	"calx/internal/ast"
	"calx/internal/parser"
)

type Options struct {
	Indent string // "  " or "\t"
}

func Format(src string, opt Options) (string, error) {
	if opt.Indent == "" {
		opt.Indent = "  "
	}
	file, diags := parser.Parse(src, parser.KeepComments())
	if len(diags) > 0 {
		d := diags[0]
		return "", fmt.Errorf("%d:%d: %s", d.Range.Line, d.Range.Col, d.Message)
	}
	p := &printer{indent: opt.Indent}
	p.file(file.Nodes)
	return p.String(), nil
}

type printer struct {
	out    bytes.Buffer
	indent string
	level  int
	open   bool // the current output line has not been terminated

	lastLine int // source line where the last emitted datum ended
}

func (p *printer) String() string {
	if p.open {
		return p.out.String() + "\n"
	}
	return p.out.String()
}

func (p *printer) line(s string) {
	if p.open {
		p.out.WriteByte('\n')
	}
	for i := 0; i < p.level; i++ {
		p.out.WriteString(p.indent)
	}
	p.out.WriteString(s)
	p.open = true
}

func (p *printer) blank() {
	if p.open {
		p.out.WriteByte('\n')
	}
}

func (p *printer) file(nodes []*ast.Node) {
	prevForm := false
	for i, n := range nodes {
		if n.Kind == ast.Comment {
			if i > 0 && n.Line() == p.lastLine {
				p.out.WriteString(" " + n.Value)
				continue
			}
			if prevForm {
				p.blank()
			}
			p.line(n.Value)
			p.lastLine = n.Line()
			prevForm = false
			continue
		}
		if prevForm {
			p.blank()
		}
		p.form(n)
		prevForm = true
	}
}

func (p *printer) form(n *ast.Node) {
	k := 0
	switch n.Head() {
	case "fn":
		k = 3
	case "loop":
		k = 1
	case "block":
		k = 1
		if args := nonComments(n.Children); len(args) > 1 && args[1].IsAtom("loop") {
			k = 2
		}
	}
	head, rest := splitHeader(n.Children, k)
	if k == 0 || len(head) < k {
		p.line(n.String())
		p.lastLine = endLine(n)
		return
	}

	parts := make([]string, len(head))
	for i, h := range head {
		parts[i] = h.String()
	}
	p.line("(" + strings.Join(parts, " "))
	p.lastLine = endLine(head[len(head)-1])
	p.body(rest)
	p.lastLine = endLine(n)
}

func (p *printer) body(children []*ast.Node) {
	p.level++
	lastComment := false
	for _, c := range children {
		if c.Kind == ast.Comment {
			if c.Line() == p.lastLine {
				p.out.WriteString(" " + c.Value)
			} else {
				p.line(c.Value)
			}
			p.lastLine = c.Line()
			lastComment = true
			continue
		}
		p.form(c)
		lastComment = false
	}
	p.level--
	if lastComment {
		p.line(")")
		return
	}
	p.out.WriteString(")")
}

// splitHeader takes the first k non-comment children as the header line.
func splitHeader(children []*ast.Node, k int) (head, rest []*ast.Node) {
	for _, c := range children {
		if len(head) < k && c.Kind != ast.Comment {
			head = append(head, c)
			continue
		}
		rest = append(rest, c)
	}
	return head, rest
}

func nonComments(nodes []*ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, n := range nodes {
		if n.Kind != ast.Comment {
			out = append(out, n)
		}
	}
	return out
}

func endLine(n *ast.Node) int {
	if n.Kind == ast.List && n.End.Line > 0 {
		return n.End.Line
	}
	return n.Token.Line
}
