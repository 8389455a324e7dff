package rule

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	indentUnit = "    "

	// maxBlankLines is the longest run of blank lines kept in the output.
	maxBlankLines = 2
)

// Fprint pretty-prints a node to w. Nothing is written if the node
// (or any of its children) is of an unsupported type.
func Fprint(w io.Writer, node Node) error {
	p := new(printer)
	p.print(node)
	if p.err != nil {
		return p.err
	}
	_, err := w.Write(p.buf.Bytes())
	return err
}

type printer struct {
	buf    bytes.Buffer
	err    error // sticky
	indent int

	// blanks counts the blank lines seen since the last item.
	// They are written only once another item follows.
	blanks  int
	started bool
}

func (p *printer) print(node Node) {
	if p.err != nil {
		return
	}
	if _, ok := node.(*EmptyLine); ok {
		p.blanks++
		return
	}
	if _, ok := node.(*Block); !ok {
		if p.started {
			for range min(p.blanks, maxBlankLines) {
				p.buf.WriteByte('\n')
			}
		}
		p.blanks = 0
		p.started = true
	}

	switch n := node.(type) {
	default:
		p.err = fmt.Errorf("unsupported type %T", node)
	case *Block:
		for _, x := range n.Nodes {
			p.print(x)
		}
	case *Comment:
		switch {
		case n.Text == "", n.Text[0] == '#', n.Text[0] == ' ':
			// Banners such as "#####" stay intact.
			p.line("#", n.Text)
		default:
			p.line("# ", n.Text)
		}
	case *Proc:
		params := "{}"
		if len(n.Params) > 0 {
			params = "{ " + strings.Join(n.Params, " ") + " }"
		}
		p.line("proc ", n.Name, " ", params, " {")
		p.body(n.Body)
		p.line("}")
	case *If:
		for i, c := range n.Clauses {
			if i == 0 {
				p.line("if { ", c.Cond, " } {")
			} else {
				p.line("} elseif { ", c.Cond, " } {")
			}
			p.body(c.Body)
		}
		if n.Else != nil {
			p.line("} else {")
			p.body(n.Else)
		}
		p.line("}")
	case *Switch:
		p.line("switch ", n.Cond, " {")
		p.indent++
		for _, arm := range n.Arms {
			if arm.Body == nil {
				p.line(arm.Value, " -")
				continue
			}
			p.line(arm.Value, " {")
			p.body(arm.Body)
			p.line("}")
		}
		p.indent--
		p.line("}")
	case *When:
		p.line("when ", n.Event, " {")
		p.body(n.Body)
		p.line("}")
	case *OtherStmt:
		p.line(n.Text)
	case *SetStmt, *LogStmt, *SnatStmt, *NodeStmt, *PoolStmt, *SnatPoolStmt, *ReturnStmt:
		kw, args, _ := stmtArgs(n)
		s := kw.String()
		for _, arg := range args {
			if arg != "" {
				s += " " + arg
			}
		}
		p.line(s)
	}
}

// body prints a block one level deeper. Blank lines
// at either end of the block are dropped.
func (p *printer) body(b *Block) {
	p.indent++
	p.blanks, p.started = 0, false
	p.print(b)
	p.blanks, p.started = 0, true
	p.indent--
}

// line writes an indented line made of parts.
func (p *printer) line(parts ...string) {
	for range p.indent {
		p.buf.WriteString(indentUnit)
	}
	for _, s := range parts {
		p.buf.WriteString(s)
	}
	p.buf.WriteByte('\n')
}
