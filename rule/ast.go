package rule

import "mibk.dev/irulefmt/token"

// A Node is one of the node types declared in this file.
type Node interface {
	node()
}

// A Block is a sequence of items in execution order.
type Block struct {
	Nodes []Node
}

// A Comment holds the text following # up to the end of the line.
// Text starting with a blank or # is printed right after the #.
type Comment struct {
	Text string
}

type Proc struct {
	Name   string
	Params []string
	Body   *Block
}

// An If is a whole if/elseif/else chain. Clauses[0] is the if clause,
// the rest are elseif clauses in source order; Clauses is never empty.
type If struct {
	Clauses []Clause
	Else    *Block // or nil
}

type Clause struct {
	Cond string
	Body *Block
}

type Switch struct {
	Cond string
	Arms []Arm
}

// An Arm with a nil Body falls through to the next arm.
type Arm struct {
	Value string
	Body  *Block
}

// A When is a rule body triggered by an event.
type When struct {
	Event string
	Body  *Block
}

// EmptyLine is a blank source line.
type EmptyLine struct{}

type (
	SetStmt struct {
		Name, Value string
	}

	LogStmt struct {
		Bucket, Value string
	}

	SnatStmt struct {
		Addr, Port string
	}

	NodeStmt struct {
		Addr, Port string
	}

	PoolStmt struct {
		Name string
	}

	SnatPoolStmt struct {
		Name string
	}

	ReturnStmt struct {
		Value string // or ""
	}

	// OtherStmt is any line (or a brace-balanced run of lines)
	// the grammar does not model. It is printed verbatim.
	OtherStmt struct {
		Text string
	}
)

func (*Block) node()     {}
func (*Comment) node()   {}
func (*Proc) node()      {}
func (*If) node()        {}
func (*Switch) node()    {}
func (*When) node()      {}
func (*EmptyLine) node() {}

func (*SetStmt) node()      {}
func (*LogStmt) node()      {}
func (*SnatStmt) node()     {}
func (*NodeStmt) node()     {}
func (*PoolStmt) node()     {}
func (*SnatPoolStmt) node() {}
func (*ReturnStmt) node()   {}
func (*OtherStmt) node()    {}

// stmtArgs returns the keyword and the arguments of a statement node.
func stmtArgs(n Node) (kw token.Type, args []string, ok bool) {
	switch n := n.(type) {
	case *SetStmt:
		return token.Set, []string{n.Name, n.Value}, true
	case *LogStmt:
		return token.Log, []string{n.Bucket, n.Value}, true
	case *SnatStmt:
		return token.Snat, []string{n.Addr, n.Port}, true
	case *NodeStmt:
		return token.Node, []string{n.Addr, n.Port}, true
	case *PoolStmt:
		return token.Pool, []string{n.Name}, true
	case *SnatPoolStmt:
		return token.Snatpool, []string{n.Name}, true
	case *ReturnStmt:
		return token.Return, []string{n.Value}, true
	}
	return token.Illegal, nil, false
}
