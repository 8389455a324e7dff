package rule

import (
	"errors"
	"fmt"
	"strings"

	"mibk.dev/irulefmt/token"
)

var (
	ErrBracketMismatch = errors.New("mismatched brackets")
	ErrUnrecognized    = errors.New("unrecognized construct")
	ErrElseIfChain     = errors.New("elseif clause is not a conditional chain")
	ErrSwitchArm       = errors.New("malformed switch arm")
	ErrExpression      = errors.New("expected expression")
	ErrMissingNewline  = errors.New("missing trailing newline")
)

// SyntaxError records an error and the position it occurred on.
type SyntaxError struct {
	Line, Column int
	Err          error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line:%d:%d: %v", e.Line, e.Column, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// An Event describes a node the parser has just built.
type Event struct {
	Kind     string
	From, To token.Pos
}

// A Config controls parsing.
type Config struct {
	// Trace, if set, is called for every parsed node,
	// children before their parents.
	Trace func(Event)
}

// Parse parses the tokens of a whole script. If an error occurs,
// it is of type *SyntaxError and wraps one of the Err* values.
func Parse(toks []token.Token) (*Block, error) {
	return new(Config).Parse(toks)
}

func (c *Config) Parse(toks []token.Token) (*Block, error) {
	p := &parser{trace: c.Trace}
	b, _, err := p.parseBlock(toks, false)
	if err != nil {
		return nil, err
	}
	return b, nil
}

type parser struct {
	trace func(Event)
}

// errorAt returns a *SyntaxError located at toks[i],
// or at the last token if i is out of range.
func errorAt(toks []token.Token, i int, err error) error {
	if len(toks) == 0 {
		return &SyntaxError{Err: err}
	}
	tok := toks[min(i, len(toks)-1)]
	return &SyntaxError{
		Line:   tok.Pos.Line,
		Column: tok.Pos.Column,
		Err:    fmt.Errorf("%w at %v", err, tok),
	}
}

// parseBlock parses items until toks is exhausted. Inner blocks are
// the contents of a brace pair and may end without a newline.
func (p *parser) parseBlock(toks []token.Token, inner bool) (*Block, int, error) {
	b := new(Block)
	i := 0
	for i < len(toks) {
		n, consumed, err := p.parseItem(toks[i:], inner)
		if err != nil {
			return nil, 0, err
		}
		if n != nil {
			b.Nodes = append(b.Nodes, n)
			if p.trace != nil {
				p.trace(Event{
					Kind: kindOf(n),
					From: toks[i].Pos,
					To:   toks[i+consumed-1].Pos,
				})
			}
		}
		i += consumed
	}
	return b, i, nil
}

// parseItem parses a single block item. A nil node with a positive
// count means the tokens were consumed without producing a node.
func (p *parser) parseItem(toks []token.Token, inner bool) (n Node, consumed int, err error) {
	switch toks[0].Type {
	case token.Newline:
		if is(toks, 1, token.Newline) {
			return new(EmptyLine), 1, nil
		}
		return nil, 1, nil
	case token.Hash:
		end, err := lineEnd(toks, inner)
		if err != nil {
			return nil, 0, err
		}
		c := &Comment{Text: text(toks[1:end])}
		if end > 1 && toks[1].Space != "" && strings.HasPrefix(c.Text, "#") {
			// Keep "# #" apart from "##".
			c.Text = " " + c.Text
		}
		return c, end, nil
	case token.If:
		if is(toks, 1, token.Lbrace) {
			n, consumed, err = p.parseIf(toks)
		}
	case token.When:
		n, consumed, err = p.parseWhen(toks)
	case token.Proc:
		n, consumed, err = p.parseProc(toks)
	case token.Set:
		if is(toks, 1, token.Ident) {
			return p.parseSet(toks, inner)
		}
	case token.Log:
		if is(toks, 1, token.Ident) && is(toks, 2, token.String) &&
			atEnd(toks, 3, inner) {
			return &LogStmt{Bucket: toks[1].Text, Value: toks[2].Text}, 3, nil
		}
	case token.Node, token.Snat:
		n, consumed, err = p.parseAddr(toks)
	case token.Switch:
		n, consumed, err = p.parseSwitch(toks)
	case token.Pool, token.Snatpool:
		n, consumed = parsePool(toks, inner)
	case token.Return:
		end, err := commandEnd(toks, inner)
		if err != nil {
			return nil, 0, err
		}
		return &ReturnStmt{Value: text(toks[1:end])}, end, nil
	case token.Rbrace:
		return nil, 0, errorAt(toks, 0, ErrBracketMismatch)
	case token.Else, token.Elseif:
		return nil, 0, errorAt(toks, 0, ErrUnrecognized)
	}
	if err != nil || n != nil {
		return n, consumed, err
	}
	return p.parseOther(toks, inner)
}

// parseOther keeps a whole command as opaque text.
func (p *parser) parseOther(toks []token.Token, inner bool) (Node, int, error) {
	end, err := commandEnd(toks, inner)
	if err != nil {
		return nil, 0, err
	}
	return &OtherStmt{Text: text(toks[:end])}, end, nil
}

// parseIf parses an if (or elseif) clause and any clauses following it.
// It returns a nil node if the tokens do not have the expected shape.
func (p *parser) parseIf(toks []token.Token) (Node, int, error) {
	cond, i, err := extractBlock(toks, 1)
	if err != nil {
		return nil, 0, err
	}
	if !is(toks, i, token.Lbrace) {
		return nil, 0, nil
	}
	body, i, err := p.parseBody(toks, i)
	if err != nil {
		return nil, 0, err
	}
	n := &If{Clauses: []Clause{{Cond: condText(cond), Body: body}}}

	switch {
	case is(toks, i, token.Elseif) && !is(toks, i+1, token.Lbrace),
		is(toks, i, token.Else) && !is(toks, i+1, token.Lbrace):
		// Unbraced clauses keep the whole chain opaque.
		return nil, 0, nil
	case is(toks, i, token.Elseif) && is(toks, i+1, token.Lbrace):
		sub, consumed, err := p.parseIf(toks[i:])
		if err != nil || sub == nil {
			return nil, 0, err
		}
		chain, ok := sub.(*If)
		if !ok {
			return nil, 0, errorAt(toks, i, ErrElseIfChain)
		}
		n.Clauses = append(n.Clauses, chain.Clauses...)
		n.Else = chain.Else
		i += consumed
	case is(toks, i, token.Else) && is(toks, i+1, token.Lbrace):
		n.Else, i, err = p.parseBody(toks, i+1)
		if err != nil {
			return nil, 0, err
		}
	}
	return n, i, nil
}

func (p *parser) parseWhen(toks []token.Token) (Node, int, error) {
	k := headerEnd(toks)
	if k < 2 {
		return nil, 0, nil
	}
	if err := checkBalance(toks[1:k]); err != nil {
		return nil, 0, err
	}
	body, i, err := p.parseBody(toks, k)
	if err != nil {
		return nil, 0, err
	}
	return &When{Event: text(toks[1:k]), Body: body}, i, nil
}

func (p *parser) parseProc(toks []token.Token) (Node, int, error) {
	if !is(toks, 1, token.Ident) {
		return nil, 0, nil
	}
	n := new(Proc)
	i := word(toks, 1)
	if hasBracket(toks[1:i]) {
		return nil, 0, nil
	}
	n.Name = text(toks[1:i])

	switch {
	case is(toks, i, token.Lbrace):
		params, next, err := extractBlock(toks, i)
		if err != nil {
			return nil, 0, err
		}
		for j := 0; j < len(params); {
			switch params[j].Type {
			case token.Newline:
				j++
				continue
			case token.Lbrace:
				_, end, err := extractBlock(params, j)
				if err != nil {
					return nil, 0, err
				}
				n.Params = append(n.Params, text(params[j:end]))
				j = end
			default:
				end := word(params, j)
				n.Params = append(n.Params, text(params[j:end]))
				j = end
			}
		}
		i = next
	case is(toks, i, token.Ident):
		end := word(toks, i)
		n.Params = []string{text(toks[i:end])}
		i = end
	default:
		return nil, 0, nil
	}

	if !is(toks, i, token.Lbrace) {
		return nil, 0, nil
	}
	var err error
	n.Body, i, err = p.parseBody(toks, i)
	if err != nil {
		return nil, 0, err
	}
	return n, i, nil
}

func (p *parser) parseSwitch(toks []token.Token) (Node, int, error) {
	k := bodyBrace(toks)
	if k < 2 {
		return nil, 0, nil
	}
	if err := checkBalance(toks[1:k]); err != nil {
		return nil, 0, err
	}
	body, i, err := extractBlock(toks, k)
	if err != nil {
		return nil, 0, err
	}
	n := &Switch{Cond: text(toks[1:k])}

	for j := 0; j < len(body); {
		var value string
		switch tok := body[j]; {
		case tok.Type == token.Newline:
			j++
			continue
		case tok.Type == token.Quote:
			end := j + 1
			for end < len(body) && body[end].Type != token.Quote {
				if body[end].Type == token.Newline {
					return nil, 0, errorAt(body, j, ErrSwitchArm)
				}
				end++
			}
			if end == len(body) {
				return nil, 0, errorAt(body, j, ErrSwitchArm)
			}
			value = text(body[j : end+1])
			j = end + 1
		case tok.Type == token.Ident, tok.Type == token.Other,
			tok.Type == token.Mul, tok.Type == token.Dollar,
			tok.Type.IsKeyword():
			end := word(body, j)
			value = text(body[j:end])
			j = end
		default:
			return nil, 0, errorAt(body, j, ErrSwitchArm)
		}

		switch {
		case is(body, j, token.Sub):
			n.Arms = append(n.Arms, Arm{Value: value})
			j++
		case is(body, j, token.Lbrace):
			var blk *Block
			blk, j, err = p.parseBody(body, j)
			if err != nil {
				return nil, 0, err
			}
			n.Arms = append(n.Arms, Arm{Value: value, Body: blk})
		default:
			return nil, 0, errorAt(body, j, ErrSwitchArm)
		}
	}
	return n, i, nil
}

func (p *parser) parseSet(toks []token.Token, inner bool) (Node, int, error) {
	end, err := commandEnd(toks, inner)
	if err != nil {
		return nil, 0, err
	}
	i := min(word(toks, 1), end)
	return &SetStmt{Name: text(toks[1:i]), Value: text(toks[i:end])}, end, nil
}

// parseAddr parses node and snat statements. With a single argument,
// as in "snat automap", the statement is kept opaque.
func (p *parser) parseAddr(toks []token.Token) (Node, int, error) {
	var args []string
	i := 1
	for !atEnd(toks, i, true) {
		if len(args) == 2 {
			return nil, 0, errorAt(toks, i, ErrExpression)
		}
		expr, n, err := parseExpr(toks[i:])
		if err != nil {
			return nil, 0, err
		}
		args = append(args, expr)
		i += n
	}
	if len(args) < 2 {
		return nil, 0, nil
	}
	if toks[0].Type == token.Node {
		return &NodeStmt{Addr: args[0], Port: args[1]}, i, nil
	}
	return &SnatStmt{Addr: args[0], Port: args[1]}, i, nil
}

func parsePool(toks []token.Token, inner bool) (Node, int) {
	if len(toks) < 2 || toks[1].Type == token.Newline {
		return nil, 0
	}
	i := word(toks, 1)
	if !atEnd(toks, i, inner) || hasBracket(toks[1:i]) {
		return nil, 0
	}
	name := text(toks[1:i])
	if toks[0].Type == token.Pool {
		return &PoolStmt{Name: name}, i
	}
	return &SnatPoolStmt{Name: name}, i
}

// parseExpr parses an address-like word: an identifier, a $variable,
// a ${...} or [...] substitution, or several of those glued together.
func parseExpr(toks []token.Token) (string, int, error) {
	switch toks[0].Type {
	case token.Ident, token.Dollar, token.Lbrack:
	case token.Rbrace, token.Rbrack:
		return "", 0, errorAt(toks, 0, ErrBracketMismatch)
	default:
		return "", 0, errorAt(toks, 0, ErrExpression)
	}
	i := 0
	for i < len(toks) && (i == 0 || toks[i].Space == "") {
		switch toks[i].Type {
		case token.Newline:
			return text(toks[:i]), i, nil
		case token.Lbrack:
			n, err := matchSpan(toks[i:], token.Lbrack, token.Rbrack)
			if err != nil {
				return "", 0, err
			}
			i += n
		case token.Dollar:
			i++
			if is(toks, i, token.Lbrace) {
				n, err := matchSpan(toks[i:], token.Lbrace, token.Rbrace)
				if err != nil {
					return "", 0, err
				}
				i += n
			}
		case token.Rbrace, token.Rbrack:
			return "", 0, errorAt(toks, i, ErrBracketMismatch)
		default:
			i++
		}
	}
	return text(toks[:i]), i, nil
}

// matchSpan returns the length of the span opened by toks[0]
// up to and including its matching close. The span must not
// cross a line.
func matchSpan(toks []token.Token, open, close token.Type) (int, error) {
	depth := 0
	for i, tok := range toks {
		switch tok.Type {
		case open:
			depth++
		case close:
			depth--
		case token.Newline:
			return 0, errorAt(toks, 0, ErrBracketMismatch)
		}
		if depth == 0 {
			return i + 1, nil
		}
	}
	return 0, errorAt(toks, 0, ErrBracketMismatch)
}

// parseBody parses the brace block starting at toks[i]
// and returns the index following its closing brace.
func (p *parser) parseBody(toks []token.Token, i int) (*Block, int, error) {
	content, next, err := extractBlock(toks, i)
	if err != nil {
		return nil, 0, err
	}
	b, _, err := p.parseBlock(content, true)
	if err != nil {
		return nil, 0, err
	}
	return b, next, nil
}

// extractBlock returns the tokens strictly between the brace at toks[i]
// and its matching closing brace, and the index following the latter.
func extractBlock(toks []token.Token, i int) ([]token.Token, int, error) {
	depth := 0
	for j := i; j < len(toks); j++ {
		switch toks[j].Type {
		case token.Lbrace:
			depth++
		case token.Rbrace:
			depth--
		}
		if depth == 0 {
			return toks[i+1 : j], j + 1, nil
		}
	}
	return nil, 0, errorAt(toks, i, ErrBracketMismatch)
}

// headerEnd returns the index of the first { on the line, or -1.
func headerEnd(toks []token.Token) int {
	for i, tok := range toks {
		switch tok.Type {
		case token.Lbrace:
			return i
		case token.Newline:
			return -1
		}
	}
	return -1
}

// bodyBrace returns the index of the { ending the first line, or -1.
func bodyBrace(toks []token.Token) int {
	for i, tok := range toks {
		if tok.Type == token.Newline {
			if i > 0 && toks[i-1].Type == token.Lbrace {
				return i - 1
			}
			return -1
		}
	}
	return -1
}

// lineEnd returns the index of the newline ending the first line of toks.
func lineEnd(toks []token.Token, inner bool) (int, error) {
	for i, tok := range toks {
		if tok.Type == token.Newline {
			return i, nil
		}
	}
	if !inner {
		return 0, errorAt(toks, len(toks), ErrMissingNewline)
	}
	return len(toks), nil
}

// commandEnd returns the index of the newline (or the ;# comment)
// ending the command starting at toks[0]. A command continues on
// the next line while braces or brackets are open, or after a backslash.
func commandEnd(toks []token.Token, inner bool) (int, error) {
	var braces, bracks int
	quoted := false
	for i, tok := range toks {
		switch tok.Type {
		case token.Quote:
			if braces == 0 {
				quoted = !quoted
			}
		case token.Lbrace:
			if !quoted {
				braces++
			}
		case token.Rbrace:
			if !quoted {
				braces--
				if braces < 0 {
					return 0, errorAt(toks, i, ErrBracketMismatch)
				}
			}
		case token.Lbrack:
			if braces == 0 {
				bracks++
			}
		case token.Rbrack:
			if braces == 0 {
				bracks--
				if bracks < 0 && !quoted {
					return 0, errorAt(toks, i, ErrBracketMismatch)
				}
			}
		case token.Hash:
			if braces == 0 && bracks <= 0 && !quoted && separated(tok) {
				return i, nil
			}
		case token.Newline:
			quoted = false
			if braces > 0 || bracks > 0 || continued(toks[:i]) {
				continue
			}
			return i, nil
		}
	}
	if braces > 0 || bracks > 0 {
		return 0, errorAt(toks, 0, ErrBracketMismatch)
	}
	if !inner {
		return 0, errorAt(toks, len(toks), ErrMissingNewline)
	}
	return len(toks), nil
}

// hasBracket reports whether toks contain a brace or bracket.
func hasBracket(toks []token.Token) bool {
	for _, tok := range toks {
		switch tok.Type {
		case token.Lbrace, token.Rbrace, token.Lbrack, token.Rbrack:
			return true
		}
	}
	return false
}

// checkBalance reports a mismatch if the braces or brackets
// of a header are not balanced.
func checkBalance(toks []token.Token) error {
	var braces, bracks int
	for i, tok := range toks {
		switch tok.Type {
		case token.Lbrace:
			braces++
		case token.Rbrace:
			braces--
		case token.Lbrack:
			bracks++
		case token.Rbrack:
			bracks--
		}
		if braces < 0 || bracks < 0 {
			return errorAt(toks, i, ErrBracketMismatch)
		}
	}
	if braces > 0 || bracks > 0 {
		return errorAt(toks, 0, ErrBracketMismatch)
	}
	return nil
}

// atEnd reports whether the command ends at toks[i].
func atEnd(toks []token.Token, i int, inner bool) bool {
	if i == len(toks) {
		return inner
	}
	return toks[i].Type == token.Newline || separated(toks[i])
}

// separated reports whether tok is a comment following a semicolon.
func separated(tok token.Token) bool {
	return tok.Type == token.Hash && strings.Contains(tok.Space, ";")
}

// continued reports whether the line ending toks ends with a backslash.
func continued(toks []token.Token) bool {
	if len(toks) == 0 {
		return false
	}
	last := toks[len(toks)-1]
	if last.Type != token.Other {
		return false
	}
	s := last.Text
	n := len(s) - len(strings.TrimRight(s, `\`))
	return n%2 == 1
}

// word returns the index after the run of tokens starting at toks[i]
// that are not separated by blanks.
func word(toks []token.Token, i int) int {
	for i++; i < len(toks); i++ {
		if toks[i].Space != "" || toks[i].Type == token.Newline {
			break
		}
	}
	return i
}

func is(toks []token.Token, i int, typ token.Type) bool {
	return i < len(toks) && toks[i].Type == typ
}

// condText returns the text of a condition without
// the line breaks right inside its braces.
func condText(toks []token.Token) string {
	for len(toks) > 0 && toks[0].Type == token.Newline {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].Type == token.Newline {
		toks = toks[:len(toks)-1]
	}
	return text(toks)
}

// text joins toks as they were written in the source.
func text(toks []token.Token) string {
	var b strings.Builder
	for i, tok := range toks {
		if i > 0 {
			b.WriteString(tok.Space)
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}

func kindOf(n Node) string {
	switch n.(type) {
	case *Block:
		return "block"
	case *Comment:
		return "comment"
	case *Proc:
		return "proc"
	case *If:
		return "if"
	case *Switch:
		return "switch"
	case *When:
		return "when"
	case *EmptyLine:
		return "empty"
	case *SetStmt:
		return "set"
	case *LogStmt:
		return "log"
	case *SnatStmt:
		return "snat"
	case *NodeStmt:
		return "node"
	case *PoolStmt:
		return "pool"
	case *SnatPoolStmt:
		return "snatpool"
	case *ReturnStmt:
		return "return"
	case *OtherStmt:
		return "other"
	}
	return fmt.Sprintf("%T", n)
}
