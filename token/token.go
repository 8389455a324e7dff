package token

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrUnterminatedString is reported when the quoted value
// of a log statement is missing its closing quote.
var ErrUnterminatedString = errors.New("string not terminated")

type ScanError struct {
	Pos Pos
	Err error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("line:%v: %v", e.Pos, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

type Pos struct {
	Line, Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// A Token is a single lexical element of a rule script.
// Space holds the blanks (and semicolons) that preceded the token
// on its line; for the first token of a line, it is the indentation.
type Token struct {
	Type  Type
	Text  string
	Space string
	Pos   Pos
}

func (t Token) String() string {
	switch {
	case t.Type == Newline,
		symbolStart < t.Type && t.Type < symbolEnd,
		keywordStart < t.Type && t.Type < keywordEnd:
		return t.Type.String()
	default:
		return fmt.Sprintf("%v(%q)", t.Type, t.Text)
	}
}

//go:generate go tool stringer -type Type -linecomment

type Type uint

func (t Type) IsKeyword() bool { return keywordStart < t && t < keywordEnd }

func (t Type) IsSymbol() bool { return symbolStart < t && t < symbolEnd }

const (
	Illegal Type = iota
	Newline      // newline
	Ident
	Other
	String

	symbolStart
	Lbrace      // {
	Rbrace      // }
	Lbrack      // [
	Rbrack      // ]
	Lparen      // (
	Rparen      // )
	Lt          // <
	Gt          // >
	DoubleColon // ::
	Sub         // -
	Add         // +
	Assign      // =
	Rem         // %
	Mul         // *
	Not         // !
	And         // &
	Colon       // :
	Dollar      // $
	Quote       // "
	Hash        // #
	symbolEnd

	keywordStart
	Snatpool // snatpool
	Switch   // switch
	Return   // return
	Elseif   // elseif
	Else     // else
	Pool     // pool
	Node     // node
	Proc     // proc
	Snat     // snat
	When     // when
	Log      // log
	Set      // set
	If       // if
	keywordEnd
)

// keywords is ordered so that no entry is a prefix
// of a later one (snatpool before snat, elseif before else).
var keywords []Type

var symbols map[byte]Type

func init() {
	for typ := keywordStart + 1; typ < keywordEnd; typ++ {
		keywords = append(keywords, typ)
	}
	symbols = make(map[byte]Type)
	for typ := symbolStart + 1; typ < symbolEnd; typ++ {
		if s := typ.String(); len(s) == 1 {
			symbols[s[0]] = typ
		}
	}
}

type scanner struct {
	tokens []Token

	line   string
	lineNo int
	off    int
	err    error
}

// Tokenize splits src into a flat sequence of tokens. Every source line,
// blank ones included, is terminated by exactly one Newline token.
// If an error occurs, it is of type *ScanError.
func Tokenize(src []byte) ([]Token, error) {
	s := new(scanner)
	for line := range bytes.Lines(src) {
		s.lineNo++
		s.scanLine(string(line))
		if s.err != nil {
			return nil, s.err
		}
	}
	return s.tokens, nil
}

func (s *scanner) errorf(err error) {
	if s.err == nil {
		s.err = &ScanError{s.pos(), err}
	}
}

func (s *scanner) pos() Pos { return Pos{Line: s.lineNo, Column: s.off + 1} }

func (s *scanner) emit(typ Type, text, space string, start int) {
	s.tokens = append(s.tokens, Token{
		Type:  typ,
		Text:  text,
		Space: space,
		Pos:   Pos{Line: s.lineNo, Column: start + 1},
	})
}

func (s *scanner) scanLine(line string) {
	line = strings.TrimRight(line, "\n")
	s.line = strings.TrimRight(line, " \t\r;")
	s.off = 0
	first := len(s.tokens)

	for s.off < len(s.line) {
		space := s.skipSpace()
		start := s.off
		if typ, ok := s.keyword(first); ok {
			s.off += len(typ.String())
			s.emit(typ, typ.String(), space, start)
			continue
		}

		c := s.line[s.off]
		switch {
		case c == '"' && s.afterLogBucket(first):
			text, ok := s.scanString()
			if !ok {
				s.errorf(ErrUnterminatedString)
				return
			}
			s.emit(String, text, space, start)
		case c == '#' && (len(s.tokens) == first || strings.Contains(space, ";")):
			s.off++
			s.emit(Hash, "#", space, start)
			rest := s.line[s.off:]
			if text := strings.TrimLeft(rest, " \t;"); text != "" {
				s.emit(Other, text, rest[:len(rest)-len(text)], s.off+len(rest)-len(text))
			}
			s.off = len(s.line)
		case c == ':' && strings.HasPrefix(s.line[s.off:], "::"):
			s.off += 2
			s.emit(DoubleColon, "::", space, start)
		case symbols[c] != Illegal:
			s.off++
			s.emit(symbols[c], string(c), space, start)
		case isIdent(c):
			for s.off < len(s.line) && isIdent(s.line[s.off]) {
				s.off++
			}
			s.emit(Ident, s.line[start:s.off], space, start)
		default:
			s.scanOther()
			s.emit(Other, s.line[start:s.off], space, start)
		}
	}

	s.off = len(s.line)
	s.emit(Newline, "\n", "", s.off)
}

func (s *scanner) skipSpace() string {
	start := s.off
	for s.off < len(s.line) && isSpace(s.line[s.off]) {
		s.off++
	}
	return s.line[start:s.off]
}

// keyword reports the keyword starting at the current offset,
// provided it stands in command position.
func (s *scanner) keyword(first int) (Type, bool) {
	if n := len(s.tokens); n > first {
		if prev := s.tokens[n-1].Type; !prev.IsSymbol() {
			return Illegal, false
		}
	}
	rest := s.line[s.off:]
	for _, typ := range keywords {
		kw := typ.String()
		if !strings.HasPrefix(rest, kw) {
			continue
		}
		if len(rest) == len(kw) {
			return typ, true
		}
		switch rest[len(kw)] {
		case ' ', '\t', '\r', ';', '{', '"':
			return typ, true
		}
		return Illegal, false
	}
	return Illegal, false
}

// afterLogBucket reports whether the line so far ends with "log <bucket>".
func (s *scanner) afterLogBucket(first int) bool {
	toks := s.tokens[first:]
	n := len(toks)
	return n >= 2 && toks[n-2].Type == Log && toks[n-1].Type == Ident
}

func (s *scanner) scanString() (string, bool) {
	start := s.off
	for s.off++; s.off < len(s.line); s.off++ {
		switch s.line[s.off] {
		case '\\':
			s.off++
		case '"':
			s.off++
			return s.line[start:s.off], true
		}
	}
	s.off = start
	return "", false
}

func (s *scanner) scanOther() {
	for s.off < len(s.line) {
		c := s.line[s.off]
		if c == '\\' {
			s.off = min(s.off+2, len(s.line))
			continue
		}
		if isSpace(c) || isIdent(c) || symbols[c] != Illegal {
			return
		}
		s.off++
	}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == ';' }

func isIdent(c byte) bool {
	return c == '_' || c == '.' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}
