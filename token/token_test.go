package token_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"mibk.dev/irulefmt/token"
)

func pos(posStr string) token.Pos {
	var pos token.Pos
	fmt.Sscanf(posStr, "%d:%d", &pos.Line, &pos.Column)
	return pos
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []token.Token
	}{{
		"set statements",
		"set x 1\nset y 2\n",
		[]token.Token{
			{token.Set, "set", "", pos("1:1")},
			{token.Ident, "x", " ", pos("1:5")},
			{token.Ident, "1", " ", pos("1:7")},
			{token.Newline, "\n", "", pos("1:8")},
			{token.Set, "set", "", pos("2:1")},
			{token.Ident, "y", " ", pos("2:5")},
			{token.Ident, "2", " ", pos("2:7")},
			{token.Newline, "\n", "", pos("2:8")},
		},
	}, {
		"if header",
		"if {$x > 1} {",
		[]token.Token{
			{token.If, "if", "", pos("1:1")},
			{token.Lbrace, "{", " ", pos("1:4")},
			{token.Dollar, "$", "", pos("1:5")},
			{token.Ident, "x", "", pos("1:6")},
			{token.Gt, ">", " ", pos("1:8")},
			{token.Ident, "1", " ", pos("1:10")},
			{token.Rbrace, "}", "", pos("1:11")},
			{token.Lbrace, "{", " ", pos("1:13")},
			{token.Newline, "\n", "", pos("1:14")},
		},
	}, {
		"comments and blank lines",
		"# hello world\n\n  set a b ;# note\n",
		[]token.Token{
			{token.Hash, "#", "", pos("1:1")},
			{token.Other, "hello world", " ", pos("1:3")},
			{token.Newline, "\n", "", pos("1:14")},
			{token.Newline, "\n", "", pos("2:1")},
			{token.Set, "set", "  ", pos("3:3")},
			{token.Ident, "a", " ", pos("3:7")},
			{token.Ident, "b", " ", pos("3:9")},
			{token.Hash, "#", " ;", pos("3:12")},
			{token.Other, "note", " ", pos("3:14")},
			{token.Newline, "\n", "", pos("3:18")},
		},
	}, {
		"hash inside a word",
		"set x a#b",
		[]token.Token{
			{token.Set, "set", "", pos("1:1")},
			{token.Ident, "x", " ", pos("1:5")},
			{token.Ident, "a", " ", pos("1:7")},
			{token.Hash, "#", "", pos("1:8")},
			{token.Ident, "b", "", pos("1:9")},
			{token.Newline, "\n", "", pos("1:10")},
		},
	}, {
		"log string",
		`log local0. "a \"b\" c" `,
		[]token.Token{
			{token.Log, "log", "", pos("1:1")},
			{token.Ident, "local0.", " ", pos("1:5")},
			{token.String, `"a \"b\" c"`, " ", pos("1:13")},
			{token.Newline, "\n", "", pos("1:24")},
		},
	}, {
		"keyword boundaries",
		"sets x\n}else{\nsnatpool p",
		[]token.Token{
			{token.Ident, "sets", "", pos("1:1")},
			{token.Ident, "x", " ", pos("1:6")},
			{token.Newline, "\n", "", pos("1:7")},
			{token.Rbrace, "}", "", pos("2:1")},
			{token.Else, "else", "", pos("2:2")},
			{token.Lbrace, "{", "", pos("2:6")},
			{token.Newline, "\n", "", pos("2:7")},
			{token.Snatpool, "snatpool", "", pos("3:1")},
			{token.Ident, "p", " ", pos("3:10")},
			{token.Newline, "\n", "", pos("3:11")},
		},
	}, {
		"other spans",
		`set u [HTTP::uri]/a,b \{`,
		[]token.Token{
			{token.Set, "set", "", pos("1:1")},
			{token.Ident, "u", " ", pos("1:5")},
			{token.Lbrack, "[", " ", pos("1:7")},
			{token.Ident, "HTTP", "", pos("1:8")},
			{token.DoubleColon, "::", "", pos("1:12")},
			{token.Ident, "uri", "", pos("1:14")},
			{token.Rbrack, "]", "", pos("1:17")},
			{token.Other, "/", "", pos("1:18")},
			{token.Ident, "a", "", pos("1:19")},
			{token.Other, ",", "", pos("1:20")},
			{token.Ident, "b", "", pos("1:21")},
			{token.Other, `\{`, " ", pos("1:23")},
			{token.Newline, "\n", "", pos("1:25")},
		},
	}, {
		"semicolons are blanks",
		"  ;pool p;;  ",
		[]token.Token{
			{token.Pool, "pool", "  ;", pos("1:4")},
			{token.Ident, "p", " ", pos("1:9")},
			{token.Newline, "\n", "", pos("1:10")},
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := token.Tokenize([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("tokens don't match: (-got +want)\n%s", diff)
			}
		})
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{{
		"unterminated log value",
		`log local0. "oops`,
		"line:1:13: string not terminated",
	}, {
		"escaped closing quote",
		"set x 1\nlog a \"b\\\"",
		"line:2:7: string not terminated",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := token.Tokenize([]byte(tt.input))
			errStr := "<nil>"
			if err != nil {
				errStr = err.Error()
			}
			if errStr != tt.wantErr {
				t.Errorf("\n got %s\nwant %s", errStr, tt.wantErr)
			}
			if !errors.Is(err, token.ErrUnterminatedString) {
				t.Errorf("err %v is not ErrUnterminatedString", err)
			}
		})
	}
}

// Joining the blanks and text of every token must give back the source,
// as long as no line carries trailing blanks.
func TestLexicalRoundTrip(t *testing.T) {
	inputs := []string{
		"when HTTP_REQUEST {\n    if { [HTTP::host] eq \"a.b\" } {\n\tpool web_pool\n    }\n}\n",
		"# comment\n\n\nset a [string tolower $b];  set c \"x y\"\n",
		"switch -glob [HTTP::uri] {\n  \"/api*\" -\n  \"/v2*\" { node 10.0.0.1 80 }\n  default { snat ${a} [b c] }\n}\n",
		"proc ns::f { a {b 1} } {\n  return [expr {$a + $b * 2 % 3}]\n}\nlog local0.info \"done: $x\"\n",
	}
	for _, in := range inputs {
		toks, err := token.Tokenize([]byte(in))
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		var b strings.Builder
		lines := 0
		for _, tok := range toks {
			b.WriteString(tok.Space)
			b.WriteString(tok.Text)
			if tok.Type == token.Newline {
				lines++
			}
		}
		if got := b.String(); got != in {
			t.Errorf("round trip mismatch:\n got %q\nwant %q", got, in)
		}
		if want := strings.Count(in, "\n"); lines != want {
			t.Errorf("got %d newline tokens, want %d", lines, want)
		}
	}
}

func TestTokenString(t *testing.T) {
	tests := []struct {
		tok  token.Token
		want string
	}{
		{token.Token{Type: token.Snatpool, Text: "snatpool"}, "snatpool"},
		{token.Token{Type: token.DoubleColon, Text: "::"}, "::"},
		{token.Token{Type: token.Newline, Text: "\n"}, "newline"},
		{token.Token{Type: token.Ident, Text: "web_pool"}, `Ident("web_pool")`},
	}
	for _, tt := range tests {
		if got := tt.tok.String(); got != tt.want {
			t.Errorf("got %s, want %s", got, tt.want)
		}
	}
}
