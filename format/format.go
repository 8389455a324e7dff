// Package format ties the tokenizer, the parser, and the printer together.
package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"mibk.dev/irulefmt/rule"
	"mibk.dev/irulefmt/token"
)

// Pipe reads a rule script from in, formats it, and writes the result to out.
// Nothing is written if the script cannot be formatted.
// The filename argument is used to set the “filename” in error messages.
// A nil cfg is the same as an empty [rule.Config].
func Pipe(filename string, out io.Writer, in io.Reader, cfg *rule.Config) error {
	src, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	code, err := formatCode(filename, src, cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(code)
	return err
}

// Source formats src in canonical style. The returned error, if any,
// is either a *token.ScanError or a *rule.SyntaxError.
func Source(src []byte, cfg *rule.Config) ([]byte, error) {
	if cfg == nil {
		cfg = new(rule.Config)
	}
	toks, err := token.Tokenize(src)
	if err != nil {
		return nil, err
	}
	file, err := cfg.Parse(toks)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	if err := rule.Fprint(&b, file); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func formatCode(filename string, src []byte, cfg *rule.Config) ([]byte, error) {
	code, err := Source(src, cfg)
	var (
		scanErr *token.ScanError
		se      *rule.SyntaxError
	)
	switch {
	case errors.As(err, &scanErr):
		return nil, fmt.Errorf("%s:%v: %w", filename, scanErr.Pos, scanErr.Err)
	case errors.As(err, &se):
		return nil, fmt.Errorf("%s:%d:%d: %w", filename, se.Line, se.Column, se.Err)
	case err != nil:
		return nil, fmt.Errorf("formatting %q: %v", filename, err)
	}
	return code, nil
}
