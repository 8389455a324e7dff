package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"mibk.dev/irulefmt/rule"
)

// setFlags sets the output flags for the duration of the test.
func setFlags(t *testing.T, w, l, d, c bool) {
	t.Helper()
	old := [4]bool{inPlace, list, showDiff, check}
	inPlace, list, showDiff, check = w, l, d, c
	t.Cleanup(func() {
		inPlace, list, showDiff, check = old[0], old[1], old[2], old[3]
	})
}

func TestFormatFileInPlace(t *testing.T) {
	setFlags(t, true, false, false, false)
	dir := t.TempDir()
	path := filepath.Join(dir, "a.tcl")
	if err := os.WriteFile(path, []byte("when E {\npool p\n}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := formatFile(path, new(rule.Config))
	if r.err != nil {
		t.Fatal(r.err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "when E {\n    pool p\n}\n"; string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := fi.Mode().Perm(); perm != 0o600 {
		t.Errorf("got perm %v, want %v", perm, os.FileMode(0o600))
	}
}

func TestFormatFileError(t *testing.T) {
	setFlags(t, true, false, false, false)
	path := filepath.Join(t.TempDir(), "bad.tcl")
	src := "pool a\n}\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	r := formatFile(path, new(rule.Config))
	if !errors.Is(r.err, rule.ErrBracketMismatch) {
		t.Errorf("got %v, want ErrBracketMismatch", r.err)
	}
	if !strings.HasPrefix(r.err.Error(), path+":2:1: ") {
		t.Errorf("error %q is not located", r.err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != src {
		t.Errorf("file was modified: %q", got)
	}
}

func TestFormatFilesOrder(t *testing.T) {
	setFlags(t, false, false, false, false)
	old := jobs
	jobs = 3
	t.Cleanup(func() { jobs = old })

	dir := t.TempDir()
	var files []string
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		path := filepath.Join(dir, name+".tcl")
		if err := os.WriteFile(path, []byte("set "+name+" 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		files = append(files, path)
	}

	results, err := formatFiles(context.Background(), files, nil)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	for _, r := range results {
		if err := report(&out, r, false); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := out.String(), "set a 1\nset b 1\nset c 1\nset d 1\nset e 1\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	color.NoColor = true
	r := result{
		path: "x.tcl",
		src:  []byte("if {1} {\npool a\n}\n"),
		out:  []byte("if { 1 } {\n    pool a\n}\n"),
	}
	tests := []struct {
		name       string
		w, l, d, c bool
		changed    bool
		want       string
	}{
		{"stdout", false, false, false, false, true, string(r.out)},
		{"write", true, false, false, false, true, ""},
		{"list changed", false, true, false, false, true, "x.tcl\n"},
		{"list unchanged", false, true, false, false, false, ""},
		{"check", false, false, false, true, true, "x.tcl\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setFlags(t, tt.w, tt.l, tt.d, tt.c)
			var b bytes.Buffer
			if err := report(&b, r, tt.changed); err != nil {
				t.Fatal(err)
			}
			if got := b.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("diff", func(t *testing.T) {
		setFlags(t, false, false, true, false)
		var b bytes.Buffer
		if err := report(&b, r, true); err != nil {
			t.Fatal(err)
		}
		got := b.String()
		for _, line := range []string{"diff x.tcl.orig x.tcl\n", "-if {1} {\n", "+if { 1 } {\n", "+    pool a\n"} {
			if !strings.Contains(got, line) {
				t.Errorf("diff output lacks %q:\n%s", line, got)
			}
		}
	})
}

func TestSetupColor(t *testing.T) {
	old := color.NoColor
	t.Cleanup(func() { color.NoColor = old })

	if err := setupColor("never"); err != nil || !color.NoColor {
		t.Errorf("never: NoColor = %v, err = %v", color.NoColor, err)
	}
	if err := setupColor("always"); err != nil || color.NoColor {
		t.Errorf("always: NoColor = %v, err = %v", color.NoColor, err)
	}
	if err := setupColor("sometimes"); err == nil {
		t.Error("got nil error for an invalid mode")
	}
}

func TestFormatStdin(t *testing.T) {
	color.NoColor = true
	const (
		src  = "if {1} {\npool a\n}\n"
		want = "if { 1 } {\n    pool a\n}\n"
	)
	tests := []struct {
		name       string
		w, l, d, c bool
		input      string
		wantOut    string
		wantErr    bool
	}{
		{"stdout", false, false, false, false, src, want, false},
		{"check unformatted", false, false, false, true, src, "<stdin>\n", true},
		{"check formatted", false, false, false, true, want, "", false},
		{"list", false, true, false, false, src, "<stdin>\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setFlags(t, tt.w, tt.l, tt.d, tt.c)
			var out bytes.Buffer
			err := formatStdin(&out, strings.NewReader(tt.input), new(rule.Config))
			if (err != nil) != tt.wantErr {
				t.Errorf("got err %v, want error %v", err, tt.wantErr)
			}
			if got := out.String(); got != tt.wantOut {
				t.Errorf("got %q, want %q", got, tt.wantOut)
			}
		})
	}

	t.Run("diff", func(t *testing.T) {
		setFlags(t, false, false, true, false)
		var out bytes.Buffer
		if err := formatStdin(&out, strings.NewReader(src), new(rule.Config)); err != nil {
			t.Fatal(err)
		}
		if got := out.String(); !strings.HasPrefix(got, "diff <stdin>.orig <stdin>\n") || !strings.Contains(got, "+if { 1 } {\n") {
			t.Errorf("unexpected diff output:\n%s", got)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		setFlags(t, false, false, false, false)
		var out bytes.Buffer
		err := formatStdin(&out, strings.NewReader("pool }\n"), new(rule.Config))
		if !errors.Is(err, rule.ErrBracketMismatch) {
			t.Errorf("got %v, want ErrBracketMismatch", err)
		}
		if out.Len() > 0 {
			t.Errorf("wrote %q on error", out.String())
		}
	})
}
