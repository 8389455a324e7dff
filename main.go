// Irulefmt formats iRule scripts.
//
// Without paths, it formats standard input to standard output.
// Given a file, it formats that file; given a directory, it formats
// every file with a matching extension (.tcl, .irule, and .irul unless
// an .irulefmt.toml says otherwise) in the directory tree.
//
// Usage:
//
//	irulefmt [flags] [path ...]
//
// The flags are:
//
//	-w, --write
//		write the result to the (source) file instead of stdout
//	-l, --list
//		list files whose formatting differs from irulefmt's
//	-d, --diff
//		display diffs instead of rewriting files
//	--check
//		exit with a non-zero status if any file is not formatted
//	-j, --jobs n
//		format up to n files in parallel
//	--trace
//		log every parsed node to standard error
//	--color auto|always|never
//		colorize diagnostics and diffs
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"rsc.io/diff"

	"mibk.dev/irulefmt/format"
	"mibk.dev/irulefmt/rule"
)

var (
	inPlace   bool
	list      bool
	showDiff  bool
	check     bool
	jobs      int
	trace     bool
	colorMode string
)

var rootCmd = &cobra.Command{
	Use:   "irulefmt [flags] [path ...]",
	Short: "Format iRule scripts",
	Long: `Irulefmt formats iRule scripts in canonical style: four-space indentation,
normalized spacing around braces, and at most two consecutive blank lines.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.BoolVarP(&inPlace, "write", "w", false, "write result to (source) file instead of stdout")
	f.BoolVarP(&list, "list", "l", false, "list files whose formatting differs")
	f.BoolVarP(&showDiff, "diff", "d", false, "display diffs instead of rewriting files")
	f.BoolVar(&check, "check", false, "exit with a non-zero status if any file is not formatted")
	f.IntVarP(&jobs, "jobs", "j", runtime.GOMAXPROCS(0), "number of files formatted in parallel")
	f.BoolVar(&trace, "trace", false, "log parsed nodes to standard error")
	f.StringVar(&colorMode, "color", "auto", "colorize output (auto|always|never)")
}

func main() {
	log.SetPrefix("irulefmt: ")
	log.SetFlags(0)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	addColor    = color.New(color.FgGreen)
	removeColor = color.New(color.FgRed)
)

func setupColor(mode string) error {
	switch mode {
	case "auto":
		color.NoColor = os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stdout) || !isTerminal(os.Stderr)
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (want auto, always, or never)", mode)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func run(cmd *cobra.Command, args []string) error {
	if err := setupColor(colorMode); err != nil {
		return err
	}
	if jobs < 1 {
		return fmt.Errorf("invalid --jobs value %d", jobs)
	}
	var logger *slog.Logger
	if trace {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	if len(args) == 0 {
		if inPlace {
			return errors.New("cannot use -w with standard input")
		}
		return formatStdin(os.Stdout, os.Stdin, parseConfig(logger, "<stdin>"))
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	results, err := formatFiles(cmd.Context(), files, logger)
	if err != nil {
		return err
	}

	var failed, unformatted int
	for _, r := range results {
		if r.err != nil {
			failed++
			errorColor.Fprintln(os.Stderr, r.err)
			continue
		}
		changed := !bytes.Equal(r.src, r.out)
		if changed {
			unformatted++
		}
		if err := report(os.Stdout, r, changed); err != nil {
			return err
		}
	}

	switch {
	case failed > 0:
		return fmt.Errorf("%d of %d files could not be formatted", failed, len(results))
	case check && unformatted > 0:
		return fmt.Errorf("%d of %d files are not formatted", unformatted, len(results))
	}
	return nil
}

func parseConfig(logger *slog.Logger, filename string) *rule.Config {
	cfg := new(rule.Config)
	if logger == nil {
		return cfg
	}
	logger = logger.With("file", filename)
	cfg.Trace = func(e rule.Event) {
		logger.Debug("parsed", "kind", e.Kind, "from", e.From.String(), "to", e.To.String())
	}
	return cfg
}

type result struct {
	path     string
	src, out []byte
	err      error
}

// formatFiles formats files in parallel. A file that cannot be
// formatted does not stop the others; its error is kept in its result.
func formatFiles(ctx context.Context, files []string, logger *slog.Logger) ([]result, error) {
	results := make([]result, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = formatFile(path, parseConfig(logger, path))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// formatStdin formats in to out, honouring the output flags
// as if in were a file named <stdin>.
func formatStdin(out io.Writer, in io.Reader, cfg *rule.Config) error {
	src, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	r := formatSource("<stdin>", src, cfg)
	if r.err != nil {
		return r.err
	}
	changed := !bytes.Equal(r.src, r.out)
	if err := report(out, r, changed); err != nil {
		return err
	}
	if check && changed {
		return errors.New("<stdin> is not formatted")
	}
	return nil
}

func formatFile(path string, cfg *rule.Config) result {
	fi, err := os.Stat(path)
	if err != nil {
		return result{path: path, err: err}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return result{path: path, err: err}
	}

	r := formatSource(path, src, cfg)
	if r.err == nil && inPlace && !bytes.Equal(r.src, r.out) {
		r.err = os.WriteFile(path, r.out, fi.Mode().Perm())
	}
	return r
}

func formatSource(path string, src []byte, cfg *rule.Config) result {
	r := result{path: path, src: src}
	buf := new(bytes.Buffer)
	if err := format.Pipe(path, buf, bytes.NewReader(src), cfg); err != nil {
		r.err = err
		return r
	}
	r.out = buf.Bytes()
	return r
}

// report prints the outcome of a successful format
// as selected by the output flags.
func report(w io.Writer, r result, changed bool) error {
	if !list && !check && !showDiff {
		if inPlace {
			return nil
		}
		_, err := w.Write(r.out)
		return err
	}
	if !changed {
		return nil
	}
	if list || check {
		if _, err := fmt.Fprintln(w, r.path); err != nil {
			return err
		}
	}
	if showDiff {
		return printDiff(w, r)
	}
	return nil
}

func printDiff(w io.Writer, r result) error {
	if _, err := fmt.Fprintf(w, "diff %s.orig %s\n", r.path, r.path); err != nil {
		return err
	}
	d := diff.Format(string(r.src), string(r.out))
	for line := range strings.Lines(d) {
		var err error
		switch {
		case strings.HasPrefix(line, "-"):
			_, err = removeColor.Fprint(w, line)
		case strings.HasPrefix(line, "+"):
			_, err = addColor.Fprint(w, line)
		default:
			_, err = io.WriteString(w, line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
