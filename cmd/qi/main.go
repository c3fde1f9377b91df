// Command qi is the query CLI: it compiles a predicate built from its
// flags into a parameterized SQL statement against the storage engine's
// code_index table and renders the results.
//
// A pflag.FlagSet is built in buildConfigFromFlags, parsed once into a typed
// config, then handed to a single run function that returns an exit code
// rather than calling os.Exit itself from deep in the call stack.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/sourceminder/sourceminder/internal/config"
	"github.com/sourceminder/sourceminder/internal/query"
	"github.com/sourceminder/sourceminder/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	cfg, dbFile, err := buildConfigFromFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	if dbFile == "" {
		if env, envErr := config.LoadEnv(".env"); envErr == nil && env.DBFile != "" {
			dbFile = env.DBFile
		} else {
			dbFile = "code-index.db"
		}
	}

	st, err := store.Open(dbFile, false)
	if err != nil {
		fmt.Fprintf(stderr, "qi: opening store: %v\n", err)
		return 1
	}
	defer st.Close()

	engine := query.NewEngine(st)
	result, err := engine.Run(context.Background(), *cfg)
	if err != nil {
		var compileErr *query.CompileError
		if errors.As(err, &compileErr) {
			fmt.Fprintln(stderr, compileErr.Error())
			return 2
		}
		fmt.Fprintf(stderr, "qi: %v\n", err)
		return 1
	}

	switch {
	case result.TOC != nil:
		for _, e := range result.TOC {
			fmt.Fprintln(stdout, e.String())
		}
		if len(result.TOC) == 0 {
			return 1
		}
	case result.Files != nil:
		for _, f := range result.Files {
			fmt.Fprintln(stdout, f)
		}
		if len(result.Files) == 0 {
			return 1
		}
	default:
		for _, r := range result.Rows {
			printRow(stdout, result.Columns, r)
		}
		if len(result.Rows) == 0 {
			return 1
		}
	}
	return 0
}

func printRow(w *os.File, columns []string, r query.Row) {
	fields := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		fields = append(fields, columnValue(r, c))
	}
	line := strings.Join(fields, "\t")
	if r.Spliced != "" {
		line += "\n" + r.Spliced
	}
	fmt.Fprintln(w, line)
}

// columnValue resolves one output column: the six fixed key columns are
// named here, everything else is an extensible facet looked up by its
// occurrence.Columns name (col has already passed the query engine's
// whitelist, so an unknown name cannot reach this point).
func columnValue(r query.Row, col string) string {
	switch col {
	case "symbol":
		return r.Symbol
	case "line":
		return strconv.Itoa(r.Line)
	case "context":
		return r.Context
	case "directory":
		return r.Directory
	case "filename":
		return r.Filename
	case "source_location":
		return r.SourceLocation
	default:
		return r.Facet(col)
	}
}

// buildConfigFromFlags parses qi's flag surface into a query.Config (whose
// Patterns field holds the positional symbol patterns) and the --db-file
// path.
func buildConfigFromFlags(args []string) (*query.Config, string, error) {
	fs := pflag.NewFlagSet("qi", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: qi [--db-file PATH] <patterns...> [flags]")
		fs.PrintDefaults()
	}

	dbFile := fs.String("db-file", "", "path to the occurrences database (default code-index.db, or .env's SOURCEMINDER_DB_FILE)")

	include := fs.StringArrayP("i", "i", nil, "include context kind (repeatable)")
	exclude := fs.StringArrayP("x", "x", nil, "exclude context kind (repeatable)")
	modifier := fs.StringP("m", "m", "", "require modifier = M")
	scope := fs.StringP("s", "s", "", "require scope = S")
	clue := fs.StringP("c", "c", "", "require clue LIKE C")
	parent := fs.StringP("p", "p", "", "require parent LIKE P")
	typ := fs.StringP("t", "t", "", "require type LIKE T")
	file := fs.StringP("f", "f", "", "require (directory||filename) LIKE FILE")

	def := fs.Bool("def", false, "require definition = '1'")
	usage := fs.Bool("usage", false, "require definition is not '1'")

	and := fs.Int("and", -1, "co-occurrence: patterns must all appear within N lines (0 = same line)")
	within := fs.String("within", "", "restrict to lines inside the named definition's body")

	limit := fs.Int("limit", 0, "global row cap")
	limitPerFile := fs.Int("limit-per-file", 0, "per-file row cap")

	expand := fs.BoolP("e", "e", false, "splice in the literal definition span")
	ctxLines := fs.IntP("C", "C", 0, "N surrounding lines (both directions)")
	after := fs.IntP("A", "A", 0, "N lines of trailing context")
	before := fs.IntP("B", "B", 0, "N lines of leading context")

	toc := fs.Bool("toc", false, "render a table of contents")
	files := fs.Bool("files", false, "return distinct file paths only")
	columns := fs.StringSlice("columns", nil, "explicit output column list")
	allCols := fs.BoolP("v", "v", false, "show all columns")

	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}

	cfg := &query.Config{
		Patterns:     fs.Args(),
		Modifier:     *modifier,
		Scope:        *scope,
		Clue:         *clue,
		Parent:       *parent,
		Type:         *typ,
		File:         *file,
		Def:          *def,
		Usage:        *usage,
		AndWithin:    *and,
		Within:       *within,
		Limit:        *limit,
		LimitPerFile: *limitPerFile,
		Expand:       *expand,
		Context:      *ctxLines,
		Before:       *before,
		After:        *after,
		TOC:          *toc,
		Files:        *files,
		Columns:      *columns,
		AllCols:      *allCols,
	}

	for _, raw := range *include {
		c, err := query.ResolveContext(raw)
		if err != nil {
			return nil, "", err
		}
		cfg.Include = append(cfg.Include, c)
	}
	for _, raw := range *exclude {
		c, err := query.ResolveContext(raw)
		if err != nil {
			return nil, "", err
		}
		cfg.Exclude = append(cfg.Exclude, c)
	}

	return cfg, *dbFile, nil
}
