// Package query implements qi's predicate language, compiled to
// parameterized SQL over the storage engine's code_index table, plus
// post-fetch rendering (table of contents, column selection, inline
// source splicing).
//
// difflib.SplitLines powers the -e/-C/-A/-B line splicing below. A flat
// Config struct is built once from pflag, then compiled and executed in
// one pass.
package query

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/store"
)

// contextAliases maps the short forms -i/-x accept ("func", "var",
// "prop", ...) to the canonical occurrence.Context values.
var contextAliases = map[string]occurrence.Context{
	"func": occurrence.CtxFunction, "function": occurrence.CtxFunction,
	"var": occurrence.CtxVariable, "variable": occurrence.CtxVariable,
	"arg": occurrence.CtxArgument, "argument": occurrence.CtxArgument,
	"type": occurrence.CtxType,
	"prop": occurrence.CtxProperty, "property": occurrence.CtxProperty,
	"call":      occurrence.CtxCall,
	"import":    occurrence.CtxImport,
	"enum":      occurrence.CtxEnum,
	"case":      occurrence.CtxEnumCase, "enumcase": occurrence.CtxEnumCase,
	"label":     occurrence.CtxLabel,
	"goto":      occurrence.CtxGoto,
	"lambda":    occurrence.CtxLambda,
	"exception": occurrence.CtxException,
	"ns":        occurrence.CtxNamespace, "namespace": occurrence.CtxNamespace,
	"comment":   occurrence.CtxComment,
	"string":    occurrence.CtxString,
	"filename":  occurrence.CtxFilename,
}

// ResolveContext canonicalizes a -i/-x context argument, returning an
// error that names the available values.
func ResolveContext(raw string) (occurrence.Context, error) {
	if c, ok := contextAliases[strings.ToLower(raw)]; ok {
		return c, nil
	}
	return "", &CompileError{
		Msg: fmt.Sprintf("unknown context kind %q (try: func, var, arg, type, prop, call, import, enum, case, label, goto, lambda, exception, ns, comment, string, filename)", raw),
	}
}

// CompileError is returned for malformed query input; callers translate
// it to exit code 2.
type CompileError struct{ Msg string }

func (e *CompileError) Error() string { return e.Msg }

// Config is qi's fully-parsed flag surface, built once from pflag in
// cmd/qi and passed to Run.
type Config struct {
	Patterns []string // positional args, OR-joined

	Include []occurrence.Context // -i, repeatable
	Exclude []occurrence.Context // -x, repeatable

	Modifier string // -m
	Scope    string // -s
	Clue     string // -c, LIKE pattern, "@%" means any decorator
	Parent   string // -p, LIKE pattern
	Type     string // -t, LIKE pattern
	File     string // -f, LIKE pattern with path-boundary semantics

	Def   bool // --def
	Usage bool // --usage

	AndWithin int    // --and N; -1 means not set
	Within    string // --within F

	Limit        int // --limit N, 0 means unset
	LimitPerFile int // --limit-per-file N, 0 means unset

	Expand  bool // -e
	Context int  // -C N (both directions); if 0, Before/After below apply
	Before  int  // -B N
	After   int  // -A N

	TOC     bool     // --toc
	Files   bool     // --files
	Columns []string // --columns, explicit column list
	AllCols bool     // -v
}

// Row is one result row: the fixed key columns plus the extensible facets
// keyed by their occurrence.Columns names, with SQL NULL read back as "".
type Row struct {
	Symbol         string
	Line           int
	Context        string
	Directory      string
	Filename       string
	SourceLocation string

	Facets map[string]string

	// Spliced holds the literal source text requested via -e/-C/-A/-B,
	// attached post-fetch; empty unless one of those flags was set.
	Spliced string
}

// Facet returns the extensible column value for name, or "" when NULL or
// never fetched.
func (r Row) Facet(name string) string { return r.Facets[name] }

// Path returns the row's directory+filename joined the way the Storage
// Engine concatenates them for -f matching.
func (r Row) Path() string { return r.Directory + r.Filename }

// allColumns is the full output column order used when -v or no --columns
// is given for a non-TOC, non-files result.
var allColumns = append([]string{"symbol", "line", "context", "directory", "filename", "source_location"}, occurrence.ColumnNames()...)

// Result is what Run returns: either plain rows, a distinct file list
// (--files), or a table-of-contents listing (--toc).
type Result struct {
	Columns []string
	Rows    []Row
	Files   []string
	TOC     []TOCEntry
}

// TOCEntry is one row of --toc's rendering: "file:line-endline\tkind\tname".
type TOCEntry struct {
	File     string
	Line     int
	EndLine  int
	Kind     string
	Name     string
}

// String renders a TOCEntry as file:line-endline\tkind\tname.
func (t TOCEntry) String() string {
	return fmt.Sprintf("%s:%d-%d\t%s\t%s", t.File, t.Line, t.EndLine, t.Kind, t.Name)
}

// Engine runs compiled queries against a Store.
type Engine struct {
	s *store.Store
}

// NewEngine wraps an opened Store for querying.
func NewEngine(s *store.Store) *Engine {
	return &Engine{s: s}
}

// compile turns cfg into a conjunction of WHERE clauses plus their
// positional args: each flag is compiled to its own WHERE clause conjunct.
// --and and --within require their own sub-queries against the store, so
// compile takes ctx and may hit the database before Run's main query runs.
func (e *Engine) compile(ctx context.Context, cfg Config) ([]string, []any, error) {
	var clauses []string
	var args []any

	if len(cfg.Patterns) > 0 {
		if cfg.AndWithin >= 0 && len(cfg.Patterns) > 1 {
			clause, andArgs, err := e.compileAnd(cfg.Patterns, cfg.AndWithin)
			if err != nil {
				return nil, nil, err
			}
			clauses = append(clauses, clause)
			args = append(args, andArgs...)
		} else {
			var ors []string
			for _, p := range cfg.Patterns {
				ors = append(ors, "symbol LIKE ?")
				args = append(args, p)
			}
			clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
		}
	}

	if len(cfg.Include) > 0 {
		var ors []string
		for _, c := range cfg.Include {
			ors = append(ors, "context = ?")
			args = append(args, string(c))
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if len(cfg.Exclude) > 0 {
		for _, c := range cfg.Exclude {
			clauses = append(clauses, "context != ?")
			args = append(args, string(c))
		}
	}

	if cfg.Modifier != "" {
		clauses = append(clauses, "modifier = ?")
		args = append(args, cfg.Modifier)
	}
	if cfg.Scope != "" {
		clauses = append(clauses, "scope = ?")
		args = append(args, cfg.Scope)
	}
	if cfg.Clue != "" {
		clauses = append(clauses, "clue LIKE ?")
		args = append(args, cfg.Clue)
	}
	if cfg.Parent != "" {
		clauses = append(clauses, "parent LIKE ?")
		args = append(args, cfg.Parent)
	}
	if cfg.Type != "" {
		clauses = append(clauses, "type LIKE ?")
		args = append(args, cfg.Type)
	}
	if cfg.File != "" {
		clauses = append(clauses, "(directory || filename) LIKE ?")
		args = append(args, normalizeFilePattern(cfg.File))
	}

	if cfg.Def {
		clauses = append(clauses, "definition = '1'")
	}
	if cfg.Usage {
		clauses = append(clauses, "(definition IS NULL OR definition != '1')")
	}

	if cfg.Within != "" {
		clause, withinArgs, err := e.compileWithin(ctx, cfg.Within)
		if err != nil {
			return nil, nil, err
		}
		if clause == "" {
			// No matching definition: force an empty result rather than
			// silently ignoring --within.
			clauses = append(clauses, "1 = 0")
		} else {
			clauses = append(clauses, clause)
			args = append(args, withinArgs...)
		}
	}

	return clauses, args, nil
}

// normalizeFilePattern enforces a path-boundary rule: a pattern without a
// leading "/" or "./" must match starting at a directory boundary, so
// "go/%" matches ".../go/foo.go" but not ".../mygo/foo.go".
func normalizeFilePattern(p string) string {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "./") {
		return p
	}
	return "%/" + p
}

// compileAnd implements --and N: a self-join so results are lines where
// every pattern appears within N source lines of each other in the same
// file (N=0 means same line).
func (e *Engine) compileAnd(patterns []string, n int) (string, []any, error) {
	var exists []string
	var args []any
	for i, p := range patterns {
		if i == 0 {
			continue // the base row itself carries patterns[0]'s match via the outer symbol clause
		}
		alias := fmt.Sprintf("co%d", i)
		exists = append(exists, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM code_index %s WHERE %s.directory = code_index.directory AND %s.filename = code_index.filename AND %s.symbol LIKE ? AND ABS(%s.line - code_index.line) <= ?)",
			alias, alias, alias, alias, alias))
		args = append(args, p, n)
	}
	base := "symbol LIKE ?"
	baseArgs := []any{patterns[0]}
	clause := base
	if len(exists) > 0 {
		clause = "(" + base + ") AND " + strings.Join(exists, " AND ")
	}
	return clause, append(baseArgs, args...), nil
}

// compileWithin implements --within F: restricts results to lines inside
// the body of any definition named F, using each matching definition's
// source_location span.
func (e *Engine) compileWithin(ctx context.Context, name string) (string, []any, error) {
	var defs []Row
	sqlRows, err := e.s.DB().WithContext(ctx).Raw(
		"SELECT symbol, line, context, directory, filename, source_location FROM code_index WHERE symbol = ? AND definition = '1'", name).Rows()
	if err != nil {
		return "", nil, fmt.Errorf("query: resolving --within %q: %w", name, err)
	}
	defer sqlRows.Close()
	for sqlRows.Next() {
		var r Row
		if err := sqlRows.Scan(&r.Symbol, &r.Line, &r.Context, &r.Directory, &r.Filename, &r.SourceLocation); err != nil {
			return "", nil, fmt.Errorf("query: scanning --within definition: %w", err)
		}
		defs = append(defs, r)
	}
	if err := sqlRows.Err(); err != nil {
		return "", nil, err
	}

	if len(defs) == 0 {
		return "", nil, nil
	}

	var ors []string
	var args []any
	for _, d := range defs {
		start, end := parseSourceLocation(d.SourceLocation)
		if start == 0 {
			continue
		}
		ors = append(ors, "(directory = ? AND filename = ? AND line BETWEEN ? AND ?)")
		args = append(args, d.Directory, d.Filename, start, end)
	}
	if len(ors) == 0 {
		return "", nil, nil
	}
	return "(" + strings.Join(ors, " OR ") + ")", args, nil
}

// Run compiles cfg into SQL, executes it, and applies every post-fetch
// transformation (-e/-C/-A/-B splicing, --toc, --files, --columns/-v)
// requested in cfg.
func (e *Engine) Run(ctx context.Context, cfg Config) (*Result, error) {
	clauses, args, err := e.compile(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sqlStr := "SELECT " + strings.Join(allColumns, ", ") + " FROM code_index"
	if len(clauses) > 0 {
		sqlStr += " WHERE " + strings.Join(clauses, " AND ")
	}
	sqlStr += " ORDER BY directory, filename, line"

	if cfg.Limit > 0 {
		sqlStr += fmt.Sprintf(" LIMIT %d", cfg.Limit)
	}

	rows, err := e.fetch(sqlStr, args)
	if err != nil {
		return nil, err
	}
	if cfg.LimitPerFile > 0 {
		rows = capPerFile(rows, cfg.LimitPerFile)
	}

	if cfg.TOC {
		return &Result{TOC: buildTOC(rows)}, nil
	}
	if cfg.Files {
		return &Result{Files: distinctFiles(rows)}, nil
	}

	if cfg.Expand || cfg.Context > 0 || cfg.Before > 0 || cfg.After > 0 {
		rows, err = splice(rows, cfg)
		if err != nil {
			return nil, err
		}
	}

	cols := allColumns
	if !cfg.AllCols && len(cfg.Columns) > 0 {
		cols, err = whitelistColumns(cfg.Columns)
		if err != nil {
			return nil, err
		}
	}

	return &Result{Columns: cols, Rows: rows}, nil
}

// whitelistColumns validates --columns against the key columns plus
// occurrence.ColumnNames(), the single declarative source for which
// columns exist.
func whitelistColumns(requested []string) ([]string, error) {
	valid := make(map[string]bool, len(allColumns))
	for _, c := range allColumns {
		valid[c] = true
	}
	out := make([]string, 0, len(requested))
	for _, c := range requested {
		c = strings.TrimSpace(strings.ToLower(c))
		if !valid[c] {
			return nil, &CompileError{Msg: fmt.Sprintf("unknown column %q (available: %s)", c, strings.Join(allColumns, ", "))}
		}
		out = append(out, c)
	}
	return out, nil
}

// fetch scans rows generically: six fixed key-column targets followed by
// one nullable target per occurrence.Columns entry, so a newly declared
// column flows through without touching this function.
func (e *Engine) fetch(sqlStr string, args []any) ([]Row, error) {
	sqlRows, err := e.s.DB().Raw(sqlStr, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("query: executing: %w", err)
	}
	defer sqlRows.Close()

	names := occurrence.ColumnNames()
	var out []Row
	for sqlRows.Next() {
		var r Row
		facets := make([]*string, len(names))
		dest := []any{&r.Symbol, &r.Line, &r.Context, &r.Directory, &r.Filename, &r.SourceLocation}
		for i := range facets {
			dest = append(dest, &facets[i])
		}
		if err := sqlRows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("query: scanning row: %w", err)
		}
		r.Facets = make(map[string]string, len(names))
		for i, name := range names {
			r.Facets[name] = deref(facets[i])
		}
		out = append(out, r)
	}
	return out, sqlRows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func capPerFile(rows []Row, n int) []Row {
	counts := make(map[string]int)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		key := r.Path()
		if counts[key] >= n {
			continue
		}
		counts[key]++
		out = append(out, r)
	}
	return out
}

func distinctFiles(rows []Row) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		p := r.Path()
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// buildTOC renders function, type and enum definitions in definition order
// with line ranges, sorted by line and grouped by file; other definitions
// (variables, arguments, properties, ...) are left out.
func buildTOC(rows []Row) []TOCEntry {
	var out []TOCEntry
	for _, r := range rows {
		if r.Facet("definition") != "1" {
			continue
		}
		switch occurrence.Context(r.Context) {
		case occurrence.CtxFunction, occurrence.CtxType, occurrence.CtxEnum:
		default:
			continue
		}
		startLine, endLine := parseSourceLocation(r.SourceLocation)
		if startLine == 0 {
			startLine = r.Line
		}
		if endLine == 0 {
			endLine = startLine
		}
		out = append(out, TOCEntry{
			File:    r.Path(),
			Line:    startLine,
			EndLine: endLine,
			Kind:    r.Context,
			Name:    r.Symbol,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// parseSourceLocation reverses occurrence.SourceLocation.String()'s
// "startLine:startCol-endLine:endCol" encoding enough to recover the two
// line numbers --toc and --within need.
func parseSourceLocation(s string) (startLine, endLine int) {
	if s == "" {
		return 0, 0
	}
	startPart, endPart, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0
	}
	startLine, _ = strconv.Atoi(strings.SplitN(startPart, ":", 2)[0])
	endLine, _ = strconv.Atoi(strings.SplitN(endPart, ":", 2)[0])
	return startLine, endLine
}

// splice implements -e (literal definition span) and -C/-A/-B (surrounding
// lines): for each row, read its source file and attach the requested
// lines to Row.Spliced so the caller can print them. Reuses
// difflib.SplitLines for 1-indexed-safe line splitting.
func splice(rows []Row, cfg Config) ([]Row, error) {
	cache := make(map[string][]string)
	out := make([]Row, len(rows))
	for i, r := range rows {
		path := r.Path()
		lines, ok := cache[path]
		if !ok {
			data, err := os.ReadFile(path)
			if err != nil {
				out[i] = r
				continue
			}
			lines = difflib.SplitLines(string(data))
			cache[path] = lines
		}

		before, after := cfg.Before, cfg.After
		if cfg.Context > 0 {
			before, after = cfg.Context, cfg.Context
		}

		startLine, endLine := r.Line, r.Line
		if cfg.Expand {
			if sl, el := parseSourceLocation(r.SourceLocation); sl > 0 {
				startLine, endLine = sl, el
			}
		}
		startLine -= before
		endLine += after
		if startLine < 1 {
			startLine = 1
		}
		if endLine > len(lines) {
			endLine = len(lines)
		}

		var b strings.Builder
		for ln := startLine; ln <= endLine && ln >= 1; ln++ {
			b.WriteString(lines[ln-1])
		}
		r.Spliced = b.String()
		out[i] = r
	}
	return out, nil
}
