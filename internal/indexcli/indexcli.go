// Package indexcli is the shared scaffolding every index-<language> binary
// is built from: flag parsing, file discovery over the paths given on the
// command line, and the per-file parse → walk → flush loop with per-file
// error recovery.
//
// ParseFlags parses a pflag.FlagSet into a typed Config, then a
// single driver function runs the work and reports a result the main
// translates into an exit code. One driver serves all five
// index-<language> mains, each supplying its language's Frontend/Walker
// pair.
package indexcli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/sourceminder/sourceminder/internal/buffer"
	"github.com/sourceminder/sourceminder/internal/classify"
	"github.com/sourceminder/sourceminder/internal/config"
	"github.com/sourceminder/sourceminder/internal/filter"
	"github.com/sourceminder/sourceminder/internal/logx"
	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
	"github.com/sourceminder/sourceminder/internal/store"
	"github.com/sourceminder/sourceminder/internal/walker"
)

// Profile binds one language's Parse Frontend and Walker to the file
// extensions it claims. index-typescript registers two Profiles (.ts/.tsx
// and .js/.jsx) sharing one binary, since both grammars are served by the
// same walker package (internal/walker/typescript) but need their own
// tree-sitter language and SymbolTable.
type Profile struct {
	Name       string
	Extensions []string
	Frontend   *parsefrontend.Frontend
	Walker     *walker.Walker
}

// Config is the parsed flag surface shared by every index-<language>
// binary.
type Config struct {
	Paths          []string
	Once           bool
	Quiet          bool
	Verbose        bool
	Debug          bool
	DBFile         string
	MaxBuffer      int
	EnvFile        string
	KeywordsFile   string
	ExtensionsFile string
}

// LogLevel maps the parsed verbosity flags to an internal/logx.Level.
// --debug implies --verbose's detail plus handler tracing; --quiet wins
// over both, since it is a distinct log-level flag, not a modifier on
// --verbose/--debug.
func (c *Config) LogLevel() logx.Level {
	switch {
	case c.Quiet:
		return logx.LevelQuiet
	case c.Debug:
		return logx.LevelDebug
	case c.Verbose:
		return logx.LevelVerbose
	default:
		return logx.LevelNormal
	}
}

// ParseFlags parses args into a Config: a pflag.FlagSet with a custom
// Usage, positional arguments becoming cfg.Paths. langName appears in the
// generated usage banner only.
func ParseFlags(langName string, args []string) (*Config, error) {
	prog := "index-" + langName
	fs := pflag.NewFlagSet(prog, pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <paths...> [--once] [--quiet] [--verbose] [--debug] [--db-file PATH]\n\n", prog)
		fs.PrintDefaults()
	}

	once := fs.Bool("once", false, "index, commit, exit (no watch loop)")
	quiet := fs.Bool("quiet", false, "suppress normal logging")
	verbose := fs.BoolP("verbose", "v", false, "enable verbose logging")
	debug := fs.Bool("debug", false, "emit per-handler debug traces (file:line of handler and source position)")
	dbFile := fs.String("db-file", "code-index.db", "path to the occurrences database (local file or libsql:// DSN)")
	maxBuffer := fs.Int("max-buffer", 0, "max occurrences retained per file before dropping the excess (0 = default)")
	envFile := fs.String("env-file", ".env", "optional .env file sourcing --db-file's default (SOURCEMINDER_DB_FILE)")
	keywordsFile := fs.String("keywords", "", "optional keyword-list file overriding the built-in reserved-word list")
	extensionsFile := fs.String("extensions", "", "optional \"language: .ext ...\" override file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, fmt.Errorf("%s: at least one path is required", prog)
	}

	cfg := &Config{
		Paths:          fs.Args(),
		Once:           *once,
		Quiet:          *quiet,
		Verbose:        *verbose,
		Debug:          *debug,
		DBFile:         *dbFile,
		MaxBuffer:      *maxBuffer,
		EnvFile:        *envFile,
		KeywordsFile:   *keywordsFile,
		ExtensionsFile: *extensionsFile,
	}

	if !fs.Changed("db-file") {
		if env, err := config.LoadEnv(*envFile); err == nil && env.DBFile != "" {
			cfg.DBFile = env.DBFile
		}
	}
	return cfg, nil
}

// ResolveFilter builds the Symbol Filter for one language: the built-in
// keyword list, or the override file named by --keywords if one was given.
func ResolveFilter(lang string, keywordsFile string) (*filter.Set, error) {
	keywords := config.DefaultKeywords[lang]
	if keywordsFile != "" {
		override, err := config.LoadKeywordFile(keywordsFile)
		if err != nil {
			return nil, fmt.Errorf("indexcli: loading keyword file: %w", err)
		}
		keywords = override
	}
	return filter.NewSet(keywords), nil
}

// ResolveExtensions returns the accepted extensions for lang, honoring
// --extensions if one was given.
func ResolveExtensions(lang string, extensionsFile string) ([]string, error) {
	if extensionsFile == "" {
		return config.DefaultExtensions[lang], nil
	}
	set, err := config.LoadExtensionFile(extensionsFile)
	if err != nil {
		return nil, fmt.Errorf("indexcli: loading extensions file: %w", err)
	}
	return set[lang], nil
}

// Result summarizes one Run for the caller's exit-code decision.
type Result struct {
	FilesIndexed int
	FilesFailed  int
}

// Run executes the index-<language> pipeline: it opens the storage engine,
// discovers files under cfg.Paths matching one of profiles' extensions,
// and for each one parses, walks, and flushes its occurrences in a single
// transaction. An ordinary I/O or parse error is reported and the run
// continues with the next file; a *classify.DriftError is fatal for the
// whole run, since it signals the walker's node-type tables have drifted
// from the grammar actually in use, not a problem with one file's content.
//
// Non-`--once` continuous/watch-mode indexing is not implemented here:
// file-system discovery and cross-file concurrency orchestration are an
// external collaborator's job, and a watch loop is exactly that kind of
// collaborator. Run always performs the one-shot index-commit-exit
// behavior described for --once; cfg.Once is accepted and threaded
// through for forward compatibility with an external watch-mode wrapper,
// but Run itself never loops.
func Run(ctx context.Context, cfg *Config, profiles []Profile, filt *filter.Set, log *logx.Logger) (*Result, error) {
	st, err := store.Open(cfg.DBFile, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("indexcli: opening store: %w", err)
	}
	defer st.Close()

	byExt := make(map[string]Profile, 16)
	for _, p := range profiles {
		for _, ext := range p.Extensions {
			byExt[strings.ToLower(ext)] = p
		}
	}

	files, err := discoverFiles(cfg.Paths, byExt, log)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, file := range files {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		profile := byExt[strings.ToLower(filepath.Ext(file))]
		if err := indexOneFile(ctx, st, profile, file, cfg, filt, log); err != nil {
			var drift *classify.DriftError
			if errors.As(err, &drift) {
				return res, fmt.Errorf("indexcli: %w", err)
			}
			log.Warnf("%s: %v", file, err)
			res.FilesFailed++
			continue
		}
		res.FilesIndexed++
	}

	if res.FilesIndexed == 0 && res.FilesFailed > 0 {
		return res, fmt.Errorf("indexcli: failed to index any of %d file(s)", res.FilesFailed)
	}
	return res, nil
}

// discoverFiles expands cfg.Paths into a concrete file list. A directory is
// walked recursively (skipping dot-directories like .git), keeping files
// whose extension matches a registered Profile; an explicit file argument
// is kept even without checking ancestry, but skipped with a warning if its
// extension matches no Profile. Glob/ignore-pattern sophistication belongs
// to an external file-discovery collaborator — this is the minimal
// extension-filtered walk needed to accept "paths" at all.
func discoverFiles(paths []string, byExt map[string]Profile, log *logx.Logger) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("indexcli: %w", err)
		}

		if !info.IsDir() {
			if _, ok := byExt[strings.ToLower(filepath.Ext(p))]; !ok {
				log.Warnf("%s: no walker registered for this extension, skipping", p)
				continue
			}
			out = append(out, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() != "." && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if _, ok := byExt[strings.ToLower(filepath.Ext(path))]; ok {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("indexcli: walking %s: %w", p, err)
		}
	}
	return out, nil
}

// indexOneFile runs the Parse Frontend and Language Walker over one file
// and flushes the resulting Occurrence Buffer to the Storage Engine in one
// transaction.
func indexOneFile(ctx context.Context, st *store.Store, profile Profile, file string, cfg *Config, filt *filter.Set, log *logx.Logger) error {
	pf, err := profile.Frontend.Parse(ctx, file)
	if err != nil {
		return err
	}
	defer pf.Close()

	directory, filename := splitDirFile(file)

	buf := buffer.New(cfg.MaxBuffer)
	wctx := &walker.Context{
		Buf:       buf,
		Source:    pf.Source,
		Directory: directory,
		Filename:  filename,
		Filter:    filt,
	}
	if cfg.Debug {
		wctx.Tracer = func(nodeType, handlerFile string, handlerLine, srcLine int) {
			log.Debugf("%s:%d: node=%s handler=%s:%d", file, srcLine, nodeType, handlerFile, handlerLine)
		}
	}

	profile.Walker.VisitNode(wctx, pf.Root)

	if wctx.DriftErr != nil {
		return wctx.DriftErr
	}

	if overflowed, dropped := buf.Overflowed(); overflowed {
		log.Warnf("%s: occurrence buffer overflowed, dropped %d occurrence(s)", file, dropped)
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	buf.Append(occurrence.New(base, 1, occurrence.CtxFilename, directory, filename))

	if err := st.ReplaceFile(ctx, directory, filename, buf.Items()); err != nil {
		return err
	}
	log.Verbosef("%s: indexed %d occurrence(s)", file, buf.Len())
	return nil
}

// splitDirFile turns a file path into the (directory, filename) pair the
// occurrence schema stores: directory as the path gives it (relative or
// absolute, "." for a bare name) with a trailing slash,
// filename the base name with extension.
func splitDirFile(file string) (directory, filename string) {
	dir := filepath.Dir(file)
	if dir == "" {
		dir = "."
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir, filepath.Base(file)
}
