// Package store is the embedded storage engine: a single wide code_index
// table holding every Occurrence, a meta table recording the schema
// version, and per-file transactional replace semantics.
//
// It connects through a local file-based dialector or, for a libsql://
// or http(s):// DSN, a libsql.NewConnector-backed remote dialector for
// Turso, with the same foreign-keys-on-after-open step and
// gorm.Open/gorm.Config{Logger} debug-mode wiring either way. It uses
// glebarez/sqlite (pure Go, no cgo), so the store itself adds no cgo
// requirement (the index-* binaries still need cgo for the tree-sitter
// grammars). The DDL is generated from occurrence.Columns rather than
// hand-written per table, so the schema stays declared in one place.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlitedialect "github.com/glebarez/sqlite"
	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sourceminder/sourceminder/internal/occurrence"
)

// SchemaVersion is bumped whenever the code_index/meta DDL changes shape.
// A mismatch between this and the meta table's stored value is a fatal
// startup error, not a silent migration.
const SchemaVersion = 1

// ErrSchemaMismatch is returned by Open when an existing database's
// recorded schema version doesn't match SchemaVersion.
type ErrSchemaMismatch struct {
	Stored  int
	Current int
}

func (e *ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("store: database schema version %d does not match this binary's version %d", e.Stored, e.Current)
}

// Store wraps the opened database and the occurrence table's generated
// column list.
type Store struct {
	db      *gorm.DB
	columns []string // all occurrence columns in INSERT order
}

// isURL reports whether dsn is a remote libsql/Turso DSN, which is routed
// through the libsql connector rather than opened as a local file.
func isURL(dsn string) bool {
	return strings.HasPrefix(dsn, "http://") || strings.HasPrefix(dsn, "https://") || strings.HasPrefix(dsn, "libsql")
}

// Open connects to dsn (a local file path or a libsql:// / http(s):// remote
// DSN), creates the schema if absent, and verifies the schema version.
func Open(dsn string, debug bool) (*Store, error) {
	if !isURL(dsn) {
		dir := filepath.Dir(dsn)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: creating database directory: %w", err)
			}
		}
	}

	gcfg := &gorm.Config{}
	if debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		dialector gorm.Dialector
		conn      *sql.DB
	)
	if isURL(dsn) {
		var (
			connector driver.Connector
			err       error
		)
		if token := os.Getenv("SOURCEMINDER_LIBSQL_AUTH_TOKEN"); token != "" {
			connector, err = libsql.NewConnector(dsn, libsql.WithAuthToken(token))
		} else {
			connector, err = libsql.NewConnector(dsn)
		}
		if err != nil {
			return nil, fmt.Errorf("store: creating libsql connector: %w", err)
		}
		conn = sql.OpenDB(connector)
		dialector = &sqlitedialect.Dialector{
			DriverName: "libsql",
			Conn:       conn,
			DSN:        dsn,
		}
	} else {
		dialector = sqlitedialect.Open(dsn)
	}

	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("store: connecting: %w", err)
	}

	if err := applyPragmas(gdb); err != nil {
		return nil, err
	}

	s := &Store{db: gdb, columns: allColumns()}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// applyPragmas tunes the SQLite connection: WAL journal mode so concurrent
// readers don't block a writer mid-index, NORMAL synchronous (durable
// enough for a rebuildable index, much faster than FULL), and a larger
// page cache than SQLite's tiny default.
func applyPragmas(gdb *gorm.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -20000",
		"PRAGMA foreign_keys = ON",
	} {
		if err := gdb.Exec(pragma).Error; err != nil {
			return fmt.Errorf("store: applying %q: %w", pragma, err)
		}
	}
	return nil
}

func allColumns() []string {
	cols := []string{"symbol", "line", "context", "directory", "filename", "source_location"}
	cols = append(cols, occurrence.ColumnNames()...)
	return cols
}

// migrate creates code_index/meta if absent and checks the stored schema
// version against SchemaVersion.
func (s *Store) migrate() error {
	var count int64
	if err := s.db.Raw("SELECT count(*) FROM sqlite_master WHERE type='table' AND name='meta'").Scan(&count).Error; err != nil {
		return fmt.Errorf("store: checking for meta table: %w", err)
	}

	if count == 0 {
		if err := s.createSchema(); err != nil {
			return err
		}
		return nil
	}

	var stored int
	if err := s.db.Raw("SELECT schema_version FROM meta WHERE id = 1").Scan(&stored).Error; err != nil {
		return fmt.Errorf("store: reading schema version: %w", err)
	}
	if stored != SchemaVersion {
		return &ErrSchemaMismatch{Stored: stored, Current: SchemaVersion}
	}
	return nil
}

func (s *Store) createSchema() error {
	var cols []string
	cols = append(cols,
		"symbol TEXT NOT NULL",
		"line INTEGER NOT NULL",
		"context TEXT NOT NULL",
		"directory TEXT NOT NULL",
		"filename TEXT NOT NULL",
		"source_location TEXT",
	)
	for _, c := range occurrence.Columns {
		null := "NOT NULL"
		if c.Nullable {
			null = ""
		}
		cols = append(cols, fmt.Sprintf("%s %s %s", c.Name, c.SQLType, null))
	}

	ddl := fmt.Sprintf(`CREATE TABLE code_index (
		%s,
		PRIMARY KEY (directory, filename, line, symbol, context)
	) WITHOUT ROWID`, strings.Join(cols, ",\n\t\t"))

	if err := s.db.Exec(ddl).Error; err != nil {
		return fmt.Errorf("store: creating code_index: %w", err)
	}

	for i, idx := range []string{
		"CREATE INDEX idx_code_index_symbol ON code_index(symbol)",
		"CREATE INDEX idx_code_index_symbol_context ON code_index(symbol, context)",
		"CREATE INDEX idx_code_index_context_definition ON code_index(context, definition)",
		"CREATE INDEX idx_code_index_file ON code_index(directory, filename)",
	} {
		if err := s.db.Exec(idx).Error; err != nil {
			return fmt.Errorf("store: creating index %d: %w", i, err)
		}
	}

	if err := s.db.Exec(`CREATE TABLE meta (
		id INTEGER PRIMARY KEY,
		schema_version INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`).Error; err != nil {
		return fmt.Errorf("store: creating meta: %w", err)
	}

	if err := s.db.Exec("INSERT INTO meta (id, schema_version, created_at) VALUES (1, ?, ?)",
		SchemaVersion, time.Now().UTC().Format(time.RFC3339)).Error; err != nil {
		return fmt.Errorf("store: seeding meta: %w", err)
	}
	return nil
}

// ReplaceFile atomically replaces every occurrence previously indexed for
// (directory, filename) with occs: one DELETE scoped to the file, then one
// INSERT per occurrence, in a single transaction so a crash mid-index never
// leaves a half-written file's rows in the table.
func (s *Store) ReplaceFile(ctx context.Context, directory, filename string, occs []occurrence.Occurrence) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM code_index WHERE directory = ? AND filename = ?", directory, filename).Error; err != nil {
			return fmt.Errorf("store: deleting existing rows for %s/%s: %w", directory, filename, err)
		}

		// OR IGNORE: the same (dir, file, line, symbol, context) key can
		// legitimately be produced more than once in one walk — f(x, x)
		// emits the argument x twice, a comment can repeat a word on one
		// line. The first (pre-order) occurrence wins; a duplicate must
		// not abort the file's transaction.
		placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", len(s.columns)), ",") + ")"
		insertSQL := fmt.Sprintf("INSERT OR IGNORE INTO code_index (%s) VALUES %s", strings.Join(s.columns, ", "), placeholders)

		for _, o := range occs {
			args := s.rowArgs(o)
			if err := tx.Exec(insertSQL, args...).Error; err != nil {
				return fmt.Errorf("store: inserting occurrence %q: %w", o.Symbol, err)
			}
		}
		return nil
	})
}

// rowArgs assembles one INSERT's values: the fixed key columns, then every
// extensible column read back through its facet key in declaration order.
// No per-column code: a column added to occurrence.Columns is picked up
// here untouched.
func (s *Store) rowArgs(o occurrence.Occurrence) []any {
	args := []any{o.Symbol, o.Line, string(o.Context), o.Directory, o.Filename, o.SourceLocation.String()}
	for _, name := range occurrence.ColumnNames() {
		args = append(args, nullable(o.Facet(name)))
	}
	return args
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// DB exposes the underlying *gorm.DB for the Query Engine, which builds
// its own parameterized SQL rather than going through GORM's model layer
// (the wide, dynamically-shaped code_index table has no fixed Go struct).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
