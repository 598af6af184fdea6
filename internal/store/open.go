package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"github.com/rs/zerolog"

	// Client-server engine.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Options selects and configures a backend. URL, when set, selects
// postgres; otherwise Path names a SQLite file.
type Options struct {
	Path string
	URL  string
	Mode DeliveryMode

	// SkipMigrate leaves the schema untouched on open.
	SkipMigrate bool

	Logger zerolog.Logger
}

// Open connects to the configured backend and, unless SkipMigrate is set,
// applies the schema.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	mode, err := ParseDeliveryMode(string(opts.Mode))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var s *SQLStore
	if opts.URL != "" {
		s, err = openPostgres(ctx, opts.URL)
	} else {
		s, err = openSQLite(ctx, opts.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.mode = mode
	s.log = opts.Logger.With().Str("component", "store").Str("dialect", s.dialect).Logger()

	if !opts.SkipMigrate {
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func openSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; BEGIN IMMEDIATE then serializes reservations.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return newSQLStore(db, dialect.SQLite), nil
}

// sqliteDSN applies pragmas per connection and makes every transaction
// take the write lock up front.
func sqliteDSN(path string) string {
	v := url.Values{}
	v.Add("_pragma", "foreign_keys(1)")
	v.Add("_pragma", "busy_timeout(5000)")
	v.Add("_pragma", "journal_mode(WAL)")
	v.Add("_pragma", "synchronous(NORMAL)")
	v.Set("_txlock", "immediate")
	v.Set("_time_format", "sqlite")
	return "file:" + path + "?" + v.Encode()
}

func openPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLStore(db, dialect.Postgres), nil
}

// Migrate creates or upgrades the tables and indexes.
func (s *SQLStore) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(entsql.OpenDB(s.dialect, s.db))
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
