package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/roach88/bedquilt/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Catalog tables only
// 1 - GIN index on every collection's document column
const currentSchemaVersion = 1

const (
	// DefaultMaxConns is the connection pool size when Config.MaxConns is unset.
	DefaultMaxConns = 10

	// DefaultCacheSize is the number of compiled splits kept when
	// Config.CacheSize is unset.
	DefaultCacheSize = 256
)

// Config configures a Store.
type Config struct {
	// DSN is a PostgreSQL connection string, URL or key=value form.
	DSN string

	// MaxConns bounds open connections. Zero means DefaultMaxConns.
	MaxConns int

	// MaxDepth bounds query document nesting. Zero means
	// querysql.DefaultMaxDepth.
	MaxDepth int

	// CacheSize is the split cache capacity. Zero means DefaultCacheSize;
	// negative disables the cache.
	CacheSize int

	// Logger receives debug events. Nil means slog.Default().
	Logger *slog.Logger

	// IDs assigns missing _id values. Nil means UUIDv7Generator.
	IDs IDGenerator
}

// Store provides document collections in a PostgreSQL database.
// A Store is safe for concurrent use.
type Store struct {
	db       *sql.DB
	compiler *querysql.SQLCompiler
	splitter *querysql.Splitter
	cache    *lru.Cache[string, *querysql.Split]
	logger   *slog.Logger
	ids      IDGenerator

	// known holds collections this Store has seen created, so Insert can skip
	// the catalog round trip.
	known sync.Map
}

// Open connects to the database named by cfg.DSN through the pgx driver,
// applies the catalog schema and migrations, and returns a ready Store.
//
// This function is idempotent - safe to call against an initialized database.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("failed to open database: empty DSN")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := OpenDB(ctx, db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenDB builds a Store over an existing *sql.DB. cfg.DSN is ignored.
// The Store takes ownership of db; Close closes it.
func OpenDB(ctx context.Context, db *sql.DB, cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	splitter, err := querysql.NewSplitter(querysql.WithMaxDepth(cfg.MaxDepth))
	if err != nil {
		return nil, fmt.Errorf("failed to configure splitter: %w", err)
	}

	var cache *lru.Cache[string, *querysql.Split]
	size := cfg.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		cache, err = lru.New[string, *querysql.Split](size)
		if err != nil {
			return nil, fmt.Errorf("failed to create split cache: %w", err)
		}
	}

	ids := cfg.IDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}

	// Verify connection works
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		db:       db,
		compiler: querysql.NewSQLCompiler(),
		splitter: splitter,
		cache:    cache,
		logger:   logger,
		ids:      ids,
	}

	if err := s.applySchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Splitter returns the splitter used for queries.
func (s *Store) Splitter() *querysql.Splitter {
	return s.splitter
}

// applySchema creates catalog tables if they don't exist and runs migrations.
// This function is idempotent.
func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := s.runMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental migrations based on bq_schema_version.
func (s *Store) runMigrations(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx,
		`select coalesce(max(version), 0) from bq_schema_version`,
	).Scan(&version); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	if version < 1 {
		if err := s.migrateToV1(ctx); err != nil {
			return err
		}
	}

	if version < currentSchemaVersion {
		if _, err := s.db.ExecContext(ctx,
			`insert into bq_schema_version (version) values ($1) on conflict do nothing`,
			currentSchemaVersion,
		); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		s.logger.Debug("schema migrated", "from", version, "to", currentSchemaVersion)
	}

	return nil
}

// migrateToV1 adds the containment index to collections created before
// CreateCollection built it. CREATE INDEX IF NOT EXISTS is a no-op on newer
// collections.
func (s *Store) migrateToV1(ctx context.Context) error {
	names, err := s.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}

	for _, name := range names {
		stmt, err := s.compiler.CreateIndex(name)
		if err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate to v1: index %s: %w", name, err)
		}
	}
	return nil
}
