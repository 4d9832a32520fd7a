package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/datallboy/modfetch/internal/infra/config"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

type PersistentStore struct {
	db      *sql.DB
	qb      squirrel.StatementBuilderType
	dialect string
}

// NewPersistentStore opens the configured database and creates its tables.
func NewPersistentStore(cfg config.StoreConfig) (*PersistentStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(cfg.PostgresDSN)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func OpenSQLite(dbPath string) (*PersistentStore, error) {
	dbDir := filepath.Dir(dbPath)

	// Ensure the database directory exists
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return open(db, "sqlite", squirrel.Question)
}

func OpenPostgres(dsn string) (*PersistentStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	return open(db, "postgres", squirrel.Dollar)
}

func open(db *sql.DB, dialect string, ph squirrel.PlaceholderFormat) (*PersistentStore, error) {
	// Ping makes sure the database is reachable and the DSN is valid
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}

	s := &PersistentStore{
		db:      db,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(ph),
		dialect: dialect,
	}

	if err := s.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	return s, nil
}

func (s *PersistentStore) Close() error {
	return s.db.Close()
}
