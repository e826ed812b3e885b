// Package store is the persistence gateway: it owns the SQLite store and is
// the only code that reads or writes it.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the user_version written by schema.sql.
const schemaVersion = 1

// Config configures the store.
type Config struct {
	Path         string        // absolute path of the database file
	ReadyTimeout time.Duration // bound on the startup integrity check; default 30s
	BusyTimeout  time.Duration // SQLite busy_timeout; default 5s
}

const (
	defaultReadyTimeout = 30 * time.Second
	defaultBusyTimeout  = 5 * time.Second
)

// Store is a handle on the SQLite store. Create it once at startup, call
// EnsureReady before anything else and Close at shutdown.
type Store struct {
	db  *sql.DB
	cfg Config
	log zerolog.Logger
}

// Open creates a Store handle. It does not touch the database file; that
// happens in EnsureReady.
func Open(cfg Config, log zerolog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("store path is empty")
	}
	if strings.ContainsAny(cfg.Path, dsnReserved) {
		return nil, fmt.Errorf("store path %q must not contain any of %q", cfg.Path, dsnReserved)
	}
	cfg = withDefaults(cfg)

	db, err := sql.Open("sqlite", connectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", cfg.Path, err)
	}
	configurePool(db)

	return New(db, cfg, log), nil
}

// New wraps an existing connection pool. cfg.Path is still used for the
// existence check in EnsureReady.
func New(db *sql.DB, cfg Config, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		cfg: withDefaults(cfg),
		log: log.With().Str("component", "store").Logger(),
	}
}

func withDefaults(cfg Config) Config {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = defaultBusyTimeout
	}
	return cfg
}

// dsnReserved are the characters the driver treats as the start of the DSN
// query or fragment.
const dsnReserved = "?#"

// connectionString builds the DSN with per-connection PRAGMAs.
func connectionString(cfg Config) string {
	connStr := cfg.Path + "?_pragma=journal_mode(WAL)"
	connStr += "&_pragma=synchronous(FULL)"
	connStr += "&_pragma=foreign_keys(1)"
	connStr += fmt.Sprintf("&_pragma=busy_timeout(%d)", cfg.BusyTimeout.Milliseconds())
	return connStr
}

// configurePool keeps the pool small; SQLite serializes writers anyway.
func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(30 * time.Minute)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.cfg.Path
}

// EnsureReady prepares the store for use. A missing store is created and
// the schema applied. An existing store must pass the integrity check or a
// *CorruptStoreError is returned. Calling it again on a healthy store
// changes nothing.
func (s *Store) EnsureReady(ctx context.Context) error {
	_, err := os.Stat(s.cfg.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.log.Warn().Str("path", s.cfg.Path).Msg("store does not exist, creating it")
		if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0o755); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}
		if err := s.applySchema(ctx); err != nil {
			return err
		}
		if err := s.checkHealthy(ctx); err != nil {
			return err
		}
		s.log.Info().Str("path", s.cfg.Path).Msg("store created")
		return nil
	case err != nil:
		return fmt.Errorf("stat store %s: %w", s.cfg.Path, err)
	}

	s.log.Debug().Str("path", s.cfg.Path).Msg("store exists, checking integrity")
	if err := s.checkHealthy(ctx); err != nil {
		return err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version < schemaVersion {
		s.log.Warn().Int("user_version", version).Msg("store has no schema, applying it")
		if err := s.applySchema(ctx); err != nil {
			return err
		}
	}

	s.log.Info().Str("path", s.cfg.Path).Msg("store integrity check passed")
	return nil
}

// checkHealthy runs the integrity check under the ready timeout.
func (s *Store) checkHealthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	defer cancel()

	status, err := s.IntegrityCheck(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("path", s.cfg.Path).Msg("integrity check failed to run")
		return &CorruptStoreError{Path: s.cfg.Path, Err: err}
	}
	if status != HealthyStatus {
		s.log.Error().Str("status", status).Str("path", s.cfg.Path).Msg("store is corrupt")
		return &CorruptStoreError{Path: s.cfg.Path, Status: status}
	}
	return nil
}

// IntegrityCheck runs PRAGMA integrity_check and returns the first result
// line, trimmed and lower-cased. A healthy store returns "ok".
func (s *Store) IntegrityCheck(ctx context.Context) (string, error) {
	var status string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&status); err != nil {
		return "", fmt.Errorf("running integrity check: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(status)), nil
}

func (s *Store) applySchema(ctx context.Context) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, schemaSQL)
		return err
	})
	if err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	s.log.Info().Int("tables", len(Kinds)).Msg("schema applied")
	return nil
}

// withTx runs fn in a transaction, committing on success and rolling back
// on error or panic.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("committing transaction: %w", cErr)
		}
	}()

	return fn(tx)
}

// Count returns the number of rows stored for k.
func (s *Store) Count(ctx context.Context, k Kind) (int, error) {
	def, ok := k.def()
	if !ok {
		return 0, fmt.Errorf("unknown kind %d", k)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+def.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", def.table, err)
	}
	return n, nil
}
