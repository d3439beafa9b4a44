package kv

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on changes(origin, seq) for watch polling
const currentSchemaVersion = 1

// changeRetention is how many rows of the changes log survive each write.
const changeRetention = 1000

// DefaultPollInterval is how often Watch polls the changes log.
const DefaultPollInterval = 250 * time.Millisecond

// SQLite is a file-backed Store. Every write also lands in the changes log so
// other processes opened on the same file can Watch it.
type SQLite struct {
	db           *sql.DB
	origin       string
	pollInterval time.Duration
	logger       *slog.Logger
	closed       atomic.Bool
}

// Open creates or opens a SQLite store at path. Writes are tagged with origin.
//
// The database is configured with:
//   - WAL mode so a watching process can read while another writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention between processes
//
// This function is idempotent - safe to call multiple times.
func Open(path, origin string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{
		db:           db,
		origin:       origin,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}, nil
}

// SetPollInterval changes how often Watch polls. Must be called before Watch.
func (s *SQLite) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.pollInterval = d
	}
}

// Origin returns the tag attached to this handle's writes.
func (s *SQLite) Origin() string { return s.origin }

// Close closes the database connection. Reads and writes after Close
// return ErrUnavailable.
func (s *SQLite) Close() error {
	if s.db == nil || s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Get(key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrUnavailable
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM entries WHERE key = ?`, NormalizeKey(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Set(key, value string) error {
	return s.Apply(Batch{{Key: key, Value: value}})
}

func (s *SQLite) Delete(key string) error {
	return s.Apply(Batch{{Key: key, Delete: true}})
}

// Apply writes the batch and its change records in one transaction.
func (s *SQLite) Apply(b Batch) error {
	if len(b) == 0 {
		return nil
	}
	if s.closed.Load() {
		return ErrUnavailable
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, op := range b {
		key := NormalizeKey(op.Key)
		var value sql.NullString
		if op.Delete {
			if _, err := tx.Exec(`DELETE FROM entries WHERE key = ?`, key); err != nil {
				return fmt.Errorf("delete %q: %w", key, err)
			}
		} else {
			if _, err := tx.Exec(`
				INSERT INTO entries (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value
			`, key, op.Value); err != nil {
				return fmt.Errorf("set %q: %w", key, err)
			}
			value = sql.NullString{String: op.Value, Valid: true}
		}
		if _, err := tx.Exec(
			`INSERT INTO changes (key, value, origin) VALUES (?, ?, ?)`,
			key, value, s.origin,
		); err != nil {
			return fmt.Errorf("log change %q: %w", key, err)
		}
	}

	if _, err := tx.Exec(
		`DELETE FROM changes WHERE seq <= (SELECT MAX(seq) FROM changes) - ?`,
		changeRetention,
	); err != nil {
		return fmt.Errorf("prune changes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Watch polls the changes log for writes made by other origins, starting
// after the newest change present when Watch is called.
func (s *SQLite) Watch(ctx context.Context) <-chan Change {
	out := make(chan Change)

	var last int64
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM changes`).Scan(&last); err != nil {
		s.logger.Error("watch: read change log head", "error", err)
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			changes, err := s.changesSince(ctx, last)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error("watch: poll change log", "error", err)
				}
				continue
			}
			for _, c := range changes {
				last = c.Seq
				if c.Origin == s.origin {
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (s *SQLite) changesSince(ctx context.Context, seq int64) ([]Change, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, key, value, origin FROM changes
		WHERE seq > ?
		ORDER BY seq ASC
	`, seq)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var c Change
		var value sql.NullString
		if err := rows.Scan(&c.Seq, &c.Key, &value, &c.Origin); err != nil {
			return nil, err
		}
		c.Value = value.String
		c.Deleted = !value.Valid
		out = append(out, c)
	}
	return out, rows.Err()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes the change log for per-origin polling.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_changes_origin_seq
		ON changes(origin, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
