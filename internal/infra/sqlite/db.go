// Package sqlite provides SQLite-based persistent storage for Stride.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/stride-app/stride/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the SQLite database at dir/stride.db.
// Enables WAL mode, foreign keys, a 5-second busy timeout and immediate
// transactions so a read-modify-write never upgrades a shared lock.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "stride.db")
	dsn := "file:" + dbPath +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db, now: time.Now}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		)`,

		// One profile per user, provisioned in CreateUser.
		`CREATE TABLE IF NOT EXISTS profiles (
			owner                TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			xp                   INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
			level                INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
			current_streak       INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
			last_completion_date TEXT,
			version              INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			owner       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT,
			completed   BOOLEAN NOT NULL DEFAULT 0,
			due_date    TEXT,
			priority    TEXT NOT NULL DEFAULT 'M' CHECK (priority IN ('L', 'M', 'H')),
			created_at  INTEGER NOT NULL,
			start_time  TEXT,
			end_time    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner, completed, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(owner, due_date)`,

		`CREATE TABLE IF NOT EXISTS daily_notes (
			id      TEXT PRIMARY KEY,
			owner   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date    TEXT NOT NULL,
			content TEXT,
			UNIQUE (owner, date)
		)`,

		`CREATE TABLE IF NOT EXISTS focus_items (
			id    TEXT PRIMARY KEY,
			owner TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date  TEXT NOT NULL,
			text  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_focus_owner_date ON focus_items(owner, date)`,

		`CREATE TABLE IF NOT EXISTS schedule_events (
			id         TEXT PRIMARY KEY,
			owner      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date       TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time   TEXT,
			title      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_owner_date ON schedule_events(owner, date, start_time)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullDate(d *domain.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func scanDate(ns sql.NullString) (*domain.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// expectOne maps "no row affected" to notFound.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
