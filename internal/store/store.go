// Package store implements the Store (§4.1), the Projection Reducer
// (§4.3), and the Tick Clock (§4.7). All three are kept in one package
// because spec.md assigns their state the same owner: "every projection
// row is owned by the Store; the Reducer is the only writer" and "the
// current tick ... lives solely inside the Store" — there is no
// process-wide singleton, only a *Store handle passed explicitly by the
// driver.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dcrew44/llm-social-network/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable, single-writer storage for the event log and
// its projections. Backed by SQLite in WAL mode: one writer connection,
// concurrent readers permitted under snapshot isolation (§5).
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path and ensures the schema
// exists. Open does not by itself satisfy Init's AlreadyInitialized
// contract — it is safe to call repeatedly (idempotent schema creation);
// Init is the operation that rejects re-initialization without --force.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports exactly one writer; the simulator is logically
	// single-writer (§5), so a single connection avoids SQLITE_BUSY
	// contention instead of working around it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying *sql.DB for read-only consumers (KPIs,
// inspection) that do not need the Store's higher-level API (§5: "the
// Store permits concurrent readers ... under snapshot isolation").
func (s *Store) DB() *sql.DB {
	return s.db
}

// dbtx is satisfied by both *sql.DB and *sql.Tx. Append/Scan/lookup logic
// is written once against this interface and reused unchanged whether it
// runs standalone or as one step inside a larger admission transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a single serialized write transaction spanning a read-check-append
// sequence (§5: admission runs idempotency, validation, and append as one
// atomic unit). Callers obtain one from Store.Begin and must Commit or
// Rollback it.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a write transaction. Because the Store opens its connection
// pool with a single connection, transactions are already serialized
// against each other at the driver level.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.WrapKernelError(domain.ErrCodeStore, "begin transaction", err)
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO kernel_state (id) VALUES (0)`)
	if err != nil {
		return fmt.Errorf("seed kernel_state: %w", err)
	}
	return nil
}

// Init creates the event-log and projection schema (§4.1). If force is
// true, all tables — including the event log — are dropped and recreated
// first. Without force, Init refuses to touch a database that already
// has events, returning a KernelError with code ALREADY_INITIALIZED.
func (s *Store) Init(ctx context.Context, force bool) error {
	if !force {
		var count int
		row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`)
		if err := row.Scan(&count); err != nil {
			return domain.WrapKernelError(domain.ErrCodeStore, "check existing events", err)
		}
		if count > 0 {
			return domain.NewKernelError(domain.ErrCodeAlreadyInitialized, "database already contains events; use --force to reinitialize")
		}
		return nil
	}

	slog.Warn("dropping existing schema", "force", true)
	tables := []string{
		"timeline_items", "timelines", "follows", "votes",
		"comments", "posts", "users", "kernel_state", "events",
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "begin init transaction", err)
	}
	defer tx.Rollback()

	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", t)); err != nil {
			return domain.WrapKernelError(domain.ErrCodeStore, fmt.Sprintf("drop table %s", t), err)
		}
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "recreate schema", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO kernel_state (id) VALUES (0)`); err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "seed kernel_state", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "commit init transaction", err)
	}
	return nil
}
