package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// MemoryPath selects an ephemeral in-memory database. Used by tests and by
// `auctiond --db :memory:`.
const MemoryPath = ":memory:"

// Querier is implemented by both *sql.DB and *sql.Tx.
// Repository methods that need transaction support should accept Querier.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Open opens the SQLite database at path and applies the pragmas the engine
// relies on:
//
//   - journal_mode=WAL: concurrent readers with a single writer, and commits
//     are roughly an order of magnitude faster than rollback journaling.
//   - synchronous=NORMAL: in WAL mode the database cannot be corrupted by a
//     power loss; at worst the last few commits are rolled back. See
//     https://www.sqlite.org/pragma.html#pragma_synchronous
//   - foreign_keys=ON: SQLite ships with FK enforcement off.
//
// The returned handle is limited to a single connection: the storage engine
// serializes all access behind its own lock, and an in-memory database only
// exists on the connection that created it.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	// An in-memory database has no file to journal; everywhere else WAL is
	// required.
	if journalMode != "wal" && path != MemoryPath {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode, current journal mode: %s", journalMode)
	}

	for _, pragma := range []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	log.Info().Str("path", path).Str("journal_mode", journalMode).Msg("database opened")
	return db, nil
}
