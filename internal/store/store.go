// Package store persists games, players, the transaction ledger, the
// credit account snapshot, and rank snapshots in a single SQLite file.
//
// The game record is stored as a JSON document with a version counter
// beside it. Every mutation goes through UpdateGame, which re-reads the
// document, applies the caller's mutation, and writes back guarded by
// the version it read. A concurrent writer makes the guarded write
// affect zero rows and the mutation is retried against the fresh
// document.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a guarded write kept losing to
	// concurrent writers after bounded retries.
	ErrConflict = errors.New("store: write conflict")
)

// Store is the SQLite-backed persistence layer. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// churn under concurrent engine callbacks.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id         TEXT PRIMARY KEY,
			status     TEXT NOT NULL,
			is_dev     INTEGER NOT NULL DEFAULT 0,
			version    INTEGER NOT NULL DEFAULT 1,
			doc        TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_status ON games(status)`,
		`CREATE INDEX IF NOT EXISTS idx_games_created ON games(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_games_is_dev ON games(is_dev)`,
		`CREATE TABLE IF NOT EXISTS players (
			model_id        TEXT PRIMARY KEY,
			balance         INTEGER NOT NULL DEFAULT 0,
			total_buy_ins   INTEGER NOT NULL DEFAULT 0,
			total_cash_outs INTEGER NOT NULL DEFAULT 0,
			games_played    INTEGER NOT NULL DEFAULT 0,
			games_won       INTEGER NOT NULL DEFAULT 0,
			hands_played    INTEGER NOT NULL DEFAULT 0,
			hands_won       INTEGER NOT NULL DEFAULT 0,
			biggest_win     INTEGER NOT NULL DEFAULT 0,
			biggest_loss    INTEGER NOT NULL DEFAULT 0,
			total_tokens    INTEGER NOT NULL DEFAULT 0,
			total_cost      REAL NOT NULL DEFAULT 0,
			updated_at      TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_players_balance ON players(balance)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			model_id      TEXT NOT NULL,
			game_id       TEXT NOT NULL,
			kind          TEXT NOT NULL,
			amount        INTEGER NOT NULL,
			balance_after INTEGER NOT NULL,
			created_at    TIMESTAMP NOT NULL,
			FOREIGN KEY (model_id) REFERENCES players(model_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_model ON transactions(model_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_game ON transactions(game_id)`,
		`CREATE TABLE IF NOT EXISTS credits (
			id           INTEGER PRIMARY KEY CHECK (id = 1),
			balance      REAL NOT NULL,
			total_used   REAL NOT NULL,
			credit_limit REAL NOT NULL,
			synced_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rank_snapshots (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			model_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			balance  INTEGER NOT NULL,
			taken_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_snapshots_model ON rank_snapshots(model_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_snapshots_taken ON rank_snapshots(taken_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// begin starts a transaction that is rolled back unless committed.
func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return tx, nil
}
