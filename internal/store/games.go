package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelarena/holdem/internal/game"
)

// updateRetries bounds how many times a guarded write is retried before
// surfacing ErrConflict.
const updateRetries = 5

// CreateGame inserts the game and debits every seat's buy-in in one
// transaction: the player row is upserted, the balance reduced, and a
// buy_in ledger row appended per seat.
func (s *Store) CreateGame(ctx context.Context, g *game.Game, now time.Time) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encoding game %s: %w", g.ID, err)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO games (id, status, is_dev, version, doc, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)
	`, g.ID, string(g.Status), g.IsDev, string(doc), g.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("inserting game %s: %w", g.ID, err)
	}

	for _, seat := range g.Seats {
		if err := applyLedger(ctx, tx, seat.ModelID, g.ID, TxBuyIn, -int64(g.Config.BuyIn), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Game returns a decoded copy of the game document.
func (s *Store) Game(ctx context.Context, id string) (*game.Game, error) {
	g, _, err := getGame(ctx, s.db, id)
	return g, err
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getGame(ctx context.Context, q querier, id string) (*game.Game, int64, error) {
	var doc string
	var version int64
	err := q.QueryRowContext(ctx, `SELECT doc, version FROM games WHERE id = ?`, id).Scan(&doc, &version)
	if err == sql.ErrNoRows {
		return nil, 0, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading game %s: %w", id, err)
	}
	var g game.Game
	if err := json.Unmarshal([]byte(doc), &g); err != nil {
		return nil, 0, fmt.Errorf("decoding game %s: %w", id, err)
	}
	return &g, version, nil
}

// UpdateGame applies mutate to a fresh copy of the game document and
// writes it back guarded by the version read. A lost race re-reads and
// re-applies; after updateRetries losses it returns ErrConflict. An
// error from mutate aborts without writing and is returned unwrapped,
// so callers can signal no-op conditions with their own sentinels.
func (s *Store) UpdateGame(ctx context.Context, id string, mutate func(*game.Game) error) (*game.Game, error) {
	for attempt := 0; attempt < updateRetries; attempt++ {
		g, version, err := getGame(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(g); err != nil {
			return nil, err
		}
		ok, err := s.writeGame(ctx, s.db, g, version, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if ok {
			return g, nil
		}
	}
	return nil, fmt.Errorf("updating game %s: %w", id, ErrConflict)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) writeGame(ctx context.Context, e execer, g *game.Game, readVersion int64, now time.Time) (bool, error) {
	doc, err := json.Marshal(g)
	if err != nil {
		return false, fmt.Errorf("encoding game %s: %w", g.ID, err)
	}
	res, err := e.ExecContext(ctx, `
		UPDATE games SET doc = ?, status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, string(doc), string(g.Status), now, g.ID, readVersion)
	if err != nil {
		return false, fmt.Errorf("writing game %s: %w", g.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteGame finalizes a game: mutate must leave the document in the
// completed (or cancelled) state with results populated; player
// aggregates and cash_out ledger rows are written in the same
// transaction as the guarded document write, so a crash can never
// settle a game twice or half-settle it.
func (s *Store) CompleteGame(ctx context.Context, id string, mutate func(*game.Game) error, now time.Time) (*game.Game, error) {
	for attempt := 0; attempt < updateRetries; attempt++ {
		tx, err := s.begin(ctx)
		if err != nil {
			return nil, err
		}

		g, version, err := getGame(ctx, tx, id)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := mutate(g); err != nil {
			tx.Rollback()
			return nil, err
		}

		ok, err := s.writeGame(ctx, tx, g, version, now)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if !ok {
			tx.Rollback()
			continue
		}

		topChips := 0
		for _, seat := range g.Seats {
			if seat.Chips > topChips {
				topChips = seat.Chips
			}
		}
		for _, seat := range g.Seats {
			if err := applyLedger(ctx, tx, seat.ModelID, g.ID, TxCashOut, int64(seat.Chips), now); err != nil {
				tx.Rollback()
				return nil, err
			}
			st := g.Stats[seat.ModelID]
			if st == nil {
				st = &game.SeatStats{}
			}
			won := seat.Chips == topChips && topChips > 0
			profit := int64(seat.Chips - g.Config.BuyIn)
			if err := bumpPlayerAggregates(ctx, tx, seat.ModelID, st, won, profit, now); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("completing game %s: %w", id, err)
		}
		return g, nil
	}
	return nil, fmt.Errorf("completing game %s: %w", id, ErrConflict)
}

// GamesByStatus returns decoded documents for every game in the given
// status, oldest first.
func (s *Store) GamesByStatus(ctx context.Context, status game.Status) ([]*game.Game, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM games WHERE status = ? ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing %s games: %w", status, err)
	}
	defer rows.Close()
	return scanGames(rows)
}

// RecentGames returns the most recently created games, newest first.
func (s *Store) RecentGames(ctx context.Context, limit int) ([]*game.Game, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM games ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent games: %w", err)
	}
	defer rows.Close()
	return scanGames(rows)
}

func scanGames(rows *sql.Rows) ([]*game.Game, error) {
	var games []*game.Game
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var g game.Game
		if err := json.Unmarshal([]byte(doc), &g); err != nil {
			return nil, fmt.Errorf("decoding game document: %w", err)
		}
		games = append(games, &g)
	}
	return games, rows.Err()
}

// CountActive counts live games. Dev games are excluded unless
// includeDev is set; the scheduler's concurrency gate only counts
// scheduler-created games.
func (s *Store) CountActive(ctx context.Context, includeDev bool) (int, error) {
	query := `SELECT COUNT(*) FROM games WHERE status IN ('waiting', 'active')`
	if !includeDev {
		query += ` AND is_dev = 0`
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting active games: %w", err)
	}
	return n, nil
}
