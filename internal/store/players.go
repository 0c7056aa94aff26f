package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/modelarena/holdem/internal/game"
)

// TxKind classifies a ledger transaction.
type TxKind string

const (
	TxBuyIn      TxKind = "buy_in"
	TxCashOut    TxKind = "cash_out"
	TxAdjustment TxKind = "adjustment"
)

// Player is the durable cross-game record for one model.
type Player struct {
	ModelID       string
	Balance       int64
	TotalBuyIns   int64
	TotalCashOuts int64
	GamesPlayed   int
	GamesWon      int
	HandsPlayed   int
	HandsWon      int
	BiggestWin    int64
	BiggestLoss   int64
	TotalTokens   int64
	TotalCost     float64
	UpdatedAt     time.Time
}

// Transaction is one append-only ledger row. The sum of Amount per
// model equals the change in that player's balance since genesis.
type Transaction struct {
	ID           int64
	ModelID      string
	GameID       string
	Kind         TxKind
	Amount       int64
	BalanceAfter int64
	CreatedAt    time.Time
}

// applyLedger moves amount onto the player's balance and appends the
// matching ledger row, inside the caller's transaction. The player row
// is created on first contact.
func applyLedger(ctx context.Context, tx *sql.Tx, modelID, gameID string, kind TxKind, amount int64, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO players (model_id, balance, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(model_id) DO UPDATE SET balance = balance + ?, updated_at = ?
	`, modelID, amount, now, amount, now)
	if err != nil {
		return fmt.Errorf("adjusting balance for %s: %w", modelID, err)
	}

	column := "total_cash_outs"
	if kind == TxBuyIn {
		column = "total_buy_ins"
	}
	if kind != TxAdjustment {
		_, err = tx.ExecContext(ctx,
			`UPDATE players SET `+column+` = `+column+` + ? WHERE model_id = ?`,
			abs64(amount), modelID)
		if err != nil {
			return fmt.Errorf("bumping %s for %s: %w", column, modelID, err)
		}
	}

	var after int64
	if err := tx.QueryRowContext(ctx,
		`SELECT balance FROM players WHERE model_id = ?`, modelID).Scan(&after); err != nil {
		return fmt.Errorf("reading balance for %s: %w", modelID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (model_id, game_id, kind, amount, balance_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, modelID, gameID, string(kind), amount, after, now)
	if err != nil {
		return fmt.Errorf("appending ledger row for %s: %w", modelID, err)
	}
	return nil
}

// bumpPlayerAggregates folds one game's per-seat counters into the
// durable player record. won marks the top-chip seat; profit is
// chips minus buy-in and feeds the best/worst game markers.
func bumpPlayerAggregates(ctx context.Context, tx *sql.Tx, modelID string, st *game.SeatStats, won bool, profit int64, now time.Time) error {
	gamesWon := 0
	if won {
		gamesWon = 1
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE players SET
			games_played = games_played + 1,
			games_won    = games_won + ?,
			hands_played = hands_played + ?,
			hands_won    = hands_won + ?,
			biggest_win  = MAX(biggest_win, ?),
			biggest_loss = MIN(biggest_loss, ?),
			total_tokens = total_tokens + ?,
			total_cost   = total_cost + ?,
			updated_at   = ?
		WHERE model_id = ?
	`, gamesWon, st.HandsPlayed, st.HandsWon, profit, profit, st.TokensUsed, st.CostUSD, now, modelID)
	if err != nil {
		return fmt.Errorf("merging stats for %s: %w", modelID, err)
	}
	return nil
}

// Adjust applies a manual balance correction with an adjustment ledger
// row.
func (s *Store) Adjust(ctx context.Context, modelID, gameID string, amount int64, now time.Time) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := applyLedger(ctx, tx, modelID, gameID, TxAdjustment, amount, now); err != nil {
		return err
	}
	return tx.Commit()
}

// Player returns the durable record for one model.
func (s *Store) Player(ctx context.Context, modelID string) (*Player, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT model_id, balance, total_buy_ins, total_cash_outs, games_played,
		       games_won, hands_played, hands_won, biggest_win, biggest_loss,
		       total_tokens, total_cost, updated_at
		FROM players WHERE model_id = ?
	`, modelID)
	p, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("player %s: %w", modelID, ErrNotFound)
	}
	return p, err
}

// ListPlayers returns all players ordered by balance, best first. This
// ordering is the ranking used for snapshots.
func (s *Store) ListPlayers(ctx context.Context) ([]*Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model_id, balance, total_buy_ins, total_cash_outs, games_played,
		       games_won, hands_played, hands_won, biggest_win, biggest_loss,
		       total_tokens, total_cost, updated_at
		FROM players ORDER BY balance DESC, model_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	var players []*Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*Player, error) {
	var p Player
	err := row.Scan(&p.ModelID, &p.Balance, &p.TotalBuyIns, &p.TotalCashOuts,
		&p.GamesPlayed, &p.GamesWon, &p.HandsPlayed, &p.HandsWon,
		&p.BiggestWin, &p.BiggestLoss, &p.TotalTokens, &p.TotalCost, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Transactions returns a model's ledger, newest first.
func (s *Store) Transactions(ctx context.Context, modelID string, limit int) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model_id, game_id, kind, amount, balance_after, created_at
		FROM transactions WHERE model_id = ? ORDER BY id DESC LIMIT ?
	`, modelID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for %s: %w", modelID, err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		var kind string
		if err := rows.Scan(&t.ID, &t.ModelID, &t.GameID, &kind, &t.Amount, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Kind = TxKind(kind)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
