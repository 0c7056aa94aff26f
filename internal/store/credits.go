package store

import (
	"context"
	"database/sql"
	"time"
)

// CreditAccount is the last-known credit provider state. A single row;
// the scheduler reads it when the provider is unreachable.
type CreditAccount struct {
	Balance      float64
	TotalUsed    float64
	Limit        float64
	LastSyncedAt time.Time
}

// SaveCredits overwrites the singleton credit snapshot.
func (s *Store) SaveCredits(ctx context.Context, c CreditAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credits (id, balance, total_used, credit_limit, synced_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			balance = excluded.balance,
			total_used = excluded.total_used,
			credit_limit = excluded.credit_limit,
			synced_at = excluded.synced_at
	`, c.Balance, c.TotalUsed, c.Limit, c.LastSyncedAt)
	return err
}

// Credits returns the stored credit snapshot, or ErrNotFound before the
// first sync.
func (s *Store) Credits(ctx context.Context) (CreditAccount, error) {
	var c CreditAccount
	err := s.db.QueryRowContext(ctx,
		`SELECT balance, total_used, credit_limit, synced_at FROM credits WHERE id = 1`,
	).Scan(&c.Balance, &c.TotalUsed, &c.Limit, &c.LastSyncedAt)
	if err == sql.ErrNoRows {
		return CreditAccount{}, ErrNotFound
	}
	return c, err
}
