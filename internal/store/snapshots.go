package store

import (
	"context"
	"fmt"
	"time"
)

// RankEntry is one model's standing at snapshot time.
type RankEntry struct {
	Rank    int    `json:"rank"`
	ModelID string `json:"modelId"`
	Balance int64  `json:"balance"`
}

// RankSnapshot is a point-in-time leaderboard, written at every game
// settlement. Entries are stored one row per model so per-model rank
// history stays queryable.
type RankSnapshot struct {
	Entries []RankEntry `json:"entries"`
	TakenAt time.Time   `json:"takenAt"`
}

// SaveRankSnapshot appends a leaderboard snapshot built from the
// current player balances.
func (s *Store) SaveRankSnapshot(ctx context.Context, now time.Time) (*RankSnapshot, error) {
	players, err := s.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	snap := &RankSnapshot{TakenAt: now}
	for i, p := range players {
		snap.Entries = append(snap.Entries, RankEntry{
			Rank:    i + 1,
			ModelID: p.ModelID,
			Balance: p.Balance,
		})
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	for _, e := range snap.Entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rank_snapshots (model_id, position, balance, taken_at) VALUES (?, ?, ?, ?)`,
			e.ModelID, e.Rank, e.Balance, now); err != nil {
			return nil, fmt.Errorf("inserting rank snapshot row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing rank snapshot: %w", err)
	}
	return snap, nil
}

// RankSnapshots returns the most recent snapshots, newest first, each
// reassembled from its per-model rows.
func (s *Store) RankSnapshots(ctx context.Context, limit int) ([]*RankSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model_id, position, balance, taken_at FROM rank_snapshots
		WHERE taken_at IN (SELECT DISTINCT taken_at FROM rank_snapshots ORDER BY taken_at DESC LIMIT ?)
		ORDER BY taken_at DESC, position ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing rank snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*RankSnapshot
	for rows.Next() {
		var e RankEntry
		var takenAt time.Time
		if err := rows.Scan(&e.ModelID, &e.Rank, &e.Balance, &takenAt); err != nil {
			return nil, err
		}
		if len(snaps) == 0 || !snaps[len(snaps)-1].TakenAt.Equal(takenAt) {
			snaps = append(snaps, &RankSnapshot{TakenAt: takenAt})
		}
		last := snaps[len(snaps)-1]
		last.Entries = append(last.Entries, e)
	}
	return snaps, rows.Err()
}

// RankPoint is one model's standing in one snapshot.
type RankPoint struct {
	Rank    int       `json:"rank"`
	Balance int64     `json:"balance"`
	TakenAt time.Time `json:"takenAt"`
}

// RankHistory returns a model's rank over time, oldest first.
func (s *Store) RankHistory(ctx context.Context, modelID string, limit int) ([]RankPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, balance, taken_at FROM rank_snapshots
		WHERE model_id = ? ORDER BY taken_at ASC LIMIT ?`, modelID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing rank history: %w", err)
	}
	defer rows.Close()

	var points []RankPoint
	for rows.Next() {
		var p RankPoint
		if err := rows.Scan(&p.Rank, &p.Balance, &p.TakenAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
