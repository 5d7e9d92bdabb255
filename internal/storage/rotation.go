package storage

import (
	"context"
	"database/sql"
	"errors"
)

// UsedIDs returns the spent item ids for a rotation pool.
func (s *Store) UsedIDs(ctx context.Context, pool string) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item_id FROM rotation_used WHERE pool = ?`, pool)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	used := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		used[id] = true
	}
	return used, rows.Err()
}

func (s *Store) MarkUsed(ctx context.Context, pool string, itemID int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rotation_used(pool, item_id) VALUES(?,?)
		 ON CONFLICT(pool, item_id) DO NOTHING`,
		pool, itemID,
	)
	return err
}

// ResetUsed clears a pool's spent set (pool exhausted, or /clear_used).
func (s *Store) ResetUsed(ctx context.Context, pool string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rotation_used WHERE pool = ?`, pool)
	return err
}

// TodayPick returns the persisted pick for (pool, day), if any.
func (s *Store) TodayPick(ctx context.Context, pool, day string) (int, bool, error) {
	var id int
	err := s.db.QueryRowContext(ctx,
		`SELECT item_id FROM rotation_today WHERE pool = ? AND day = ?`, pool, day,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *Store) SaveTodayPick(ctx context.Context, pool, day string, itemID int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rotation_today(pool, day, item_id) VALUES(?,?,?)
		 ON CONFLICT(pool, day) DO UPDATE SET item_id = excluded.item_id`,
		pool, day, itemID,
	)
	return err
}
