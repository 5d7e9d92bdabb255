package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type DayCounters struct {
	Sessions          int
	PhoneFreeSessions int
	StreakDays        int
}

type DailyRow struct {
	LocalDate         string
	Sessions          int
	PhoneFreeSessions int
}

type StreakRow struct {
	TargetPerDay int
	LastDate     string
	StreakDays   int
}

// StartFocusSession inserts a new session row and returns its id.
func (s *Store) StartFocusSession(ctx context.Context, userID int64, durationMin int, tag string, phoneCommit bool, startedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO focus_sessions(user_id, started_at, duration_min, tag, phone_commit)
		 VALUES(?,?,?,?,?)`,
		userID, startedAt.UTC().Format(time.RFC3339), durationMin, nullStr(tag), boolInt(phoneCommit),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SessionInfo is the subset of a focus session needed to close it out.
type SessionInfo struct {
	UserID      int64
	DurationMin int
	Tag         string
	StartedAt   time.Time
}

// FocusSessionInfo loads a session's owner, length and start time.
func (s *Store) FocusSessionInfo(ctx context.Context, sessionID int64) (SessionInfo, error) {
	var (
		info SessionInfo
		tag  sql.NullString
		ts   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, duration_min, tag, started_at FROM focus_sessions WHERE id = ?`, sessionID,
	).Scan(&info.UserID, &info.DurationMin, &tag, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return info, fmt.Errorf("focus session %d not found", sessionID)
	}
	if err != nil {
		return info, err
	}
	info.Tag = tag.String
	info.StartedAt, _ = time.Parse(time.RFC3339, ts)
	return info, nil
}

// FocusSessionUser returns the owner of a session.
func (s *Store) FocusSessionUser(ctx context.Context, sessionID int64) (int64, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM focus_sessions WHERE id = ?`, sessionID,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("focus session %d not found", sessionID)
	}
	return userID, err
}

// CompleteFocusSession marks the session completed, bumps the day's counters
// and advances the phone-free streak. localDate and yesterday are calendar
// dates (YYYY-MM-DD) in the bot's timezone; the caller owns timezone math.
//
// Streak rule: a day counts once its phone_free_sessions reach
// target_per_day. Consecutive counting days grow the streak, a gap resets it
// to 1, and reaching the target twice in one day does not double-count.
func (s *Store) CompleteFocusSession(ctx context.Context, sessionID int64, phoneFree *bool, notes, localDate, yesterday string) (DayCounters, error) {
	var out DayCounters

	userID, err := s.FocusSessionUser(ctx, sessionID)
	if err != nil {
		return out, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return out, err
	}
	defer func() { _ = tx.Rollback() }()

	var pf any
	if phoneFree != nil {
		pf = boolInt(*phoneFree)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE focus_sessions
		    SET completed = 1,
		        phone_free = COALESCE(?, phone_free),
		        notes = COALESCE(?, notes)
		  WHERE id = ?`,
		pf, nullStr(notes), sessionID,
	); err != nil {
		return out, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO focus_daily(user_id, local_date, sessions, phone_free_sessions)
		 VALUES(?,?,0,0)
		 ON CONFLICT(user_id, local_date) DO NOTHING`,
		userID, localDate,
	); err != nil {
		return out, err
	}

	pfInc := 0
	if phoneFree != nil && *phoneFree {
		pfInc = 1
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE focus_daily
		    SET sessions = sessions + 1,
		        phone_free_sessions = phone_free_sessions + ?
		  WHERE user_id = ? AND local_date = ?`,
		pfInc, userID, localDate,
	); err != nil {
		return out, err
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT sessions, phone_free_sessions FROM focus_daily WHERE user_id = ? AND local_date = ?`,
		userID, localDate,
	).Scan(&out.Sessions, &out.PhoneFreeSessions); err != nil {
		return out, err
	}

	// Ensure a streak row exists, then advance it if today reached the target.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO focus_streaks(user_id) VALUES(?) ON CONFLICT(user_id) DO NOTHING`,
		userID,
	); err != nil {
		return out, err
	}

	var (
		target     int
		lastDate   sql.NullString
		streakDays int
	)
	if err := tx.QueryRowContext(ctx,
		`SELECT target_per_day, last_date, streak_days FROM focus_streaks WHERE user_id = ?`,
		userID,
	).Scan(&target, &lastDate, &streakDays); err != nil {
		return out, err
	}

	if out.PhoneFreeSessions >= target {
		switch {
		case lastDate.Valid && lastDate.String == localDate:
			// already counted today
		case !lastDate.Valid || lastDate.String == yesterday:
			streakDays++
		default:
			streakDays = 1
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE focus_streaks SET last_date = ?, streak_days = ? WHERE user_id = ?`,
			localDate, streakDays, userID,
		); err != nil {
			return out, err
		}
	}
	out.StreakDays = streakDays

	return out, tx.Commit()
}

// FocusDaily returns the most recent daily counter rows, newest first.
func (s *Store) FocusDaily(ctx context.Context, userID int64, limit int) ([]DailyRow, error) {
	if limit <= 0 {
		limit = 7
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT local_date, sessions, phone_free_sessions
		   FROM focus_daily
		  WHERE user_id = ?
		  ORDER BY local_date DESC
		  LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyRow
	for rows.Next() {
		var r DailyRow
		if err := rows.Scan(&r.LocalDate, &r.Sessions, &r.PhoneFreeSessions); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Streak(ctx context.Context, userID int64) (StreakRow, error) {
	var (
		r    StreakRow
		last sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT target_per_day, last_date, streak_days FROM focus_streaks WHERE user_id = ?`,
		userID,
	).Scan(&r.TargetPerDay, &last, &r.StreakDays)
	if errors.Is(err, sql.ErrNoRows) {
		return StreakRow{TargetPerDay: 1}, nil
	}
	if err != nil {
		return r, err
	}
	r.LastDate = last.String
	return r, nil
}

func (s *Store) SetFocusTarget(ctx context.Context, userID int64, targetPerDay int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO focus_streaks(user_id, target_per_day) VALUES(?,?)
		 ON CONFLICT(user_id) DO UPDATE SET target_per_day = excluded.target_per_day`,
		userID, targetPerDay,
	)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
