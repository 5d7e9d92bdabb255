package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// XP needed per level.
const xpPerLevel = 500

func LevelForXP(xp int) int { return xp/xpPerLevel + 1 }

// XPForNextLevel returns the total XP at which the next level starts.
func XPForNextLevel(level int) int { return level * xpPerLevel }

type Badge struct {
	Key       string
	Label     string
	AwardedAt string
}

type WeekSummary struct {
	WeekStart   string
	WeekEnd     string
	Pomodoros   int
	PomMinutes  int
	Calls       int
	CallMinutes int
	XP          int
	Level       int
	Badges      []Badge
}

type LeaderRow struct {
	UserID    int64
	Pomodoros int
}

// AddXP credits xp to a user (creating the row if needed) and returns the
// old and new level so callers can announce level-ups.
func (s *Store) AddXP(ctx context.Context, userID int64, delta int) (oldLevel, newLevel int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var xp, level int
	err = tx.QueryRowContext(ctx, `SELECT xp, level FROM users WHERE user_id = ?`, userID).Scan(&xp, &level)
	if errors.Is(err, sql.ErrNoRows) {
		newLevel = LevelForXP(delta)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users(user_id, chat_id, xp, level) VALUES(?,?,?,?)`,
			userID, userID, delta, newLevel,
		)
		if err != nil {
			return 0, 0, err
		}
		return 1, newLevel, tx.Commit()
	}
	if err != nil {
		return 0, 0, err
	}

	newXP := xp + delta
	newLevel = LevelForXP(newXP)
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET xp = ?, level = ? WHERE user_id = ?`,
		newXP, newLevel, userID,
	); err != nil {
		return 0, 0, err
	}
	return level, newLevel, tx.Commit()
}

func (s *Store) UserXP(ctx context.Context, userID int64) (xp, level int, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT xp, level FROM users WHERE user_id = ?`, userID).Scan(&xp, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 1, nil
	}
	return xp, level, err
}

// RecordPomodoro stores a finished pomodoro. XP is credited by the caller.
func (s *Store) RecordPomodoro(ctx context.Context, userID int64, start, end time.Time, durationMin int, phoneFree bool, tag string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pomodoros(user_id, start_ts, end_ts, duration_min, phone_free, tag)
		 VALUES(?,?,?,?,?,?)`,
		userID, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
		durationMin, boolInt(phoneFree), nullStr(tag),
	)
	return err
}

// LogCall stores a relationship/coaching call.
func (s *Store) LogCall(ctx context.Context, userID int64, start, end time.Time, durationMin int, tag, notes string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calls(user_id, start_ts, end_ts, duration_min, tag, notes)
		 VALUES(?,?,?,?,?,?)`,
		userID, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
		durationMin, nullStr(tag), nullStr(notes),
	)
	return err
}

// AwardBadge awards a badge once per (user, key). Returns false when the
// user already has it.
func (s *Store) AwardBadge(ctx context.Context, userID int64, key, label string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO badges(user_id, key, label) VALUES(?,?,?)
		 ON CONFLICT(user_id, key) DO NOTHING`,
		userID, key, nullStr(label),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// WeeklySummary aggregates a Monday-based week (dates are YYYY-MM-DD,
// inclusive) for one user.
func (s *Store) WeeklySummary(ctx context.Context, userID int64, weekStart, weekEnd string) (WeekSummary, error) {
	out := WeekSummary{WeekStart: weekStart, WeekEnd: weekEnd}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(duration_min),0) FROM pomodoros
		  WHERE user_id = ? AND date(created_at) BETWEEN ? AND ?`,
		userID, weekStart, weekEnd,
	).Scan(&out.Pomodoros, &out.PomMinutes)
	if err != nil {
		return out, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(duration_min),0) FROM calls
		  WHERE user_id = ? AND date(created_at) BETWEEN ? AND ?`,
		userID, weekStart, weekEnd,
	).Scan(&out.Calls, &out.CallMinutes)
	if err != nil {
		return out, err
	}

	out.XP, out.Level, err = s.UserXP(ctx, userID)
	if err != nil {
		return out, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, COALESCE(label,''), awarded_at FROM badges
		  WHERE user_id = ? AND date(awarded_at) BETWEEN ? AND ?`,
		userID, weekStart, weekEnd,
	)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var b Badge
		if err := rows.Scan(&b.Key, &b.Label, &b.AwardedAt); err != nil {
			return out, err
		}
		out.Badges = append(out.Badges, b)
	}
	return out, rows.Err()
}

// Leaderboard ranks users by pomodoro count within a week.
func (s *Store) Leaderboard(ctx context.Context, weekStart, weekEnd string, limit int) ([]LeaderRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, COUNT(*) AS cnt FROM pomodoros
		  WHERE date(created_at) BETWEEN ? AND ?
		  GROUP BY user_id
		  ORDER BY cnt DESC
		  LIMIT ?`,
		weekStart, weekEnd, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderRow
	for rows.Next() {
		var r LeaderRow
		if err := rows.Scan(&r.UserID, &r.Pomodoros); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WeekRange returns the Monday..Sunday dates containing ref.
func WeekRange(ref time.Time) (start, end string) {
	wd := int(ref.Weekday()) // Sunday=0
	offset := (wd + 6) % 7   // days since Monday
	mon := ref.AddDate(0, 0, -offset)
	sun := mon.AddDate(0, 0, 6)
	return mon.Format("2006-01-02"), sun.Format("2006-01-02")
}

// Reflection is an append-only send artifact.
type Reflection struct {
	At        time.Time
	Kind      string // "manifestation" | "card"
	ItemID    string
	Recipient string // "me" | "partner"
	Ack       string
}

func (s *Store) AppendReflection(ctx context.Context, r Reflection) error {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	kind := strings.TrimSpace(r.Kind)
	if kind == "" {
		return errors.New("reflection kind is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reflections(at, kind, item_id, recipient, ack) VALUES(?,?,?,?,?)`,
		r.At.UTC().Format(time.RFC3339), kind, r.ItemID, r.Recipient, nullStr(r.Ack),
	)
	return err
}
