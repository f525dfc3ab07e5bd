package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/captolab/gpuhub/internal/model"
)

// QuotaLedger is the authoritative count of consumed execution minutes per
// user per UTC day, against a fixed process-wide allowance.
//
// HasQuota is advisory: it gates whether execution may start, but the check
// and the later AddUsage are not one atomic unit, so concurrent starts can
// both pass before either charges. The accepted consequence is an overage
// of at most one run. AddUsage itself is a single conditional upsert, so
// the counter never loses an increment.
type QuotaLedger struct {
	db           *sql.DB
	quotaMinutes int
}

func NewQuotaLedger(db *sql.DB, quotaMinutes int) *QuotaLedger {
	return &QuotaLedger{db: db, quotaMinutes: quotaMinutes}
}

// QuotaMinutes returns the fixed daily allowance.
func (q *QuotaLedger) QuotaMinutes() int { return q.quotaMinutes }

func utcToday() string {
	return time.Now().UTC().Format("2006-01-02")
}

// GetUsage reports consumed and remaining minutes for the given UTC date
// ("" = today). Absence of a record means zero usage; remaining is floored
// at zero.
func (q *QuotaLedger) GetUsage(ctx context.Context, userID, date string) (*model.UsageSummary, error) {
	if date == "" {
		date = utcToday()
	}
	var used int
	err := q.db.QueryRowContext(ctx,
		`SELECT used_minutes FROM daily_quota WHERE user_id = ? AND date = ?`,
		userID, date).Scan(&used)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("query daily quota: %w", err)
	}

	remaining := q.quotaMinutes - used
	if remaining < 0 {
		remaining = 0
	}
	return &model.UsageSummary{
		UserID:           userID,
		Date:             date,
		UsedMinutes:      used,
		QuotaMinutes:     q.quotaMinutes,
		RemainingMinutes: remaining,
	}, nil
}

// HasQuota reports whether the user may start an execution today.
func (q *QuotaLedger) HasQuota(ctx context.Context, userID string) (bool, error) {
	usage, err := q.GetUsage(ctx, userID, "")
	if err != nil {
		return false, err
	}
	return usage.RemainingMinutes > 0, nil
}

// AddUsage increments today's consumed minutes by minutes in one atomic
// upsert. Each call represents one real execution; no deduplication is
// performed.
func (q *QuotaLedger) AddUsage(ctx context.Context, userID string, minutes int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO daily_quota (user_id, date, used_minutes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, date)
		DO UPDATE SET used_minutes = used_minutes + excluded.used_minutes,
		              updated_at = excluded.updated_at`,
		userID, utcToday(), minutes, now)
	if err != nil {
		return fmt.Errorf("add usage: %w", err)
	}
	return nil
}

// Reset zeroes consumed minutes for the given user and UTC date
// ("" = today). Administrative only.
func (q *QuotaLedger) Reset(ctx context.Context, userID, date string) error {
	if date == "" {
		date = utcToday()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := q.db.ExecContext(ctx,
		`UPDATE daily_quota SET used_minutes = 0, updated_at = ? WHERE user_id = ? AND date = ?`,
		now, userID, date)
	if err != nil {
		return fmt.Errorf("reset quota: %w", err)
	}
	return nil
}

// AllUsage returns today's usage for every enabled user, heaviest first.
func (q *QuotaLedger) AllUsage(ctx context.Context) ([]model.UserUsage, error) {
	today := utcToday()
	rows, err := q.db.QueryContext(ctx, `
		SELECT u.user_id, u.email, u.role, COALESCE(dq.used_minutes, 0) AS used_minutes
		FROM users u
		LEFT JOIN daily_quota dq ON dq.user_id = u.user_id AND dq.date = ?
		WHERE u.enabled = 1
		ORDER BY used_minutes DESC, u.email`, today)
	if err != nil {
		return nil, fmt.Errorf("query all usage: %w", err)
	}
	defer rows.Close()

	var out []model.UserUsage
	for rows.Next() {
		var u model.UserUsage
		if err := rows.Scan(&u.UserID, &u.Email, &u.Role, &u.UsedMinutes); err != nil {
			return nil, err
		}
		u.Date = today
		u.QuotaMinutes = q.quotaMinutes
		u.RemainingMinutes = q.quotaMinutes - u.UsedMinutes
		if u.RemainingMinutes < 0 {
			u.RemainingMinutes = 0
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
