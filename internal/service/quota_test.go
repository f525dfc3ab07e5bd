package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/captolab/gpuhub/internal/model"
	_ "github.com/mattn/go-sqlite3"
)

func setupQuotaTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ddl := `
CREATE TABLE users (
  user_id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student',
  enabled INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL
);

CREATE TABLE daily_quota (
  user_id TEXT NOT NULL,
  date TEXT NOT NULL,
  used_minutes INTEGER NOT NULL DEFAULT 0,
  updated_at TEXT NOT NULL,
  UNIQUE(user_id, date)
);
`
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func TestQuotaGetUsageAbsentRecordMeansZero(t *testing.T) {
	db := setupQuotaTestDB(t)
	q := NewQuotaLedger(db, 60)

	usage, err := q.GetUsage(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.UsedMinutes != 0 || usage.RemainingMinutes != 60 {
		t.Fatalf("expected 0 used / 60 remaining, got %d/%d", usage.UsedMinutes, usage.RemainingMinutes)
	}
}

func TestQuotaAddUsageAccumulates(t *testing.T) {
	db := setupQuotaTestDB(t)
	q := NewQuotaLedger(db, 60)
	ctx := context.Background()

	if err := q.AddUsage(ctx, "u1", 10); err != nil {
		t.Fatalf("add usage: %v", err)
	}
	if err := q.AddUsage(ctx, "u1", 25); err != nil {
		t.Fatalf("add usage: %v", err)
	}

	usage, err := q.GetUsage(ctx, "u1", "")
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.UsedMinutes != 35 {
		t.Fatalf("expected 35 used minutes, got %d", usage.UsedMinutes)
	}
	if usage.RemainingMinutes != 25 {
		t.Fatalf("expected 25 remaining, got %d", usage.RemainingMinutes)
	}
}

func TestQuotaRemainingFlooredAtZero(t *testing.T) {
	db := setupQuotaTestDB(t)
	q := NewQuotaLedger(db, 60)
	ctx := context.Background()

	// Overage is possible: the admission check is advisory, not atomic with
	// the charge. Remaining must still never go negative.
	if err := q.AddUsage(ctx, "u1", 59); err != nil {
		t.Fatalf("add usage: %v", err)
	}
	if err := q.AddUsage(ctx, "u1", 2); err != nil {
		t.Fatalf("add usage: %v", err)
	}

	usage, err := q.GetUsage(ctx, "u1", "")
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.UsedMinutes != 61 {
		t.Fatalf("expected 61 used minutes, got %d", usage.UsedMinutes)
	}
	if usage.RemainingMinutes != 0 {
		t.Fatalf("expected remaining floored at 0, got %d", usage.RemainingMinutes)
	}

	has, err := q.HasQuota(ctx, "u1")
	if err != nil {
		t.Fatalf("has quota: %v", err)
	}
	if has {
		t.Fatal("expected quota exhausted")
	}
}

func TestQuotaResetZeroesToday(t *testing.T) {
	db := setupQuotaTestDB(t)
	q := NewQuotaLedger(db, 60)
	ctx := context.Background()

	if err := q.AddUsage(ctx, "u1", 40); err != nil {
		t.Fatalf("add usage: %v", err)
	}
	if err := q.Reset(ctx, "u1", ""); err != nil {
		t.Fatalf("reset: %v", err)
	}

	usage, err := q.GetUsage(ctx, "u1", "")
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.UsedMinutes != 0 {
		t.Fatalf("expected 0 used after reset, got %d", usage.UsedMinutes)
	}
}

func TestQuotaAllUsageSkipsDisabledAndSortsHeaviestFirst(t *testing.T) {
	db := setupQuotaTestDB(t)
	q := NewQuotaLedger(db, 60)
	ctx := context.Background()

	seed := `
INSERT INTO users(user_id, email, password_hash, role, enabled, created_at) VALUES
  ('u1', 'a@x.com', 'h', 'student', 1, '2026-01-01'),
  ('u2', 'b@x.com', 'h', 'student', 1, '2026-01-01'),
  ('u3', 'c@x.com', 'h', 'student', 0, '2026-01-01');
`
	if _, err := db.Exec(seed); err != nil {
		t.Fatalf("seed users: %v", err)
	}
	if err := q.AddUsage(ctx, "u1", 5); err != nil {
		t.Fatalf("add usage: %v", err)
	}
	if err := q.AddUsage(ctx, "u2", 30); err != nil {
		t.Fatalf("add usage: %v", err)
	}
	if err := q.AddUsage(ctx, "u3", 50); err != nil {
		t.Fatalf("add usage: %v", err)
	}

	all, err := q.AllUsage(ctx)
	if err != nil {
		t.Fatalf("all usage: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 enabled users, got %d", len(all))
	}
	want := []model.UserUsage{
		{UserID: "u2", UsedMinutes: 30},
		{UserID: "u1", UsedMinutes: 5},
	}
	for i, w := range want {
		if all[i].UserID != w.UserID || all[i].UsedMinutes != w.UsedMinutes {
			t.Fatalf("row %d: expected %s/%d, got %s/%d",
				i, w.UserID, w.UsedMinutes, all[i].UserID, all[i].UsedMinutes)
		}
	}
}
