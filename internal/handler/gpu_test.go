package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/captolab/gpuhub/internal/middleware"
	"github.com/captolab/gpuhub/internal/model"
	"github.com/captolab/gpuhub/internal/service"
	_ "github.com/mattn/go-sqlite3"
)

type stubExecutor struct {
	result *service.RunResult
}

func (s *stubExecutor) Run(_ context.Context, _, _ string, _ time.Duration) (*service.RunResult, error) {
	return s.result, nil
}

func setupGPUHandler(t *testing.T, exec service.Executor) (*GPUHandler, *service.QuotaLedger) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ddl := `
CREATE TABLE daily_quota (
  user_id TEXT NOT NULL,
  date TEXT NOT NULL,
  used_minutes INTEGER NOT NULL DEFAULT 0,
  updated_at TEXT NOT NULL,
  UNIQUE(user_id, date)
);

CREATE TABLE gpu_usage (
  usage_id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  session_id TEXT NOT NULL,
  start_time TEXT NOT NULL,
  end_time TEXT,
  duration_minutes INTEGER,
  created_at TEXT NOT NULL
);

CREATE TABLE execution_sessions (
  execution_id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  session_id TEXT NOT NULL,
  code TEXT NOT NULL,
  output TEXT,
  execution_time INTEGER,
  status TEXT NOT NULL,
  created_at TEXT NOT NULL
);
`
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	quota := service.NewQuotaLedger(db, 60)
	coord := service.NewCoordinator(db, quota, service.NewMemoryPendingStore(), exec, t.TempDir(), time.Minute)
	return NewGPUHandler(coord, quota), quota
}

func authedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	user := model.NewAuthUser("u1", "u@example.com", model.RoleStudent)
	return req.WithContext(middleware.WithUser(req.Context(), user))
}

func TestExecuteCodeHappyPath(t *testing.T) {
	h, _ := setupGPUHandler(t, &stubExecutor{result: &service.RunResult{
		Stdout:   "hello\n",
		Duration: 500 * time.Millisecond,
	}})

	rec := httptest.NewRecorder()
	h.ExecuteCode(rec, authedRequest(t, http.MethodPost, "/api/gpu/execute/code",
		`{"sessionId":"s1","code":"print('hello')"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res model.ExecResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.Output != "hello\n" || res.OutputType != model.OutputText {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExecuteCodeQuotaExceededPayload(t *testing.T) {
	h, quota := setupGPUHandler(t, &stubExecutor{result: &service.RunResult{}})
	if err := quota.AddUsage(context.Background(), "u1", 60); err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ExecuteCode(rec, authedRequest(t, http.MethodPost, "/api/gpu/execute/code",
		`{"sessionId":"s1","code":"x = 1"}`))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		QuotaExceeded bool `json:"quotaExceeded"`
		UsedMinutes   int  `json:"usedMinutes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "E_QUOTA_EXCEEDED" || !body.QuotaExceeded || body.UsedMinutes != 60 {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestExecuteCodeAwaitingInputResponse(t *testing.T) {
	h, _ := setupGPUHandler(t, &stubExecutor{result: &service.RunResult{}})

	rec := httptest.NewRecorder()
	h.ExecuteCode(rec, authedRequest(t, http.MethodPost, "/api/gpu/execute/code",
		`{"sessionId":"s1","code":"name = input(\"Name: \")"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res model.ExecResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.RequiresInput || res.InputPrompt != "Name: " {
		t.Fatalf("expected awaiting-input response, got %+v", res)
	}
}

func TestProvideInputWithoutPendingSession(t *testing.T) {
	h, _ := setupGPUHandler(t, &stubExecutor{result: &service.RunResult{}})

	rec := httptest.NewRecorder()
	h.ProvideInput(rec, authedRequest(t, http.MethodPost, "/api/gpu/execute/input",
		`{"sessionId":"nope","input":"x"}`))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "E_NO_PENDING_SESSION") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestProvideInputRequiresInputField(t *testing.T) {
	h, _ := setupGPUHandler(t, &stubExecutor{result: &service.RunResult{
		Stdout:   "ok\n",
		Duration: 100 * time.Millisecond,
	}})

	// Suspend a session first so a missing field cannot be confused with
	// a missing record.
	rec := httptest.NewRecorder()
	h.ExecuteCode(rec, authedRequest(t, http.MethodPost, "/api/gpu/execute/code",
		`{"sessionId":"s1","code":"v = input(\"q: \")"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("suspend: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ProvideInput(rec, authedRequest(t, http.MethodPost, "/api/gpu/execute/input",
		`{"sessionId":"s1"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for omitted input, got %d: %s", rec.Code, rec.Body.String())
	}

	// An explicit empty string is a legitimate answer.
	rec = httptest.NewRecorder()
	h.ProvideInput(rec, authedRequest(t, http.MethodPost, "/api/gpu/execute/input",
		`{"sessionId":"s1","input":""}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty-string input, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExecuteCodeRejectsMissingFields(t *testing.T) {
	h, _ := setupGPUHandler(t, &stubExecutor{result: &service.RunResult{}})

	rec := httptest.NewRecorder()
	h.ExecuteCode(rec, authedRequest(t, http.MethodPost, "/api/gpu/execute/code", `{"code":"x"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
