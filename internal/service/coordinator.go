package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/captolab/gpuhub/internal/model"
	"github.com/captolab/gpuhub/internal/observability"
	"github.com/google/uuid"
)

// SessionInfo is returned by the start/stop bracketing operations.
type SessionInfo struct {
	Success         bool   `json:"success"`
	SessionID       string `json:"sessionId"`
	StartTime       string `json:"startTime,omitempty"`
	EndTime         string `json:"endTime,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	Message         string `json:"message"`
}

type activeSession struct {
	userID    string
	usageID   string
	startTime time.Time
}

// Coordinator owns the per-session execution lifecycle: the start/stop
// bracket, source rewriting, dispatch to the executor, output collection,
// and the pending-input state machine that suspends a logical run across
// multiple HTTP round trips.
//
// Quota accounting: the execute path and the stop path both charge, but
// they meter disjoint flows. StopSession bills the bracketed wall-clock of
// an explicitly started session; execute bills each individual run. A
// client uses one flow per session id, and each flow writes its own ledger
// rows, so elapsed time is never double-counted within a flow.
type Coordinator struct {
	db      *sql.DB
	quota   *QuotaLedger
	pending PendingStore
	exec    Executor
	archive *ArtifactArchive // nil = archiving disabled

	workDir string
	timeout time.Duration

	mu     sync.Mutex
	active map[string]*activeSession // keyed by session id
}

func NewCoordinator(db *sql.DB, quota *QuotaLedger, pending PendingStore, exec Executor, workDir string, timeout time.Duration) *Coordinator {
	return &Coordinator{
		db:      db,
		quota:   quota,
		pending: pending,
		exec:    exec,
		workDir: workDir,
		timeout: timeout,
		active:  make(map[string]*activeSession),
	}
}

// SetArchive enables best-effort artifact archiving.
func (c *Coordinator) SetArchive(a *ArtifactArchive) { c.archive = a }

// ActiveSessionCount reports the number of bracketed sessions currently
// running (telemetry only).
func (c *Coordinator) ActiveSessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// PendingInputCount reports the number of sessions awaiting input.
func (c *Coordinator) PendingInputCount(ctx context.Context) int {
	return c.pending.Len(ctx)
}

// StartSession checks quota, records a session record and a usage ledger
// entry. Fails with QuotaExceededError when no minutes remain today.
func (c *Coordinator) StartSession(ctx context.Context, userID, sessionID string) (*SessionInfo, error) {
	if err := c.checkQuota(ctx, userID); err != nil {
		return nil, err
	}

	usageID := uuid.NewString()
	now := time.Now().UTC()
	if _, err := c.db.ExecContext(ctx, `
		INSERT INTO gpu_usage (usage_id, user_id, session_id, start_time, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		usageID, userID, sessionID,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano)); err != nil {
		return nil, fmt.Errorf("record session start: %w", err)
	}

	c.mu.Lock()
	c.active[sessionID] = &activeSession{userID: userID, usageID: usageID, startTime: now}
	c.mu.Unlock()

	log.Printf("session started (user=%s session=%s)", userID, sessionID)
	return &SessionInfo{
		Success:   true,
		SessionID: sessionID,
		StartTime: now.Format(time.RFC3339Nano),
		Message:   "GPU execution started",
	}, nil
}

// StopSession closes out a bracketed session: completes its usage ledger
// entry and charges the elapsed wall-clock minutes. Fails with
// NoActiveSessionError when no session record exists for the user.
func (c *Coordinator) StopSession(ctx context.Context, userID, sessionID string) (*SessionInfo, error) {
	c.mu.Lock()
	sess, ok := c.active[sessionID]
	if !ok || sess.userID != userID {
		c.mu.Unlock()
		return nil, &model.NoActiveSessionError{UserID: userID, SessionID: sessionID}
	}
	delete(c.active, sessionID)
	c.mu.Unlock()

	end := time.Now().UTC()
	minutes := ceilMinutes(end.Sub(sess.startTime))

	if _, err := c.db.ExecContext(ctx, `
		UPDATE gpu_usage SET end_time = ?, duration_minutes = ? WHERE usage_id = ?`,
		end.Format(time.RFC3339Nano), minutes, sess.usageID); err != nil {
		return nil, fmt.Errorf("record session stop: %w", err)
	}
	if err := c.quota.AddUsage(ctx, userID, minutes); err != nil {
		return nil, err
	}
	observability.QuotaMinutesCharged.Add(float64(minutes))

	log.Printf("session stopped (user=%s session=%s minutes=%d)", userID, sessionID, minutes)
	return &SessionInfo{
		Success:         true,
		SessionID:       sessionID,
		EndTime:         end.Format(time.RFC3339Nano),
		DurationMinutes: minutes,
		Message:         "GPU execution stopped",
	}, nil
}

// Submit runs source for the session, input-aware. Source containing no
// recognized input call executes immediately; otherwise a pending-input
// record is created and the first prompt is returned.
func (c *Coordinator) Submit(ctx context.Context, userID, sessionID, source string) (*model.ExecResult, error) {
	calls := ScanInputCalls(source)
	if len(calls) == 0 {
		return c.execute(ctx, userID, sessionID, source)
	}

	unlock, err := c.pending.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lock pending session: %w", err)
	}
	defer unlock()

	// A resubmission replaces any record the session already had.
	prev, err := c.pending.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load pending record: %w", err)
	}

	rec := &PendingRecord{
		UserID: userID,
		Source: source,
		Calls:  calls,
		Cursor: 0,
	}
	if err := c.pending.Put(ctx, sessionID, rec); err != nil {
		return nil, fmt.Errorf("store pending record: %w", err)
	}
	if prev == nil {
		observability.PendingInputsActive.Inc()
	}

	return model.AwaitingInput(calls[0].Prompt), nil
}

// ProvideInput resolves one pending prompt. The Kth call receives the Kth
// call site's value, in left-to-right source order; the final value
// triggers the splice and delegates to the executor.
func (c *Coordinator) ProvideInput(ctx context.Context, userID, sessionID, value string) (*model.ExecResult, error) {
	unlock, err := c.pending.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lock pending session: %w", err)
	}
	defer unlock()

	rec, err := c.pending.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load pending record: %w", err)
	}
	if rec == nil || rec.UserID != userID {
		return nil, &model.NoPendingSessionError{SessionID: sessionID}
	}

	rec.Values = append(rec.Values, value)
	rec.Cursor++

	if rec.Cursor < len(rec.Calls) {
		if err := c.pending.Put(ctx, sessionID, rec); err != nil {
			return nil, fmt.Errorf("store pending record: %w", err)
		}
		return model.AwaitingInput(rec.Calls[rec.Cursor].Prompt), nil
	}

	// Last value supplied: splice everything back-to-front into the
	// original source, drop the record, and delegate.
	final, err := SpliceInputs(rec.Source, rec.Calls, rec.Values)
	if err != nil {
		_ = c.pending.Delete(ctx, sessionID)
		observability.PendingInputsActive.Dec()
		return nil, err
	}
	if err := c.pending.Delete(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("delete pending record: %w", err)
	}
	observability.PendingInputsActive.Dec()

	return c.execute(ctx, rec.UserID, sessionID, final)
}

// execute is the terminal path: quota gate, source preparation, executor
// dispatch, output classification, and always-on quota/ledger bookkeeping.
func (c *Coordinator) execute(ctx context.Context, userID, sessionID, source string) (*model.ExecResult, error) {
	if err := c.checkQuota(ctx, userID); err != nil {
		return nil, err
	}

	installs, body := ExtractInstalls(source)
	assembled := Assemble(NormalizeBody(body), installs)

	runDir, err := os.MkdirTemp(c.workDir, "gpuhub-run-*")
	if err != nil {
		return nil, &model.ExecutorLaunchError{Err: err}
	}
	defer os.RemoveAll(runDir)

	res, err := c.exec.Run(ctx, assembled, runDir, c.timeout)
	if err != nil {
		// Spawn failures are not billed: no execution time was consumed.
		return nil, &model.ExecutorLaunchError{Err: err}
	}

	output, kind := ClassifyOutput(res)

	runID := uuid.NewString()
	if c.archive != nil && len(res.Artifacts) > 0 {
		if err := c.archive.Store(ctx, userID, sessionID, runID, res.Artifacts); err != nil {
			log.Printf("artifact archive failed (session=%s): %v", sessionID, err)
		}
	}

	minutes := ceilMinutes(res.Duration)
	if err := c.quota.AddUsage(ctx, userID, minutes); err != nil {
		return nil, err
	}
	observability.QuotaMinutesCharged.Add(float64(minutes))

	status := "success"
	if res.ExitCode != 0 {
		status = "error"
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := c.db.ExecContext(ctx, `
		INSERT INTO execution_sessions
			(execution_id, user_id, session_id, code, output, execution_time, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, userID, sessionID, source, output,
		res.Duration.Milliseconds(), status, now); err != nil {
		return nil, fmt.Errorf("record execution: %w", err)
	}

	observability.ExecutionsTotal.WithLabelValues(status).Inc()
	observability.ExecutionDuration.Observe(res.Duration.Seconds())

	result := &model.ExecResult{
		Success:         res.ExitCode == 0,
		Output:          output,
		OutputType:      kind,
		ExecutionTimeMs: res.Duration.Milliseconds(),
		DurationMinutes: minutes,
		ExitCode:        res.ExitCode,
	}
	if res.ExitCode != 0 {
		result.Error = res.Stderr
	}
	return result, nil
}

func (c *Coordinator) checkQuota(ctx context.Context, userID string) error {
	usage, err := c.quota.GetUsage(ctx, userID, "")
	if err != nil {
		return err
	}
	if usage.RemainingMinutes <= 0 {
		return &model.QuotaExceededError{
			UserID:       userID,
			UsedMinutes:  usage.UsedMinutes,
			QuotaMinutes: usage.QuotaMinutes,
		}
	}
	return nil
}

// ceilMinutes rounds elapsed wall clock up to whole minutes; any partial
// minute counts as one.
func ceilMinutes(d time.Duration) int {
	ms := d.Milliseconds()
	minutes := int((ms + 59_999) / 60_000)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
