package model

import "fmt"

// QuotaExceededError is returned when a user has no remaining execution
// minutes for the current UTC day. It gates session start and code
// execution, never completion.
type QuotaExceededError struct {
	UserID       string
	UsedMinutes  int
	QuotaMinutes int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily GPU quota exceeded for user %s: %d/%d minutes used",
		e.UserID, e.UsedMinutes, e.QuotaMinutes)
}

// NoActiveSessionError is returned by StopSession when no session record
// exists for the user.
type NoActiveSessionError struct {
	UserID    string
	SessionID string
}

func (e *NoActiveSessionError) Error() string {
	return fmt.Sprintf("no active session for user %s (session_id=%s)", e.UserID, e.SessionID)
}

// NoPendingSessionError is returned by ProvideInput when the session has
// no unresolved pending-input record.
type NoPendingSessionError struct {
	SessionID string
}

func (e *NoPendingSessionError) Error() string {
	return fmt.Sprintf("no session waiting for input: %s", e.SessionID)
}

// ExecutorLaunchError wraps a failure to spawn the executor process.
// Launch failures are infrastructure faults: surfaced as 500 and never
// billed, since no execution time was consumed.
type ExecutorLaunchError struct {
	Err error
}

func (e *ExecutorLaunchError) Error() string {
	return fmt.Sprintf("executor launch failed: %v", e.Err)
}

func (e *ExecutorLaunchError) Unwrap() error { return e.Err }

// NotFoundError is returned as 404.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}
