package service

import (
	"context"
	"sync"
)

// PendingRecord is the suspended state of a session whose source contains
// unresolved interactive input requests. Source always holds the original
// submission; supplied values are collected in Values and spliced in a
// single pass once the last one arrives.
//
// Invariant: 0 <= Cursor <= len(Calls). A record exists only while
// Cursor < len(Calls).
type PendingRecord struct {
	UserID string      `json:"user_id"`
	Source string      `json:"source"`
	Calls  []InputCall `json:"calls"`
	Cursor int         `json:"cursor"`
	Values []string    `json:"values"`
}

// PendingStore holds pending-input records keyed by session id. Lock
// serializes resolution per session so concurrent input submissions cannot
// corrupt Cursor or Values; at most one resolution is in flight per key.
// Lock blocks until the key is held, the context ends, or acquisition
// fails; it returns an unlock func only on success.
type PendingStore interface {
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
	Get(ctx context.Context, sessionID string) (*PendingRecord, error)
	Put(ctx context.Context, sessionID string, rec *PendingRecord) error
	Delete(ctx context.Context, sessionID string) error
	// Len reports the number of unresolved records (telemetry only).
	Len(ctx context.Context) int
}

// MemoryPendingStore is the single-instance implementation: a plain map
// guarded by a mutex, plus one mutex per session id. A multi-process
// deployment needs the Redis store instead; process-local records would
// silently fragment session state.
type MemoryPendingStore struct {
	mu      sync.Mutex
	records map[string]*PendingRecord
	locks   map[string]*sync.Mutex
}

func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{
		records: make(map[string]*PendingRecord),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *MemoryPendingStore) Lock(_ context.Context, sessionID string) (func(), error) {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock, nil
}

func (s *MemoryPendingStore) Get(_ context.Context, sessionID string) (*PendingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	cp.Calls = append([]InputCall(nil), rec.Calls...)
	cp.Values = append([]string(nil), rec.Values...)
	return &cp, nil
}

func (s *MemoryPendingStore) Put(_ context.Context, sessionID string, rec *PendingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sessionID] = rec
	return nil
}

func (s *MemoryPendingStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	delete(s.locks, sessionID)
	return nil
}

func (s *MemoryPendingStore) Len(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
