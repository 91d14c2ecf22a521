package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
)

// RelaySessionStore is an in-memory relay session log. It is the default
// when no database path is configured, and what tests use.
type RelaySessionStore struct {
	mu       sync.Mutex
	sessions []store.RelaySessionRecord
}

func NewRelaySessionStore() *RelaySessionStore {
	return &RelaySessionStore{}
}

func (s *RelaySessionStore) RecordSession(_ context.Context, rec store.RelaySessionRecord) error {
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, rec)
	return nil
}

func (s *RelaySessionStore) ListSessions(_ context.Context, deviceID string, limit int) ([]store.RelaySessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.RelaySessionRecord, 0, len(s.sessions))
	for _, rec := range s.sessions {
		if deviceID == "" || rec.DeviceID == deviceID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *RelaySessionStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.sessions[:0]
	var deleted int64
	for _, rec := range s.sessions {
		if rec.EndedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.sessions = kept
	return deleted, nil
}

// Sessions returns a copy of all recorded sessions in insertion order.
// Test-only helper.
func (s *RelaySessionStore) Sessions() []store.RelaySessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.RelaySessionRecord, len(s.sessions))
	copy(out, s.sessions)
	return out
}
