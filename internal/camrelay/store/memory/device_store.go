package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// DeviceStore is the in-memory device registry. A single RWMutex guards the
// map; every critical section is a handful of field writes.
type DeviceStore struct {
	mu      sync.RWMutex
	devices map[string]*store.DeviceRecord
}

func NewDeviceStore() *DeviceStore {
	return &DeviceStore{
		devices: make(map[string]*store.DeviceRecord),
	}
}

func (s *DeviceStore) Upsert(_ context.Context, deviceID string, upd store.DeviceUpdate, seenAt time.Time) (store.DeviceRecord, error) {
	if seenAt.IsZero() {
		seenAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.devices[deviceID]
	if !ok {
		rec = &store.DeviceRecord{
			DeviceID:       deviceID,
			Address:        store.UnknownAddress,
			ReportedStatus: statusOnline,
			LastSeen:       seenAt,
			RegisteredAt:   seenAt,
		}
		s.devices[deviceID] = rec
	}

	// A call that lost the lock race to a newer one only counts as a sighting.
	if !seenAt.Before(rec.LastSeen) {
		if upd.Address != "" {
			rec.Address = upd.Address
		}
		if upd.ReportedStatus != "" {
			rec.ReportedStatus = upd.ReportedStatus
		}
	}
	advance(rec, seenAt)

	return *rec, nil
}

func (s *DeviceStore) Touch(_ context.Context, deviceID, status string, seenAt time.Time) (store.DeviceRecord, error) {
	if seenAt.IsZero() {
		seenAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.devices[deviceID]
	if !ok {
		return store.DeviceRecord{}, store.ErrDeviceNotFound
	}
	if status != "" && !seenAt.Before(rec.LastSeen) {
		rec.ReportedStatus = status
	}
	advance(rec, seenAt)

	return *rec, nil
}

func (s *DeviceStore) Get(_ context.Context, deviceID string) (store.DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.devices[deviceID]
	if !ok {
		return store.DeviceRecord{}, store.ErrDeviceNotFound
	}
	return *rec, nil
}

func (s *DeviceStore) List(_ context.Context) ([]store.DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.DeviceRecord, 0, len(s.devices))
	for _, rec := range s.devices {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *DeviceStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices), nil
}

func (s *DeviceStore) Remove(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, deviceID)
	return nil
}

func (s *DeviceStore) RemoveIfIdle(_ context.Context, deviceID string, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.devices[deviceID]
	if !ok || rec.LastSeen.After(cutoff) {
		return false, nil
	}
	delete(s.devices, deviceID)
	return true, nil
}

func (s *DeviceStore) MarkOfflineIfIdle(_ context.Context, deviceID string, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.devices[deviceID]
	if !ok || rec.LastSeen.After(cutoff) || rec.ReportedStatus == statusOffline {
		return false, nil
	}
	rec.ReportedStatus = statusOffline
	return true, nil
}

// advance moves LastSeen forward. It never moves it back, so a late call
// served with an older clock reading cannot make a device look staler.
func advance(rec *store.DeviceRecord, seenAt time.Time) {
	if seenAt.After(rec.LastSeen) {
		rec.LastSeen = seenAt
	}
}
