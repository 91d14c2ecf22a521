package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
)

type mailbox struct {
	command  types.CommandState
	frame    string
	hasFrame bool
}

type MailboxStore struct {
	mu    sync.RWMutex
	boxes map[string]*mailbox
}

func NewMailboxStore() *MailboxStore {
	return &MailboxStore{boxes: make(map[string]*mailbox)}
}

func (s *MailboxStore) SetCommand(_ context.Context, deviceID string, cmd types.CommandState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.box(deviceID).command = cmd
	return nil
}

func (s *MailboxStore) GetCommand(_ context.Context, deviceID string) (types.CommandState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.box(deviceID).command, nil
}

func (s *MailboxStore) SetFrame(_ context.Context, deviceID, frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.box(deviceID)
	b.frame = frame
	b.hasFrame = frame != ""
	return nil
}

func (s *MailboxStore) GetFrame(_ context.Context, deviceID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boxes[deviceID]
	if !ok || !b.hasFrame {
		return "", false, nil
	}
	return b.frame, true, nil
}

// box returns the mailbox for deviceID, creating it on first use.
// Callers must hold the write lock.
func (s *MailboxStore) box(deviceID string) *mailbox {
	b, ok := s.boxes[deviceID]
	if !ok {
		b = &mailbox{}
		s.boxes[deviceID] = b
	}
	return b
}
