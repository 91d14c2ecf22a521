package service

import (
	"context"
	"strings"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
)

// MailboxService is the push-mode side channel: devices (or operators)
// leave commands and camera frames here for the other party to poll.
type MailboxService struct {
	store store.MailboxStore
}

func NewMailboxService(s store.MailboxStore) *MailboxService {
	return &MailboxService{store: s}
}

func (s *MailboxService) SetCommand(ctx context.Context, deviceID string, cmd types.CommandState) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return ErrInvalidDeviceID
	}
	return s.store.SetCommand(ctx, deviceID, cmd)
}

func (s *MailboxService) Command(ctx context.Context, deviceID string) (types.CommandState, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return types.CommandState{}, ErrInvalidDeviceID
	}
	return s.store.GetCommand(ctx, deviceID)
}

func (s *MailboxService) PushFrame(ctx context.Context, deviceID, frame string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return ErrInvalidDeviceID
	}
	return s.store.SetFrame(ctx, deviceID, frame)
}

// LatestFrame returns ErrNoFrame until a frame has been pushed.
func (s *MailboxService) LatestFrame(ctx context.Context, deviceID string) (string, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", ErrInvalidDeviceID
	}
	frame, ok, err := s.store.GetFrame(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoFrame
	}
	return frame, nil
}
