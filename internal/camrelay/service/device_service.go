package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// DeviceService handles device registration and heartbeats and renders
// registry records for clients. Online state is always derived from the
// record's LastSeen and the current time; it is never stored.
type DeviceService struct {
	devices      store.DeviceStore
	onlineWindow time.Duration
	now          func() time.Time
}

// NewDeviceService returns a service over devices. A nil now uses the
// wall clock.
func NewDeviceService(devices store.DeviceStore, onlineWindow time.Duration, now func() time.Time) *DeviceService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &DeviceService{devices: devices, onlineWindow: onlineWindow, now: now}
}

// Register creates or refreshes a device record and returns where clients
// can fetch its stream. baseURL is the externally visible relay origin,
// without a trailing slash.
func (s *DeviceService) Register(ctx context.Context, req types.RegisterRequest, baseURL string) (types.RegisterResponse, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return types.RegisterResponse{}, ErrInvalidDeviceID
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = StatusOnline
	}

	_, err := s.devices.Upsert(ctx, deviceID, store.DeviceUpdate{
		Address:        strings.TrimSpace(req.LocalIP),
		ReportedStatus: status,
	}, s.now())
	if err != nil {
		return types.RegisterResponse{}, fmt.Errorf("register %s: %w", deviceID, err)
	}

	return types.RegisterResponse{
		Success:   true,
		DeviceID:  deviceID,
		StreamURL: StreamURL(baseURL, deviceID),
		Message:   "Device registered successfully",
	}, nil
}

// Heartbeat refreshes a registered device. Unregistered devices get
// ErrDeviceNotFound and the registry is left untouched.
func (s *DeviceService) Heartbeat(ctx context.Context, req types.HeartbeatRequest) (types.HeartbeatResponse, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return types.HeartbeatResponse{}, ErrInvalidDeviceID
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = StatusOnline
	}

	if _, err := s.devices.Touch(ctx, deviceID, status, s.now()); err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			return types.HeartbeatResponse{}, ErrDeviceNotFound
		}
		return types.HeartbeatResponse{}, fmt.Errorf("heartbeat %s: %w", deviceID, err)
	}

	return types.HeartbeatResponse{Success: true, Message: "Heartbeat received"}, nil
}

func (s *DeviceService) Describe(ctx context.Context, deviceID string) (types.DeviceView, error) {
	rec, online, err := s.Resolve(ctx, deviceID)
	if err != nil {
		return types.DeviceView{}, err
	}
	return toView(rec, online), nil
}

// ListAll returns every registered device, oldest registration first.
func (s *DeviceService) ListAll(ctx context.Context) ([]types.DeviceView, error) {
	recs, err := s.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].RegisteredAt.Equal(recs[j].RegisteredAt) {
			return recs[i].RegisteredAt.Before(recs[j].RegisteredAt)
		}
		return recs[i].DeviceID < recs[j].DeviceID
	})

	now := s.now()
	views := make([]types.DeviceView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, toView(rec, s.isOnline(rec, now)))
	}
	return views, nil
}

// Resolve looks a device up and reports whether it is currently online.
func (s *DeviceService) Resolve(ctx context.Context, deviceID string) (store.DeviceRecord, bool, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return store.DeviceRecord{}, false, ErrInvalidDeviceID
	}

	rec, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			return store.DeviceRecord{}, false, ErrDeviceNotFound
		}
		return store.DeviceRecord{}, false, fmt.Errorf("get %s: %w", deviceID, err)
	}
	return rec, s.isOnline(rec, s.now()), nil
}

func (s *DeviceService) Count(ctx context.Context) (int, error) {
	return s.devices.Count(ctx)
}

func (s *DeviceService) isOnline(rec store.DeviceRecord, now time.Time) bool {
	return now.Sub(rec.LastSeen) < s.onlineWindow
}

// StreamURL is the locator handed to a device at registration.
func StreamURL(baseURL, deviceID string) string {
	return strings.TrimRight(baseURL, "/") + "/stream/" + url.PathEscape(deviceID)
}

func toView(rec store.DeviceRecord, online bool) types.DeviceView {
	status := rec.ReportedStatus
	if !online {
		status = StatusOffline
	}
	return types.DeviceView{
		DeviceID:     rec.DeviceID,
		LocalIP:      rec.Address,
		Status:       status,
		IsOnline:     online,
		LastSeen:     rec.LastSeen.UTC().Format(time.RFC3339Nano),
		RegisteredAt: rec.RegisteredAt.UTC().Format(time.RFC3339Nano),
	}
}
