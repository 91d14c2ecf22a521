package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/service"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
)

func TestRegister_NewDevice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	resp, err := f.svc.Register(ctx, types.RegisterRequest{
		DeviceID: "dev1",
		LocalIP:  "10.0.0.5",
	}, "http://relay.example.com")
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "dev1", resp.DeviceID)
	assert.Equal(t, "http://relay.example.com/stream/dev1", resp.StreamURL)

	recs, err := f.devices.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, f.clock.Now(), recs[0].RegisteredAt)
	assert.Equal(t, f.clock.Now(), recs[0].LastSeen)
	assert.Equal(t, "online", recs[0].ReportedStatus)
}

func TestRegister_MissingDeviceID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Register(context.Background(), types.RegisterRequest{DeviceID: "  ", LocalIP: "10.0.0.5"}, "")
	assert.ErrorIs(t, err, service.ErrInvalidDeviceID)

	n, _ := f.svc.Count(context.Background())
	assert.Zero(t, n)
}

func TestRegister_AgainPreservesRegisteredAt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first := f.clock.Now()

	_, err := f.svc.Register(ctx, types.RegisterRequest{DeviceID: "dev1", LocalIP: "10.0.0.5"}, "")
	require.NoError(t, err)

	f.clock.Advance(30 * time.Second)
	_, err = f.svc.Register(ctx, types.RegisterRequest{DeviceID: "dev1", LocalIP: "10.0.0.6", Status: "rebooted"}, "")
	require.NoError(t, err)

	view, err := f.svc.Describe(ctx, "dev1")
	require.NoError(t, err)
	assert.Equal(t, first.Format(time.RFC3339Nano), view.RegisteredAt)
	assert.Equal(t, f.clock.Now().Format(time.RFC3339Nano), view.LastSeen)
	assert.Equal(t, "10.0.0.6", view.LocalIP)
	assert.Equal(t, "rebooted", view.Status)
}

func TestStreamURL_EscapesDeviceID(t *testing.T) {
	assert.Equal(t, "http://h/stream/cam%201", service.StreamURL("http://h/", "cam 1"))
}

func TestHeartbeat_UnregisteredDevice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Heartbeat(ctx, types.HeartbeatRequest{DeviceID: "ghost"})
	assert.ErrorIs(t, err, service.ErrDeviceNotFound)

	n, _ := f.svc.Count(ctx)
	assert.Zero(t, n, "heartbeat must not create records")
}

func TestHeartbeat_MissingDeviceID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Heartbeat(context.Background(), types.HeartbeatRequest{})
	assert.ErrorIs(t, err, service.ErrInvalidDeviceID)
}

func TestHeartbeat_RefreshesLastSeenAndStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _ = f.svc.Register(ctx, types.RegisterRequest{DeviceID: "dev1", LocalIP: "10.0.0.5"}, "")

	f.clock.Advance(100 * time.Second)
	resp, err := f.svc.Heartbeat(ctx, types.HeartbeatRequest{DeviceID: "dev1", Status: "recording"})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	f.clock.Advance(100 * time.Second)
	view, err := f.svc.Describe(ctx, "dev1")
	require.NoError(t, err)
	assert.True(t, view.IsOnline, "heartbeat 100s ago keeps the device online")
	assert.Equal(t, "recording", view.Status)
}

func TestDescribe_OnlineFlipsWithElapsedTime(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _ = f.svc.Register(ctx, types.RegisterRequest{DeviceID: "dev1", LocalIP: "10.0.0.5", Status: "streaming"}, "")

	f.clock.Advance(onlineWindow - time.Millisecond)
	view, err := f.svc.Describe(ctx, "dev1")
	require.NoError(t, err)
	assert.True(t, view.IsOnline)
	assert.Equal(t, "streaming", view.Status)

	f.clock.Advance(time.Millisecond)
	view, err = f.svc.Describe(ctx, "dev1")
	require.NoError(t, err)
	assert.False(t, view.IsOnline, "offline exactly at the online window")
	assert.Equal(t, "offline", view.Status, "derived status overrides the reported one")
}

func TestDescribe_Unknown(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Describe(context.Background(), "ghost")
	assert.ErrorIs(t, err, service.ErrDeviceNotFound)
}

func TestListAll_IsStableWithoutCalls(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, id := range []string{"b", "a", "c"} {
		_, _ = f.svc.Register(ctx, types.RegisterRequest{DeviceID: id}, "")
		f.clock.Advance(50 * time.Second)
	}

	first, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	second, err := f.svc.ListAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{first[0].DeviceID, first[1].DeviceID, first[2].DeviceID})
	assert.False(t, first[0].IsOnline, "registered 150s ago")
	assert.True(t, first[2].IsOnline)
}

func TestResolve(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _ = f.svc.Register(ctx, types.RegisterRequest{DeviceID: "dev1", LocalIP: "10.0.0.5"}, "")

	rec, online, err := f.svc.Resolve(ctx, "dev1")
	require.NoError(t, err)
	assert.True(t, online)
	assert.Equal(t, "10.0.0.5", rec.Address)

	_, _, err = f.svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, service.ErrInvalidDeviceID)
}
