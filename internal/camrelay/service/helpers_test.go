package service_test

import (
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/service"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store/memory"
	"github.com/BrandonDHaskell/camrelay/internal/metrics"
	"github.com/BrandonDHaskell/camrelay/internal/testutil"
)

const (
	onlineWindow   = 120 * time.Second
	evictionWindow = 600 * time.Second
)

type fixture struct {
	clock   *testutil.Clock
	devices *memory.DeviceStore
	svc     *service.DeviceService
	monitor *service.LivenessMonitor
	metrics *metrics.Metrics
}

// newFixture wires a DeviceService and LivenessMonitor over one in-memory
// registry and a shared fake clock.
func newFixture() *fixture {
	clock := testutil.NewClock()
	devices := memory.NewDeviceStore()
	m := metrics.New()
	return &fixture{
		clock:   clock,
		devices: devices,
		svc:     service.NewDeviceService(devices, onlineWindow, clock.Now),
		monitor: service.NewLivenessMonitor(devices, service.LivenessConfig{
			OnlineWindow:   onlineWindow,
			EvictionWindow: evictionWindow,
			SweepInterval:  time.Minute,
		}, clock.Now, zap.NewNop(), m),
		metrics: m,
	}
}
