package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
	"github.com/BrandonDHaskell/camrelay/internal/metrics"
)

// LivenessMonitor periodically sweeps the device registry. Records silent
// for the eviction window are removed; records silent for the online
// window have their reported status forced to "offline".
//
// A sweep works on a snapshot of the registry and re-checks each record
// under the store's lock before mutating it, so handlers are never blocked
// for the length of a sweep.
type LivenessMonitor struct {
	devices store.DeviceStore
	cfg     LivenessConfig
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics

	loop periodic
}

// LivenessConfig holds the parameters for NewLivenessMonitor.
type LivenessConfig struct {
	OnlineWindow   time.Duration
	EvictionWindow time.Duration
	// SweepInterval defaults to one minute.
	SweepInterval time.Duration
}

// SweepResult reports what a single sweep changed.
type SweepResult struct {
	Evicted       int
	MarkedOffline int
}

// NewLivenessMonitor creates a monitor but does not start it. m and now
// may be nil.
func NewLivenessMonitor(devices store.DeviceStore, cfg LivenessConfig, now func() time.Time, logger *zap.Logger, m *metrics.Metrics) *LivenessMonitor {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &LivenessMonitor{
		devices: devices,
		cfg:     cfg,
		now:     now,
		logger:  logger,
		metrics: m,
	}
}

// Start runs a sweep right away and then one per SweepInterval until ctx
// is cancelled or Stop is called.
func (l *LivenessMonitor) Start(ctx context.Context) {
	l.loop.start(ctx, l.cfg.SweepInterval, func(ctx context.Context) { l.Sweep(ctx) })

	l.logger.Info("liveness monitor started",
		zap.Duration("online_window", l.cfg.OnlineWindow),
		zap.Duration("eviction_window", l.cfg.EvictionWindow),
		zap.Duration("interval", l.cfg.SweepInterval),
	)
}

// Stop signals the monitor to exit and waits for it.
func (l *LivenessMonitor) Stop() {
	l.loop.stop()
}

// Sweep reclassifies every record once.
func (l *LivenessMonitor) Sweep(ctx context.Context) SweepResult {
	var res SweepResult

	snapshot, err := l.devices.List(ctx)
	if err != nil {
		l.logger.Error("liveness sweep: list devices", zap.Error(err))
		return res
	}

	now := l.now()
	evictBefore := now.Add(-l.cfg.EvictionWindow)
	offlineBefore := now.Add(-l.cfg.OnlineWindow)

	for _, rec := range snapshot {
		idle := now.Sub(rec.LastSeen)
		switch {
		case idle >= l.cfg.EvictionWindow:
			removed, err := l.devices.RemoveIfIdle(ctx, rec.DeviceID, evictBefore)
			if err != nil {
				l.logger.Error("liveness sweep: evict",
					zap.String("device_id", rec.DeviceID), zap.Error(err))
				continue
			}
			if removed {
				res.Evicted++
			}
		case idle >= l.cfg.OnlineWindow:
			changed, err := l.devices.MarkOfflineIfIdle(ctx, rec.DeviceID, offlineBefore)
			if err != nil {
				l.logger.Error("liveness sweep: mark offline",
					zap.String("device_id", rec.DeviceID), zap.Error(err))
				continue
			}
			if changed {
				res.MarkedOffline++
			}
		}
	}

	if l.metrics != nil {
		l.metrics.DevicesEvicted.Add(float64(res.Evicted))
		l.metrics.DevicesMarkedOffline.Add(float64(res.MarkedOffline))
	}
	if res.Evicted > 0 || res.MarkedOffline > 0 {
		l.logger.Info("liveness sweep",
			zap.Int("evicted", res.Evicted),
			zap.Int("marked_offline", res.MarkedOffline),
			zap.Int("remaining", len(snapshot)-res.Evicted),
		)
	}
	return res
}
