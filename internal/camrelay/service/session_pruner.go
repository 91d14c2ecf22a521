package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
)

// SessionPruner periodically deletes relay session records older than a
// configurable retention period. A retention of 0 disables pruning.
type SessionPruner struct {
	store     store.RelaySessionStore
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger

	loop periodic
}

// PrunerConfig holds the parameters for NewSessionPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of relay history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int
}

// NewSessionPruner creates a pruner but does not start it.
func NewSessionPruner(s store.RelaySessionStore, cfg PrunerConfig, logger *zap.Logger) *SessionPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &SessionPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Start begins the background loop with an immediate prune. It is a no-op
// when retention is 0.
func (p *SessionPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("session pruner disabled (retention=0)")
		return
	}

	p.loop.start(ctx, p.interval, func(ctx context.Context) { p.Prune(ctx) })

	p.logger.Info("session pruner started",
		zap.Int("retention_days", int(p.retention.Hours()/24)),
		zap.Duration("interval", p.interval),
	)
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *SessionPruner) Stop() {
	p.loop.stop()
}

// Prune deletes everything that ended before now minus the retention.
func (p *SessionPruner) Prune(ctx context.Context) int64 {
	cutoff := p.now().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Warn("relay session prune failed", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		p.logger.Info("relay session prune",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted
}
