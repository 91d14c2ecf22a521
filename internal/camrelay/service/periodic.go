package service

import (
	"context"
	"sync"
	"time"
)

// periodic runs fn immediately and then on every tick until stopped. It
// backs both background loops in this package.
type periodic struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func (p *periodic) start(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		fn(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// stop cancels the loop and waits for it to exit. Safe to call more than
// once, and before start.
func (p *periodic) stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
