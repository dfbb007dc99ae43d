package presale

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller invokes a refresh function on a fixed interval until stopped.
// It is independent of any consumer lifecycle: stopping is an explicit
// call, not a side effect of teardown.
type Poller struct {
	interval time.Duration
	refresh  func(ctx context.Context) error
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPoller creates a poller. The refresh function is also invoked once
// immediately on Start.
func NewPoller(interval time.Duration, refresh func(ctx context.Context) error, logger *zap.Logger) *Poller {
	return &Poller{
		interval: interval,
		refresh:  refresh,
		logger:   logger.Named("poller"),
	}
}

// Start launches the polling loop in its own goroutine.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		p.runOnce(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.runOnce(ctx)
			case <-ctx.Done():
				p.logger.Debug("poller stopped")
				return
			}
		}
	}()
}

// Stop cancels the polling loop and waits for it to exit.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *Poller) runOnce(ctx context.Context) {
	if err := p.refresh(ctx); err != nil && ctx.Err() == nil {
		// Periodic refresh is best effort; the next tick retries.
		p.logger.Warn("refresh failed", zap.Error(err))
	}
}
