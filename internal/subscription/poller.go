package subscription

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is used when NewPoller receives a non-positive interval.
const DefaultPollInterval = time.Second

// Poller re-reads the store on a fixed interval for each subscriber. It
// suits backends that cannot push changes.
type Poller struct {
	lister   Lister
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller builds a polling source.
func NewPoller(lister Lister, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{lister: lister, interval: interval, logger: logger}
}

// Subscribe delivers the current list before returning, then again every
// interval until unsubscribed.
func (p *Poller) Subscribe(cb Callback) func() {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscriber{cb: cb}

	if tickets, ok := snapshot(ctx, p.lister, p.logger); ok {
		sub.deliver(tickets)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickets, ok := snapshot(ctx, p.lister, p.logger)
				if !ok {
					continue
				}
				if !sub.deliver(tickets) {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.stop()
			cancel()
			wg.Wait()
		})
	}
}
