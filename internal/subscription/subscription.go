// Package subscription delivers full ticket-list snapshots to observers,
// either by re-reading the store on a timer or by reacting to change events.
package subscription

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/helpline-oss/support-desk/internal/domain"
)

// Callback receives a complete ticket list, newest first.
type Callback func(tickets []domain.Ticket)

// Source hands out subscriptions. The returned function unsubscribes; once
// it returns the callback is never invoked again. It is safe to call more
// than once but must not be called from inside the callback.
type Source interface {
	Subscribe(cb Callback) (unsubscribe func())
}

// Lister reads the current ticket list.
type Lister interface {
	List(ctx context.Context) ([]domain.Ticket, error)
}

// subscriber serialises deliveries for one callback and guards the
// stopped flag so no delivery overlaps or follows unsubscribe.
type subscriber struct {
	mu      sync.Mutex
	cb      Callback
	stopped bool
}

func (s *subscriber) deliver(tickets []domain.Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.cb(tickets)
	return true
}

func (s *subscriber) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func snapshot(ctx context.Context, lister Lister, logger *zap.Logger) ([]domain.Ticket, bool) {
	tickets, err := lister.List(ctx)
	if err != nil {
		logger.Warn("ticket snapshot failed", zap.Error(err))
		return nil, false
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, true
}
