package subscription

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/helpline-oss/support-desk/internal/events"
)

// Hub pushes a fresh snapshot to every subscriber whenever a ticket event
// arrives on the dispatcher. Bursts of events collapse into one re-read per
// subscriber.
type Hub struct {
	lister Lister
	logger *zap.Logger

	mu   sync.Mutex
	subs map[*hubSubscriber]struct{}
}

type hubSubscriber struct {
	*subscriber
	signal chan struct{}
}

// NewHub builds a push source and subscribes it to ticket events.
func NewHub(lister Lister, dispatcher events.Dispatcher, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		lister: lister,
		logger: logger,
		subs:   make(map[*hubSubscriber]struct{}),
	}
	for _, eventType := range events.TicketEventTypes {
		dispatcher.Subscribe(eventType, h.handleEvent)
	}
	return h
}

func (h *Hub) handleEvent(_ context.Context, _ events.Event) error {
	h.Notify()
	return nil
}

// Notify marks every subscriber as stale.
func (h *Hub) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Subscribe delivers the current list before returning and again after
// every change until unsubscribed.
func (h *Hub) Subscribe(cb Callback) func() {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &hubSubscriber{
		subscriber: &subscriber{cb: cb},
		signal:     make(chan struct{}, 1),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	if tickets, ok := snapshot(ctx, h.lister, h.logger); ok {
		sub.deliver(tickets)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.signal:
				tickets, ok := snapshot(ctx, h.lister, h.logger)
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
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
			sub.stop()
			cancel()
			wg.Wait()
		})
	}
}
