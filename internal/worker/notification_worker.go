package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/helpline-oss/support-desk/internal/events"
	"github.com/helpline-oss/support-desk/internal/service"
)

// DefaultQueueSize bounds the notification backlog.
const DefaultQueueSize = 256

// NotificationWorker moves notification delivery off the publishing path.
// Events are queued by the dispatcher handler and sent from Run.
type NotificationWorker struct {
	notifications *service.NotificationService
	queue         chan events.Event
	logger        *zap.Logger
}

// NewNotificationWorker creates a worker with a bounded queue.
func NewNotificationWorker(notifications *service.NotificationService, logger *zap.Logger, queueSize int) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		notifications: notifications,
		queue:         make(chan events.Event, queueSize),
		logger:        logger,
	}
}

// Attach subscribes the worker to every ticket event on d.
func (w *NotificationWorker) Attach(d events.Dispatcher) {
	for _, eventType := range events.TicketEventTypes {
		d.Subscribe(eventType, w.enqueue)
	}
}

// enqueue never blocks; a full queue drops the event.
func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Run delivers queued notifications until ctx is cancelled, then drains
// what is already queued.
func (w *NotificationWorker) Run(ctx context.Context) {
	for {
		select {
		case event := <-w.queue:
			w.deliver(ctx, event)
		case <-ctx.Done():
			for {
				select {
				case event := <-w.queue:
					w.deliver(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, event events.Event) {
	if err := w.notifications.Handle(ctx, event); err != nil {
		w.logger.Warn("notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
