package worker

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/helpline-oss/support-desk/internal/config"
	"github.com/helpline-oss/support-desk/internal/events"
	"github.com/helpline-oss/support-desk/internal/service"
)

func TestWorkerDeliversQueuedEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher(nil)
	notifications := service.NewNotificationService(nil, logger, config.NotificationConfig{EmailFrom: "desk@example.com"})

	w := NewNotificationWorker(notifications, logger, 4)
	w.Attach(dispatcher)

	for i := 0; i < 3; i++ {
		_ = dispatcher.Publish(context.Background(), events.Event{
			Type:     events.EventTicketResponseAdded,
			TicketID: "t1",
			Payload:  events.TicketResponseAddedPayload{CustomerEmail: "ana@example.com"},
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("sendEmailNotificationStub").Len() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d notifications sent", logs.FilterMessage("sendEmailNotificationStub").Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher(nil)
	w := NewNotificationWorker(service.NewNotificationService(nil, logger, config.NotificationConfig{}), logger, 1)
	w.Attach(dispatcher)

	_ = dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated, TicketID: "a"})
	_ = dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated, TicketID: "b"})

	if logs.FilterMessage("notification queue full, dropping event").Len() != 1 {
		t.Error("expected one dropped event")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)
	if logs.FilterMessage("TicketCreated").Len() != 1 {
		t.Error("queued event should be drained on shutdown")
	}
}
