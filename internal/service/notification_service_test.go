package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/helpline-oss/support-desk/internal/config"
	"github.com/helpline-oss/support-desk/internal/events"
)

func TestNotificationServiceEmailsCustomer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher(nil)
	svc := NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{EmailFrom: "desk@example.com"})
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketCreated,
		TicketID: "t1",
		Payload:  events.TicketCreatedPayload{CustomerEmail: "ana@example.com"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	emails := logs.FilterMessage("sendEmailNotificationStub").All()
	if len(emails) != 1 {
		t.Fatalf("expected one email stub, got %d", len(emails))
	}
	if to := emails[0].ContextMap()["to"]; to != "ana@example.com" {
		t.Errorf("email to %v", to)
	}
	if logs.FilterMessage("sendWebhookNotificationStub").Len() != 0 {
		t.Error("webhook stub must be skipped without a URL")
	}
}

func TestNotificationServiceWebhookOnStatusChange(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher(nil)
	svc := NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{WebhookURL: "https://hooks.example.com/desk"})
	svc.RegisterHandlers()

	_ = dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketStatusChanged, TicketID: "t1"})

	if logs.FilterMessage("sendWebhookNotificationStub").Len() != 1 {
		t.Error("expected webhook stub")
	}
}
