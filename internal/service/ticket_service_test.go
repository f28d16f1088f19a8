package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/helpline-oss/support-desk/internal/autoresponse"
	"github.com/helpline-oss/support-desk/internal/domain"
	"github.com/helpline-oss/support-desk/internal/events"
	"github.com/helpline-oss/support-desk/internal/persistence"
	"github.com/helpline-oss/support-desk/internal/repository"
	apperrors "github.com/helpline-oss/support-desk/pkg/util/errorutil"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handler(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	svc      *TicketService
	repo     repository.TicketRepository
	recorded *recordedEvents
}

func setupService(t *testing.T, deps TicketDependencies) *testEnv {
	t.Helper()
	db, err := persistence.OpenSQLite(filepath.Join(t.TempDir(), "tickets.db"), nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { persistence.CloseSQLite(db) })

	repo := repository.NewLocalTicketRepository(db)
	dispatcher := events.NewInMemoryDispatcher(nil)
	recorded := &recordedEvents{}
	for _, et := range events.TicketEventTypes {
		dispatcher.Subscribe(et, recorded.handler)
	}

	deps.TicketRepo = repo
	deps.Dispatcher = dispatcher
	if deps.AutoResponseDelay == 0 {
		deps.AutoResponseDelay = time.Hour
	}
	svc := NewTicketService(deps)
	t.Cleanup(svc.Shutdown)
	return &testEnv{svc: svc, repo: repo, recorded: recorded}
}

func sampleInput(category domain.TicketCategory) domain.CreateTicketData {
	return domain.CreateTicketData{
		Subject:       "  Invoice charged twice ",
		Description:   "I was billed two times in March.",
		Priority:      domain.TicketPriorityHigh,
		Category:      category,
		CustomerEmail: "ana@example.com",
		CustomerName:  "Ana",
	}
}

func waitForResponse(t *testing.T, handle *autoresponse.Handle) {
	t.Helper()
	select {
	case <-handle.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("automatic response did not fire in time")
	}
}

func findTicket(t *testing.T, tickets []domain.Ticket, id string) domain.Ticket {
	t.Helper()
	for _, ticket := range tickets {
		if ticket.ID == id {
			return ticket
		}
	}
	t.Fatalf("ticket %s not listed", id)
	return domain.Ticket{}
}

func TestCreateStoresOpenTicket(t *testing.T) {
	env := setupService(t, TicketDependencies{})
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		res, err := env.svc.Create(ctx, sampleInput(domain.TicketCategoryBilling))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if res.ID == "" {
			t.Fatal("expected non-empty id")
		}
		if seen[res.ID] {
			t.Fatalf("duplicate id %s", res.ID)
		}
		seen[res.ID] = true
	}

	tickets, err := env.svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 5 {
		t.Fatalf("expected 5 tickets, got %d", len(tickets))
	}
	for id := range seen {
		ticket := findTicket(t, tickets, id)
		if ticket.Status != domain.TicketStatusOpen {
			t.Errorf("%s: status %s, want open", id, ticket.Status)
		}
		if len(ticket.Responses) != 0 {
			t.Errorf("%s: expected no responses", id)
		}
		if ticket.Subject != "Invoice charged twice" {
			t.Errorf("subject not trimmed: %q", ticket.Subject)
		}
		if !ticket.CreatedAt.Equal(ticket.UpdatedAt) {
			t.Errorf("fresh ticket timestamps differ")
		}
	}
}

func TestCreateAppliesFormDefaults(t *testing.T) {
	env := setupService(t, TicketDependencies{})
	input := sampleInput("")
	input.Priority = ""
	res, err := env.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Ticket.Category != domain.TicketCategoryGeneral || res.Ticket.Priority != domain.TicketPriorityMedium {
		t.Errorf("defaults not applied: %s/%s", res.Ticket.Category, res.Ticket.Priority)
	}
}

func TestListOrderedNewestFirst(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	env := setupService(t, TicketDependencies{Clock: clock})
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		res, err := env.svc.Create(ctx, sampleInput(domain.TicketCategoryGeneral))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, res.ID)
	}

	tickets, err := env.svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := 1; i < len(tickets); i++ {
		if tickets[i].CreatedAt.After(tickets[i-1].CreatedAt) {
			t.Fatalf("list not ordered by createdAt desc at %d", i)
		}
	}
	if tickets[0].ID != ids[len(ids)-1] {
		t.Errorf("newest ticket not first")
	}
}

func TestAutomaticResponseAppendedOnce(t *testing.T) {
	env := setupService(t, TicketDependencies{AutoResponseDelay: 100 * time.Millisecond})
	ctx := context.Background()

	res, err := env.svc.Create(ctx, sampleInput(domain.TicketCategoryBilling))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.UpdateStatus(ctx, res.ID, domain.TicketStatusResolved); err != nil {
		t.Fatalf("update status: %v", err)
	}
	waitForResponse(t, res.AutoResponse)
	time.Sleep(30 * time.Millisecond)

	ticket, err := env.svc.Get(ctx, res.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(ticket.Responses) != 1 {
		t.Fatalf("expected exactly one response, got %d", len(ticket.Responses))
	}
	if ticket.Status != domain.TicketStatusInProgress {
		t.Errorf("status %s, want in_progress regardless of prior status", ticket.Status)
	}

	resp := ticket.Responses[0]
	if !resp.IsAutomatic || resp.Author != domain.AutomaticAuthor || resp.TicketID != res.ID || resp.ID == "" {
		t.Errorf("unexpected response %+v", resp)
	}
	allowed := map[string]bool{}
	for _, msg := range autoresponse.DefaultCatalog()[domain.TicketCategoryBilling] {
		allowed[msg] = true
	}
	if !allowed[resp.Message] {
		t.Errorf("message %q not from billing table", resp.Message)
	}
	if !ticket.UpdatedAt.After(ticket.CreatedAt) {
		t.Error("updatedAt not refreshed by automatic response")
	}
}

func TestAutomaticResponseFallbackCategory(t *testing.T) {
	responder := autoresponse.NewResponder(autoresponse.DefaultCatalog(), autoresponse.WithPicker(func(int) int { return 2 }))
	env := setupService(t, TicketDependencies{Responder: responder})
	ctx := context.Background()

	res, err := env.svc.Create(ctx, sampleInput(domain.TicketCategory("sales")))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ticket, err := env.svc.ApplyAutomaticResponse(ctx, res.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := autoresponse.DefaultCatalog()[domain.TicketCategoryGeneral][2]
	if got := ticket.Responses[0].Message; got != want {
		t.Errorf("got %q, want general fallback %q", got, want)
	}
}

func TestAutomaticResponseIfOpenPolicy(t *testing.T) {
	env := setupService(t, TicketDependencies{StatusPolicy: autoresponse.PolicyIfOpen})
	ctx := context.Background()

	res, err := env.svc.Create(ctx, sampleInput(domain.TicketCategorySupport))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.UpdateStatus(ctx, res.ID, domain.TicketStatusClosed); err != nil {
		t.Fatalf("update status: %v", err)
	}
	ticket, err := env.svc.ApplyAutomaticResponse(ctx, res.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if ticket.Status != domain.TicketStatusClosed {
		t.Errorf("status %s, want closed kept under if_open", ticket.Status)
	}
	if len(ticket.Responses) != 1 {
		t.Errorf("response must still be appended")
	}
}

func TestAutomaticResponseMissingTicketIsNoop(t *testing.T) {
	env := setupService(t, TicketDependencies{})
	ticket, err := env.svc.ApplyAutomaticResponse(context.Background(), "gone")
	if err != nil || ticket != nil {
		t.Fatalf("expected silent no-op, got %v %v", ticket, err)
	}
}

func TestCancelAutomaticResponse(t *testing.T) {
	env := setupService(t, TicketDependencies{AutoResponseDelay: 200 * time.Millisecond})
	ctx := context.Background()

	res, err := env.svc.Create(ctx, sampleInput(domain.TicketCategoryTechnical))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !res.AutoResponse.Cancel() {
		t.Fatal("expected pending response to cancel")
	}
	time.Sleep(250 * time.Millisecond)

	ticket, err := env.svc.Get(ctx, res.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(ticket.Responses) != 0 || ticket.Status != domain.TicketStatusOpen {
		t.Errorf("cancelled response still applied: %+v", ticket)
	}
}

func TestUpdateStatusEveryValue(t *testing.T) {
	frozen := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	env := setupService(t, TicketDependencies{Clock: func() time.Time { return frozen }})
	ctx := context.Background()

	res, err := env.svc.Create(ctx, sampleInput(domain.TicketCategoryGeneral))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, status := range domain.TicketStatuses {
		before, err := env.svc.Get(ctx, res.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if _, err := env.svc.UpdateStatus(ctx, res.ID, status); err != nil {
			t.Fatalf("update to %s: %v", status, err)
		}
		tickets, err := env.svc.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		after := findTicket(t, tickets, res.ID)
		if after.Status != status {
			t.Errorf("status %s, want %s", after.Status, status)
		}
		if !after.UpdatedAt.After(before.UpdatedAt) {
			t.Errorf("%s: updatedAt %s not after %s", status, after.UpdatedAt, before.UpdatedAt)
		}
	}
}

func TestUpdateStatusErrors(t *testing.T) {
	env := setupService(t, TicketDependencies{})
	ctx := context.Background()

	_, err := env.svc.UpdateStatus(ctx, "missing", domain.TicketStatusClosed)
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}

	res, err := env.svc.Create(ctx, sampleInput(domain.TicketCategoryGeneral))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = env.svc.UpdateStatus(ctx, res.ID, domain.TicketStatus("archived"))
	if !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}

	if _, err := env.svc.Get(ctx, "missing"); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND from Get, got %v", err)
	}
}

func TestEventsPublished(t *testing.T) {
	env := setupService(t, TicketDependencies{AutoResponseDelay: 10 * time.Millisecond})
	ctx := context.Background()

	res, err := env.svc.Create(ctx, sampleInput(domain.TicketCategoryGeneral))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	waitForResponse(t, res.AutoResponse)
	if _, err := env.svc.UpdateStatus(ctx, res.ID, domain.TicketStatusResolved); err != nil {
		t.Fatalf("update: %v", err)
	}

	got := env.recorded.types()
	want := []events.EventType{events.EventTicketCreated, events.EventTicketResponseAdded, events.EventTicketStatusChanged}
	if len(got) != len(want) {
		t.Fatalf("events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: %s, want %s", i, got[i], want[i])
		}
	}
}

func TestEndToEndBillingTicket(t *testing.T) {
	env := setupService(t, TicketDependencies{AutoResponseDelay: 50 * time.Millisecond})
	ctx := context.Background()

	res, err := env.svc.Create(ctx, sampleInput(domain.TicketCategoryBilling))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		ticket, err := env.svc.Get(ctx, res.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(ticket.Responses) == 1 {
			msg := ticket.Responses[0].Message
			found := false
			for _, candidate := range autoresponse.DefaultCatalog()[domain.TicketCategoryBilling] {
				if candidate == msg {
					found = true
				}
			}
			if !found {
				t.Errorf("message %q not a billing reply", msg)
			}
			if ticket.Status != domain.TicketStatusInProgress {
				t.Errorf("status %s, want in_progress", ticket.Status)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("no automatic response within the delay window")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestShutdownReportsDroppedResponses(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	env := setupService(t, TicketDependencies{Logger: zap.New(core)})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := env.svc.Create(ctx, sampleInput(domain.TicketCategoryGeneral)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	env.svc.Shutdown()

	entries := logs.FilterMessage("pending automatic responses dropped at shutdown").All()
	if len(entries) != 1 {
		t.Fatalf("expected one shutdown warning, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["count"]; got != int64(2) {
		t.Errorf("count = %v, want 2", got)
	}
}
