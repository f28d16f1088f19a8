package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEnumValidity(t *testing.T) {
	if !TicketStatusInProgress.Valid() || TicketStatus("pending").Valid() {
		t.Error("unexpected status validity")
	}
	if !TicketPriorityCritical.Valid() || TicketPriority("urgent").Valid() {
		t.Error("unexpected priority validity")
	}
	if !TicketCategoryBilling.Valid() || TicketCategory("sales").Valid() {
		t.Error("unexpected category validity")
	}
}

func TestTicketDocumentFieldNames(t *testing.T) {
	ticket := Ticket{
		ID:        "t1",
		Status:    TicketStatusOpen,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC),
		Responses: []TicketResponse{{ID: "r1", TicketID: "t1", IsAutomatic: true}},
	}
	raw, err := json.Marshal(ticket)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"customerEmail"`, `"customerName"`, `"createdAt"`, `"updatedAt"`, `"ticketId"`, `"isAutomatic"`, `"status":"open"`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("expected %s in %s", key, raw)
		}
	}
}

func TestCloneDoesNotAliasResponses(t *testing.T) {
	original := Ticket{ID: "t1", Responses: []TicketResponse{{ID: "r1"}}}
	copied := original.Clone()
	copied.Responses[0].Message = "changed"
	copied.Responses = append(copied.Responses, TicketResponse{ID: "r2"})
	if original.Responses[0].Message != "" || len(original.Responses) != 1 {
		t.Error("clone shares response storage with original")
	}
}
