package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/helpline-oss/support-desk/internal/domain"
)

func TestEncodeTicketAlwaysWritesResponsesArray(t *testing.T) {
	ticket := sampleTicket("t1", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	ticket.Responses = nil

	raw, err := encodeTicket(ticket)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(raw), `"responses":[]`) {
		t.Errorf("expected empty responses array, got %s", raw)
	}

	decoded, err := decodeTicket(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "t1" || decoded.Category != domain.TicketCategoryTechnical {
		t.Errorf("unexpected decode %+v", decoded)
	}
}

func TestDecodeTicketRejectsGarbage(t *testing.T) {
	if _, err := decodeTicket([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
