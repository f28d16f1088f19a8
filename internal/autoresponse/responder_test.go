package autoresponse

import (
	"testing"

	"github.com/helpline-oss/support-desk/internal/domain"
)

func TestPickUsesPickerIndex(t *testing.T) {
	catalog := DefaultCatalog()
	for i := 0; i < 3; i++ {
		idx := i
		r := NewResponder(catalog, WithPicker(func(n int) int {
			if n != 3 {
				t.Fatalf("picker called with n=%d", n)
			}
			return idx
		}))
		if got := r.Pick(domain.TicketCategoryBilling); got != catalog[domain.TicketCategoryBilling][idx] {
			t.Errorf("index %d: got %q", idx, got)
		}
	}
}

func TestPickIsAlwaysFromCategoryTable(t *testing.T) {
	r := NewResponder(DefaultCatalog())
	allowed := map[string]bool{}
	for _, msg := range DefaultCatalog()[domain.TicketCategoryTechnical] {
		allowed[msg] = true
	}
	for i := 0; i < 100; i++ {
		if msg := r.Pick(domain.TicketCategoryTechnical); !allowed[msg] {
			t.Fatalf("unexpected message %q", msg)
		}
	}
}

func TestStatusPolicy(t *testing.T) {
	tests := []struct {
		policy  StatusPolicy
		current domain.TicketStatus
		want    domain.TicketStatus
	}{
		{PolicyAlways, domain.TicketStatusOpen, domain.TicketStatusInProgress},
		{PolicyAlways, domain.TicketStatusClosed, domain.TicketStatusInProgress},
		{PolicyAlways, domain.TicketStatusResolved, domain.TicketStatusInProgress},
		{PolicyIfOpen, domain.TicketStatusOpen, domain.TicketStatusInProgress},
		{PolicyIfOpen, domain.TicketStatusClosed, domain.TicketStatusClosed},
		{PolicyIfOpen, domain.TicketStatusResolved, domain.TicketStatusResolved},
	}
	for _, tt := range tests {
		if got := tt.policy.NextStatus(tt.current); got != tt.want {
			t.Errorf("%s from %s: got %s, want %s", tt.policy, tt.current, got, tt.want)
		}
	}
}
