package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// TicketPriority enumerates customer-declared urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// TicketPriorities lists every priority from lowest to highest.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// TicketCategory routes a ticket to a canned-reply table.
type TicketCategory string

const (
	TicketCategoryGeneral   TicketCategory = "general"
	TicketCategoryTechnical TicketCategory = "technical"
	TicketCategoryBilling   TicketCategory = "billing"
	TicketCategorySupport   TicketCategory = "support"
)

// TicketCategories lists every category.
var TicketCategories = []TicketCategory{
	TicketCategoryGeneral,
	TicketCategoryTechnical,
	TicketCategoryBilling,
	TicketCategorySupport,
}

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	for _, candidate := range TicketCategories {
		if c == candidate {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for support requests. The JSON shape is the
// persisted document layout shared by both storage backends.
type Ticket struct {
	ID            string           `json:"id"`
	Subject       string           `json:"subject"`
	Description   string           `json:"description"`
	Status        TicketStatus     `json:"status"`
	Priority      TicketPriority   `json:"priority"`
	Category      TicketCategory   `json:"category"`
	CustomerEmail string           `json:"customerEmail"`
	CustomerName  string           `json:"customerName"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	Responses     []TicketResponse `json:"responses"`
}

// CreateTicketData is the caller-supplied part of a new ticket.
type CreateTicketData struct {
	Subject       string
	Description   string
	Priority      TicketPriority
	Category      TicketCategory
	CustomerEmail string
	CustomerName  string
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t Ticket) Clone() Ticket {
	out := t
	if t.Responses != nil {
		out.Responses = append(make([]TicketResponse, 0, len(t.Responses)), t.Responses...)
	}
	return out
}
