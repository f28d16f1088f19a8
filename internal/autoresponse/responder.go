package autoresponse

import (
	"math/rand/v2"

	"github.com/helpline-oss/support-desk/internal/domain"
)

// StatusPolicy decides whether an automatic response moves the ticket to
// in_progress.
type StatusPolicy string

const (
	// PolicyAlways overwrites whatever status the ticket has.
	PolicyAlways StatusPolicy = "always"
	// PolicyIfOpen only advances tickets that are still open.
	PolicyIfOpen StatusPolicy = "if_open"
)

// NextStatus returns the status a ticket should have after an automatic
// response under policy p.
func (p StatusPolicy) NextStatus(current domain.TicketStatus) domain.TicketStatus {
	if p == PolicyIfOpen && current != domain.TicketStatusOpen {
		return current
	}
	return domain.TicketStatusInProgress
}

// Responder picks a canned message for a category.
type Responder struct {
	catalog Catalog
	pick    func(n int) int
}

// Option customises a Responder.
type Option func(*Responder)

// WithPicker replaces the uniform random index source. pick(n) must return
// a value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(r *Responder) { r.pick = pick }
}

// NewResponder builds a Responder over a validated catalog.
func NewResponder(catalog Catalog, opts ...Option) *Responder {
	r := &Responder{catalog: catalog, pick: rand.IntN}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pick returns one message for category, chosen uniformly at random.
func (r *Responder) Pick(category domain.TicketCategory) string {
	msgs := r.catalog.Messages(category)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[r.pick(len(msgs))]
}

// Catalog exposes the table in use.
func (r *Responder) Catalog() Catalog {
	return r.catalog
}
