package repository

import (
	"context"
	"errors"

	"github.com/helpline-oss/support-desk/internal/domain"
)

// ErrTicketNotFound is returned when no ticket has the requested id.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketMutator edits a ticket in place. Returning an error aborts the
// update and nothing is written.
type TicketMutator func(ticket *domain.Ticket) error

// TicketRepository encapsulates ticket persistence. Implementations return
// copies; callers never share memory with stored state.
type TicketRepository interface {
	// Insert stores a new ticket at the head of the collection.
	Insert(ctx context.Context, ticket *domain.Ticket) error
	// List returns every ticket ordered by creation time, newest first.
	List(ctx context.Context) ([]domain.Ticket, error)
	// Get returns ErrTicketNotFound when the id is unknown.
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	// Update runs mutate as one atomic read-modify-write and returns the
	// stored result. Returns ErrTicketNotFound when the id is unknown.
	Update(ctx context.Context, id string, mutate TicketMutator) (*domain.Ticket, error)
}
