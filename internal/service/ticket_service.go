package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpline-oss/support-desk/internal/autoresponse"
	"github.com/helpline-oss/support-desk/internal/domain"
	"github.com/helpline-oss/support-desk/internal/events"
	"github.com/helpline-oss/support-desk/internal/repository"
	apperrors "github.com/helpline-oss/support-desk/pkg/util/errorutil"
)

// DefaultAutoResponseDelay is how long after creation the canned reply lands.
const DefaultAutoResponseDelay = 2 * time.Second

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	responder  *autoresponse.Responder
	scheduler  *autoresponse.Scheduler
	dispatcher events.Dispatcher
	logger     *zap.Logger
	delay      time.Duration
	policy     autoresponse.StatusPolicy
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service. Only
// TicketRepo is required.
type TicketDependencies struct {
	TicketRepo        repository.TicketRepository
	Responder         *autoresponse.Responder
	Scheduler         *autoresponse.Scheduler
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
	AutoResponseDelay time.Duration
	StatusPolicy      autoresponse.StatusPolicy
	Clock             func() time.Time
}

// CreateResult describes a newly stored ticket and its pending automatic
// response.
type CreateResult struct {
	ID           string
	Ticket       *domain.Ticket
	AutoResponse *autoresponse.Handle
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		responder:  deps.Responder,
		scheduler:  deps.Scheduler,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		delay:      deps.AutoResponseDelay,
		policy:     deps.StatusPolicy,
		now:        deps.Clock,
	}
	if s.responder == nil {
		s.responder = autoresponse.NewResponder(autoresponse.DefaultCatalog())
	}
	if s.scheduler == nil {
		s.scheduler = autoresponse.NewScheduler()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.delay <= 0 {
		s.delay = DefaultAutoResponseDelay
	}
	if s.policy == "" {
		s.policy = autoresponse.PolicyAlways
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create stores a new open ticket and schedules its automatic response.
// Required-field checks belong to the submitting surface; empty priority and
// category take the form defaults.
func (s *TicketService) Create(ctx context.Context, input domain.CreateTicketData) (*CreateResult, error) {
	now := s.now().UTC()
	ticket := &domain.Ticket{
		ID:            newID(),
		Subject:       strings.TrimSpace(input.Subject),
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.TicketStatusOpen,
		Priority:      input.Priority,
		Category:      input.Category,
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CreatedAt:     now,
		UpdatedAt:     now,
		Responses:     []domain.TicketResponse{},
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Category == "" {
		ticket.Category = domain.TicketCategoryGeneral
	}

	if err := s.tickets.Insert(ctx, ticket); err != nil {
		s.logger.Error("create ticket failed", zap.Error(err))
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	ticketID := ticket.ID
	handle := s.scheduler.Schedule(ticketID, s.delay, func(ctx context.Context) {
		if _, err := s.ApplyAutomaticResponse(ctx, ticketID); err != nil {
			s.logger.Error("automatic response failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
	})

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: events.ActorCustomer, Name: ticket.CustomerName},
		Payload: events.TicketCreatedPayload{
			Subject:       ticket.Subject,
			Category:      ticket.Category,
			Priority:      ticket.Priority,
			CustomerEmail: ticket.CustomerEmail,
			CustomerName:  ticket.CustomerName,
		},
	})
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("category", string(ticket.Category)),
		zap.String("priority", string(ticket.Priority)))

	return &CreateResult{ID: ticket.ID, Ticket: ticket, AutoResponse: handle}, nil
}

// List returns all tickets, newest first.
func (s *TicketService) List(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		s.logger.Error("list tickets failed", zap.Error(err))
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// Get returns a single ticket or a NOT_FOUND error.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, s.mapRepoError("get ticket", ticketID, err)
	}
	return ticket, nil
}

// UpdateStatus sets any status on any ticket; transitions are unconstrained.
// A missing ticket yields NOT_FOUND regardless of backend.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"status":  newStatus,
			"allowed": domain.TicketStatuses,
		})
	}

	var oldStatus domain.TicketStatus
	ticket, err := s.tickets.Update(ctx, ticketID, func(t *domain.Ticket) error {
		oldStatus = t.Status
		t.Status = newStatus
		t.UpdatedAt = s.touch(t.UpdatedAt)
		return nil
	})
	if err != nil {
		return nil, s.mapRepoError("update ticket status", ticketID, err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: events.ActorStaff},
		Payload: events.TicketStatusChangedPayload{
			OldStatus:     oldStatus,
			NewStatus:     newStatus,
			CustomerEmail: ticket.CustomerEmail,
		},
	})
	return ticket, nil
}

// ApplyAutomaticResponse appends a canned reply and advances the status per
// the configured policy. A ticket that no longer exists is skipped silently:
// the returned ticket and error are both nil.
func (s *TicketService) ApplyAutomaticResponse(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var response domain.TicketResponse
	ticket, err := s.tickets.Update(ctx, ticketID, func(t *domain.Ticket) error {
		stamp := s.touch(t.UpdatedAt)
		response = domain.TicketResponse{
			ID:          newID(),
			TicketID:    t.ID,
			Message:     s.responder.Pick(t.Category),
			IsAutomatic: true,
			Author:      domain.AutomaticAuthor,
			CreatedAt:   stamp,
		}
		t.Responses = append(t.Responses, response)
		t.Status = s.policy.NextStatus(t.Status)
		t.UpdatedAt = stamp
		return nil
	})
	if errors.Is(err, repository.ErrTicketNotFound) {
		s.logger.Debug("automatic response target gone", zap.String("ticket_id", ticketID))
		return nil, nil
	}
	if err != nil {
		return nil, s.mapRepoError("apply automatic response", ticketID, err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResponseAdded,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: events.ActorSystem, Name: domain.AutomaticAuthor},
		Payload: events.TicketResponseAddedPayload{
			ResponseID:    response.ID,
			Author:        response.Author,
			IsAutomatic:   true,
			BodyPreview:   stringPreview(response.Message, 120),
			Status:        ticket.Status,
			CustomerEmail: ticket.CustomerEmail,
		},
	})
	return ticket, nil
}

// Shutdown cancels automatic responses that have not fired yet. Those
// tickets keep their current state and never receive the reply.
func (s *TicketService) Shutdown() {
	if dropped := s.scheduler.Stop(); dropped > 0 {
		s.logger.Warn("pending automatic responses dropped at shutdown", zap.Int("count", dropped))
	}
}

// touch returns the current time, forced strictly after prev.
func (s *TicketService) touch(prev time.Time) time.Time {
	next := s.now().UTC()
	if !next.After(prev) {
		next = prev.Add(time.Microsecond)
	}
	return next
}

func (s *TicketService) mapRepoError(op, ticketID string, err error) error {
	if errors.Is(err, repository.ErrTicketNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	s.logger.Error(op+" failed", zap.String("ticket_id", ticketID), zap.Error(err))
	return fmt.Errorf("%s %s: %w", op, ticketID, err)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// newID returns a time-ordered identifier.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
