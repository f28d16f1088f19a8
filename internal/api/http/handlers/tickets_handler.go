package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/helpline-oss/support-desk/internal/api/dto"
	"github.com/helpline-oss/support-desk/internal/domain"
	"github.com/helpline-oss/support-desk/internal/service"
	"github.com/helpline-oss/support-desk/internal/subscription"
	apperrors "github.com/helpline-oss/support-desk/pkg/util/errorutil"
)

// DefaultKeepAlive is the interval between SSE keepalive comments.
const DefaultKeepAlive = 15 * time.Second

// TicketsHandler serves the ticket form and the ticket list.
type TicketsHandler struct {
	service   *service.TicketService
	source    subscription.Source
	keepAlive time.Duration

	closing   chan struct{}
	closeOnce sync.Once
}

// NewTicketsHandler constructs handler. source feeds GET /tickets/stream.
func NewTicketsHandler(ticketService *service.TicketService, source subscription.Source) *TicketsHandler {
	return &TicketsHandler{
		service:   ticketService,
		source:    source,
		keepAlive: DefaultKeepAlive,
		closing:   make(chan struct{}),
	}
}

// Close ends every open ticket stream. Call it before shutting the server
// down; the server waits for streaming connections to finish.
func (h *TicketsHandler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input, err := req.Validate()
	if err != nil {
		return err
	}

	res, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		return apperrors.NewUserFacingError(dto.TicketFailedMessage, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreateTicketResponse{
		ID:      res.ID,
		Message: dto.TicketCreatedMessage,
	}})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tickets})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// StreamTickets GET /tickets/stream. Sends the full list as an SSE
// "snapshot" event on connect and after every change.
func (h *TicketsHandler) StreamTickets(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	source := h.source
	keepAlive := h.keepAlive
	closing := h.closing
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		updates := make(chan []domain.Ticket, 1)
		unsubscribe := source.Subscribe(func(tickets []domain.Ticket) {
			// Only the latest snapshot matters.
			select {
			case <-updates:
			default:
			}
			updates <- tickets
		})
		defer unsubscribe()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-closing:
				return
			case tickets := <-updates:
				if err := WriteSnapshot(w, tickets); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

// WriteSnapshot writes one SSE snapshot frame and flushes it.
func WriteSnapshot(w *bufio.Writer, tickets []domain.Ticket) error {
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	raw, err := json.Marshal(tickets)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", raw); err != nil {
		return err
	}
	return w.Flush()
}
