// Package mcptools exposes the ticket operations as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/helpline-oss/support-desk/internal/api/dto"
	"github.com/helpline-oss/support-desk/internal/domain"
	"github.com/helpline-oss/support-desk/internal/service"
	apperrors "github.com/helpline-oss/support-desk/pkg/util/errorutil"
)

// Tools adapts the ticket service to MCP tool handlers.
type Tools struct {
	tickets *service.TicketService
	logger  *zap.Logger
}

// NewTools constructs the tool set.
func NewTools(tickets *service.TicketService, logger *zap.Logger) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{tickets: tickets, logger: logger}
}

// NewServer builds an MCP server with every ticket tool registered.
func NewServer(name, version string, tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(false))
	tools.Register(s)
	return s
}

// Register adds the ticket tools to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("create_ticket",
		mcp.WithDescription("Submit a new support ticket. An automatic reply is added shortly after."),
		mcp.WithString("customer_name", mcp.Required(), mcp.Description("Name of the customer")),
		mcp.WithString("customer_email", mcp.Required(), mcp.Description("Customer e-mail address")),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Short summary of the problem")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Full description of the problem")),
		mcp.WithString("category", mcp.Description("general, technical, billing or support. Defaults to general")),
		mcp.WithString("priority", mcp.Description("low, medium, high or critical. Defaults to medium")),
	), t.CreateTicket)

	s.AddTool(mcp.NewTool("list_tickets",
		mcp.WithDescription("List every ticket, newest first, with its responses"),
	), t.ListTickets)

	s.AddTool(mcp.NewTool("update_ticket_status",
		mcp.WithDescription("Set the status of a ticket"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Ticket ID")),
		mcp.WithString("status", mcp.Required(), mcp.Description("open, in_progress, resolved or closed")),
	), t.UpdateTicketStatus)
}

// CreateTicket handles the create_ticket tool.
func (t *Tools) CreateTicket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := dto.CreateTicketRequest{
		CustomerName:  request.GetString("customer_name", ""),
		CustomerEmail: request.GetString("customer_email", ""),
		Subject:       request.GetString("subject", ""),
		Description:   request.GetString("description", ""),
		Category:      request.GetString("category", ""),
		Priority:      request.GetString("priority", ""),
	}
	input, err := req.Validate()
	if err != nil {
		return toolError(err), nil
	}

	res, err := t.tickets.Create(ctx, input)
	if err != nil {
		t.logger.Error("create_ticket failed", zap.Error(err))
		return mcp.NewToolResultError(dto.TicketFailedMessage), nil
	}
	return jsonResult(dto.CreateTicketResponse{
		ID:      res.ID,
		Message: dto.TicketCreatedMessage,
	})
}

// ListTickets handles the list_tickets tool.
func (t *Tools) ListTickets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tickets, err := t.tickets.List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return jsonResult(tickets)
}

// UpdateTicketStatus handles the update_ticket_status tool.
func (t *Tools) UpdateTicketStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ticket, err := t.tickets.UpdateStatus(ctx, id, domain.TicketStatus(status))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(ticket)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// toolError reports domain failures to the client and hides internal ones.
func toolError(err error) *mcp.CallToolResult {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		if payload, mErr := json.Marshal(map[string]any{
			"code":    domainErr.Code,
			"message": domainErr.Message,
			"details": domainErr.Details,
		}); mErr == nil {
			return mcp.NewToolResultError(string(payload))
		}
	}
	return mcp.NewToolResultError("internal server error")
}
