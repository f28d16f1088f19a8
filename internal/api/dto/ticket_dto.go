package dto

import (
	"net/mail"
	"strings"

	"github.com/helpline-oss/support-desk/internal/domain"
	apperrors "github.com/helpline-oss/support-desk/pkg/util/errorutil"
)

// Messages shown to the customer after submitting the form.
const (
	TicketCreatedMessage = "Ticket created successfully. You will receive a response soon!"
	TicketFailedMessage  = "Could not create the ticket. Please try again."
)

// CreateTicketRequest is the ticket form payload, accepted as JSON or
// form-encoded.
type CreateTicketRequest struct {
	CustomerName  string `json:"customer_name" form:"customer_name"`
	CustomerEmail string `json:"customer_email" form:"customer_email"`
	Subject       string `json:"subject" form:"subject"`
	Description   string `json:"description" form:"description"`
	Category      string `json:"category" form:"category"`
	Priority      string `json:"priority" form:"priority"`
}

// CreateTicketResponse confirms a submitted ticket.
type CreateTicketResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// UpdateStatusRequest payload for PATCH /tickets/:id/status.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status" form:"status"`
}

// Validate checks a form submission and converts it to service input. Empty
// category and priority take the form defaults.
func (req CreateTicketRequest) Validate() (domain.CreateTicketData, error) {
	fields := map[string]string{}
	required := map[string]string{
		"customer_name":  req.CustomerName,
		"customer_email": req.CustomerEmail,
		"subject":        req.Subject,
		"description":    req.Description,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			fields[name] = "required"
		}
	}

	email := strings.TrimSpace(req.CustomerEmail)
	if _, missing := fields["customer_email"]; !missing {
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			fields["customer_email"] = "must be a valid e-mail address"
		}
	}

	category := domain.TicketCategory(strings.TrimSpace(req.Category))
	if category == "" {
		category = domain.TicketCategoryGeneral
	} else if !category.Valid() {
		fields["category"] = "must be one of general, technical, billing, support"
	}

	priority := domain.TicketPriority(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = domain.TicketPriorityMedium
	} else if !priority.Valid() {
		fields["priority"] = "must be one of low, medium, high, critical"
	}

	if len(fields) > 0 {
		return domain.CreateTicketData{}, apperrors.NewValidationError("invalid ticket", map[string]any{"fields": fields})
	}
	return domain.CreateTicketData{
		Subject:       req.Subject,
		Description:   req.Description,
		Priority:      priority,
		Category:      category,
		CustomerEmail: email,
		CustomerName:  req.CustomerName,
	}, nil
}
