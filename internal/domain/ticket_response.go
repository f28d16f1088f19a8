package domain

import "time"

// AutomaticAuthor is the author recorded on system-generated responses.
const AutomaticAuthor = "Automatic System"

// TicketResponse is a single message attached to a ticket thread.
// Responses are append-only.
type TicketResponse struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticketId"`
	Message     string    `json:"message"`
	IsAutomatic bool      `json:"isAutomatic"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"createdAt"`
}
