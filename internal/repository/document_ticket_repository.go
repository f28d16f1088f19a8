package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpline-oss/support-desk/internal/domain"
)

// documentTicketRepository stores one JSONB document per ticket in the
// Postgres "tickets" collection, sorted by the created_at key.
type documentTicketRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentTicketRepository builds the remote document backend.
func NewDocumentTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &documentTicketRepository{pool: pool}
}

func (r *documentTicketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	raw, err := encodeTicket(ticket)
	if err != nil {
		return err
	}
	const query = `INSERT INTO tickets (id, doc, created_at) VALUES ($1, $2, $3)`
	if _, err := r.pool.Exec(ctx, query, ticket.ID, raw, ticket.CreatedAt); err != nil {
		return fmt.Errorf("insert ticket %s: %w", ticket.ID, err)
	}
	return nil
}

func (r *documentTicketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	const query = `SELECT doc FROM tickets ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		ticket, err := decodeTicket(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return result, nil
}

func (r *documentTicketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT doc FROM tickets WHERE id = $1`
	return fetchTicket(ctx, r.pool, query, id)
}

func (r *documentTicketRepository) Update(ctx context.Context, id string, mutate TicketMutator) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update %s: %w", id, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ticket, err := fetchTicket(ctx, tx, `SELECT doc FROM tickets WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(ticket); err != nil {
		return nil, err
	}
	ticket.ID = id

	raw, err := encodeTicket(ticket)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE tickets SET doc = $2 WHERE id = $1`, id, raw); err != nil {
		return nil, fmt.Errorf("update ticket %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update %s: %w", id, err)
	}
	return ticket, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func fetchTicket(ctx context.Context, q rowQuerier, query, id string) (*domain.Ticket, error) {
	var raw []byte
	if err := q.QueryRow(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return decodeTicket(raw)
}

func encodeTicket(ticket *domain.Ticket) ([]byte, error) {
	doc := ticket.Clone()
	if doc.Responses == nil {
		doc.Responses = []domain.TicketResponse{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode ticket %s: %w", ticket.ID, err)
	}
	return raw, nil
}

func decodeTicket(raw []byte) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	if ticket.Responses == nil {
		ticket.Responses = []domain.TicketResponse{}
	}
	return &ticket, nil
}
