package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helpline-oss/support-desk/internal/domain"
	"github.com/helpline-oss/support-desk/internal/persistence"
)

// TicketsKey names the key-value entry holding the whole ticket collection.
const TicketsKey = "tickets"

// localTicketRepository keeps the collection as a single JSON array under
// TicketsKey in a local key-value table, newest ticket first.
type localTicketRepository struct {
	mu sync.Mutex
	db *gorm.DB
}

// NewLocalTicketRepository builds the local key-value blob backend.
func NewLocalTicketRepository(db *gorm.DB) TicketRepository {
	return &localTicketRepository{db: db}
}

func (r *localTicketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tickets, err := loadTickets(tx)
		if err != nil {
			return err
		}
		for i := range tickets {
			if tickets[i].ID == ticket.ID {
				return fmt.Errorf("ticket %s already exists", ticket.ID)
			}
		}
		tickets = append([]domain.Ticket{ticket.Clone()}, tickets...)
		return saveTickets(tx, tickets)
	})
}

func (r *localTicketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tickets, err := loadTickets(r.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	sortNewestFirst(tickets)
	return tickets, nil
}

func (r *localTicketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tickets, err := loadTickets(r.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		if tickets[i].ID == id {
			return &tickets[i], nil
		}
	}
	return nil, ErrTicketNotFound
}

func (r *localTicketRepository) Update(ctx context.Context, id string, mutate TicketMutator) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated domain.Ticket
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tickets, err := loadTickets(tx)
		if err != nil {
			return err
		}
		idx := -1
		for i := range tickets {
			if tickets[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrTicketNotFound
		}
		working := tickets[idx].Clone()
		if err := mutate(&working); err != nil {
			return err
		}
		working.ID = id
		tickets[idx] = working
		updated = working.Clone()
		return saveTickets(tx, tickets)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func loadTickets(tx *gorm.DB) ([]domain.Ticket, error) {
	var entry persistence.KVEntry
	err := tx.Where("entry_key = ?", TicketsKey).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []domain.Ticket{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s entry: %w", TicketsKey, err)
	}
	return decodeTickets([]byte(entry.Value))
}

func saveTickets(tx *gorm.DB, tickets []domain.Ticket) error {
	raw, err := json.Marshal(tickets)
	if err != nil {
		return fmt.Errorf("encode tickets: %w", err)
	}
	entry := persistence.KVEntry{Key: TicketsKey, Value: string(raw)}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("write %s entry: %w", TicketsKey, err)
	}
	return nil
}

func decodeTickets(raw []byte) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		return nil, fmt.Errorf("decode tickets: %w", err)
	}
	for i := range tickets {
		if tickets[i].Responses == nil {
			tickets[i].Responses = []domain.TicketResponse{}
		}
	}
	return tickets, nil
}

func sortNewestFirst(tickets []domain.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
}
