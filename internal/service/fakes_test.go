package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

type memTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *memTicketRepo) put(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = ticket
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.put(*ticket)
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.put(*ticket)
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *memTicketRepo) ListOpen(_ context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var open []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.Status != domain.TicketStatusCompleted {
			open = append(open, ticket)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].CreatedAt.Before(open[j].CreatedAt) })
	return open, nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.SupportID != nil && ticket.SupportID != *filter.SupportID {
			continue
		}
		if filter.ProjectID != nil && ticket.ProjectID != *filter.ProjectID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type memHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{}
}

func (r *memHistoryRepo) Append(_ context.Context, entry *domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memHistoryRepo) ListByTicket(_ context.Context, ticketID string, order repository.HistoryOrder) ([]domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.HistoryEntry
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	if order == repository.HistoryOrderDesc {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	return result, nil
}

// memStore commits ticket and history to the in-memory repos together,
// standing in for the transactional store. failOn injects a commit error
// for specific ticket ids.
type memStore struct {
	tickets *memTicketRepo
	history *memHistoryRepo
	failOn  map[string]error
}

func newMemStore(tickets *memTicketRepo, history *memHistoryRepo) *memStore {
	return &memStore{tickets: tickets, history: history, failOn: make(map[string]error)}
}

func (s *memStore) CommitCreation(ctx context.Context, ticket *domain.Ticket, entry *domain.HistoryEntry) error {
	if err := s.failOn[ticket.ID]; err != nil {
		return err
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return err
	}
	return s.history.Append(ctx, entry)
}

func (s *memStore) CommitTransition(ctx context.Context, ticket *domain.Ticket, entry *domain.HistoryEntry) error {
	if err := s.failOn[ticket.ID]; err != nil {
		return err
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	return s.history.Append(ctx, entry)
}

type memProjectRepo struct {
	projects map[string]domain.Project
}

func newMemProjectRepo(projects ...domain.Project) *memProjectRepo {
	repo := &memProjectRepo{projects: make(map[string]domain.Project)}
	for _, p := range projects {
		repo.projects[p.ID] = p
	}
	return repo
}

func (r *memProjectRepo) GetByID(_ context.Context, id string) (*domain.Project, error) {
	project, ok := r.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := project
	return &copied, nil
}

type memUserRepo struct {
	users map[string]domain.User
}

func newMemUserRepo(users ...domain.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[string]domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	r.users[id] = user
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}
