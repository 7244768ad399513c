package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// TransitionStore durably commits one ticket transition: the mutated
// ticket row and its audit entry succeed or fail as a unit. The audit
// trail must never hold an entry without the matching ticket state, or
// vice versa.
type TransitionStore interface {
	// CommitTransition updates the ticket and appends the history entry
	// inside a single transaction.
	CommitTransition(ctx context.Context, ticket *domain.Ticket, entry *domain.HistoryEntry) error
	// CommitCreation inserts a new ticket together with its first entry.
	CommitCreation(ctx context.Context, ticket *domain.Ticket, entry *domain.HistoryEntry) error
}

type transitionStore struct {
	pool *pgxpool.Pool
}

// NewTransitionStore builds the pgx-backed store.
func NewTransitionStore(pool *pgxpool.Pool) TransitionStore {
	return &transitionStore{pool: pool}
}

func (s *transitionStore) CommitTransition(ctx context.Context, ticket *domain.Ticket, entry *domain.HistoryEntry) error {
	return s.inTx(ctx, func(tx rowQuerier) error {
		if err := updateTicket(ctx, tx, ticket); err != nil {
			return err
		}
		return appendHistory(ctx, tx, entry)
	})
}

func (s *transitionStore) CommitCreation(ctx context.Context, ticket *domain.Ticket, entry *domain.HistoryEntry) error {
	return s.inTx(ctx, func(tx rowQuerier) error {
		if err := createTicket(ctx, tx, ticket); err != nil {
			return err
		}
		return appendHistory(ctx, tx, entry)
	})
}

func (s *transitionStore) inTx(ctx context.Context, fn func(tx rowQuerier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
