package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// HistoryOrder selects the listing direction for audit entries.
type HistoryOrder string

const (
	// HistoryOrderAsc lists entries in creation order.
	HistoryOrderAsc HistoryOrder = "ASC"
	// HistoryOrderDesc lists newest first; the default display order.
	HistoryOrderDesc HistoryOrder = "DESC"
)

// HistoryRepository stores audit entries. Entries are append-only; no
// update or delete operation exists.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	ListByTicket(ctx context.Context, ticketID string, order HistoryOrder) ([]domain.HistoryEntry, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	return appendHistory(ctx, r.pool, entry)
}

func appendHistory(ctx context.Context, db rowQuerier, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (id, ticket_id, status, changed_by, action, note, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return db.QueryRow(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.Status,
		entry.ChangedBy,
		entry.Action,
		entry.Note,
		entry.Timestamp,
	).Scan(&entry.Timestamp)
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string, order HistoryOrder) ([]domain.HistoryEntry, error) {
	query := `
        SELECT id, ticket_id, status, changed_by, action, note, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	if order == HistoryOrderDesc {
		query = `
        SELECT id, ticket_id, status, changed_by, action, note, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC`
	}
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func scanHistory(rows pgx.Rows) ([]domain.HistoryEntry, error) {
	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Status,
			&entry.ChangedBy,
			&entry.Action,
			&entry.Note,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
