package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

const ticketColumns = `id, project_id, title, description, status,
               customer_id, customer_name, support_id, support_name,
               created_at, due_date, initial_due_date, expected_completion_date, postpone_date,
               plan, shortened_due_reason, postpone_reason, rejection_reason,
               completion_feedback, expected_completion_delay_reason,
               satisfaction, attachments, plan_attachments, updated_at`

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID *string
	SupportID  *string
	ProjectID  *string
	Statuses   []domain.TicketStatus
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// ListOpen returns every ticket in a non-terminal status; the deadline
	// monitor sweeps over this set.
	ListOpen(ctx context.Context) ([]domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return createTicket(ctx, r.pool, ticket)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	return updateTicket(ctx, r.pool, ticket)
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx so the
// transition store can reuse the same statements inside a transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func createTicket(ctx context.Context, db rowQuerier, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, project_id, title, description, status,
            customer_id, customer_name, support_id, support_name,
            created_at, due_date, initial_due_date, expected_completion_date, postpone_date,
            plan, shortened_due_reason, postpone_reason, rejection_reason,
            completion_feedback, expected_completion_delay_reason,
            satisfaction, attachments, plan_attachments)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
        RETURNING updated_at`
	return db.QueryRow(ctx, query,
		ticket.ID,
		ticket.ProjectID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.CustomerID,
		ticket.CustomerName,
		ticket.SupportID,
		ticket.SupportName,
		ticket.CreatedAt,
		ticket.DueDate,
		ticket.InitialDueDate,
		ticket.ExpectedCompletionDate,
		ticket.PostponeDate,
		ticket.Plan,
		ticket.ShortenedDueReason,
		ticket.PostponeReason,
		ticket.RejectionReason,
		ticket.CompletionFeedback,
		ticket.ExpectedCompletionDelayReason,
		ticket.Satisfaction,
		ticket.Attachments,
		ticket.PlanAttachments,
	).Scan(&ticket.UpdatedAt)
}

func updateTicket(ctx context.Context, db rowQuerier, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, due_date=$2, initial_due_date=$3,
            expected_completion_date=$4, postpone_date=$5, plan=$6,
            shortened_due_reason=$7, postpone_reason=$8, rejection_reason=$9,
            completion_feedback=$10, expected_completion_delay_reason=$11,
            satisfaction=$12, attachments=$13, plan_attachments=$14, updated_at=NOW()
        WHERE id=$15
        RETURNING updated_at`
	return db.QueryRow(ctx, query,
		ticket.Status,
		ticket.DueDate,
		ticket.InitialDueDate,
		ticket.ExpectedCompletionDate,
		ticket.PostponeDate,
		ticket.Plan,
		ticket.ShortenedDueReason,
		ticket.PostponeReason,
		ticket.RejectionReason,
		ticket.CompletionFeedback,
		ticket.ExpectedCompletionDelayReason,
		ticket.Satisfaction,
		ticket.Attachments,
		ticket.PlanAttachments,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE status <> $1 ORDER BY created_at ASC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.SupportID != nil {
		args = append(args, *filter.SupportID)
		clauses = append(clauses, fmt.Sprintf("support_id=$%d", len(args)))
	}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		clauses = append(clauses, fmt.Sprintf("project_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ProjectID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.CustomerID,
		&ticket.CustomerName,
		&ticket.SupportID,
		&ticket.SupportName,
		&ticket.CreatedAt,
		&ticket.DueDate,
		&ticket.InitialDueDate,
		&ticket.ExpectedCompletionDate,
		&ticket.PostponeDate,
		&ticket.Plan,
		&ticket.ShortenedDueReason,
		&ticket.PostponeReason,
		&ticket.RejectionReason,
		&ticket.CompletionFeedback,
		&ticket.ExpectedCompletionDelayReason,
		&ticket.Satisfaction,
		&ticket.Attachments,
		&ticket.PlanAttachments,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
