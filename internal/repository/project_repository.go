package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// ProjectRepository supplies project data; read-only to the ticket core.
type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
}

type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository instantiates repository.
func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepository{pool: pool}
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	const query = `SELECT id, name, customer_company_id, created_at FROM projects WHERE id=$1`
	var project domain.Project
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.CustomerCompanyID,
		&project.CreatedAt,
	); err != nil {
		return nil, err
	}

	// position 0 is the PM; ordering matters.
	const staffQuery = `
        SELECT user_id FROM project_support_staff
        WHERE project_id=$1 ORDER BY position ASC`
	rows, err := r.pool.Query(ctx, staffQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		project.SupportStaffIDs = append(project.SupportStaffIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &project, nil
}
