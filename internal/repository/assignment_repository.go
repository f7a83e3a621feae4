package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mathfacts-api/internal/models"
)

// AssignmentRepository reads scheduled assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID returns an assignment by ID or sql.ErrNoRows.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, classroom_id, target_kind, operation, num_questions, opens_at, closes_at, COALESCE(recipients, '{}') AS recipients
FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}
