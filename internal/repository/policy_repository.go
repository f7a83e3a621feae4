package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mathfacts-api/internal/models"
)

// PolicyRepository persists classroom progression policies.
type PolicyRepository struct {
	db *sqlx.DB
}

// NewPolicyRepository constructs the repository.
func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// FindByClassroom returns the stored policy or sql.ErrNoRows.
func (r *PolicyRepository) FindByClassroom(ctx context.Context, classroomID string) (*models.ProgressionPolicy, error) {
	const query = `SELECT classroom_id, enabled_operations, operation_order, max_number, updated_at
FROM progression_policies WHERE classroom_id = $1`
	var policy models.ProgressionPolicy
	if err := r.db.GetContext(ctx, &policy, query, classroomID); err != nil {
		return nil, err
	}
	return &policy, nil
}

// Upsert writes the policy for its classroom.
func (r *PolicyRepository) Upsert(ctx context.Context, policy *models.ProgressionPolicy) error {
	if policy.UpdatedAt.IsZero() {
		policy.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO progression_policies (classroom_id, enabled_operations, operation_order, max_number, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (classroom_id) DO UPDATE SET enabled_operations = EXCLUDED.enabled_operations,
    operation_order = EXCLUDED.operation_order, max_number = EXCLUDED.max_number, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, policy.ClassroomID, policy.EnabledOperations, policy.OperationOrder, policy.MaxNumber, policy.UpdatedAt); err != nil {
		return fmt.Errorf("upsert progression policy: %w", err)
	}
	return nil
}
