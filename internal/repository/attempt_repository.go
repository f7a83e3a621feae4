package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mathfacts-api/internal/models"
	"github.com/noah-isme/mathfacts-api/pkg/database"
)

// AttemptRepository persists graded attempts and their items.
type AttemptRepository struct {
	db *sqlx.DB
}

// NewAttemptRepository constructs the repository.
func NewAttemptRepository(db *sqlx.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// FindByStudentAndAssignment returns the attempt for the pair, or nil when
// the student has not submitted yet.
func (r *AttemptRepository) FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Attempt, error) {
	const query = `SELECT id, student_id, assignment_id, score, total, completed_at, operation_at_time, level_at_time, max_number_at_time
FROM attempts WHERE student_id = $1 AND assignment_id = $2`
	var attempt models.Attempt
	if err := r.db.GetContext(ctx, &attempt, query, studentID, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	return &attempt, nil
}

// ListItems returns the items of an attempt in question order.
func (r *AttemptRepository) ListItems(ctx context.Context, attemptID string) ([]models.AttemptItem, error) {
	const query = `SELECT id, attempt_id, position, operand_a, operand_b, correct_answer, given_answer, is_correct
FROM attempt_items WHERE attempt_id = $1 ORDER BY position`
	var items []models.AttemptItem
	if err := r.db.SelectContext(ctx, &items, query, attemptID); err != nil {
		return nil, fmt.Errorf("list attempt items: %w", err)
	}
	return items, nil
}

// CreateWithItems inserts the attempt and all items in one transaction. A
// unique violation on (student_id, assignment_id) yields ErrDuplicateAttempt
// and nothing is written.
func (r *AttemptRepository) CreateWithItems(ctx context.Context, attempt *models.Attempt, items []models.AttemptItem) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CompletedAt.IsZero() {
		attempt.CompletedAt = time.Now().UTC()
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].AttemptID = attempt.ID
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const attemptQuery = `INSERT INTO attempts (id, student_id, assignment_id, score, total, completed_at, operation_at_time, level_at_time, max_number_at_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		if _, err := tx.ExecContext(ctx, attemptQuery, attempt.ID, attempt.StudentID, attempt.AssignmentID, attempt.Score, attempt.Total,
			attempt.CompletedAt, attempt.OperationAtTime, attempt.LevelAtTime, attempt.MaxNumberAtTime); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateAttempt
			}
			return fmt.Errorf("insert attempt: %w", err)
		}

		const itemQuery = `INSERT INTO attempt_items (id, attempt_id, position, operand_a, operand_b, correct_answer, given_answer, is_correct)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		for _, item := range items {
			if _, err := tx.ExecContext(ctx, itemQuery, item.ID, item.AttemptID, item.Position, item.OperandA, item.OperandB,
				item.CorrectAnswer, item.GivenAnswer, item.IsCorrect); err != nil {
				return fmt.Errorf("insert attempt item %d: %w", item.Position, err)
			}
		}
		return nil
	})
}
