package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/mathfacts-api/internal/models"
	"github.com/noah-isme/mathfacts-api/pkg/database"
)

// ProgressRepository persists per-operation student levels.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const ensureLevelQuery = `INSERT INTO student_progress (student_id, operation, level, updated_at)
SELECT $1, op, 1, $3 FROM unnest($2::text[]) AS op
ON CONFLICT (student_id, operation) DO NOTHING`

const upsertLevelQuery = `INSERT INTO student_progress (student_id, operation, level, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (student_id, operation) DO UPDATE SET level = EXCLUDED.level, updated_at = EXCLUDED.updated_at`

// ListByStudent returns every progress row of a student.
func (r *ProgressRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentProgress, error) {
	const query = `SELECT student_id, operation, level, updated_at FROM student_progress WHERE student_id = $1 ORDER BY operation`
	var rows []models.StudentProgress
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student progress: %w", err)
	}
	return rows, nil
}

// EnsureLevels creates level-1 rows for any of operations the student lacks.
// Existing rows are left untouched, so repeated calls are harmless.
func (r *ProgressRepository) EnsureLevels(ctx context.Context, studentID string, operations []string) error {
	if len(operations) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, ensureLevelQuery, studentID, pq.StringArray(operations), time.Now().UTC()); err != nil {
		return fmt.Errorf("ensure student progress: %w", err)
	}
	return nil
}

// UpsertLevels writes all updates in one transaction.
func (r *ProgressRepository) UpsertLevels(ctx context.Context, studentID string, updates []models.LevelUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return upsertLevelsTx(ctx, tx, studentID, updates, time.Now().UTC())
	})
}

// ApplyLevels ensures rows for operations, locks the student's rows, hands
// the current levels to decide and writes its updates, all in one
// transaction. Concurrent promotions for the same student are serialised.
func (r *ProgressRepository) ApplyLevels(ctx context.Context, studentID string, operations []string, decide func(current map[string]int) ([]models.LevelUpdate, error)) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if len(operations) > 0 {
			if _, err := tx.ExecContext(ctx, ensureLevelQuery, studentID, pq.StringArray(operations), now); err != nil {
				return fmt.Errorf("ensure student progress: %w", err)
			}
		}

		const lockQuery = `SELECT student_id, operation, level, updated_at FROM student_progress WHERE student_id = $1 FOR UPDATE`
		var rows []models.StudentProgress
		if err := tx.SelectContext(ctx, &rows, lockQuery, studentID); err != nil {
			return fmt.Errorf("lock student progress: %w", err)
		}
		current := make(map[string]int, len(rows))
		for _, row := range rows {
			current[row.Operation] = row.Level
		}

		updates, err := decide(current)
		if err != nil {
			return err
		}
		return upsertLevelsTx(ctx, tx, studentID, updates, now)
	})
}

func upsertLevelsTx(ctx context.Context, tx *sqlx.Tx, studentID string, updates []models.LevelUpdate, now time.Time) error {
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, upsertLevelQuery, studentID, u.Operation, u.Level, now); err != nil {
			return fmt.Errorf("upsert %s level: %w", u.Operation, err)
		}
	}
	return nil
}
