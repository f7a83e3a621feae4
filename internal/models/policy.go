package models

import (
	"time"

	"github.com/lib/pq"
)

// ProgressionPolicy is the stored, unresolved policy row for a classroom.
type ProgressionPolicy struct {
	ClassroomID       string         `db:"classroom_id" json:"classroom_id"`
	EnabledOperations pq.StringArray `db:"enabled_operations" json:"enabled_operations"`
	OperationOrder    pq.StringArray `db:"operation_order" json:"operation_order"`
	MaxNumber         int            `db:"max_number" json:"max_number"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}
