package models

import "time"

// StudentProgress is a student's level on one operation.
type StudentProgress struct {
	StudentID string    `db:"student_id" json:"student_id"`
	Operation string    `db:"operation" json:"operation"`
	Level     int       `db:"level" json:"level"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LevelUpdate is one row of a multi-operation level write.
type LevelUpdate struct {
	Operation string
	Level     int
}
