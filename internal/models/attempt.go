package models

import "time"

// UnansweredSentinel marks an item the student left blank or could not be parsed.
const UnansweredSentinel = -1

// AssignmentStatus is the load/submit state of an assignment for one student.
type AssignmentStatus string

const (
	AssignmentStatusReady            AssignmentStatus = "READY"
	AssignmentStatusNotOpen          AssignmentStatus = "NOT_OPEN"
	AssignmentStatusClosed           AssignmentStatus = "CLOSED"
	AssignmentStatusAlreadySubmitted AssignmentStatus = "ALREADY_SUBMITTED"
)

// Attempt is the single graded record of a student completing an assignment.
// The *AtTime fields snapshot the policy in effect when it was submitted.
type Attempt struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	AssignmentID    string    `db:"assignment_id" json:"assignment_id"`
	Score           int       `db:"score" json:"score"`
	Total           int       `db:"total" json:"total"`
	CompletedAt     time.Time `db:"completed_at" json:"completed_at"`
	OperationAtTime string    `db:"operation_at_time" json:"operation_at_time"`
	LevelAtTime     int       `db:"level_at_time" json:"level_at_time"`
	MaxNumberAtTime int       `db:"max_number_at_time" json:"max_number_at_time"`
}

// IsMastery reports whether every question was answered correctly.
func (a *Attempt) IsMastery() bool {
	return a.Total > 0 && a.Score == a.Total
}

// AttemptItem is one graded question of an attempt.
type AttemptItem struct {
	ID            string `db:"id" json:"id"`
	AttemptID     string `db:"attempt_id" json:"attempt_id"`
	Position      int    `db:"position" json:"position"`
	OperandA      int    `db:"operand_a" json:"operand_a"`
	OperandB      int    `db:"operand_b" json:"operand_b"`
	CorrectAnswer int    `db:"correct_answer" json:"correct_answer"`
	GivenAnswer   int    `db:"given_answer" json:"given_answer"`
	IsCorrect     bool   `db:"is_correct" json:"is_correct"`
}
