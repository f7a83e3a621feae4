package models

import (
	"time"

	"github.com/lib/pq"
)

// AssignmentKind distinguishes timed assessments from practice sessions.
type AssignmentKind string

const (
	AssignmentKindAssessment   AssignmentKind = "ASSESSMENT"
	AssignmentKindPracticeTime AssignmentKind = "PRACTICE_TIME"
)

// Assignment is a scheduled assessment for a classroom. An empty recipient
// list targets the whole classroom.
type Assignment struct {
	ID           string         `db:"id" json:"id"`
	ClassroomID  string         `db:"classroom_id" json:"classroom_id"`
	TargetKind   AssignmentKind `db:"target_kind" json:"target_kind"`
	Operation    *string        `db:"operation" json:"operation,omitempty"`
	NumQuestions int            `db:"num_questions" json:"num_questions"`
	OpensAt      time.Time      `db:"opens_at" json:"opens_at"`
	ClosesAt     *time.Time     `db:"closes_at" json:"closes_at,omitempty"`
	Recipients   pq.StringArray `db:"recipients" json:"recipients"`
}

// Targets reports whether the assignment is addressed to studentID.
func (a *Assignment) Targets(studentID string) bool {
	if len(a.Recipients) == 0 {
		return true
	}
	for _, id := range a.Recipients {
		if id == studentID {
			return true
		}
	}
	return false
}
