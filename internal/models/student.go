package models

// Student is the subset of a student record the mastery engine reads.
type Student struct {
	ID          string `db:"id" json:"id"`
	ClassroomID string `db:"classroom_id" json:"classroom_id"`
	FullName    string `db:"full_name" json:"full_name"`
}
