package dto

import "github.com/noah-isme/mathfacts-api/internal/mastery"

// PlacementRequest initialises a student's levels from a nominal starting
// level that may exceed the classroom cap.
type PlacementRequest struct {
	StartOperation string `json:"startOperation" validate:"required,oneof=ADD SUB MUL DIV"`
	LevelAmount    int    `json:"levelAmount" validate:"min=1"`
}

// MasteryRequest applies a full-mastery result to one operation.
type MasteryRequest struct {
	Operation string `json:"operation" validate:"required,oneof=ADD SUB MUL DIV"`
}

// OperationLevel is a student's level on one operation.
type OperationLevel struct {
	Operation string `json:"operation"`
	Level     int    `json:"level"`
}

// ProgressView lists a student's levels in policy order.
type ProgressView struct {
	StudentID          string           `json:"studentId"`
	ClassroomID        string           `json:"classroomId"`
	CurrentOperation   string           `json:"currentOperation"`
	CurriculumComplete bool             `json:"curriculumComplete"`
	MaxNumber          int              `json:"maxNumber"`
	Levels             []OperationLevel `json:"levels"`
}

// PlacementResponse reports the levels written by a placement.
type PlacementResponse struct {
	StudentID string           `json:"studentId"`
	Levels    []OperationLevel `json:"levels"`
}

// LevelsFromAssignments converts domain level pairs into response rows.
func LevelsFromAssignments(pairs []mastery.LevelAssignment) []OperationLevel {
	out := make([]OperationLevel, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, OperationLevel{Operation: string(p.Operation), Level: p.Level})
	}
	return out
}
