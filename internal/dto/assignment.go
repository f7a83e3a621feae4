package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/noah-isme/mathfacts-api/internal/mastery"
	"github.com/noah-isme/mathfacts-api/internal/models"
)

// AnswerValue is a submitted answer. It accepts a JSON string, number or null.
type AnswerValue string

// UnmarshalJSON keeps the raw token for numbers and unwraps strings.
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AnswerValue(s)
		return nil
	}
	*a = AnswerValue(raw)
	return nil
}

// SubmitRequest carries the student's answers keyed by question id.
type SubmitRequest struct {
	Answers map[string]AnswerValue `json:"answers"`
}

// QuestionView is a generated question without its answer.
type QuestionView struct {
	ID        int    `json:"id"`
	Operation string `json:"operation"`
	Symbol    string `json:"symbol"`
	OperandA  int    `json:"operandA"`
	OperandB  int    `json:"operandB"`
}

// AttemptResult is a stored attempt with its graded items.
type AttemptResult struct {
	AttemptID   string               `json:"attemptId"`
	Score       int                  `json:"score"`
	Total       int                  `json:"total"`
	Percent     int                  `json:"percent"`
	WasMastery  bool                 `json:"wasMastery"`
	CompletedAt time.Time            `json:"completedAt"`
	Operation   string               `json:"operation"`
	Level       int                  `json:"level"`
	MaxNumber   int                  `json:"maxNumber"`
	Items       []models.AttemptItem `json:"items"`
}

// AssignmentView is the load response. Questions are present only when the
// status is READY and Result only when it is ALREADY_SUBMITTED.
type AssignmentView struct {
	AssignmentID string                  `json:"assignmentId"`
	Status       models.AssignmentStatus `json:"status"`
	OpensAt      time.Time               `json:"opensAt"`
	ClosesAt     *time.Time              `json:"closesAt,omitempty"`
	Operation    string                  `json:"operation,omitempty"`
	Level        int                     `json:"level,omitempty"`
	MaxNumber    int                     `json:"maxNumber,omitempty"`
	Questions    []QuestionView          `json:"questions,omitempty"`
	Result       *AttemptResult          `json:"result,omitempty"`
}

// SubmitResult summarises a graded submission.
type SubmitResult struct {
	AttemptID  string              `json:"attemptId"`
	Score      int                 `json:"score"`
	Total      int                 `json:"total"`
	Percent    int                 `json:"percent"`
	WasMastery bool                `json:"wasMastery"`
	Promotion  *mastery.Transition `json:"promotion,omitempty"`
}
