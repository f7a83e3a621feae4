package mastery

// Transition is the outcome of applying a full-mastery result to one
// operation. Updates must be persisted together.
type Transition struct {
	Operation      Operation         `json:"operation"`
	PreviousLevel  int               `json:"previous_level"`
	Level          int               `json:"level"`
	Promoted       bool              `json:"promoted"`
	MovedTo        Operation         `json:"moved_to_operation,omitempty"`
	CurriculumDone bool              `json:"curriculum_complete"`
	Updates        []LevelAssignment `json:"-"`
}

// Promote decides the next state for op after full mastery at currentLevel.
// Below the cap the level advances by one. At the cap the student rolls over
// to the next operation in the order at level 1; without a next operation the
// level stays clamped at the cap and the curriculum is complete.
func Promote(p Policy, op Operation, currentLevel int) Transition {
	maxNumber := p.MaxNumber
	if maxNumber < 1 {
		maxNumber = 1
	}
	t := Transition{Operation: op, PreviousLevel: currentLevel}

	if currentLevel < maxNumber {
		t.Level = ClampLevel(currentLevel+1, maxNumber)
		t.Updates = []LevelAssignment{{Operation: op, Level: t.Level}}
		return t
	}

	t.Level = maxNumber
	next, ok := p.Next(op)
	if !ok {
		t.CurriculumDone = true
		t.Updates = []LevelAssignment{{Operation: op, Level: maxNumber}}
		return t
	}

	t.Promoted = true
	t.MovedTo = next
	t.Updates = []LevelAssignment{
		{Operation: op, Level: maxNumber},
		{Operation: next, Level: 1},
	}
	return t
}
