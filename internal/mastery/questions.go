package mastery

import (
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// Question is a generated arithmetic fact. IDs are 1-based positions within
// one generated set.
type Question struct {
	ID        int       `json:"id"`
	Operation Operation `json:"operation"`
	OperandA  int       `json:"operand_a"`
	OperandB  int       `json:"operand_b"`
}

// rerolls bounds how many times a duplicate fact is redrawn before it is kept.
const rerolls = 3

// Seed derives the generator seed for an assignment/student pair. It depends
// on nothing else so a reload before submission reproduces the same set.
func Seed(assignmentID, studentID string) int64 {
	d := xxhash.New()
	_, _ = d.WriteString(assignmentID)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(studentID)
	return int64(d.Sum64() & 0x7fffffffffffffff)
}

// Generate returns exactly count questions for op. The drilled operand ranges
// over [1, min(level, maxNumber)] and the partner operand over [0, maxNumber].
// Subtraction and division are built backwards from an addition or
// multiplication fact so answers are never negative and division is exact.
func Generate(seed int64, op Operation, level, maxNumber, count int) []Question {
	if count <= 0 {
		return []Question{}
	}
	if maxNumber < 1 {
		maxNumber = 1
	}
	level = ClampLevel(level, maxNumber)

	rng := rand.New(rand.NewSource(seed))
	questions := make([]Question, 0, count)
	seen := make(map[[2]int]struct{}, count)

	for i := 0; i < count; i++ {
		var a, b int
		for attempt := 0; ; attempt++ {
			a, b = draw(rng, op, level, maxNumber)
			key := [2]int{a, b}
			if _, dup := seen[key]; !dup || attempt >= rerolls {
				seen[key] = struct{}{}
				break
			}
		}
		questions = append(questions, Question{ID: i + 1, Operation: op, OperandA: a, OperandB: b})
	}
	return questions
}

func draw(rng *rand.Rand, op Operation, level, maxNumber int) (int, int) {
	focus := 1 + rng.Intn(level)
	partner := rng.Intn(maxNumber + 1)
	swap := rng.Intn(2) == 1

	switch op {
	case OperationAdd, OperationMul:
		if swap {
			return partner, focus
		}
		return focus, partner
	case OperationSub:
		return focus + partner, focus
	case OperationDiv:
		return focus * partner, focus
	}
	return focus, partner
}

// Answer recomputes the canonical answer for a fact. It is the only source of
// truth for grading. Division must be exact with a non-zero divisor.
func Answer(op Operation, a, b int) (int, error) {
	switch op {
	case OperationAdd:
		return a + b, nil
	case OperationSub:
		return a - b, nil
	case OperationMul:
		return a * b, nil
	case OperationDiv:
		if b == 0 || a%b != 0 {
			return 0, ErrInvalidQuestion
		}
		return a / b, nil
	}
	return 0, ErrUnknownOperation
}
