// Package mastery holds the pure rules of the math-facts curriculum: the
// operation catalogue, progression policy resolution, placement, promotion and
// the deterministic question generator. Nothing here performs I/O.
package mastery

import (
	"errors"
	"strings"
)

// Operation is an arithmetic fact family.
type Operation string

const (
	OperationAdd Operation = "ADD"
	OperationSub Operation = "SUB"
	OperationMul Operation = "MUL"
	OperationDiv Operation = "DIV"
)

// Bounds for a classroom's max number.
const (
	MinMaxNumber = 1
	MaxMaxNumber = 100
)

var (
	// ErrNoOperations is returned when a policy enables no known operation.
	ErrNoOperations = errors.New("policy has no enabled operations")
	// ErrUnknownOperation is returned for codes outside the catalogue.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrInvalidQuestion is returned when operands cannot form a valid fact.
	ErrInvalidQuestion = errors.New("invalid question")
)

// AllOperations lists the catalogue in its declared order.
var AllOperations = []Operation{OperationAdd, OperationSub, OperationMul, OperationDiv}

// Valid reports whether o is part of the catalogue.
func (o Operation) Valid() bool {
	switch o {
	case OperationAdd, OperationSub, OperationMul, OperationDiv:
		return true
	}
	return false
}

// Symbol returns the printable operator.
func (o Operation) Symbol() string {
	switch o {
	case OperationAdd:
		return "+"
	case OperationSub:
		return "-"
	case OperationMul:
		return "×"
	case OperationDiv:
		return "÷"
	}
	return "?"
}

// ParseOperation normalises a raw code such as "mul" into an Operation.
func ParseOperation(raw string) (Operation, error) {
	op := Operation(strings.ToUpper(strings.TrimSpace(raw)))
	if !op.Valid() {
		return "", ErrUnknownOperation
	}
	return op, nil
}

// ParseOperations converts raw codes, silently dropping unknown ones.
func ParseOperations(raw []string) []Operation {
	ops := make([]Operation, 0, len(raw))
	for _, r := range raw {
		if op, err := ParseOperation(r); err == nil {
			ops = append(ops, op)
		}
	}
	return ops
}

// Strings converts operations back into their codes.
func Strings(ops []Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = string(op)
	}
	return out
}

// ClampLevel bounds level to [1, maxNumber].
func ClampLevel(level, maxNumber int) int {
	if maxNumber < 1 {
		maxNumber = 1
	}
	if level < 1 {
		return 1
	}
	if level > maxNumber {
		return maxNumber
	}
	return level
}

func indexOf(order []Operation, op Operation) int {
	for i, candidate := range order {
		if candidate == op {
			return i
		}
	}
	return -1
}
