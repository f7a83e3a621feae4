package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicateAttempt is returned when an attempt already exists for the
// student/assignment pair.
var ErrDuplicateAttempt = errors.New("attempt already exists for student and assignment")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
