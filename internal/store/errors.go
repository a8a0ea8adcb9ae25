package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when a write would violate the unique
// email index.
var ErrDuplicateEmail = errors.New("duplicate email")

// Postgres class 23 integrity violation for unique constraints.
const uniqueViolationCode = "23505"

func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
		return ErrDuplicateEmail
	}
	return err
}
