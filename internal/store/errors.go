package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")

	// ErrInvalidQuery is returned when the database rejects a search pattern.
	ErrInvalidQuery = errors.New("invalid query")
)

const (
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqInvalidRegexpPattern = "2201B"
)

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrConflict
	case pqForeignKeyViolation:
		return ErrNotFound
	case pqInvalidRegexpPattern:
		return ErrInvalidQuery
	default:
		return err
	}
}
