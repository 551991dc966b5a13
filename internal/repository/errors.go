package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDatabase  = errors.New("database error")
	ErrDuplicate = errors.New("duplicate record")
)

// IsUniqueViolation reports whether the error is a Postgres unique
// constraint violation. ID allocation relies on this to detect a lost race
// and retry with a fresh candidate.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
