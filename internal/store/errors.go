package store

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// IsUniqueViolation reports whether err is a uniqueness-constraint failure
// from either backend. The unique indexes on keys.id, keys.description, and
// certificates.code are the backstop behind the read-then-write uniqueness
// checks in the key manager.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
