package objectdb

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by Get when no object has the key.
	ErrNotFound = errors.New("object not found")
	// ErrConstraint is returned by Add when the key is already taken.
	ErrConstraint = errors.New("key already exists")
	// ErrUnknownStore is returned for collections the schema never created.
	ErrUnknownStore = errors.New("unknown object store")
	// ErrVersion is returned when opening with a version lower than the stored one.
	ErrVersion = errors.New("requested version is lower than the existing version")
	// ErrBlocked is returned when another opener or writer holds the database
	// longer than the caller is willing to wait.
	ErrBlocked = errors.New("database blocked")
	// ErrMissingKey is returned when an object has no key and the store
	// does not generate one.
	ErrMissingKey = errors.New("object has no key")
	// ErrInvalidKey is returned when the key path does not hold an integer.
	ErrInvalidKey = errors.New("key must be an integer")
	// ErrReadOnly is returned by writes inside a View transaction.
	ErrReadOnly = errors.New("transaction is read-only")
)

// isBusy recognizes lock timeouts from both sqlite drivers.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}
