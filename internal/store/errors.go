package store

import "errors"

// Sentinel errors shared by all entities. Callers translate these into
// the domain error taxonomy at the service boundary.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a create or update would violate
	// a primary key or unique index.
	ErrAlreadyExists = errors.New("record already exists")
)
