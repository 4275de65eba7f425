// Package errs holds sentinel errors shared by the repository, service and
// handler layers so handlers can map them to HTTP statuses with errors.Is.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g. username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict indicates the request conflicts with the current entity state.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates a client supplied value failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller lacks the required access group.
	ErrForbidden = errors.New("forbidden")

	// ErrHasDependents indicates a delete was refused because other records reference the entity.
	ErrHasDependents = errors.New("entity has dependents")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
