package services

import (
	"errors"

	"github.com/thereayou/flasker/internal/database"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrTaskInProgress     = errors.New("task already in progress")

	ErrSelfFollow = &ValidationError{Reason: "you cannot follow yourself"}
)

// ValidationError is a client mistake; Reason is safe to show to the client.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalid(reason string) error { return &ValidationError{Reason: reason} }

func notFound(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
