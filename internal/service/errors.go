// Package service holds the domain rules shared by the command and query sides:
// the error taxonomy, month-name resolution and search-term interpretation.
package service

import (
	"errors"
)

var (
	// ErrMissingParameter is returned when a required query parameter is absent.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrInvalidParameter is returned when a parameter is present but unusable.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrAlreadySeeded is returned by Seed when the store already holds records.
	// It is informational, not a failure.
	ErrAlreadySeeded = errors.New("data already exists in the database")
	// ErrSourceUnavailable is returned when the seed source cannot be fetched or decoded.
	ErrSourceUnavailable = errors.New("seed source unavailable")
	// ErrStoreWrite is returned when clearing or inserting records fails.
	ErrStoreWrite = errors.New("record store write failed")
	// ErrStoreRead is returned when a count, find or aggregate fails.
	ErrStoreRead = errors.New("record store read failed")
)

// Error pairs a taxonomy error with the collaborator failure that caused it.
// errors.Is matches both Kind and Cause.
type Error struct {
	Kind  error
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

func wrap(kind, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Cause: cause}
}

// StoreRead wraps a record store read failure.
func StoreRead(cause error) error { return wrap(ErrStoreRead, cause) }

// StoreWrite wraps a record store write failure.
func StoreWrite(cause error) error { return wrap(ErrStoreWrite, cause) }

// SourceUnavailable wraps a seed source failure.
func SourceUnavailable(cause error) error { return wrap(ErrSourceUnavailable, cause) }

// Invalid reports a malformed parameter.
func Invalid(cause error) error { return wrap(ErrInvalidParameter, cause) }

// Missing reports an absent required parameter.
func Missing(cause error) error { return wrap(ErrMissingParameter, cause) }

// Detail returns the collaborator failure carried by err, or err's own text
// when it is not a taxonomy error.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) && se.Cause != nil {
		return se.Cause.Error()
	}
	return err.Error()
}
