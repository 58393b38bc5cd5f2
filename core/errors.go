package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return "invalid input"
	}
	return err.Err.Error()
}

type notFound struct {
	message string
}

// NewNotFoundError reports that a referenced entity does not exist.
func NewNotFoundError(msg string) error {
	return &notFound{message: msg}
}

func (nf notFound) Error() string {
	return nf.message
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*notFound)
	return ok
}

type forbidden struct {
	message string
}

// NewForbiddenError reports that the actor's role or relationship does not authorize the action.
func NewForbiddenError(msg string) error {
	return &forbidden{message: msg}
}

func (f forbidden) Error() string {
	return f.message
}

func IsForbidden(err error) bool {
	_, ok := errors.Cause(err).(*forbidden)
	return ok
}

type conflict struct {
	message string
}

// NewConflictError reports an action that violates a workflow invariant.
func NewConflictError(msg string) error {
	return &conflict{message: msg}
}

func (c conflict) Error() string {
	return c.message
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*conflict)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
