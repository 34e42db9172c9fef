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
		return ""
	}
	return err.Err.Error()
}

// NotFoundError means a referenced entity is absent, or hidden from the acting user.
type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) *NotFoundError {
	return &NotFoundError{message: msg}
}

func (e NotFoundError) Error() string {
	return e.message
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ForbiddenError means the acting user lacks the role or ownership needed.
type ForbiddenError struct {
	message string
}

func NewForbiddenError(msg string) *ForbiddenError {
	return &ForbiddenError{message: msg}
}

func (e ForbiddenError) Error() string {
	return e.message
}

func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

var ErrNotOwner = NewForbiddenError("permission denied")

// CheckOwner lets staff through, and everyone else only to records they own.
func CheckOwner(actorID, ownerID string, isStaff bool) error {
	if isStaff || (actorID != "" && actorID == ownerID) {
		return nil
	}
	return ErrNotOwner
}

// ConflictError reports a uniqueness collision that could not be resolved internally.
type ConflictError struct {
	Field   string
	message string
}

func NewConflictError(field, msg string) *ConflictError {
	return &ConflictError{Field: field, message: msg}
}

func (e ConflictError) Error() string {
	return e.message
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// UniqueViolation is returned by repositories when a store-level unique constraint rejects a write.
// Services decide whether to retry (identifier generation) or surface a ConflictError.
type UniqueViolation struct {
	Constraint string
}

func (e UniqueViolation) Error() string {
	return "unique constraint violated: " + e.Constraint
}

func IsUniqueViolation(err error, constraint ...string) bool {
	var uv *UniqueViolation
	if !errors.As(err, &uv) {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if uv.Constraint == c {
			return true
		}
	}
	return false
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
