// Package apperr defines the error taxonomy shared by every layer.
//
// Each failure falls into one of five kinds. The kind is a sentinel error
// so callers branch with errors.Is:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
//
// The storage layer converts driver errors into these kinds; the session
// and HTTP layers turn them into user-visible messages.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrConnection: the store cannot be opened or reached. Fatal to the
	// current interaction.
	ErrConnection = errors.New("storage unavailable")

	// ErrConstraint: a uniqueness or integrity rule was violated.
	ErrConstraint = errors.New("constraint violation")

	// ErrValidation: user input failed validation; nothing was written.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound: the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAuth: unknown user or wrong password/role. Deliberately generic.
	ErrAuth = errors.New("incorrect username, role or password")
)

// Error carries a kind, a user-facing message and the underlying cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Kind != nil:
		return e.Kind.Error()
	default:
		return "unknown error"
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func newError(kind error, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Connection(cause error, format string, args ...any) error {
	return newError(ErrConnection, cause, format, args...)
}

func Constraint(cause error, format string, args ...any) error {
	return newError(ErrConstraint, cause, format, args...)
}

func Validation(format string, args ...any) error {
	return newError(ErrValidation, nil, format, args...)
}

func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, nil, format, args...)
}

// Auth returns the generic authentication failure. It never says which
// check failed.
func Auth() error {
	return &Error{Kind: ErrAuth}
}

// FromValidator converts validator.ValidationErrors into an ErrValidation
// with one plain-English sentence per failing field. Any other error is
// wrapped as-is.
func FromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(ErrValidation, err, "%s", err.Error())
	}
	return newError(ErrValidation, err, "%s", Describe(verrs))
}

// Describe turns each FieldError into a sentence and joins them with ", ".
func Describe(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", e.Field()))
		case "len":
			msgs = append(msgs, fmt.Sprintf("field %s must be exactly %s characters", e.Field(), e.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of: %s", e.Field(), e.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s", e.Field(), e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}

// Recoverable reports whether err is one of the kinds that is shown to the
// user as a message while the session carries on.
func Recoverable(err error) bool {
	return errors.Is(err, ErrConstraint) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAuth)
}
