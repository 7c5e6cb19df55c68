package service

import (
	"errors"
	"fmt"
	"strings"

	"rentcars/internal/domain"
	"rentcars/internal/rules"

	"github.com/go-playground/validator/v10"
)

// Kind classifies a failure for callers. Transport layers map it to status codes.
type Kind string

const (
	KindInvalidInput   Kind = "InvalidInputError"
	KindInvalidDate    Kind = "InvalidDateError"
	KindInvalidRange   Kind = "InvalidRangeError"
	KindCarNotFound    Kind = "CarNotFoundError"
	KindCarUnavailable Kind = "CarUnavailableError"
	KindOverlap        Kind = "OverlapError"
	KindUserNotFound   Kind = "UserNotFoundError"
	KindCarInUse       Kind = "CarInUseError"
	KindPersistence    Kind = "PersistenceError"
)

// IsClientError reports whether the caller can fix the failure by changing the request.
func (k Kind) IsClientError() bool {
	switch k {
	case KindInvalidInput, KindInvalidDate, KindInvalidRange,
		KindCarNotFound, KindCarUnavailable, KindOverlap, KindUserNotFound, KindCarInUse:
		return true
	default:
		return false
	}
}

// Error is returned by every service operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindPersistence {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func invalidInput(message string) *Error {
	return newError(KindInvalidInput, message, nil)
}

// KindOf classifies any error. nil yields an empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return wrap(err).Kind
}

// IsClientError is shorthand for KindOf(err).IsClientError().
func IsClientError(err error) bool {
	return KindOf(err).IsClientError()
}

// ValidationError converts validator output into an InvalidInputError.
func ValidationError(err error) error {
	return wrap(err)
}

// wrap turns a rules, storage or validation error into an *Error.
func wrap(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}

	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, rules.ErrInvalidDate):
		return newError(KindInvalidDate, "dates must be valid YYYY-MM-DD calendar dates", err)
	case errors.Is(err, rules.ErrInvalidRange):
		return newError(KindInvalidRange, "end date must not be before start date", err)
	case errors.Is(err, domain.ErrCarNotFound):
		return newError(KindCarNotFound, "car not found", err)
	case errors.Is(err, domain.ErrCarUnavailable):
		return newError(KindCarUnavailable, "car is not available", err)
	case errors.Is(err, domain.ErrOverlap):
		return newError(KindOverlap, "car is already reserved for these dates", err)
	case errors.Is(err, domain.ErrUserNotFound):
		return newError(KindUserNotFound, "user not found", err)
	case errors.Is(err, domain.ErrCarInUse):
		return newError(KindCarInUse, "car has reservations and cannot be deleted", err)
	case errors.As(err, &validationErrs):
		return newError(KindInvalidInput, describeValidation(validationErrs), err)
	default:
		return newError(KindPersistence, "storage operation failed", err)
	}
}

func describeValidation(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "gte":
			parts = append(parts, fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
