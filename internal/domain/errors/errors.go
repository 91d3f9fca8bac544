package errors

import (
	"github.com/cockroachdb/errors"
)

// Kind classifies errors for callers that need to map them to responses.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
	KindInfrastructure Kind = "infrastructure"
)

// Kind sentinels. Concrete errors are marked with one of these.
var (
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrInfrastructure = errors.New("infrastructure failure")
)

var (
	ErrInvalidTransition   = errors.Mark(errors.New("invalid status transition"), ErrValidation)
	ErrUnknownStatus       = errors.Mark(errors.New("unknown order status"), ErrValidation)
	ErrAlreadyPaid         = errors.Mark(errors.New("order already paid"), ErrConflict)
	ErrDuplicateCompletion = errors.Mark(errors.New("order already manually completed"), ErrConflict)
	ErrAlreadyExists       = errors.Mark(errors.New("already exists"), ErrConflict)
	ErrInvalidCredentials  = errors.Mark(errors.New("invalid credentials"), ErrForbidden)

	// Webhook rejections. These are the only webhook outcomes surfaced to the provider.
	ErrInvalidSignature = errors.Mark(errors.New("invalid webhook signature"), ErrValidation)
	ErrStaleEvent       = errors.Mark(errors.New("webhook timestamp outside replay window"), ErrValidation)
)

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

// Conflictf builds a conflict error with a formatted message.
func Conflictf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConflict)
}

// NotFoundf builds a not-found error with a formatted message.
func NotFoundf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

// Forbiddenf builds an authorization error with a formatted message.
func Forbiddenf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrForbidden)
}

// Infrastructure marks err as a transient infrastructure failure.
func Infrastructure(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrInfrastructure)
}

// KindOf reports the taxonomy kind of err. Unclassified errors are infrastructure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindInfrastructure
	}
}

// Is reports whether err matches target, honoring marks.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Wrapf annotates err while keeping its marks.
func Wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}
