// Package apperror defines the typed error taxonomy for the auth engine.
//
// Every public operation on the session orchestrator resolves failures to
// exactly one of the sentinel kinds below. Callers classify with errors.Is
// and read the human-readable message off *AppError via errors.As — the
// raw provider/backend error stays wrapped underneath for logging only.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. One per failure class the UI can meaningfully
// distinguish; everything unrecognised collapses into ErrUnknown.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPhone       = errors.New("invalid phone")
	ErrEmailExists        = errors.New("email already exists")
	ErrPhoneExists        = errors.New("phone already exists")
	ErrNetwork            = errors.New("network error")
	ErrUnknown            = errors.New("unknown error")
	ErrCSRFMismatch       = errors.New("csrf mismatch")
	ErrCallbackInvalid    = errors.New("invalid callback")
	ErrExchangeFailed     = errors.New("exchange failed")
	ErrURLConstruction    = errors.New("url construction failed")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
)

// AppError carries a sentinel kind, a stable human-readable message, and the
// underlying cause. Error() returns the message; Unwrap() exposes both the
// kind (for errors.Is) and the cause (for logging).
type AppError struct {
	Kind    error  // one of the sentinels above
	Message string // human-readable, stable across releases
	Field   string // optional: input field that caused the error
	cause   error  // underlying error, may be nil
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap returns the kind and the cause so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// New builds an AppError of the given kind with a plain message.
func New(kind error, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap builds an AppError of the given kind around an underlying cause.
func Wrap(kind error, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, cause: cause}
}

// Validation builds an invalid-input error attributed to a specific field.
func Validation(kind error, field, message string) *AppError {
	return &AppError{Kind: kind, Message: message, Field: field}
}

// ExchangeFailed builds a token-exchange failure with the given reason.
// The reason ends up in the message so the UI can show why the LinkedIn
// import stopped ("token endpoint returned 502", "missing code", ...).
func ExchangeFailed(reason string, cause error) *AppError {
	return &AppError{
		Kind:    ErrExchangeFailed,
		Message: fmt.Sprintf("profile exchange failed: %s", reason),
		cause:   cause,
	}
}

// NotFound builds a resource-not-found error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// KindOf returns the sentinel kind of err, or ErrUnknown if err carries no
// AppError anywhere in its chain.
func KindOf(err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrUnknown
}

// KindString returns the machine-readable token handlers put in the JSON
// "error" field, e.g. "invalid_credentials" or "csrf_mismatch".
func KindString(err error) string {
	switch KindOf(err) {
	case ErrInvalidCredentials:
		return "invalid_credentials"
	case ErrInvalidEmail:
		return "invalid_email"
	case ErrInvalidPhone:
		return "invalid_phone"
	case ErrEmailExists:
		return "email_already_exists"
	case ErrPhoneExists:
		return "phone_already_exists"
	case ErrNetwork:
		return "network_error"
	case ErrCSRFMismatch:
		return "csrf_mismatch"
	case ErrCallbackInvalid:
		return "callback_invalid"
	case ErrExchangeFailed:
		return "exchange_failed"
	case ErrURLConstruction:
		return "url_construction_failed"
	case ErrNotFound:
		return "not_found"
	case ErrForbidden:
		return "forbidden"
	default:
		return "unknown_error"
	}
}
