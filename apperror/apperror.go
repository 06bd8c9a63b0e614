package apperror

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrAuth       = errors.New("authentication error")
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrRead       = errors.New("read error")
	ErrWrite      = errors.New("write error")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

type AppError struct {
	Err     error  // kind, one of the sentinels above
	Message string // human-readable message
	Field   string // optional: form field causing the error
	Cause   error  // optional: underlying backend error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the backend cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func Auth(message string) *AppError {
	return &AppError{Err: ErrAuth, Message: message}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Field: field}
}

func NotFound(message string) *AppError {
	return &AppError{Err: ErrNotFound, Message: message}
}

func Read(message string, cause error) *AppError {
	return &AppError{Err: ErrRead, Message: message, Cause: cause}
}

func Write(message string, cause error) *AppError {
	return &AppError{Err: ErrWrite, Message: message, Cause: cause}
}

// Forbidden returns an AppError indicating the caller lacks permission.
func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Err: ErrConflict, Message: message}
}

func Conflictf(format string, args ...any) *AppError {
	return Conflict(fmt.Sprintf(format, args...))
}

// Message returns the user-facing message of err. Errors that are not
// AppErrors are reported generically so backend details do not leak.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong"
}

// Rule maps a failed struct tag, keyed "Field.tag", to a form error.
type Rule struct {
	Key     string
	Field   string
	Message string
}

// FromValidation turns the result of a struct validation into a single
// validation error. When several tags fail, the first matching rule in
// rules wins, so rules also fix the order in which problems are reported.
func FromValidation(err error, rules []Rule) error {
	if err == nil {
		return nil
	}
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return ValidationFailed("", "Invalid input")
	}

	failed := make(map[string]bool, len(failures))
	for _, fe := range failures {
		failed[fe.Field()+"."+fe.Tag()] = true
	}
	for _, r := range rules {
		if failed[r.Key] {
			return ValidationFailed(r.Field, r.Message)
		}
	}
	fe := failures[0]
	return ValidationFailed(fe.Field(), fmt.Sprintf("Invalid %s", fe.Field()))
}
