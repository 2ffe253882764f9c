package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"

	// Draw outcomes
	ErrCodePoolExhausted ErrorCode = "POOL_EXHAUSTED"

	// Remote collaborators
	ErrCodeDependency  ErrorCode = "DEPENDENCY_ERROR"
	ErrCodeDatabase    ErrorCode = "DATABASE_ERROR"
	ErrCodeCache       ErrorCode = "CACHE_ERROR"
	ErrCodeTelegramAPI ErrorCode = "TELEGRAM_API_ERROR"
)

// AppError is the typed error carried from services to the HTTP layer.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Context   map[string]string      `json:"context,omitempty"`
	Stack     []string               `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound
}

func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation || e.Code == ErrCodeInvalidInput
}

func (e *AppError) IsUnauthorized() bool {
	return e.Code == ErrCodeUnauthorized || e.Code == ErrCodeForbidden
}

// IsInternal reports errors an operator has to look at.
func (e *AppError) IsInternal() bool {
	switch e.Code {
	case ErrCodeInternal, ErrCodeDatabase, ErrCodeCache, ErrCodeDependency, ErrCodeTelegramAPI:
		return true
	}
	return false
}

func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     getStackTrace(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func getStackTrace() []string {
	var stack []string
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if strings.Contains(fn.Name(), "internal/common/errors") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		if len(stack) >= 10 {
			break
		}
	}
	return stack
}

// NewInputError rejects a request before any side effect.
func NewInputError(field, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// NewPoolExhaustedError reports a draw that could not fill every place.
// Nothing is persisted when this is returned.
func NewPoolExhaustedError(filled, required int, stage string, attempts int) *AppError {
	msg := "no eligible users"
	if filled > 0 || stage != "load_population" {
		msg = fmt.Sprintf("could not fill all places: %d of %d filled", filled, required)
	}
	return New(ErrCodePoolExhausted, msg).
		WithDetail("places_filled", filled).
		WithDetail("places_required", required).
		WithDetail("stage", stage).
		WithDetail("attempts", attempts)
}

func NewDependencyError(dependency, operation string, err error) *AppError {
	return Wrap(err, ErrCodeDependency, fmt.Sprintf("%s unavailable during %s", dependency, operation)).
		WithDetail("dependency", dependency).
		WithDetail("operation", operation)
}

func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, fmt.Sprintf("database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewTelegramAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTelegramAPI, fmt.Sprintf("telegram api operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("forbidden: %s", reason)).
		WithDetail("reason", reason)
}

func NewConflictError(resource, reason string) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf("conflict with %s: %s", resource, reason)).
		WithDetail("resource", resource).
		WithDetail("reason", reason)
}

// AsAppError finds an AppError anywhere in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err == nil || !errors.As(err, &appErr) {
		return nil, false
	}
	return appErr, true
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
