package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind groups error codes into the categories callers branch on.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindInvariantViolation  Kind = "invariant_violation"
	KindAdjustmentFailed    Kind = "adjustment_failed"
	KindConcurrencyConflict Kind = "concurrency_conflict"
	KindConflict            Kind = "conflict"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindInternal            Kind = "internal"
)

var (
	ErrNotFound            = newKindError(KindNotFound, "NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrUnauthorized        = newKindError(KindUnauthorized, "UNAUTHORIZED", "Unauthorized", http.StatusUnauthorized)
	ErrForbidden           = newKindError(KindForbidden, "FORBIDDEN", "Access denied", http.StatusForbidden)
	ErrBadRequest          = newKindError(KindValidation, "BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrInternalServer      = newKindError(KindInternal, "INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrConflict            = newKindError(KindConflict, "CONFLICT", "Resource conflict", http.StatusConflict)
	ErrValidation          = newKindError(KindValidation, "VALIDATION_ERROR", "Validation failed", http.StatusBadRequest)
	ErrDatabase            = newKindError(KindInternal, "DATABASE_ERROR", "Database error", http.StatusInternalServerError)
	ErrInvariantViolation  = newKindError(KindInvariantViolation, "INVARIANT_VIOLATION", "Operation would break a ledger invariant", http.StatusConflict)
	ErrAdjustmentFailed    = newKindError(KindAdjustmentFailed, "ADJUSTMENT_FAILED", "Adjustment could not be recorded", http.StatusInternalServerError)
	ErrConcurrencyConflict = newKindError(KindConcurrencyConflict, "CONCURRENCY_CONFLICT", "Concurrent update conflict, retry the request", http.StatusConflict)

	ErrOrganizationNotFound = newKindError(KindNotFound, "ORGANIZATION_NOT_FOUND", "Organization not found", http.StatusNotFound)
	ErrOrganizationInactive = newKindError(KindForbidden, "ORGANIZATION_INACTIVE", "Organization is inactive", http.StatusForbidden)
	ErrFundNotFound         = newKindError(KindNotFound, "FUND_NOT_FOUND", "Fund not found", http.StatusNotFound)
	ErrDonorNotFound        = newKindError(KindNotFound, "DONOR_NOT_FOUND", "Donor not found", http.StatusNotFound)
	ErrTransactionNotFound  = newKindError(KindNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found", http.StatusNotFound)
	ErrAdjustmentNotFound   = newKindError(KindNotFound, "ADJUSTMENT_NOT_FOUND", "Adjustment not found", http.StatusNotFound)
)

type AppError struct {
	Kind       Kind
	Code       string
	Message    string
	StatusCode int
	Details    map[string]interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := e.clone()
	if details == nil {
		clone.Details = make(map[string]interface{})
		return clone
	}
	clone.Details = make(map[string]interface{}, len(details))
	for k, v := range details {
		clone.Details[k] = v
	}
	return clone
}

func (e *AppError) WithError(err error) *AppError {
	clone := e.clone()
	clone.Err = err
	return clone
}

func (e *AppError) WithMessage(message string) *AppError {
	clone := e.clone()
	clone.Message = message
	return clone
}

func NewAppError(code, message string, statusCode int) *AppError {
	return newKindError(kindForStatus(statusCode), code, message, statusCode)
}

func WrapError(err error, code, message string, statusCode int) *AppError {
	appErr := NewAppError(code, message, statusCode)
	appErr.Err = err
	return appErr
}

func newKindError(kind Kind, code, message string, statusCode int) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    make(map[string]interface{}),
	}
}

func kindForStatus(statusCode int) Kind {
	switch statusCode {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	default:
		return KindInternal
	}
}

func (e *AppError) clone() *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Details != nil {
		clone.Details = make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			clone.Details[k] = v
		}
	} else {
		clone.Details = make(map[string]interface{})
	}
	return &clone
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}

func FromError(err error) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	if errors.Is(err, context.Canceled) {
		return WrapError(err, "REQUEST_CANCELED", "Request canceled by client", http.StatusRequestTimeout)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, "REQUEST_TIMEOUT", "Request timed out", http.StatusGatewayTimeout)
	}

	return WrapError(err, "UNKNOWN_ERROR", "Unknown error", http.StatusInternalServerError)
}

func NewAuthError(code, message string) *AppError {
	return newKindError(KindUnauthorized, code, message, http.StatusUnauthorized)
}

func NewValidationError(field, message string) *AppError {
	appErr := newKindError(KindValidation, "VALIDATION_ERROR", fmt.Sprintf("%s %s", humanizeField(field), message), http.StatusBadRequest)
	appErr.Details["field"] = field
	return appErr
}

func NewDatabaseError(err error) *AppError {
	return ErrDatabase.WithError(err)
}

func NewNotFoundError(resource string) *AppError {
	return ErrNotFound.
		WithMessage(fmt.Sprintf("%s not found", resource)).
		WithDetails(map[string]interface{}{"resource": resource})
}

func NewConflictError(resource string) *AppError {
	return ErrConflict.
		WithMessage(fmt.Sprintf("%s already exists", resource)).
		WithDetails(map[string]interface{}{"resource": resource})
}

func NewInvariantViolation(message string) *AppError {
	return ErrInvariantViolation.WithMessage(message)
}

func NewConcurrencyConflict(resource string, err error) *AppError {
	return ErrConcurrencyConflict.
		WithDetails(map[string]interface{}{"resource": resource}).
		WithError(err)
}

func ParseValidationErrors(err error) *AppError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return ErrBadRequest.WithError(err)
	}

	fieldErrors := make([]map[string]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fieldErrors = append(fieldErrors, map[string]string{
			"field":   toSnakeCase(fieldErr.Field()),
			"message": translateValidationError(fieldErr),
		})
	}

	return ErrValidation.
		WithMessage("One or more fields are invalid").
		WithDetails(map[string]interface{}{"fields": fieldErrors})
}

func humanizeField(field string) string {
	return strings.ReplaceAll(toSnakeCase(field), "_", " ")
}

func toSnakeCase(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && field[i-1] != '_' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func translateValidationError(fe validator.FieldError) string {
	fieldName := humanizeField(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldName)
	case "email":
		return "invalid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fieldName, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fieldName, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fieldName, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fieldName, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have exactly %s characters", fieldName, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fieldName, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fieldName)
	case "ulid":
		return fmt.Sprintf("%s must be a valid identifier", fieldName)
	case "datetime":
		return fmt.Sprintf("%s must be a valid date", fieldName)
	case "numeric", "decimal":
		return fmt.Sprintf("%s must be numeric", fieldName)
	default:
		return fmt.Sprintf("%s failed '%s' validation", fieldName, fe.Tag())
	}
}
