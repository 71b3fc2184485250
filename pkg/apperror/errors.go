package apperror

import (
	"errors"
	"net/http"
)

// Stable error codes returned to clients alongside the HTTP status
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodePriceMismatch      = "PRICE_MISMATCH"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeStaleCartState     = "STALE_CART_STATE"
	CodeEmptyCart          = "EMPTY_CART"
	CodeMissingCustomerRef = "MISSING_CUSTOMER_REF"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code      int          `json:"code"`
	ErrorCode string       `json:"error_code"`
	Message   string       `json:"message"`
	Errors    []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Is matches errors by their stable code, so errors.Is(err, ErrInsufficientStock)
// holds for any insufficient stock error regardless of its message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.ErrorCode != "" && t.ErrorCode == e.ErrorCode
}

// Common errors
var (
	ErrNotFound           = &AppError{Code: http.StatusNotFound, ErrorCode: CodeNotFound, Message: "Resource not found"}
	ErrUnauthorized       = &AppError{Code: http.StatusUnauthorized, ErrorCode: CodeUnauthorized, Message: "Unauthorized"}
	ErrForbidden          = &AppError{Code: http.StatusForbidden, ErrorCode: CodeForbidden, Message: "Forbidden"}
	ErrInternalServer     = &AppError{Code: http.StatusInternalServerError, ErrorCode: CodeInternal, Message: "Internal server error"}
	ErrInvalidCredentials = &AppError{Code: http.StatusUnauthorized, ErrorCode: CodeUnauthorized, Message: "Invalid email or password"}

	ErrValidation         = &AppError{Code: http.StatusBadRequest, ErrorCode: CodeValidation, Message: "Validation failed"}
	ErrPriceMismatch      = &AppError{Code: http.StatusBadRequest, ErrorCode: CodePriceMismatch, Message: "Price no longer matches the catalog"}
	ErrInsufficientStock  = &AppError{Code: http.StatusConflict, ErrorCode: CodeInsufficientStock, Message: "Insufficient stock"}
	ErrStaleCartState     = &AppError{Code: http.StatusConflict, ErrorCode: CodeStaleCartState, Message: "Stock changed since the items were added"}
	ErrEmptyCart          = &AppError{Code: http.StatusBadRequest, ErrorCode: CodeEmptyCart, Message: "Cart is empty"}
	ErrMissingCustomerRef = &AppError{Code: http.StatusBadRequest, ErrorCode: CodeMissingCustomerRef, Message: "Customer reference is required"}
)

// NewAppError creates a new application error
func NewAppError(code int, errorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		ErrorCode: errorCode,
		Message:   message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, fieldErrors ...FieldError) *AppError {
	return &AppError{
		Code:      http.StatusBadRequest,
		ErrorCode: CodeValidation,
		Message:   message,
		Errors:    fieldErrors,
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:      http.StatusNotFound,
		ErrorCode: CodeNotFound,
		Message:   resource + " not found",
	}
}

// NewInsufficientStockError reports a reservation that would exceed availability
func NewInsufficientStockError(message string) *AppError {
	return &AppError{
		Code:      http.StatusConflict,
		ErrorCode: CodeInsufficientStock,
		Message:   message,
	}
}

// NewStaleCartError reports cart lines whose backing stock shrank before checkout
func NewStaleCartError(message string) *AppError {
	return &AppError{
		Code:      http.StatusConflict,
		ErrorCode: CodeStaleCartState,
		Message:   message,
	}
}

// NewInternalError wraps a storage or transport failure
func NewInternalError(message string) *AppError {
	return &AppError{
		Code:      http.StatusInternalServerError,
		ErrorCode: CodeInternal,
		Message:   message,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:      http.StatusInternalServerError,
		ErrorCode: CodeInternal,
		Message:   err.Error(),
	}
}
