package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConfiguration represents missing or empty credentials and settings
	ErrorTypeConfiguration ErrorType = "configuration"

	// ErrorTypeInput represents an unreadable or invalid test parameter file
	ErrorTypeInput ErrorType = "input"

	// ErrorTypeRecipientNotFound represents a lookup that matched no recipient
	ErrorTypeRecipientNotFound ErrorType = "recipient_not_found"

	// ErrorTypeTransferCreation represents a transfer rejected by Circle
	ErrorTypeTransferCreation ErrorType = "transfer_creation"

	// ErrorTypeAPIResponse represents a Circle response that does not match its schema
	ErrorTypeAPIResponse ErrorType = "api_response"

	// ErrorTypeExternal represents transport failures and 5xx responses
	ErrorTypeExternal ErrorType = "external"

	// ErrorTypeCanceled represents a run interrupted by its context
	ErrorTypeCanceled ErrorType = "canceled"

	// ErrorTypeInternal represents everything else
	ErrorTypeInternal ErrorType = "internal"
)

// AppError represents an application error with additional context
type AppError struct {
	Type       ErrorType         `json:"type"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Err        error             `json:"-"`
	StatusCode int               `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Sentinel instances for errors.Is comparisons
var (
	ErrConfiguration = &AppError{
		Type:    ErrorTypeConfiguration,
		Code:    "CONFIGURATION_ERROR",
		Message: "Configuration is incomplete",
	}

	ErrInput = &AppError{
		Type:    ErrorTypeInput,
		Code:    "INPUT_ERROR",
		Message: "Test parameters are invalid",
	}

	ErrRecipientNotFound = &AppError{
		Type:    ErrorTypeRecipientNotFound,
		Code:    "RECIPIENT_NOT_FOUND",
		Message: "Recipient not found",
	}

	ErrTransferCreation = &AppError{
		Type:    ErrorTypeTransferCreation,
		Code:    "TRANSFER_CREATION_FAILED",
		Message: "Transfer creation failed",
	}

	ErrAPIResponse = &AppError{
		Type:    ErrorTypeAPIResponse,
		Code:    "API_RESPONSE_INVALID",
		Message: "Unexpected API response",
	}

	ErrExternalService = &AppError{
		Type:    ErrorTypeExternal,
		Code:    "EXTERNAL_SERVICE_ERROR",
		Message: "External service error",
	}

	ErrCanceled = &AppError{
		Type:    ErrorTypeCanceled,
		Code:    "RUN_CANCELED",
		Message: "Run canceled",
	}
)

// New creates a new AppError
func New(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// Configuration creates a configuration error
func Configuration(message string) *AppError {
	return New(ErrorTypeConfiguration, ErrConfiguration.Code, message)
}

// Input creates an input error
func Input(message string) *AppError {
	return New(ErrorTypeInput, ErrInput.Code, message)
}

// RecipientNotFound creates a recipient not found error for an address on a chain
func RecipientNotFound(environment, address, chain string) *AppError {
	return New(ErrorTypeRecipientNotFound, ErrRecipientNotFound.Code,
		fmt.Sprintf("destination recipient not found in %s environment", environment)).
		WithDetail("address", address).
		WithDetail("chain", chain)
}

// APIResponse creates an error for a response that failed schema validation
func APIResponse(operation, message string) *AppError {
	return New(ErrorTypeAPIResponse, ErrAPIResponse.Code, message).
		WithDetail("operation", operation)
}

// GetType returns the error type
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetCode returns the error code
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN_ERROR"
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

// IsFatal reports whether err must abort the whole run
func IsFatal(err error) bool {
	switch GetType(err) {
	case ErrorTypeConfiguration, ErrorTypeInput, ErrorTypeCanceled:
		return true
	default:
		return false
	}
}
