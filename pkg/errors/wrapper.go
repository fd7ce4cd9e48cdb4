package errors

import (
	"fmt"
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WrapWithType wraps an error with a specific error type
func WrapWithType(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapInput wraps a parameter file error
func WrapInput(err error, message string) *AppError {
	return WrapWithType(err, ErrorTypeInput, ErrInput.Code, message)
}

// WrapAPIResponse wraps a decode failure on a Circle response
func WrapAPIResponse(err error, operation string) *AppError {
	appErr := WrapWithType(err, ErrorTypeAPIResponse, ErrAPIResponse.Code, "Failed to decode API response")
	appErr.WithDetail("operation", operation)
	return appErr
}

// WrapExternal wraps an external service error
func WrapExternal(err error, service, message string) *AppError {
	appErr := WrapWithType(err, ErrorTypeExternal, ErrExternalService.Code, message)
	appErr.WithDetail("service", service)
	return appErr
}

// WrapTransferCreation wraps a rejected transfer, keeping the HTTP status Circle returned
func WrapTransferCreation(err error, statusCode int) *AppError {
	appErr := WrapWithType(err, ErrorTypeTransferCreation, ErrTransferCreation.Code, "Circle rejected the transfer")
	appErr.StatusCode = statusCode
	return appErr
}

// WrapCanceled wraps a context error raised while an environment was pending or running
func WrapCanceled(err error, environment string) *AppError {
	appErr := WrapWithType(err, ErrorTypeCanceled, ErrCanceled.Code, fmt.Sprintf("run canceled in %s environment", environment))
	appErr.WithDetail("environment", environment)
	return appErr
}
