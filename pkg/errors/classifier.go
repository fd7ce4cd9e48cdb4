package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ClassifyError classifies an error returned by the Circle client
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorTypeExternal
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorTypeExternal
	}

	return ErrorTypeInternal
}

// ClassifyHTTPError classifies a Circle HTTP status code
func ClassifyHTTPError(statusCode int) ErrorType {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return ""
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorTypeConfiguration
	case statusCode >= 400 && statusCode < 500:
		return ErrorTypeTransferCreation
	case statusCode >= 500:
		return ErrorTypeExternal
	default:
		return ErrorTypeInternal
	}
}

// IsCircuitBreakerError determines if an error should count against the circuit breaker
func IsCircuitBreakerError(err error) bool {
	switch ClassifyError(err) {
	case ErrorTypeExternal, ErrorTypeInternal:
		return true
	default:
		return false
	}
}
