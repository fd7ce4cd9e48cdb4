package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	cause := errors.New("no such file")
	err := WrapInput(cause, "cannot read parameter file").WithDetail("path", "test-params.json")

	assert.Equal(t, "input: cannot read parameter file: no such file", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInput)
	assert.NotErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, "test-params.json", err.Details["path"])
}

func TestIsTypeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("build sandbox transfer service: %w", Configuration("API key for sandbox environment is not set"))

	assert.True(t, IsType(err, ErrorTypeConfiguration))
	assert.Equal(t, ErrorTypeConfiguration, GetType(err))
	assert.Equal(t, ErrConfiguration.Code, GetCode(err))
	assert.Equal(t, ErrorTypeInternal, GetType(errors.New("plain")))
	assert.Equal(t, "UNKNOWN_ERROR", GetCode(errors.New("plain")))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err   error
		fatal bool
	}{
		{err: Configuration("missing key"), fatal: true},
		{err: Input("bad amount"), fatal: true},
		{err: RecipientNotFound("sandbox", "0xabc", "ETH"), fatal: false},
		{err: WrapTransferCreation(errors.New("rejected"), http.StatusBadRequest), fatal: false},
		{err: APIResponse("create_business_transfer", "transfer has no id"), fatal: false},
		{err: WrapExternal(errors.New("refused"), "circle", "HTTP request failed"), fatal: false},
		{err: WrapCanceled(context.Canceled, "production"), fatal: true},
		{err: errors.New("plain"), fatal: false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestWrapCanceled(t *testing.T) {
	err := WrapCanceled(fmt.Errorf("signal: %w", context.Canceled), "sandbox")

	assert.Equal(t, ErrorTypeCanceled, err.Type)
	assert.Equal(t, "sandbox", err.Details["environment"])
	assert.True(t, errors.Is(err, ErrCanceled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Contains(t, err.Error(), "run canceled in sandbox environment")
}

func TestRecipientNotFound(t *testing.T) {
	err := RecipientNotFound("production", "0xdef", "SOL")

	assert.Equal(t, ErrorTypeRecipientNotFound, err.Type)
	assert.Contains(t, err.Error(), "production")
	assert.Equal(t, "0xdef", err.Details["address"])
	assert.Equal(t, "SOL", err.Details["chain"])
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{status: http.StatusCreated, want: ""},
		{status: http.StatusBadRequest, want: ErrorTypeTransferCreation},
		{status: http.StatusConflict, want: ErrorTypeTransferCreation},
		{status: http.StatusUnauthorized, want: ErrorTypeConfiguration},
		{status: http.StatusForbidden, want: ErrorTypeConfiguration},
		{status: http.StatusInternalServerError, want: ErrorTypeExternal},
		{status: http.StatusBadGateway, want: ErrorTypeExternal},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyHTTPError(tt.status))
		})
	}
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorType(""), ClassifyError(nil))
	assert.Equal(t, ErrorTypeExternal, ClassifyError(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.Equal(t, ErrorTypeExternal, ClassifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, ErrorTypeTransferCreation, ClassifyError(WrapTransferCreation(errors.New("x"), 400)))
	assert.Equal(t, ErrorTypeInternal, ClassifyError(errors.New("x")))
}

func TestIsCircuitBreakerError(t *testing.T) {
	assert.True(t, IsCircuitBreakerError(WrapExternal(errors.New("503"), "circle", "unavailable")))
	assert.True(t, IsCircuitBreakerError(errors.New("unexpected")))
	assert.False(t, IsCircuitBreakerError(WrapTransferCreation(errors.New("rejected"), 400)))
	assert.False(t, IsCircuitBreakerError(APIResponse("list_recipient_addresses", "no data")))
	require.False(t, IsCircuitBreakerError(nil))
}
