package error

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenericErrors(t *testing.T) {
	cases := []struct {
		err    GenericError
		code   string
		status int
	}{
		{NotFoundError("x"), "NOT_FOUND_ERROR", http.StatusNotFound},
		{ValidationError("x"), "VALIDATION_ERROR", http.StatusBadRequest},
		{InternalServerError("x"), "INTERNAL_SERVER_ERROR", http.StatusInternalServerError},
		{UnauthorizedError("x"), "UNAUTHORIZED", http.StatusUnauthorized},
		{PaymentRequiredError("x"), "PAYMENT_REQUIRED", http.StatusPaymentRequired},
		{&UpstreamError{Code: CodeAuthInvalid}, CodeAuthInvalid, http.StatusUnauthorized},
		{&UpstreamError{Code: CodeAPIError, Status: 500}, CodeAPIError, http.StatusBadGateway},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.ErrCode())
		assert.Equal(t, tc.status, tc.err.StatusCode())
	}
}

func TestUpstreamError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("schedule: %w", &UpstreamError{Service: "lhu", Code: CodeNetworkError, Message: cause.Error(), Err: cause})

	var up *UpstreamError
	assert.True(t, errors.As(err, &up))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "lhu: NETWORK_ERROR: dial tcp: refused", up.Error())
}
