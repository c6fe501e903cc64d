package error

import (
	"fmt"
	"net/http"
)

// Upstream error codes shared by the campus integrations.
const (
	CodeNoToken      = "NO_TOKEN"
	CodeAuthInvalid  = "AUTH_INVALID"
	CodeAPIError     = "API_ERROR"
	CodeNetworkError = "NETWORK_ERROR"
)

// UpstreamError reports a failed call to an external API.
type UpstreamError struct {
	Service string `json:"service"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Err     error  `json:"-"`
}

func (err *UpstreamError) Error() string {
	if err.Status > 0 {
		return fmt.Sprintf("%s: %s (%d): %s", err.Service, err.Code, err.Status, err.Message)
	}
	return fmt.Sprintf("%s: %s: %s", err.Service, err.Code, err.Message)
}

func (err *UpstreamError) Unwrap() error {
	return err.Err
}

func (err *UpstreamError) ErrCode() string {
	return err.Code
}

func (err *UpstreamError) StatusCode() int {
	switch err.Code {
	case CodeNoToken, CodeAuthInvalid:
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}
