package error

import "net/http"

// UnauthorizedError is returned when an upstream rejects the caller's token.
type UnauthorizedError string

func (err UnauthorizedError) Error() string {
	return string(err)
}

func (err UnauthorizedError) ErrCode() string {
	return "UNAUTHORIZED"
}

func (err UnauthorizedError) StatusCode() int {
	return http.StatusUnauthorized
}

type PaymentRequiredError string

func (err PaymentRequiredError) Error() string {
	return string(err)
}

func (err PaymentRequiredError) ErrCode() string {
	return "PAYMENT_REQUIRED"
}

func (err PaymentRequiredError) StatusCode() int {
	return http.StatusPaymentRequired
}
