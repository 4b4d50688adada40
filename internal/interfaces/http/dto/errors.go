package dto

import (
	"net/http"

	"github.com/storefront/backend/internal/domain/shared"
)

// Transport-level error codes. Domain errors keep the code they were raised with.
const (
	// ErrCodeInternal is used for faults that are not domain errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidJSON is used when the body cannot be decoded
	ErrCodeInvalidJSON = "INVALID_JSON"
	// ErrCodeRateLimited is used when the caller exceeded its request budget
	ErrCodeRateLimited = "RATE_LIMITED"
	// ErrCodePayloadTooLarge is used when the body exceeds the configured limit
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	// ErrCodeRequestTimeout is used when a request ran past its deadline
	ErrCodeRequestTimeout = "REQUEST_TIMEOUT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Input errors -> 400 Bad Request
	shared.CodeValidation: http.StatusBadRequest,
	ErrCodeBadRequest:     http.StatusBadRequest,
	ErrCodeInvalidJSON:    http.StatusBadRequest,

	// Auth errors
	shared.CodeUnauthorized: http.StatusUnauthorized,
	shared.CodeForbidden:    http.StatusForbidden,

	// Resource errors
	shared.CodeNotFound:            http.StatusNotFound,
	shared.CodeProductNotFound:     http.StatusNotFound,
	shared.CodeAlreadyExists:       http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeCheckoutInProgress:  http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	shared.CodeInsufficientStock:       http.StatusUnprocessableEntity,
	shared.CodeInvalidReservationState: http.StatusUnprocessableEntity,
	shared.CodeInvalidOrderTransition:  http.StatusUnprocessableEntity,
	shared.CodeInvalidState:            http.StatusUnprocessableEntity,
	shared.CodeCouponInvalid:           http.StatusUnprocessableEntity,
	shared.CodeInsufficientPoints:      http.StatusUnprocessableEntity,

	// Checkout faults
	shared.CodeCheckoutTimeout: http.StatusGatewayTimeout,
	shared.CodeCheckoutFailed:  http.StatusInternalServerError,

	// Transport
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRequestTimeout:  http.StatusGatewayTimeout,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
