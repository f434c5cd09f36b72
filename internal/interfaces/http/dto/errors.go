package dto

import (
	"net/http"
	"strings"
)

// Transport-level error codes. Domain errors keep their own codes
// (NOT_FOUND, INVALID_AMOUNT, ...) and are mapped to HTTP status via
// DomainCodeHTTPStatus below.
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used for request validation failures
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeRequestTooLarge is used when the request body exceeds the limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeRateLimited is used when the rate limit is exceeded
	ErrCodeRateLimited = "RATE_LIMITED"
)

// DomainCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes not listed here fall back to the prefix rules in GetHTTPStatus.
var DomainCodeHTTPStatus = map[string]int{
	// Missing resources -> 404 Not Found
	"NOT_FOUND":             http.StatusNotFound,
	"REFERENCE_NOT_FOUND":   http.StatusNotFound,
	"ALLOCATION_NOT_FOUND":  http.StatusNotFound,
	"INSTALLMENT_NOT_FOUND": http.StatusNotFound,

	// Conflicts -> 409 Conflict
	"ALREADY_EXISTS":         http.StatusConflict,
	"CONCURRENCY_CONFLICT":   http.StatusConflict,
	"OPTIMISTIC_LOCK_FAILED": http.StatusConflict,

	// Business rule violations -> 422 Unprocessable Entity
	"INVALID_STATE":       http.StatusUnprocessableEntity,
	"WRONG_PAYMENT_SHAPE": http.StatusUnprocessableEntity,
	"NOT_A_SPLIT_PAYMENT": http.StatusUnprocessableEntity,
	"ALLOCATION_MISMATCH": http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	"UNSUPPORTED_CURRENCY": http.StatusBadRequest,
	"INVALID_INPUT":        http.StatusBadRequest,
	"BAD_REQUEST":          http.StatusBadRequest,
	"VALIDATION_ERROR":     http.StatusBadRequest,

	// Infrastructure
	"REQUEST_TOO_LARGE": http.StatusRequestEntityTooLarge,
	"RATE_LIMITED":      http.StatusTooManyRequests,
	"INTERNAL_ERROR":    http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for a domain error code.
// INVALID_* codes not explicitly mapped are treated as bad input; any
// remaining unknown code is an internal error.
func GetHTTPStatus(code string) int {
	if status, ok := DomainCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
