package domain

import (
	"errors"
	"fmt"
)

// Quote workflow errors. Everything that is the operator's fault wraps
// ErrValidation so callers can report it verbatim.
var (
	ErrValidation = errors.New("validation failed")

	ErrInvalidCertificateType = fmt.Errorf("%w: unknown certificate type", ErrValidation)
	ErrInvalidPostcode        = fmt.Errorf("%w: postcode must be exactly 4 digits", ErrValidation)
	ErrUnknownContactType     = fmt.Errorf("%w: unknown contact type", ErrValidation)
	ErrInvalidBuildingData    = fmt.Errorf("%w: invalid building data", ErrValidation)
	ErrInvalidPricingInput    = fmt.Errorf("%w: invalid pricing input", ErrValidation)

	// ErrIncompleteLineItem is returned when a priced item lacks one of its four components
	ErrIncompleteLineItem = errors.New("priced line item is incomplete")

	// ErrBuildingNotFound is a definitive miss from the building registry
	ErrBuildingNotFound = errors.New("building not found")

	// ErrExternalLookup covers transport or decoding failures of a lookup provider
	ErrExternalLookup = errors.New("external lookup failed")

	// ErrCounterpartConflict marks a search hit of the wrong counterpart type
	ErrCounterpartConflict = errors.New("counterpart type conflict")

	// ErrSubmissionFailed is returned when the accounting system rejects a quote
	ErrSubmissionFailed = errors.New("quote submission failed")

	// ErrSubmissionNotFound is returned by the audit trail for unknown ids
	ErrSubmissionNotFound = errors.New("submission not found")
)

// ValidationError names the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a field-level validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// MissingTariffError is returned when a tariff key needed by a formula is absent
type MissingTariffError struct {
	Key string
}

func (e *MissingTariffError) Error() string {
	return fmt.Sprintf("missing tariff: %s", e.Key)
}

// MissingFieldError is returned when building or form data lacks a required field
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages maps validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"email":    "Must be a valid email address",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"gte":      "Must be greater than or equal to minimum value",
	"gt":       "Must be greater than minimum value",
	"oneof":    "Must be one of the allowed values",
	"numeric":  "Must be a numeric value",
	"len":      "Must be exactly the specified length",
	"uuid":     "Must be a valid UUID",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeUpstream      = "upstream_error"
	ErrorTypeNotFound      = "not_found"
	ErrorTypeConflict      = "conflict"
	ErrorTypeBadRequest    = "bad_request"
	ErrorTypeUnauthorized  = "unauthorized"
	ErrorTypeRateLimited   = "rate_limited"
	ErrorTypeInternal      = "internal_error"
)
