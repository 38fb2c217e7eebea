package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/eta-consult/quote-api/internal/bexio"
	"github.com/eta-consult/quote-api/internal/catalog"
	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// decodeJSON reads a bounded JSON body into target
func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(target)
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	var fe *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		for _, e := range ve {
			fields[toJSONFieldName(e.Field())] = formatValidationError(e)
		}
	case errors.As(err, &fe):
		fields[fe.Field] = fe.Message
	}

	detail := "One or more fields failed validation"
	if len(fields) == 0 {
		detail = err.Error()
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: detail,
		Errors: fields,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "email":
		return "Must be a valid email address"
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// respondError maps a workflow error to its HTTP status
func respondError(w http.ResponseWriter, err error) {
	var (
		missingTariff *domain.MissingTariffError
		missingField  *domain.MissingFieldError
		apiErr        *bexio.APIError
	)

	switch {
	case errors.Is(err, domain.ErrValidation):
		respondValidationError(w, err)
	case errors.Is(err, domain.ErrSubmissionNotFound), errors.Is(err, domain.ErrBuildingNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &missingTariff), errors.As(err, &missingField), errors.Is(err, domain.ErrIncompleteLineItem):
		respondJSON(w, http.StatusInternalServerError, domain.APIError{
			Type:   domain.ErrorTypeConfiguration,
			Title:  "Configuration Error",
			Status: http.StatusInternalServerError,
			Detail: err.Error(),
		})
	case errors.Is(err, domain.ErrSubmissionFailed), errors.As(err, &apiErr), errors.Is(err, bexio.ErrUnavailable),
		errors.Is(err, domain.ErrExternalLookup), errors.Is(err, domain.ErrCounterpartConflict):
		respondJSON(w, http.StatusBadGateway, domain.APIError{
			Type:   domain.ErrorTypeUpstream,
			Title:  http.StatusText(http.StatusBadGateway),
			Status: http.StatusBadGateway,
			Detail: err.Error(),
		})
	case errors.Is(err, catalog.ErrReadOnly):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		respondWithError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		respondWithError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return domain.ErrorTypeUpstream
	default:
		return domain.ErrorTypeInternal
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}
