package domain

import (
	"errors"
	"fmt"
	"time"
)

// ServiceError represents a standardized error response at the API boundary.
type ServiceError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrConfiguration  = "CONFIGURATION_ERROR"
	ErrInference      = "INFERENCE_ERROR"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
	ErrValidation     = "VALIDATION_ERROR"
)

// Fatal, caller-visible conditions. Everything else in the pipeline degrades
// into a still-valid result instead of erroring.
var (
	// ErrMissingRangeTable indicates the reference-range table is absent
	// entirely, which leaves the assessor unable to classify anything.
	ErrMissingRangeTable = errors.New("reference range table is missing or empty")

	// ErrEmptyReportText indicates the caller supplied no analyzable text.
	ErrEmptyReportText = errors.New("report text is empty")
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewServiceError creates a new ServiceError with timestamp
func NewServiceError(code, message, details, requestID string) *ServiceError {
	return &ServiceError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
