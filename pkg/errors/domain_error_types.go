package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DomainErrorType is the category of a rule the engine enforces
type DomainErrorType string

const (
	// DomainValidationError indicates input validation failure
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainBusinessRuleError indicates a business rule violation
	DomainBusinessRuleError DomainErrorType = "BUSINESS_RULE_ERROR"

	// DomainNotFoundError indicates a resource was not found
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainInfrastructureError indicates an infrastructure-level failure
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"

	// DomainAuthenticationError indicates authentication failure
	DomainAuthenticationError DomainErrorType = "AUTHENTICATION_ERROR"
)

// Error codes for the hierarchy engine
const (
	CodeNodeNotFound       = "NODE_NOT_FOUND"
	CodeInvalidDestination = "INVALID_DESTINATION"
	CodeCycleDetected      = "CYCLE_DETECTED"
	CodeSourceUnavailable  = "SOURCE_UNAVAILABLE"
	CodeGroupNotEmpty      = "GROUP_NOT_EMPTY"
	CodeAuthRequired       = "AUTHENTICATION_REQUIRED"
)

// DomainError is a failure of an engine rule or of a snippet source. Type
// decides the HTTP status; Code names the rule.
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		Retryable:  false,
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// WithRetryable sets whether the error is retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// Is reports a match on type and code, so fresh instances built by the
// constructors below match the sentinels with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return http.StatusBadRequest
	case DomainBusinessRuleError:
		return http.StatusUnprocessableEntity
	case DomainNotFoundError:
		return http.StatusNotFound
	case DomainAuthenticationError:
		return http.StatusUnauthorized
	case DomainInfrastructureError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is. Never attach details to these; use the
// constructors, which return fresh instances.
var (
	ErrInvalidDestination = NewDomainError(
		DomainBusinessRuleError,
		CodeInvalidDestination,
		"The destination is not a valid group for this node",
	)

	ErrCycleDetected = NewDomainError(
		DomainBusinessRuleError,
		CodeCycleDetected,
		"A cycle was detected in the stored hierarchy",
	)

	ErrSourceUnavailable = NewDomainError(
		DomainInfrastructureError,
		CodeSourceUnavailable,
		"The snippet source could not be reached",
	).WithRetryable(true)

	ErrGroupNotEmpty = NewDomainError(
		DomainBusinessRuleError,
		CodeGroupNotEmpty,
		"The group still contains items",
	)

	ErrAuthenticationRequired = NewDomainError(
		DomainAuthenticationError,
		CodeAuthRequired,
		"Sign in to access remote snippets",
	)
)

// NewNodeNotFoundError reports a missing node
func NewNodeNotFoundError(ref string) *DomainError {
	return NewDomainError(DomainNotFoundError, CodeNodeNotFound, "The requested node does not exist").
		WithDetail("node", ref)
}

// NewInvalidDestinationError reports a move to a group outside the node's plan
func NewInvalidDestinationError(nodeID, destinationID string) *DomainError {
	return NewDomainError(DomainBusinessRuleError, CodeInvalidDestination,
		fmt.Sprintf("cannot move %s into %s", nodeID, destinationID)).
		WithDetail("node_id", nodeID).
		WithDetail("destination_id", destinationID)
}

// NewCycleDetectedError reports a node whose ancestry loops or exceeds the depth bound
func NewCycleDetectedError(provenance, nodeID string) *DomainError {
	return NewDomainError(DomainBusinessRuleError, CodeCycleDetected,
		fmt.Sprintf("cycle detected at %s:%s", provenance, nodeID)).
		WithDetail("provenance", provenance).
		WithDetail("node_id", nodeID)
}

// NewSourceUnavailableError wraps a failure of one backing store
func NewSourceUnavailableError(provenance string, cause error) *DomainError {
	return NewDomainError(DomainInfrastructureError, CodeSourceUnavailable,
		fmt.Sprintf("%s source unavailable", provenance)).
		WithDetail("provenance", provenance).
		WithRetryable(true).
		WithCause(cause)
}

// NewGroupNotEmptyError reports a delete refused by the delete policy
func NewGroupNotEmptyError(nodeID string, children int) *DomainError {
	return NewDomainError(DomainBusinessRuleError, CodeGroupNotEmpty, "The group still contains items").
		WithDetail("node_id", nodeID).
		WithDetail("children", children)
}

// NewAuthenticationRequiredError reports remote access without a signed-in user
func NewAuthenticationRequiredError() *DomainError {
	return NewDomainError(DomainAuthenticationError, CodeAuthRequired, "Sign in to access remote snippets")
}

// GetDomainError extracts a DomainError from an error chain
func GetDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// IsInvalidDestination reports whether err is an invalid destination error
func IsInvalidDestination(err error) bool {
	return errors.Is(err, ErrInvalidDestination)
}

// IsCycleDetected reports whether err is a cycle detection error
func IsCycleDetected(err error) bool {
	return errors.Is(err, ErrCycleDetected)
}

// IsSourceUnavailable reports whether err is a source unavailable error
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsValidationError reports whether err carries validation failures
func IsValidationError(err error) bool {
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	if de := GetDomainError(err); de != nil && de.Type == DomainValidationError {
		return true
	}
	return IsType(err, ErrorTypeValidation)
}

// ValidationErrors accumulates every violated rule of one write
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// AddRule adds a validation error tagged with the violated rule code
func (v *ValidationErrors) AddRule(field, code, message string) {
	err := NewDomainError(DomainValidationError, code, message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Codes lists the rule codes in the order they were recorded
func (v *ValidationErrors) Codes() []string {
	codes := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		codes[i] = err.Code
	}
	return codes
}

// Messages lists the human readable messages in the order they were recorded
func (v *ValidationErrors) Messages() []string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return messages
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(v.Messages(), "; "))
}

// ToMap converts validation errors to a map for JSON serialization
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}
		result[field] = append(result[field], err.Message)
	}

	return result
}
