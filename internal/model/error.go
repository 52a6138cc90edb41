package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeAssignmentNotFound = "ASSIGNMENT_NOT_FOUND"
	ErrCodeDriverNotFound     = "DRIVER_NOT_FOUND"
	ErrCodePersistence        = "PERSISTENCE_FAILED"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeDriverUnavailable  = "DRIVER_UNAVAILABLE"
	ErrCodeAssignmentExists   = "ASSIGNMENT_EXISTS"
	ErrCodeNotDeliveryOrder   = "NOT_DELIVERY_ORDER"
	ErrCodeEmptyMessage       = "EMPTY_MESSAGE"
	ErrCodeUnknownBucket      = "UNKNOWN_BUCKET"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that errors.Is works across
// instances created with different messages.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// ValidationError creates a validation failure with a specific message.
func ValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// Common domain errors
var (
	ErrValidation         = NewDomainError(ErrCodeValidation, "Request failed validation")
	ErrOrderNotFound      = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrAssignmentNotFound = NewDomainError(ErrCodeAssignmentNotFound, "Order has no delivery assignment")
	ErrDriverNotFound     = NewDomainError(ErrCodeDriverNotFound, "Driver not found")
	ErrPersistence        = NewDomainError(ErrCodePersistence, "Could not reach the order store")
	ErrInvalidTransition  = NewDomainError(ErrCodeInvalidTransition, "Status change is not allowed from the current state")
	ErrDriverUnavailable  = NewDomainError(ErrCodeDriverUnavailable, "Driver is not available")
	ErrAssignmentExists   = NewDomainError(ErrCodeAssignmentExists, "Order already has a delivery assignment")
	ErrNotDeliveryOrder   = NewDomainError(ErrCodeNotDeliveryOrder, "Only delivery orders can be assigned a driver")
	ErrEmptyMessage       = NewDomainError(ErrCodeEmptyMessage, "Message text must not be empty")
	ErrUnknownBucket      = NewDomainError(ErrCodeUnknownBucket, "Unknown storage bucket")
	ErrUnauthorised       = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrForbidden          = NewDomainError(ErrCodeForbidden, "Not allowed for this role")
)
