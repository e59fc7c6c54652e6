package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeCartNotFound      = "CART_NOT_FOUND"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeEmptySelection    = "EMPTY_SELECTION"
	ErrCodeIllegalTransition = "ILLEGAL_STATUS_TRANSITION"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrProductNotFound   = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrCartNotFound      = NewDomainError(ErrCodeCartNotFound, "Cart not found")
	ErrOrderNotFound     = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidQuantity   = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrEmptySelection    = NewDomainError(ErrCodeEmptySelection, "Order must contain at least one item")
	ErrIllegalTransition = NewDomainError(ErrCodeIllegalTransition, "Requested order status transition is not permitted")
)
