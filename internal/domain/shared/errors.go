package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
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
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Error codes for the billing core. INVARIANT_VIOLATION is the fatal class:
// a money sum failed to reconcile after a write. It must be alerted on and
// the enclosing transaction rolled back, never swallowed.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeNotFound           = "NOT_FOUND"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
)

// NewValidationError creates a user-correctable input error
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewConflictError creates a stale-state conflict error (retry with fresh data)
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// NewNotFoundError creates a missing-or-cross-tenant resource error
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// NewInvariantViolation creates a fatal financial-integrity error
func NewInvariantViolation(message string) *DomainError {
	return NewDomainError(CodeInvariantViolation, message)
}

// IsInvariantViolation reports whether err is the fatal invariant class
func IsInvariantViolation(err error) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == CodeInvariantViolation
}
