package record

import "fmt"

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains the validation errors recorded on a record during
// a failed save.
type ValidationError struct {
	Resource string
	Errors   []FieldError
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return fmt.Sprintf("validation failed for %s", ve.Resource)
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed for %s: %s: %s",
			ve.Resource, ve.Errors[0].Field, ve.Errors[0].Message)
	}
	return fmt.Sprintf("validation failed for %s: %d errors", ve.Resource, len(ve.Errors))
}

// NewValidationError builds a ValidationError from the errors currently
// recorded on the record.
func NewValidationError(r *Record) *ValidationError {
	return &ValidationError{Resource: r.Resource(), Errors: r.Errors()}
}
