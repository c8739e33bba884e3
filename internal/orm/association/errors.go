package association

import (
	"errors"
	"fmt"
)

// errConcatFailed forces the enclosing transaction to roll back when any
// insert in a Concat batch fails validation; the caller sees an aggregated
// false, not this error.
var errConcatFailed = errors.New("concat batch failed")

// errRestricted signals a restrict_with_error cascade; the destruction
// reports failure without an error surfacing to the caller.
var errRestricted = errors.New("destruction restricted")

// TypeMismatchError is raised when a record of the wrong type is passed
// into a mutation. It aborts that mutation call.
type TypeMismatchError struct {
	Relationship string
	Expected     string
	Got          string
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("relationship %s expects %s, got %s", e.Relationship, e.Expected, e.Got)
}

// IsTypeMismatch returns true if the error is a TypeMismatchError.
func IsTypeMismatch(err error) bool {
	var te *TypeMismatchError
	return errors.As(err, &te)
}

// RecordNotSavedError is raised when a creation mutation is attempted
// against an unsaved parent, or by the strict create variant when the new
// member fails validation. The caller must persist the parent (or fix the
// member) first; the operation is not retried.
type RecordNotSavedError struct {
	Resource string
	Op       string
	Err      error
}

// Error implements the error interface.
func (e *RecordNotSavedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s on %s failed: %v", e.Op, e.Resource, e.Err)
	}
	return fmt.Sprintf("cannot %s through an unsaved %s", e.Op, e.Resource)
}

// Unwrap returns the wrapped cause, if any.
func (e *RecordNotSavedError) Unwrap() error { return e.Err }

// IsRecordNotSaved returns true if the error is a RecordNotSavedError.
func IsRecordNotSaved(err error) bool {
	var re *RecordNotSavedError
	return errors.As(err, &re)
}

// DeleteRestrictionError is raised by a restrict_with_exception cascade; it
// blocks the owner's destruction while the collection is non-empty.
type DeleteRestrictionError struct {
	Relationship string
}

// Error implements the error interface.
func (e *DeleteRestrictionError) Error() string {
	return fmt.Sprintf("cannot delete record because of dependent %s", e.Relationship)
}

// IsDeleteRestriction returns true if the error is a DeleteRestrictionError.
func IsDeleteRestriction(err error) bool {
	var de *DeleteRestrictionError
	return errors.As(err, &de)
}
