package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/choreo/internal/ir"
)

// RegistrationError is returned when a choreography cannot be registered.
// Nothing from a failed Register or RegisterAll call is kept.
type RegistrationError struct {
	// Code identifies the error category.
	Code RegistrationErrorCode

	// Message is a human-readable description.
	Message string

	// ChoreographyID identifies the rejected definition (may be empty for MISSING_ID).
	ChoreographyID string

	// Path locates the offending step, e.g. "steps[0].onArrive[1]".
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// RegistrationErrorCode categorizes registration errors.
type RegistrationErrorCode string

const (
	// ErrCodeCyclicStepTree indicates a step appears among its own descendants.
	ErrCodeCyclicStepTree RegistrationErrorCode = "CYCLIC_STEP_TREE"

	// ErrCodeDepthExceeded indicates onArrive nesting deeper than the limit.
	ErrCodeDepthExceeded RegistrationErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeTooManySteps indicates a tree with more nodes than the limit.
	ErrCodeTooManySteps RegistrationErrorCode = "TOO_MANY_STEPS"

	// ErrCodeInvalidDuration indicates a negative or non-finite duration.
	ErrCodeInvalidDuration RegistrationErrorCode = "INVALID_DURATION"

	// ErrCodeDuplicateID indicates the id is already registered.
	ErrCodeDuplicateID RegistrationErrorCode = "DUPLICATE_ID"

	// ErrCodeMissingID indicates an empty id.
	ErrCodeMissingID RegistrationErrorCode = "MISSING_ID"

	// ErrCodeMissingSignalType indicates an empty "on".
	ErrCodeMissingSignalType RegistrationErrorCode = "MISSING_SIGNAL_TYPE"
)

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	switch {
	case e.ChoreographyID != "" && e.Path != "":
		return fmt.Sprintf("%s: %s (choreography=%s, path=%s)", e.Code, e.Message, e.ChoreographyID, e.Path)
	case e.ChoreographyID != "":
		return fmt.Sprintf("%s: %s (choreography=%s)", e.Code, e.Message, e.ChoreographyID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RegistrationError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RegistrationErrorCode) bool {
	var re *RegistrationError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsRegistrationError returns true if err is (or wraps) a RegistrationError.
func IsRegistrationError(err error) bool {
	var re *RegistrationError
	return errors.As(err, &re)
}

// IsCycleError returns true if the error is a cyclic step tree error.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	return hasCode(err, ErrCodeCyclicStepTree)
}

// IsDepthError returns true if the tree was rejected for its depth or size.
func IsDepthError(err error) bool {
	return hasCode(err, ErrCodeDepthExceeded) || hasCode(err, ErrCodeTooManySteps)
}

// IsDuplicateError returns true if the id was already registered.
func IsDuplicateError(err error) bool {
	return hasCode(err, ErrCodeDuplicateID)
}

// newTreeError maps a step-tree walk failure onto a RegistrationError.
func newTreeError(id string, te *ir.TreeError) *RegistrationError {
	code := ErrCodeCyclicStepTree
	switch te.Kind {
	case ir.TreeTooDeep:
		code = ErrCodeDepthExceeded
	case ir.TreeTooLarge:
		code = ErrCodeTooManySteps
	case ir.TreeInvalidDuration:
		code = ErrCodeInvalidDuration
	}
	return &RegistrationError{
		Code:           code,
		Message:        te.Error(),
		ChoreographyID: id,
		Path:           te.Path,
		Err:            te,
	}
}
