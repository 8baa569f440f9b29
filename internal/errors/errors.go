package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a scale error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrUnknownItem    ErrorCode = "UNKNOWN_ITEM"    // 400
	ErrInvalidScore   ErrorCode = "INVALID_SCORE"   // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrIncomplete     ErrorCode = "INCOMPLETE"      // 422
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// ScaleError represents a structured error with code, status, and details.
type ScaleError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ScaleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ScaleError {
	return &ScaleError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnknownItem creates a 400 error for a selection keyed by an id that is
// not in the item catalog.
func NewUnknownItem(itemID string) *ScaleError {
	return &ScaleError{
		Code:    ErrUnknownItem,
		Status:  400,
		Message: fmt.Sprintf("unknown scale item: %q", itemID),
		Details: map[string]any{"item_id": itemID},
	}
}

// NewInvalidScore creates a 400 error for a score that is not one of the
// item's option values.
func NewInvalidScore(itemID string, value int, allowed []int) *ScaleError {
	return &ScaleError{
		Code:    ErrInvalidScore,
		Status:  400,
		Message: fmt.Sprintf("score %d is not a valid option for %q (allowed: %v)", value, itemID, allowed),
		Details: map[string]any{"item_id": itemID, "value": value, "allowed": allowed},
	}
}

// NewNotFound creates a 404 error for when an assessment cannot be found.
func NewNotFound(id string) *ScaleError {
	return &ScaleError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("assessment not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *ScaleError {
	return &ScaleError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewIncomplete creates a 422 error when a caller requires all items to be
// scored and some are missing.
func NewIncomplete(missing []string) *ScaleError {
	return &ScaleError{
		Code:    ErrIncomplete,
		Status:  422,
		Message: fmt.Sprintf("assessment is missing %d item(s): %v", len(missing), missing),
		Details: map[string]any{"missing_items": missing},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The underlying error text is kept in Details rather than the message so it
// is not shown to callers.
func NewInternal(err error) *ScaleError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &ScaleError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a ScaleError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *ScaleError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}
