package registry

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes registry errors for callers that need to branch
// on failure class rather than message text.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the named entity does not exist
	// (package absent from the inventory, theme absent from the registry).
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeConflict indicates a duplicate insert or another
	// constraint violation the caller must resolve.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeUnsupported indicates a mutation the surface refuses by
	// contract, such as inserting or deleting a selection row.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED"

	// ErrCodeProcessingFailed indicates the async processing
	// collaborator reported a nonzero result for a package.
	ErrCodeProcessingFailed ErrorCode = "PROCESSING_FAILED"
)

// Error is the registry's typed error. Package identifies the affected
// entity where one exists.
type Error struct {
	Code    ErrorCode
	Message string
	Package string
}

func (e *Error) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("%s: %s (pkg=%s)", e.Code, e.Message, e.Package)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotFound creates a NOT_FOUND error for a package.
func NewNotFound(pkg string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: "no such theme package", Package: pkg}
}

// NewConflict creates a CONFLICT error for a package.
func NewConflict(pkg string) *Error {
	return &Error{Code: ErrCodeConflict, Message: "theme package already present", Package: pkg}
}

// NewUnsupported creates an UNSUPPORTED error for a refused operation.
func NewUnsupported(op string) *Error {
	return &Error{Code: ErrCodeUnsupported, Message: op}
}

// IsNotFound reports whether err is a NOT_FOUND registry error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == ErrCodeNotFound
}

// IsConflict reports whether err is a CONFLICT registry error.
func IsConflict(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == ErrCodeConflict
}

// IsUnsupported reports whether err is an UNSUPPORTED registry error.
func IsUnsupported(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == ErrCodeUnsupported
}
