package cellcore

import "errors"

// AppErrorCode represents gRPC-style error codes for application-level
// errors. only the codes the sheet can produce are defined.
type AppErrorCode int

const (
	// InvalidArgument indicates the caller specified an invalid address.
	InvalidArgument AppErrorCode = 3

	// NotFound means no cell exists at the requested position.
	NotFound AppErrorCode = 5

	// FailedPrecondition indicates the sheet was destroyed and has not been
	// initialized again.
	FailedPrecondition AppErrorCode = 9
)

// AppError represents errors at the application level (not formula errors,
// which are stored in cells as *EvalError)
type AppError struct {
	Code    AppErrorCode
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// Is matches two application errors by code, so wrapped sentinels compare
// with errors.Is regardless of message.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewApplicationError creates a new application error
func NewApplicationError(code AppErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

var (
	ErrCellNotFound   = NewApplicationError(NotFound, "cell not found")
	ErrInvalidAddress = NewApplicationError(InvalidArgument, "invalid cell address")
	ErrDestroyed      = NewApplicationError(FailedPrecondition, "sheet destroyed; call Init first")
)
