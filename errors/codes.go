package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Setup errors: detected before any process is started.
const (
	// ErrCodeInvalidInput indicates a malformed command (empty executable, unbalanced quotes).
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeSpawnFailed indicates the process could not be launched.
	ErrCodeSpawnFailed ErrorCode = "SPAWN_FAILED"
)

// Runtime errors: the process was started.
const (
	// ErrCodeTimeout indicates the process was still alive at its deadline and was killed.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCanceled indicates the caller's context ended before the process did.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeStreamFailed indicates an I/O failure while relaying stdin, stdout or stderr.
	ErrCodeStreamFailed ErrorCode = "STREAM_FAILED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:      true,
	ErrCodeStreamFailed: false,
	ErrCodeSpawnFailed:  false,
	ErrCodeInternal:     false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
