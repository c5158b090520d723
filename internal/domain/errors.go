package domain

import (
	"errors"
	"net"
	"net/url"
	"os"
	"syscall"
)

// Common domain errors
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrSessionClosed  = errors.New("session is closed")
	ErrSlotReleased   = errors.New("subscription slot already released")
	ErrFileInProgress = errors.New("a file download is already in progress")

	// State machine errors
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// Region errors
	ErrRegionNotFound = errors.New("region not found")
	ErrEmptyRegionID  = errors.New("region id cannot be empty")
)

// CodeError carries an engine result code through an error chain.
type CodeError struct {
	Code ResultCode
	Err  error
}

// Error returns the error message
func (e *CodeError) Error() string {
	if e.Err != nil {
		return e.Code.String() + ": " + e.Err.Error()
	}
	return e.Code.String()
}

// Unwrap returns the underlying error
func (e *CodeError) Unwrap() error {
	return e.Err
}

// NewCodeError creates a new CodeError
func NewCodeError(code ResultCode, err error) *CodeError {
	return &CodeError{Code: code, Err: err}
}

// CodeOf classifies an error into a failure result code.
// A nil error is ResultSuccess. Explicit CodeErrors win over classification.
func CodeOf(err error) ResultCode {
	if err == nil {
		return ResultSuccess
	}

	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}

	if errors.Is(err, syscall.ENOSPC) {
		return ResultNotEnoughSpace
	}
	if errors.Is(err, syscall.EROFS) || errors.Is(err, syscall.ENODEV) ||
		errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return ResultStorageDisconnected
	}

	// Transport failures first: a dial or read error wraps an *os.SyscallError
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ResultDownloadError
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ResultDownloadError
	}

	// syscall.Errno satisfies net.Error, so local I/O is matched before it
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return ResultDiskError
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return ResultDiskError
	}
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) {
		return ResultDiskError
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return ResultDiskError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ResultDownloadError
	}

	return ResultDownloadError
}
