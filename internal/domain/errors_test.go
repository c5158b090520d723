package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
)

func TestCodeError_Error(t *testing.T) {
	tests := []struct {
		name string
		code ResultCode
		err  error
		want string
	}{
		{
			name: "with underlying error",
			code: ResultDiskError,
			err:  errors.New("write failed"),
			want: "disk_error: write failed",
		},
		{
			name: "code only",
			code: ResultNotEnoughSpace,
			err:  nil,
			want: "not_enough_space",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := NewCodeError(tt.code, tt.err)
			if got := ce.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	ce := NewCodeError(ResultDownloadError, underlying)

	if got := ce.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", ce), underlying) {
		t.Error("wrapped CodeError should unwrap to the underlying error")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ResultCode
	}{
		{
			name: "nil error",
			err:  nil,
			want: ResultSuccess,
		},
		{
			name: "explicit code wins",
			err:  fmt.Errorf("ctx: %w", NewCodeError(ResultDiskError, os.ErrNotExist)),
			want: ResultDiskError,
		},
		{
			name: "no space left on device",
			err:  &os.PathError{Op: "write", Path: "/data/World.mwm", Err: syscall.ENOSPC},
			want: ResultNotEnoughSpace,
		},
		{
			name: "read-only storage",
			err:  &os.PathError{Op: "open", Path: "/data/World.mwm", Err: syscall.EROFS},
			want: ResultStorageDisconnected,
		},
		{
			name: "storage directory missing",
			err:  &os.PathError{Op: "open", Path: "/mnt/sd/World.mwm", Err: syscall.ENOENT},
			want: ResultStorageDisconnected,
		},
		{
			name: "other file error",
			err:  &os.PathError{Op: "rename", Path: "/data/World.mwm", Err: syscall.EIO},
			want: ResultDiskError,
		},
		{
			name: "rename across devices",
			err:  &os.LinkError{Op: "rename", Old: "/data/World.mwm.tmp", New: "/mnt/World.mwm", Err: syscall.EXDEV},
			want: ResultDiskError,
		},
		{
			name: "fsync failure",
			err:  fmt.Errorf("failed to sync: %w", os.NewSyscallError("fsync", syscall.EIO)),
			want: ResultDiskError,
		},
		{
			name: "bare errno",
			err:  fmt.Errorf("failed to write: %w", syscall.EIO),
			want: ResultDiskError,
		},
		{
			name: "request timeout",
			err:  &url.Error{Op: "Get", URL: "https://maps.example.com/World.mwm", Err: context.DeadlineExceeded},
			want: ResultDownloadError,
		},
		{
			name: "connection reset",
			err:  &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)},
			want: ResultDownloadError,
		},
		{
			name: "network error",
			err:  &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			want: ResultDownloadError,
		},
		{
			name: "unknown error",
			err:  errors.New("unexpected status 500"),
			want: ResultDownloadError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResultCode_IsFailure(t *testing.T) {
	for _, code := range FailureCodes {
		if !code.IsFailure() {
			t.Errorf("%v should be a failure", code)
		}
	}
	if ResultSuccess.IsFailure() {
		t.Error("success must not be a failure")
	}
	if ResultOutOfFiles.IsFailure() {
		t.Error("out of files must not be a failure")
	}
	if ResultCode(-42).IsFailure() {
		t.Error("unknown code must not be a failure")
	}
}

func TestResultCode_String(t *testing.T) {
	if got := ResultCode(-42).String(); got != "result(-42)" {
		t.Errorf("String() = %q, want %q", got, "result(-42)")
	}
	if got := ResultOutOfFiles.String(); got != "out_of_files" {
		t.Errorf("String() = %q, want %q", got, "out_of_files")
	}
}
