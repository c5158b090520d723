package domain

import "fmt"

// ResultCode is the closed set of codes returned by the resource engine for
// size queries and per-file completions. Negative values double as the
// error return of a size query.
type ResultCode int

const (
	ResultSuccess             ResultCode = 0
	ResultNotEnoughSpace      ResultCode = -1
	ResultStorageDisconnected ResultCode = -2
	ResultDownloadError       ResultCode = -3
	// ResultOutOfFiles means the engine has no more files queued. It is the
	// success terminal of the required-files phase, not a failure.
	ResultOutOfFiles ResultCode = -4
	ResultDiskError  ResultCode = -5
)

// String returns the code name
func (c ResultCode) String() string {
	switch c {
	case ResultSuccess:
		return "success"
	case ResultNotEnoughSpace:
		return "not_enough_space"
	case ResultStorageDisconnected:
		return "storage_disconnected"
	case ResultDownloadError:
		return "download_error"
	case ResultOutOfFiles:
		return "out_of_files"
	case ResultDiskError:
		return "disk_error"
	default:
		return fmt.Sprintf("result(%d)", int(c))
	}
}

// IsFailure returns true for the codes that must be shown to the user
func (c ResultCode) IsFailure() bool {
	switch c {
	case ResultNotEnoughSpace, ResultStorageDisconnected, ResultDownloadError, ResultDiskError:
		return true
	}
	return false
}

// FailureCodes lists every code the error presenter must be able to show.
var FailureCodes = []ResultCode{
	ResultNotEnoughSpace,
	ResultStorageDisconnected,
	ResultDownloadError,
	ResultDiskError,
}
