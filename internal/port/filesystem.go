package port

import (
	"io"
	"time"
)

// DiskUsage represents disk usage statistics
type DiskUsage struct {
	Total   uint64  `json:"total"`    // Total disk space in bytes
	Used    uint64  `json:"used"`     // Used disk space in bytes
	Free    uint64  `json:"free"`     // Free disk space in bytes
	UsedPct float64 `json:"used_pct"` // Used percentage (0-100)
}

// FileSystem defines the storage operations of the download engines
type FileSystem interface {
	// RootDir returns the storage root directory
	RootDir() string

	// Path returns the local path for a resource name
	Path(name string) string

	// CheckWritable verifies the storage is mounted and writable
	CheckWritable() error

	// WriteFile streams content into a temp file and renames it into place.
	// Returns: final path, bytes written, error
	WriteFile(name string, reader io.Reader) (string, int64, error)

	// FileExists checks if a stored file exists
	FileExists(name string) bool

	// GetFileSize returns the size of a stored file
	GetFileSize(name string) (int64, error)

	// DeleteFile removes a stored file
	DeleteFile(name string) error

	// GetDiskUsage returns disk usage statistics
	GetDiskUsage() (*DiskUsage, error)

	// CleanOldTempFiles removes temp files older than the specified duration
	// Returns the number of files deleted
	CleanOldTempFiles(olderThan time.Duration) (int, error)
}
