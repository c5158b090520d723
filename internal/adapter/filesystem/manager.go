package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// TempSuffix marks files that are still being written
const TempSuffix = ".downloading"

// Manager handles local storage of downloaded resources
type Manager struct {
	rootDir    string
	bufferSize int
}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager
func NewManager(rootDir string) (*Manager, error) {
	return NewManagerWithBufferSize(rootDir, 1024*1024) // 1MB default
}

// NewManagerWithBufferSize creates a new filesystem manager with custom buffer size
func NewManagerWithBufferSize(rootDir string, bufferSize int) (*Manager, error) {
	// Ensure root directory exists
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root dir: %w", err)
	}

	if bufferSize <= 0 {
		bufferSize = 1024 * 1024
	}

	return &Manager{
		rootDir:    rootDir,
		bufferSize: bufferSize,
	}, nil
}

// RootDir returns the storage root directory
func (m *Manager) RootDir() string {
	return m.rootDir
}

// Path returns the local path for a resource name
func (m *Manager) Path(name string) string {
	return filepath.Join(m.rootDir, filepath.Base(name))
}

// CheckWritable verifies the root exists and accepts new files.
// The root is not recreated: a vanished root means the storage is gone.
func (m *Manager) CheckWritable() error {
	info, err := os.Stat(m.rootDir)
	if err != nil {
		return fmt.Errorf("storage root unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root %s: %w", m.rootDir, os.ErrNotExist)
	}

	f, err := os.CreateTemp(m.rootDir, ".probe-*")
	if err != nil {
		return fmt.Errorf("storage root not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// WriteFile streams reader into name+TempSuffix, then renames it into place
func (m *Manager) WriteFile(name string, reader io.Reader) (string, int64, error) {
	finalPath := m.Path(name)
	tempPath := finalPath + TempSuffix

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	buf := make([]byte, m.bufferSize)
	written, err := io.CopyBuffer(f, reader, buf)
	if err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", 0, fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return "", 0, fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return finalPath, written, nil
}

// DeleteFile removes a stored file
func (m *Manager) DeleteFile(name string) error {
	if err := os.Remove(m.Path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// FileExists checks if a stored file exists
func (m *Manager) FileExists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// GetFileSize returns the size of a stored file
func (m *Manager) GetFileSize(name string) (int64, error) {
	info, err := os.Stat(m.Path(name))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// CleanOldTempFiles removes temp files older than the specified duration
func (m *Manager) CleanOldTempFiles(olderThan time.Duration) (int, error) {
	count := 0
	threshold := time.Now().Add(-olderThan)

	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), TempSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(threshold) {
			if removeErr := os.Remove(filepath.Join(m.rootDir, entry.Name())); removeErr == nil {
				count++
			}
		}
	}
	return count, nil
}
