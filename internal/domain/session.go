package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadSession is the transient state of one bootstrap screen lifetime.
// It is owned by the orchestrator and only touched from its control loop.
type DownloadSession struct {
	ID        uuid.UUID
	StartedAt time.Time

	// State is the current position in the session state machine
	State SessionState

	// TotalBytes is the size reported by the single size query
	TotalBytes int64

	requiredBytesRemaining int64
	resourcesDownloaded    bool

	// ChainedRegion is written at most once by location chaining
	ChainedRegion RegionLatch
}

// NewDownloadSession creates a new session in the idle state
func NewDownloadSession() *DownloadSession {
	return &DownloadSession{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		State:     StateIdle,
	}
}

// Transition moves the session to the given state if the move is allowed
func (s *DownloadSession) Transition(to SessionState) error {
	if err := ValidateTransition(s.State, to); err != nil {
		return err
	}
	s.State = to
	return nil
}

// RequiredBytesRemaining returns the bytes still to download
func (s *DownloadSession) RequiredBytesRemaining() int64 {
	return s.requiredBytesRemaining
}

// InitRemaining sets the remaining bytes once the size is known
func (s *DownloadSession) InitRemaining(total int64) {
	s.TotalBytes = total
	s.requiredBytesRemaining = total
}

// UpdateRemaining lowers the remaining byte count. Values that would raise it
// are ignored and false is returned.
func (s *DownloadSession) UpdateRemaining(remaining int64) bool {
	if remaining < 0 {
		remaining = 0
	}
	if remaining > s.requiredBytesRemaining {
		return false
	}
	s.requiredBytesRemaining = remaining
	return true
}

// ResourcesDownloaded reports whether the required files are in place
func (s *DownloadSession) ResourcesDownloaded() bool {
	return s.resourcesDownloaded
}

// MarkResourcesDownloaded sets the flag. It never resets and returns true only
// on the first call.
func (s *DownloadSession) MarkResourcesDownloaded() bool {
	if s.resourcesDownloaded {
		return false
	}
	s.resourcesDownloaded = true
	s.requiredBytesRemaining = 0
	return true
}

// SessionView is a read-only copy of the session for reporting
type SessionView struct {
	ID                     string       `json:"id"`
	State                  SessionState `json:"state"`
	StartedAt              time.Time    `json:"started_at"`
	TotalBytes             int64        `json:"total_bytes"`
	RequiredBytesRemaining int64        `json:"required_bytes_remaining"`
	ResourcesDownloaded    bool         `json:"resources_downloaded"`
	ChainedRegion          string       `json:"chained_region,omitempty"`
}

// View returns a snapshot of the session
func (s *DownloadSession) View() SessionView {
	region, _ := s.ChainedRegion.Get()
	return SessionView{
		ID:                     s.ID.String(),
		State:                  s.State,
		StartedAt:              s.StartedAt,
		TotalBytes:             s.TotalBytes,
		RequiredBytesRemaining: s.requiredBytesRemaining,
		ResourcesDownloaded:    s.resourcesDownloaded,
		ChainedRegion:          region,
	}
}
