package event

import (
	"time"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	// EventName returns the name of the event
	EventName() string
	// OccurredAt returns when the event occurred
	OccurredAt() time.Time
	// Session returns the id of the session that raised the event
	Session() string
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	Timestamp time.Time
	SessionID string
}

// OccurredAt returns when the event occurred
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// Session returns the session id
func (e BaseEvent) Session() string {
	return e.SessionID
}

func base(sessionID string) BaseEvent {
	return BaseEvent{Timestamp: time.Now(), SessionID: sessionID}
}

// Event names
const (
	NameSessionStarted    = "session.started"
	NameStateChanged      = "session.state_changed"
	NameResourcesSized    = "resources.sized"
	NameFileRequested     = "resources.file_requested"
	NameFileCompleted     = "resources.file_completed"
	NameResourcesReady    = "resources.downloaded"
	NameRegionResolved    = "region.resolved"
	NameRegionDownload    = "region.download_started"
	NameRegionFinished    = "region.download_finished"
	NameFailurePresented  = "failure.presented"
	NameSessionTerminated = "session.terminated"
)

// SessionStarted is raised when a new session is created
type SessionStarted struct {
	BaseEvent
}

// EventName returns the event name
func (e SessionStarted) EventName() string { return NameSessionStarted }

// NewSessionStarted creates a new SessionStarted event
func NewSessionStarted(sessionID string) SessionStarted {
	return SessionStarted{BaseEvent: base(sessionID)}
}

// StateChanged is raised on every accepted state transition
type StateChanged struct {
	BaseEvent
	From domain.SessionState
	To   domain.SessionState
}

// EventName returns the event name
func (e StateChanged) EventName() string { return NameStateChanged }

// NewStateChanged creates a new StateChanged event
func NewStateChanged(sessionID string, from, to domain.SessionState) StateChanged {
	return StateChanged{BaseEvent: base(sessionID), From: from, To: to}
}

// ResourcesSized is raised after the size query
type ResourcesSized struct {
	BaseEvent
	Bytes int64
}

// EventName returns the event name
func (e ResourcesSized) EventName() string { return NameResourcesSized }

// NewResourcesSized creates a new ResourcesSized event
func NewResourcesSized(sessionID string, bytes int64) ResourcesSized {
	return ResourcesSized{BaseEvent: base(sessionID), Bytes: bytes}
}

// FileRequested is raised when the next file is requested from the engine
type FileRequested struct {
	BaseEvent
	Index int
}

// EventName returns the event name
func (e FileRequested) EventName() string { return NameFileRequested }

// NewFileRequested creates a new FileRequested event
func NewFileRequested(sessionID string, index int) FileRequested {
	return FileRequested{BaseEvent: base(sessionID), Index: index}
}

// FileCompleted is raised when a file completion callback arrives
type FileCompleted struct {
	BaseEvent
	Index int
	Code  domain.ResultCode
}

// EventName returns the event name
func (e FileCompleted) EventName() string { return NameFileCompleted }

// NewFileCompleted creates a new FileCompleted event
func NewFileCompleted(sessionID string, index int, code domain.ResultCode) FileCompleted {
	return FileCompleted{BaseEvent: base(sessionID), Index: index, Code: code}
}

// ResourcesDownloaded is raised once the required files are in place
type ResourcesDownloaded struct {
	BaseEvent
	Bytes    int64
	Duration time.Duration
}

// EventName returns the event name
func (e ResourcesDownloaded) EventName() string { return NameResourcesReady }

// NewResourcesDownloaded creates a new ResourcesDownloaded event
func NewResourcesDownloaded(sessionID string, bytes int64, duration time.Duration) ResourcesDownloaded {
	return ResourcesDownloaded{BaseEvent: base(sessionID), Bytes: bytes, Duration: duration}
}

// RegionResolved is raised when location chaining latches a region
type RegionResolved struct {
	BaseEvent
	RegionID  string
	Latitude  float64
	Longitude float64
}

// EventName returns the event name
func (e RegionResolved) EventName() string { return NameRegionResolved }

// NewRegionResolved creates a new RegionResolved event
func NewRegionResolved(sessionID, regionID string, lat, lon float64) RegionResolved {
	return RegionResolved{BaseEvent: base(sessionID), RegionID: regionID, Latitude: lat, Longitude: lon}
}

// RegionDownloadStarted is raised when the chained region download is issued
type RegionDownloadStarted struct {
	BaseEvent
	RegionID string
	Size     int64
}

// EventName returns the event name
func (e RegionDownloadStarted) EventName() string { return NameRegionDownload }

// NewRegionDownloadStarted creates a new RegionDownloadStarted event
func NewRegionDownloadStarted(sessionID, regionID string, size int64) RegionDownloadStarted {
	return RegionDownloadStarted{BaseEvent: base(sessionID), RegionID: regionID, Size: size}
}

// RegionDownloadFinished is raised when the chained region reaches done or failed
type RegionDownloadFinished struct {
	BaseEvent
	RegionID string
	Status   domain.RegionStatus
	Code     domain.ResultCode
}

// EventName returns the event name
func (e RegionDownloadFinished) EventName() string { return NameRegionFinished }

// NewRegionDownloadFinished creates a new RegionDownloadFinished event
func NewRegionDownloadFinished(sessionID, regionID string, status domain.RegionStatus, code domain.ResultCode) RegionDownloadFinished {
	return RegionDownloadFinished{BaseEvent: base(sessionID), RegionID: regionID, Status: status, Code: code}
}

// FailurePresented is raised when the error presenter shows a modal
type FailurePresented struct {
	BaseEvent
	Code  domain.ResultCode
	Title string
}

// EventName returns the event name
func (e FailurePresented) EventName() string { return NameFailurePresented }

// NewFailurePresented creates a new FailurePresented event
func NewFailurePresented(sessionID string, code domain.ResultCode, title string) FailurePresented {
	return FailurePresented{BaseEvent: base(sessionID), Code: code, Title: title}
}

// SessionTerminated is raised when the session reaches a terminal state
type SessionTerminated struct {
	BaseEvent
	State    domain.SessionState
	Duration time.Duration
}

// EventName returns the event name
func (e SessionTerminated) EventName() string { return NameSessionTerminated }

// NewSessionTerminated creates a new SessionTerminated event
func NewSessionTerminated(sessionID string, state domain.SessionState, duration time.Duration) SessionTerminated {
	return SessionTerminated{BaseEvent: base(sessionID), State: state, Duration: duration}
}
