package event

import (
	"sync"

	"go.uber.org/zap"
)

// LoggingHandler logs all events
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

// Handle logs the event
func (h *LoggingHandler) Handle(event DomainEvent) error {
	session := zap.String("session_id", event.Session())

	switch e := event.(type) {
	case SessionStarted:
		h.logger.Info("bootstrap session started", session)
	case StateChanged:
		h.logger.Debug("session state changed",
			session,
			zap.String("from", string(e.From)),
			zap.String("to", string(e.To)),
		)
	case ResourcesSized:
		h.logger.Info("required resources sized",
			session,
			zap.Int64("bytes", e.Bytes),
		)
	case FileRequested:
		h.logger.Debug("resource file requested",
			session,
			zap.Int("index", e.Index),
		)
	case FileCompleted:
		h.logger.Debug("resource file completed",
			session,
			zap.Int("index", e.Index),
			zap.String("code", e.Code.String()),
		)
	case ResourcesDownloaded:
		h.logger.Info("required resources downloaded",
			session,
			zap.Int64("bytes", e.Bytes),
			zap.Duration("duration", e.Duration),
		)
	case RegionResolved:
		h.logger.Info("region resolved from location",
			session,
			zap.String("region_id", e.RegionID),
			zap.Float64("lat", e.Latitude),
			zap.Float64("lon", e.Longitude),
		)
	case RegionDownloadStarted:
		h.logger.Info("region download started",
			session,
			zap.String("region_id", e.RegionID),
			zap.Int64("size", e.Size),
		)
	case RegionDownloadFinished:
		h.logger.Info("region download finished",
			session,
			zap.String("region_id", e.RegionID),
			zap.String("status", string(e.Status)),
			zap.String("code", e.Code.String()),
		)
	case FailurePresented:
		h.logger.Warn("failure presented",
			session,
			zap.String("code", e.Code.String()),
			zap.String("title", e.Title),
		)
	case SessionTerminated:
		h.logger.Info("bootstrap session terminated",
			session,
			zap.String("state", string(e.State)),
			zap.Duration("duration", e.Duration),
		)
	default:
		h.logger.Debug("domain event",
			session,
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
		)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *LoggingHandler) HandledEvents() []string {
	return []string{"*"} // Handle all events
}

// MetricsHandler collects counters from events. It is read from the status
// server, so counters are guarded.
type MetricsHandler struct {
	mu sync.Mutex

	sessionsStarted     int64
	filesCompleted      int64
	resourcesDownloaded int64
	regionsResolved     int64
	regionsDownloaded   int64
	regionsFailed       int64
	failuresPresented   int64
	bytesRequired       int64
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// Handle updates metrics based on the event
func (h *MetricsHandler) Handle(event DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch e := event.(type) {
	case SessionStarted:
		h.sessionsStarted++
	case ResourcesSized:
		h.bytesRequired += e.Bytes
	case FileCompleted:
		h.filesCompleted++
	case ResourcesDownloaded:
		h.resourcesDownloaded++
	case RegionResolved:
		h.regionsResolved++
	case RegionDownloadFinished:
		if e.Code.IsFailure() {
			h.regionsFailed++
		} else {
			h.regionsDownloaded++
		}
	case FailurePresented:
		h.failuresPresented++
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *MetricsHandler) HandledEvents() []string {
	return []string{
		NameSessionStarted,
		NameResourcesSized,
		NameFileCompleted,
		NameResourcesReady,
		NameRegionResolved,
		NameRegionFinished,
		NameFailurePresented,
	}
}

// GetMetrics returns current metrics
func (h *MetricsHandler) GetMetrics() map[string]int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return map[string]int64{
		"sessions_started":     h.sessionsStarted,
		"files_completed":      h.filesCompleted,
		"resources_downloaded": h.resourcesDownloaded,
		"regions_resolved":     h.regionsResolved,
		"regions_downloaded":   h.regionsDownloaded,
		"regions_failed":       h.regionsFailed,
		"failures_presented":   h.failuresPresented,
		"bytes_required":       h.bytesRequired,
	}
}

// HistoryRecord is one persisted event row
type HistoryRecord struct {
	SessionID string
	Event     string
	Detail    string
}

// HistoryRecorder persists history records
type HistoryRecorder interface {
	RecordEvent(rec HistoryRecord) error
}

// HistoryHandler writes session milestones to a HistoryRecorder
type HistoryHandler struct {
	recorder HistoryRecorder
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(recorder HistoryRecorder) *HistoryHandler {
	return &HistoryHandler{recorder: recorder}
}

// Handle records the event
func (h *HistoryHandler) Handle(event DomainEvent) error {
	rec := HistoryRecord{SessionID: event.Session(), Event: event.EventName()}

	switch e := event.(type) {
	case StateChanged:
		rec.Detail = string(e.From) + " -> " + string(e.To)
	case FileCompleted:
		rec.Detail = e.Code.String()
	case RegionResolved:
		rec.Detail = e.RegionID
	case RegionDownloadFinished:
		rec.Detail = e.RegionID + ": " + string(e.Status)
	case FailurePresented:
		rec.Detail = e.Code.String()
	case SessionTerminated:
		rec.Detail = string(e.State)
	}

	return h.recorder.RecordEvent(rec)
}

// HandledEvents returns the events this handler handles
func (h *HistoryHandler) HandledEvents() []string {
	return []string{
		NameSessionStarted,
		NameStateChanged,
		NameFileCompleted,
		NameRegionResolved,
		NameRegionFinished,
		NameFailurePresented,
		NameSessionTerminated,
	}
}
