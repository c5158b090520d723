package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/adapter/region"
	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// SessionSource reports the bootstrap session
type SessionSource interface {
	Snapshot() (domain.SessionView, bool)
	Attempts() int
}

// MetricsSource reports event counters
type MetricsSource interface {
	GetMetrics() map[string]int64
}

// HistorySource reads persisted session events
type HistorySource interface {
	Ping() error
	ListSessionEvents(sessionID string) ([]event.HistoryRecord, error)
}

// RegionSource lists region download records
type RegionSource interface {
	All() ([]region.Record, error)
}

// DiskSource reports disk usage of the map storage
type DiskSource interface {
	GetDiskUsage() (*port.DiskUsage, error)
}

// Sources holds what the status endpoints read. Nil sources are skipped.
type Sources struct {
	Session SessionSource
	Metrics MetricsSource
	History HistorySource
	Regions RegionSource
	Disk    DiskSource
}

// StatusHandler serves the status endpoints
type StatusHandler struct {
	sources Sources
	logger  *zap.Logger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(sources Sources, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{sources: sources, logger: logger}
}

type statusResponse struct {
	Session  *domain.SessionView `json:"session,omitempty"`
	Attempts int                 `json:"attempts"`
	Disk     *port.DiskUsage     `json:"disk,omitempty"`
	Time     string              `json:"time"`
}

type historyEntry struct {
	Event  string `json:"event"`
	Detail string `json:"detail,omitempty"`
}

// HandleHealth checks the database
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.sources.History != nil {
		if err := h.sources.History.Ping(); err != nil {
			h.logger.Error("health check failed", zap.Error(err))
			http.Error(w, "Database connection failed", http.StatusServiceUnavailable)
			return
		}
	}

	writeJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// HandleStatus reports the current session and disk usage
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{Time: time.Now().Format(time.RFC3339)}
	if h.sources.Session != nil {
		if view, ok := h.sources.Session.Snapshot(); ok {
			resp.Session = &view
		}
		resp.Attempts = h.sources.Session.Attempts()
	}
	if h.sources.Disk != nil {
		usage, err := h.sources.Disk.GetDiskUsage()
		if err != nil {
			h.logger.Warn("failed to get disk usage", zap.Error(err))
		} else {
			resp.Disk = usage
		}
	}

	writeJSON(w, resp)
}

// HandleMetrics reports the event counters
func (h *StatusHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metrics := map[string]int64{}
	if h.sources.Metrics != nil {
		metrics = h.sources.Metrics.GetMetrics()
	}
	writeJSON(w, metrics)
}

// HandleRegions lists the region download records
func (h *StatusHandler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.sources.Regions == nil {
		http.Error(w, "Region registry not available", http.StatusNotFound)
		return
	}

	records, err := h.sources.Regions.All()
	if err != nil {
		h.logger.Error("failed to list region records", zap.Error(err))
		http.Error(w, "Failed to list regions", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []region.Record{}
	}
	writeJSON(w, records)
}

// HandleHistory lists the events of one session, the current one by default
func (h *StatusHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.sources.History == nil {
		http.Error(w, "History not available", http.StatusNotFound)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" && h.sources.Session != nil {
		if view, ok := h.sources.Session.Snapshot(); ok {
			sessionID = view.ID
		}
	}
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	records, err := h.sources.History.ListSessionEvents(sessionID)
	if err != nil {
		h.logger.Error("failed to list session events", zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "Failed to list history", http.StatusInternalServerError)
		return
	}

	entries := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, historyEntry{Event: rec.Event, Detail: rec.Detail})
	}
	writeJSON(w, map[string]interface{}{
		"session_id": sessionID,
		"events":     entries,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
