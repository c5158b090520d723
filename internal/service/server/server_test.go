package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/adapter/region"
	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

type mockSession struct {
	view domain.SessionView
	ok   bool
}

func (m *mockSession) Snapshot() (domain.SessionView, bool) { return m.view, m.ok }
func (m *mockSession) Attempts() int                        { return 2 }

type mockMetrics map[string]int64

func (m mockMetrics) GetMetrics() map[string]int64 { return m }

type mockHistory struct {
	pingErr error
	events  map[string][]event.HistoryRecord
}

func (m *mockHistory) Ping() error { return m.pingErr }

func (m *mockHistory) ListSessionEvents(sessionID string) ([]event.HistoryRecord, error) {
	return m.events[sessionID], nil
}

type mockRegions struct {
	records []region.Record
	err     error
}

func (m *mockRegions) All() ([]region.Record, error) { return m.records, m.err }

type mockDisk struct{}

func (mockDisk) GetDiskUsage() (*port.DiskUsage, error) {
	return &port.DiskUsage{Total: 100, Used: 40, Free: 60, UsedPct: 40}, nil
}

func newTestServer(sources Sources) *Server {
	return New(nil, sources, zap.NewNop())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
		want    int
	}{
		{"healthy", nil, http.StatusOK},
		{"database down", errors.New("closed"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(Sources{History: &mockHistory{pingErr: tt.pingErr}})
			rec := get(t, s, "/health")
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
		})
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	s := newTestServer(Sources{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatus(t *testing.T) {
	session := &mockSession{ok: true, view: domain.SessionView{
		ID:                     "s1",
		State:                  domain.StateDownloading,
		TotalBytes:             12_000_000,
		RequiredBytesRemaining: 8_000_000,
		ChainedRegion:          "R1",
	}}
	s := newTestServer(Sources{Session: session, Disk: mockDisk{}})

	rec := get(t, s, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Session  domain.SessionView `json:"session"`
		Attempts int                `json:"attempts"`
		Disk     port.DiskUsage     `json:"disk"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s1", body.Session.ID)
	assert.Equal(t, domain.StateDownloading, body.Session.State)
	assert.Equal(t, int64(8_000_000), body.Session.RequiredBytesRemaining)
	assert.Equal(t, "R1", body.Session.ChainedRegion)
	assert.Equal(t, 2, body.Attempts)
	assert.Equal(t, uint64(60), body.Disk.Free)
}

func TestStatus_NoSession(t *testing.T) {
	s := newTestServer(Sources{Session: &mockSession{}})
	rec := get(t, s, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"session"`)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(Sources{Metrics: mockMetrics{"sessions_started": 1, "files_completed": 3}})
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(3), got["files_completed"])
}

func TestRegions(t *testing.T) {
	s := newTestServer(Sources{Regions: &mockRegions{records: []region.Record{
		{RegionID: "R1", Status: domain.RegionStatusDone, SizeBytes: 30},
	}}})
	rec := get(t, s, "/regions")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []region.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, domain.RegionStatusDone, got[0].Status)

	failing := newTestServer(Sources{Regions: &mockRegions{err: errors.New("bolt closed")}})
	assert.Equal(t, http.StatusInternalServerError, get(t, failing, "/regions").Code)
	assert.Equal(t, http.StatusNotFound, get(t, newTestServer(Sources{}), "/regions").Code)
}

func TestHistory(t *testing.T) {
	history := &mockHistory{events: map[string][]event.HistoryRecord{
		"s1": {
			{SessionID: "s1", Event: event.NameSessionStarted},
			{SessionID: "s1", Event: event.NameStateChanged, Detail: "idle -> sizing_query"},
		},
	}}
	s := newTestServer(Sources{
		History: history,
		Session: &mockSession{ok: true, view: domain.SessionView{ID: "s1"}},
	})

	for _, path := range []string{"/history", "/history?session=s1"} {
		rec := get(t, s, path)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var body struct {
			SessionID string         `json:"session_id"`
			Events    []historyEntry `json:"events"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "s1", body.SessionID)
		require.Len(t, body.Events, 2)
		assert.Equal(t, "idle -> sizing_query", body.Events[1].Detail)
	}

	noSession := newTestServer(Sources{History: history})
	assert.Equal(t, http.StatusBadRequest, get(t, noSession, "/history").Code)
}

func TestLoggingMiddleware_KeepsRequestID(t *testing.T) {
	s := newTestServer(Sources{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}
