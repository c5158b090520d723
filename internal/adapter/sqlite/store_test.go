package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "bootstrap.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Preferences(t *testing.T) {
	store := openTestStore(t)

	if !store.IsWifiOnlyDownloadsEnabled() {
		t.Error("unseeded preference should default to wifi-only")
	}

	if err := store.SeedPreferences(false); err != nil {
		t.Fatalf("SeedPreferences() error = %v", err)
	}
	if store.IsWifiOnlyDownloadsEnabled() {
		t.Error("seeded false, got true")
	}

	if err := store.SetWifiOnlyDownloadsEnabled(true); err != nil {
		t.Fatalf("SetWifiOnlyDownloadsEnabled() error = %v", err)
	}
	if !store.IsWifiOnlyDownloadsEnabled() {
		t.Error("set true, got false")
	}

	// Seeding again must not overwrite a stored value
	if err := store.SeedPreferences(false); err != nil {
		t.Fatalf("SeedPreferences() error = %v", err)
	}
	if !store.IsWifiOnlyDownloadsEnabled() {
		t.Error("second seed overwrote the stored preference")
	}
}

func TestStore_ResolveRegion(t *testing.T) {
	store := openTestStore(t)

	regions := []domain.CatalogRegion{
		{ID: "Germany", Name: "Germany", SizeBytes: 3_000_000_000,
			Bounds: domain.BoundingBox{MinLat: 47.2, MinLon: 5.8, MaxLat: 55.1, MaxLon: 15.1}},
		{ID: "Germany_Berlin", Name: "Berlin", SizeBytes: 52_000_000,
			Bounds: domain.BoundingBox{MinLat: 52.3, MinLon: 13.0, MaxLat: 52.7, MaxLon: 13.8}},
		{ID: "France", Name: "France", SizeBytes: 4_000_000_000,
			Bounds: domain.BoundingBox{MinLat: 41.3, MinLon: -5.2, MaxLat: 51.1, MaxLon: 9.6}},
	}
	if err := store.ImportRegions(regions); err != nil {
		t.Fatalf("ImportRegions() error = %v", err)
	}

	tests := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{name: "smallest containing box wins", lat: 52.52, lon: 13.40, want: "Germany_Berlin"},
		{name: "outer region", lat: 48.1, lon: 11.6, want: "Germany"},
		{name: "other country", lat: 48.85, lon: 2.35, want: "France"},
		{name: "ocean", lat: 0, lon: -30, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.ResolveRegion(tt.lat, tt.lon); got != tt.want {
				t.Errorf("ResolveRegion(%v, %v) = %q, want %q", tt.lat, tt.lon, got, tt.want)
			}
		})
	}

	n, err := store.CountRegions()
	if err != nil || n != 3 {
		t.Errorf("CountRegions() = (%d, %v), want 3", n, err)
	}
}

func TestStore_ResolveRegionDatabaseError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store, err := OpenWithOptions(filepath.Join(t.TempDir(), "bootstrap.db"), Options{Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("OpenWithOptions() error = %v", err)
	}
	if err := store.ImportRegions([]domain.CatalogRegion{{ID: "Germany_Berlin", Name: "Berlin",
		Bounds: domain.BoundingBox{MinLat: 52.3, MinLon: 13.0, MaxLat: 52.7, MaxLon: 13.8}}}); err != nil {
		t.Fatalf("ImportRegions() error = %v", err)
	}

	// No match is not an error
	if got := store.ResolveRegion(0, -30); got != "" {
		t.Errorf("ResolveRegion() = %q, want empty", got)
	}
	if logs.Len() != 0 {
		t.Errorf("logged %d entries for a point outside every region", logs.Len())
	}

	store.Close()
	if got := store.ResolveRegion(52.52, 13.40); got != "" {
		t.Errorf("ResolveRegion() on closed database = %q, want empty", got)
	}
	if logs.FilterMessage("failed to resolve region").Len() != 1 {
		t.Errorf("database error was not logged, entries: %v", logs.All())
	}
}

func TestStore_GetRegion(t *testing.T) {
	store := openTestStore(t)

	r := domain.CatalogRegion{ID: "R1", Name: "Region One", SizeBytes: 1234,
		Bounds: domain.BoundingBox{MinLat: 1, MinLon: 1, MaxLat: 2, MaxLon: 2}}
	if err := store.UpsertRegion(r); err != nil {
		t.Fatalf("UpsertRegion() error = %v", err)
	}
	r.Name = "Region One (renamed)"
	if err := store.UpsertRegion(r); err != nil {
		t.Fatalf("UpsertRegion() error = %v", err)
	}

	got, err := store.GetRegion("R1")
	if err != nil {
		t.Fatalf("GetRegion() error = %v", err)
	}
	if got.Name != "Region One (renamed)" || got.SizeBytes != 1234 || got.Bounds != r.Bounds {
		t.Errorf("GetRegion() = %+v", got)
	}

	if _, err := store.GetRegion("R2"); !errors.Is(err, domain.ErrRegionNotFound) {
		t.Errorf("GetRegion(missing) error = %v, want ErrRegionNotFound", err)
	}
	if err := store.UpsertRegion(domain.CatalogRegion{}); !errors.Is(err, domain.ErrEmptyRegionID) {
		t.Errorf("UpsertRegion(empty) error = %v", err)
	}
	bad := domain.CatalogRegion{ID: "bad", Bounds: domain.BoundingBox{MinLat: 5, MaxLat: 1}}
	if err := store.UpsertRegion(bad); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("UpsertRegion(bad bounds) error = %v", err)
	}
}

func TestStore_History(t *testing.T) {
	store := openTestStore(t)

	records := []event.HistoryRecord{
		{SessionID: "s1", Event: event.NameSessionStarted},
		{SessionID: "s1", Event: event.NameStateChanged, Detail: "idle -> sizing_query"},
		{SessionID: "s2", Event: event.NameSessionStarted},
	}
	for _, rec := range records {
		if err := store.RecordEvent(rec); err != nil {
			t.Fatalf("RecordEvent() error = %v", err)
		}
	}

	got, err := store.ListSessionEvents("s1")
	if err != nil {
		t.Fatalf("ListSessionEvents() error = %v", err)
	}
	if len(got) != 2 || got[1].Detail != "idle -> sizing_query" {
		t.Errorf("ListSessionEvents() = %+v", got)
	}

	n, err := store.CountSessions()
	if err != nil || n != 2 {
		t.Errorf("CountSessions() = (%d, %v), want 2", n, err)
	}
}

func TestStore_PruneSessionEvents(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"old", "new"} {
		if err := store.RecordEvent(event.HistoryRecord{SessionID: id, Event: event.NameSessionStarted}); err != nil {
			t.Fatalf("RecordEvent() error = %v", err)
		}
	}
	if _, err := store.db.Exec(`UPDATE session_events SET created_at = '2000-01-01 00:00:00' WHERE session_id = 'old'`); err != nil {
		t.Fatalf("backdate error = %v", err)
	}

	n, err := store.PruneSessionEvents(24 * time.Hour)
	if err != nil {
		t.Fatalf("PruneSessionEvents() error = %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}

	remaining, err := store.CountSessions()
	if err != nil {
		t.Fatalf("CountSessions() error = %v", err)
	}
	if remaining != 1 {
		t.Errorf("CountSessions() = %d, want 1", remaining)
	}
}
