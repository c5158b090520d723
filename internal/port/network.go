package port

import (
	"github.com/vertextoedge/map-bootstrap/internal/domain"
)

// Subscription is a registration owned by its creator.
// Cancel releases it; calling Cancel again is a no-op.
type Subscription interface {
	Cancel()
}

// ConnectivityMonitor observes network availability
type ConnectivityMonitor interface {
	// Snapshot returns the current network state
	Snapshot() domain.ConnectivitySnapshot

	// Watch registers fn for availability transitions
	Watch(fn func(domain.ConnectivityObservation)) Subscription
}

// PreferenceStore holds user preferences
type PreferenceStore interface {
	// IsWifiOnlyDownloadsEnabled reports the "WiFi-only downloads" preference
	IsWifiOnlyDownloadsEnabled() bool
}
