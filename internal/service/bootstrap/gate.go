package bootstrap

import (
	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// MayDownload reports whether downloading is permitted: always when the
// WiFi-only preference is off, otherwise only on WiFi
func MayDownload(wifiOnly bool, snapshot domain.ConnectivitySnapshot) bool {
	return !wifiOnly || snapshot.IsWiFi()
}

// Gate applies the WiFi-only policy to live connectivity
type Gate struct {
	preferences  port.PreferenceStore
	connectivity port.ConnectivityMonitor
	exec         Executor

	sub        port.Subscription
	generation int
	wifiUp     bool
}

// NewGate creates a new gate
func NewGate(preferences port.PreferenceStore, connectivity port.ConnectivityMonitor, exec Executor) *Gate {
	return &Gate{
		preferences:  preferences,
		connectivity: connectivity,
		exec:         exec,
	}
}

// MayDownload reports whether downloading is permitted right now
func (g *Gate) MayDownload() bool {
	return MayDownload(g.preferences.IsWifiOnlyDownloadsEnabled(), g.connectivity.Snapshot())
}

// Connected reports whether any network is active
func (g *Gate) Connected() bool {
	return g.connectivity.Snapshot().Connected()
}

// Watching reports whether an observer is registered
func (g *Gate) Watching() bool {
	return g.sub != nil
}

// Watch registers a connectivity observer. onEligible runs on the executor at
// most once per transition into "WiFi available". A WiFi network that is
// already up counts as a transition, as a fresh registration would report it.
func (g *Gate) Watch(onEligible func()) {
	if g.sub != nil {
		return
	}
	g.generation++
	gen := g.generation
	g.wifiUp = false

	g.sub = g.connectivity.Watch(func(obs domain.ConnectivityObservation) {
		g.exec.Post(func() { g.observe(gen, obs, onEligible) })
	})

	if g.connectivity.Snapshot().IsWiFi() {
		obs := domain.ConnectivityObservation{Transport: domain.TransportWiFi, Available: true}
		g.exec.Post(func() { g.observe(gen, obs, onEligible) })
	}
}

func (g *Gate) observe(gen int, obs domain.ConnectivityObservation, onEligible func()) {
	if g.sub == nil || gen != g.generation {
		return
	}
	if obs.Transport != domain.TransportWiFi {
		return
	}

	was := g.wifiUp
	g.wifiUp = obs.Available
	if !was && obs.Available {
		onEligible()
	}
}

// Unwatch unregisters the observer. Calling it again is a no-op.
func (g *Gate) Unwatch() {
	if g.sub == nil {
		return
	}
	g.sub.Cancel()
	g.sub = nil
	g.wifiUp = false
}
