package domain

// Transport is the kind of network carrying traffic
type Transport string

// Transport constants
const (
	TransportNone  Transport = "none"
	TransportWiFi  Transport = "wifi"
	TransportOther Transport = "other"
)

// ConnectivityObservation is one network availability change.
// Only the latest observation matters.
type ConnectivityObservation struct {
	Transport Transport
	Available bool
}

// ConnectivitySnapshot is the current network state
type ConnectivitySnapshot struct {
	// Active is the transport of the default network, TransportNone if offline
	Active Transport
}

// Connected returns true if any network is active
func (s ConnectivitySnapshot) Connected() bool {
	return s.Active != "" && s.Active != TransportNone
}

// IsWiFi returns true if the active network is WiFi
func (s ConnectivitySnapshot) IsWiFi() bool {
	return s.Active == TransportWiFi
}

// Location is a geographic fix
type Location struct {
	Latitude  float64
	Longitude float64
}
