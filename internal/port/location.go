package port

import (
	"github.com/vertextoedge/map-bootstrap/internal/domain"
)

// LocationListener receives location fixes
type LocationListener interface {
	OnLocationUpdated(location domain.Location)
}

// LocationProvider delivers location updates to registered listeners
type LocationProvider interface {
	AddListener(listener LocationListener)
	RemoveListener(listener LocationListener)
}
