package port

import (
	"github.com/vertextoedge/map-bootstrap/internal/domain"
)

// RegionListener receives region engine events.
// Callbacks may arrive on any goroutine.
type RegionListener interface {
	// OnStatusChanged reports status changes of one or more regions
	OnStatusChanged(events []domain.RegionEvent)

	// OnProgress reports download progress of a region
	OnProgress(regionID string, localBytes, remoteBytes int64)
}

// RegionEngine downloads map regions and reports through subscription slots
type RegionEngine interface {
	// Subscribe registers a listener and returns its slot handle (never 0)
	Subscribe(listener RegionListener) int

	// Unsubscribe releases a slot handle
	Unsubscribe(slot int)

	// Region returns the downloadable region for an id
	Region(regionID string) (domain.RegionCandidate, error)

	// Download queues a region download
	Download(regionID string) error
}

// RegionResolver maps a coordinate to a region id, "" if none matches
type RegionResolver interface {
	ResolveRegion(lat, lon float64) string
}

// RegionCatalog provides region metadata
type RegionCatalog interface {
	RegionResolver

	// GetRegion returns a catalog entry or domain.ErrRegionNotFound
	GetRegion(regionID string) (*domain.CatalogRegion, error)
}
