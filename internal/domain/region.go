package domain

// RegionCandidate is a downloadable map region resolved from a location.
// It is immutable once resolved for a session.
type RegionCandidate struct {
	ID             string
	DisplayName    string
	TotalSizeBytes int64
}

// RegionStatus is the download status of a region in the region engine
type RegionStatus string

// Region status constants
const (
	RegionStatusNotDownloaded RegionStatus = "not_downloaded"
	RegionStatusInQueue       RegionStatus = "in_queue"
	RegionStatusProgress      RegionStatus = "progress"
	RegionStatusDone          RegionStatus = "done"
	RegionStatusFailed        RegionStatus = "failed"
)

// RegionEvent is one status change delivered by the region engine
type RegionEvent struct {
	RegionID    string
	LocalBytes  int64
	RemoteBytes int64
	Status      RegionStatus
	// IsLeaf is false for group nodes, which carry aggregated status only
	IsLeaf bool
	// ErrorCode is set for RegionStatusFailed
	ErrorCode ResultCode
}

// BoundingBox is an axis-aligned lat/lon rectangle
type BoundingBox struct {
	MinLat float64 `mapstructure:"min_lat" json:"min_lat"`
	MinLon float64 `mapstructure:"min_lon" json:"min_lon"`
	MaxLat float64 `mapstructure:"max_lat" json:"max_lat"`
	MaxLon float64 `mapstructure:"max_lon" json:"max_lon"`
}

// Contains reports whether the point lies inside the box, edges included
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Area returns the box area in square degrees
func (b BoundingBox) Area() float64 {
	return (b.MaxLat - b.MinLat) * (b.MaxLon - b.MinLon)
}

// Valid returns true if min <= max on both axes and values are in range
func (b BoundingBox) Valid() bool {
	return b.MinLat <= b.MaxLat && b.MinLon <= b.MaxLon &&
		b.MinLat >= -90 && b.MaxLat <= 90 && b.MinLon >= -180 && b.MaxLon <= 180
}

// CatalogRegion is a region catalog entry
type CatalogRegion struct {
	ID        string
	Name      string
	Bounds    BoundingBox
	SizeBytes int64
}
