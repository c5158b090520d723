package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// Ensure Store implements port.RegionCatalog
var _ port.RegionCatalog = (*Store)(nil)

// UpsertRegion creates or replaces a catalog entry
func (s *Store) UpsertRegion(r domain.CatalogRegion) error {
	if r.ID == "" {
		return domain.ErrEmptyRegionID
	}
	if !r.Bounds.Valid() {
		return fmt.Errorf("%w: bounds of region %s", domain.ErrInvalidInput, r.ID)
	}

	_, err := s.db.Exec(`
		INSERT INTO regions (id, name, min_lat, min_lon, max_lat, max_lon, size_bytes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			min_lat = excluded.min_lat,
			min_lon = excluded.min_lon,
			max_lat = excluded.max_lat,
			max_lon = excluded.max_lon,
			size_bytes = excluded.size_bytes,
			updated_at = CURRENT_TIMESTAMP
	`, r.ID, r.Name, r.Bounds.MinLat, r.Bounds.MinLon, r.Bounds.MaxLat, r.Bounds.MaxLon, r.SizeBytes)
	if err != nil {
		return fmt.Errorf("failed to upsert region %s: %w", r.ID, err)
	}
	return nil
}

// ImportRegions upserts all given regions in one transaction
func (s *Store) ImportRegions(regions []domain.CatalogRegion) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO regions (id, name, min_lat, min_lon, max_lat, max_lon, size_bytes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			min_lat = excluded.min_lat,
			min_lon = excluded.min_lon,
			max_lat = excluded.max_lat,
			max_lon = excluded.max_lon,
			size_bytes = excluded.size_bytes,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range regions {
		if r.ID == "" {
			return domain.ErrEmptyRegionID
		}
		if !r.Bounds.Valid() {
			return fmt.Errorf("%w: bounds of region %s", domain.ErrInvalidInput, r.ID)
		}
		if _, err := stmt.Exec(r.ID, r.Name, r.Bounds.MinLat, r.Bounds.MinLon, r.Bounds.MaxLat, r.Bounds.MaxLon, r.SizeBytes); err != nil {
			return fmt.Errorf("failed to import region %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// GetRegion returns a catalog entry or domain.ErrRegionNotFound
func (s *Store) GetRegion(regionID string) (*domain.CatalogRegion, error) {
	r := &domain.CatalogRegion{}
	err := s.db.QueryRow(`
		SELECT id, name, min_lat, min_lon, max_lat, max_lon, size_bytes
		FROM regions
		WHERE id = ?
	`, regionID).Scan(&r.ID, &r.Name, &r.Bounds.MinLat, &r.Bounds.MinLon, &r.Bounds.MaxLat, &r.Bounds.MaxLon, &r.SizeBytes)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", domain.ErrRegionNotFound, regionID)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ResolveRegion returns the id of the smallest region containing the point,
// or "" when no region does
func (s *Store) ResolveRegion(lat, lon float64) string {
	var id string
	err := s.db.QueryRow(`
		SELECT id FROM regions
		WHERE ? BETWEEN min_lat AND max_lat
		  AND ? BETWEEN min_lon AND max_lon
		ORDER BY (max_lat - min_lat) * (max_lon - min_lon) ASC, id ASC
		LIMIT 1
	`, lat, lon).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ""
	}
	if err != nil {
		s.logger.Error("failed to resolve region",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return ""
	}
	return id
}

// CountRegions returns the number of catalog entries
func (s *Store) CountRegions() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM regions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
