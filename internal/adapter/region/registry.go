package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
)

const (
	regionsBucket  = "regions"
	metadataBucket = "metadata"
	schemaVersion  = 1
)

// ErrRecordNotFound is returned when a region has no registry record
var ErrRecordNotFound = errors.New("region record not found")

// Record is the stored download state of a region
type Record struct {
	RegionID   string              `json:"region_id"`
	Status     domain.RegionStatus `json:"status"`
	LocalBytes int64               `json:"local_bytes"`
	SizeBytes  int64               `json:"size_bytes"`
	ErrorCode  domain.ResultCode   `json:"error_code,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Registry persists region download state in bbolt
type Registry struct {
	db *bbolt.DB
}

// OpenRegistry opens or creates the registry database
func OpenRegistry(dbPath string) (*Registry, error) {
	options := &bbolt.Options{
		Timeout: 1 * time.Second,
	}

	db, err := bbolt.Open(dbPath, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open region registry: %w", err)
	}

	r := &Registry{db: db}
	if err := r.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// initialize sets up buckets and schema
func (r *Registry) initialize() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(regionsBucket)); err != nil {
			return fmt.Errorf("failed to create regions bucket: %w", err)
		}

		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}

		versionBytes := []byte(fmt.Sprintf("%d", schemaVersion))
		if err := meta.Put([]byte("schema_version"), versionBytes); err != nil {
			return fmt.Errorf("failed to store schema version: %w", err)
		}
		return nil
	})
}

// Put stores a record
func (r *Registry) Put(rec Record) error {
	if rec.RegionID == "" {
		return domain.ErrEmptyRegionID
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(regionsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", regionsBucket)
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		return bucket.Put([]byte(rec.RegionID), data)
	})
}

// Get returns the record of a region or ErrRecordNotFound
func (r *Registry) Get(regionID string) (*Record, error) {
	var data []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(regionsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", regionsBucket)
		}
		v := bucket.Get([]byte(regionID))
		if v == nil {
			return ErrRecordNotFound
		}
		// bbolt values are only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}

// All returns every stored record
func (r *Registry) All() ([]Record, error) {
	var records []Record
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(regionsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", regionsBucket)
		}
		return bucket.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ResetStale marks queued or in-progress records that were not updated for
// olderThan as not downloaded. Such records are left behind by an interrupted
// run. Returns the number of records reset.
func (r *Registry) ResetStale(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	reset := 0

	err := r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(regionsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", regionsBucket)
		}

		var stale []Record
		err := bucket.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			switch rec.Status {
			case domain.RegionStatusInQueue, domain.RegionStatusProgress:
				if rec.UpdatedAt.Before(cutoff) {
					stale = append(stale, rec)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		// Keys must not be written while ForEach iterates
		for _, rec := range stale {
			rec.Status = domain.RegionStatusNotDownloaded
			rec.LocalBytes = 0
			rec.UpdatedAt = time.Now()
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal record: %w", err)
			}
			if err := bucket.Put([]byte(rec.RegionID), data); err != nil {
				return err
			}
		}
		reset = len(stale)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reset, nil
}

// Close closes the database
func (r *Registry) Close() error {
	return r.db.Close()
}
