package sqlite

import (
	"database/sql"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/port"
)

const keyWifiOnlyDownloads = "pref.wifi_only_downloads"

// Ensure Store implements port.PreferenceStore
var _ port.PreferenceStore = (*Store)(nil)

// SeedPreferences stores defaults for preferences that were never written
func (s *Store) SeedPreferences(wifiOnly bool) error {
	s.wifiOnlyDefault = wifiOnly
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)`,
		keyWifiOnlyDownloads, strconv.FormatBool(wifiOnly),
	)
	if err != nil {
		return fmt.Errorf("failed to seed preferences: %w", err)
	}
	return nil
}

// IsWifiOnlyDownloadsEnabled reports the "WiFi-only downloads" preference.
// A missing or unreadable value falls back to the seeded default.
func (s *Store) IsWifiOnlyDownloadsEnabled() bool {
	value, err := s.getMeta(keyWifiOnlyDownloads)
	if err != nil {
		s.logger.Warn("failed to read preference, using default",
			zap.String("key", keyWifiOnlyDownloads),
			zap.Error(err),
		)
		return s.wifiOnlyDefault
	}
	if value == "" {
		return s.wifiOnlyDefault
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return s.wifiOnlyDefault
	}
	return enabled
}

// SetWifiOnlyDownloadsEnabled persists the "WiFi-only downloads" preference
func (s *Store) SetWifiOnlyDownloadsEnabled(enabled bool) error {
	return s.setMeta(keyWifiOnlyDownloads, strconv.FormatBool(enabled))
}

func (s *Store) getMeta(key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

func (s *Store) setMeta(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO meta (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
