package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
)

// Config represents the entire application configuration
type Config struct {
	Resources   ResourcesConfig   `mapstructure:"resources"`
	Regions     RegionsConfig     `mapstructure:"regions"`
	Network     NetworkConfig     `mapstructure:"network"`
	Location    LocationConfig    `mapstructure:"location"`
	Surface     SurfaceConfig     `mapstructure:"surface"`
	Session     SessionConfig     `mapstructure:"session"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
}

// ResourcesConfig contains the required resource download settings
type ResourcesConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	Dir            string   `mapstructure:"dir"`
	Files          []string `mapstructure:"files"`
	MinFreeSpaceMB int      `mapstructure:"min_free_space_mb"`
	BufferSizeMB   int      `mapstructure:"buffer_size_mb"`
	RequestTimeout string   `mapstructure:"request_timeout"`
	ProbeWorkers   int      `mapstructure:"probe_workers"`
	TempFileMaxAge string   `mapstructure:"temp_file_max_age"`
}

// RegionEntry is one region catalog entry
type RegionEntry struct {
	ID        string             `mapstructure:"id"`
	Name      string             `mapstructure:"name"`
	Bounds    domain.BoundingBox `mapstructure:"bounds"`
	SizeBytes int64              `mapstructure:"size_bytes"`
}

// RegionsConfig contains region download settings
type RegionsConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Dir          string        `mapstructure:"dir"`
	RegistryPath string        `mapstructure:"registry_path"`
	Catalog      []RegionEntry `mapstructure:"catalog"`
}

// NetworkConfig contains connectivity settings
type NetworkConfig struct {
	WifiOnlyDefault       bool     `mapstructure:"wifi_only_default"`
	PollInterval          string   `mapstructure:"poll_interval"`
	WifiInterfacePrefixes []string `mapstructure:"wifi_interface_prefixes"`
}

// LocationConfig contains the location provider settings
type LocationConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Interval  string  `mapstructure:"interval"`
}

// SurfaceConfig contains console surface settings
type SurfaceConfig struct {
	Interactive      bool   `mapstructure:"interactive"`
	AssumeYes        bool   `mapstructure:"assume_yes"`
	ProgressInterval string `mapstructure:"progress_interval"`
}

// SessionConfig contains session supervision settings
type SessionConfig struct {
	RetryOnConnectivity bool   `mapstructure:"retry_on_connectivity"`
	MaxAttempts         int    `mapstructure:"max_attempts"`
	RetryBackoff        string `mapstructure:"retry_backoff"`
}

// MaintenanceConfig contains background housekeeping settings
type MaintenanceConfig struct {
	Enabled                  bool   `mapstructure:"enabled"`
	StaleRegionCheckInterval string `mapstructure:"stale_region_check_interval"`
	StaleRegionTimeout       string `mapstructure:"stale_region_timeout"`
	CleanupInterval          string `mapstructure:"cleanup_interval"`
	HistoryMaxAge            string `mapstructure:"history_max_age"`
}

// HTTPConfig contains status server configuration
type HTTPConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	BindAddr     string `mapstructure:"bind_addr"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path          string `mapstructure:"path"`
	CacheSizeMB   int    `mapstructure:"cache_size_mb"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms"`
}

// setDefaults registers a default for every key
func setDefaults(v *viper.Viper) {
	v.SetDefault("resources.base_url", "")
	v.SetDefault("resources.dir", "/var/lib/map-bootstrap/maps")
	v.SetDefault("resources.files", []string{"World.mwm", "WorldCoasts.mwm"})
	v.SetDefault("resources.min_free_space_mb", 100)
	v.SetDefault("resources.buffer_size_mb", 1)
	v.SetDefault("resources.request_timeout", "30s")
	v.SetDefault("resources.probe_workers", 4)
	v.SetDefault("resources.temp_file_max_age", "24h")
	v.SetDefault("regions.base_url", "")
	v.SetDefault("regions.dir", "")
	v.SetDefault("regions.registry_path", "")
	v.SetDefault("network.wifi_only_default", true)
	v.SetDefault("network.poll_interval", "2s")
	v.SetDefault("network.wifi_interface_prefixes", []string{"wlan", "wlp", "wl", "wifi"})
	v.SetDefault("location.enabled", false)
	v.SetDefault("location.latitude", 0.0)
	v.SetDefault("location.longitude", 0.0)
	v.SetDefault("location.interval", "5s")
	v.SetDefault("surface.interactive", false)
	v.SetDefault("surface.assume_yes", false)
	v.SetDefault("surface.progress_interval", "500ms")
	v.SetDefault("session.retry_on_connectivity", true)
	v.SetDefault("session.max_attempts", 3)
	v.SetDefault("session.retry_backoff", "30s")
	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.stale_region_check_interval", "5m")
	v.SetDefault("maintenance.stale_region_timeout", "1h")
	v.SetDefault("maintenance.cleanup_interval", "1h")
	v.SetDefault("maintenance.history_max_age", "720h")
	v.SetDefault("http.enabled", false)
	v.SetDefault("http.bind_addr", "127.0.0.1:8081")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("database.path", "")
	v.SetDefault("database.cache_size_mb", 16)
	v.SetDefault("database.busy_timeout_ms", 5000)
}

// Load loads configuration from the specified file path.
// An empty path loads the defaults only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MAP_BOOTSTRAP")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		// Read config file
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDerivedDefaults()

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyDerivedDefaults fills paths that default relative to other keys
func (c *Config) applyDerivedDefaults() {
	if c.Regions.BaseURL == "" {
		c.Regions.BaseURL = c.Resources.BaseURL
	}
	if c.Regions.Dir == "" {
		c.Regions.Dir = c.Resources.Dir
	}
	if c.Regions.RegistryPath == "" {
		c.Regions.RegistryPath = c.Resources.Dir + "/regions.db"
	}
	if c.Database.Path == "" {
		c.Database.Path = c.Resources.Dir + "/bootstrap.db"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate resources config
	if c.Resources.BaseURL == "" {
		return fmt.Errorf("resources.base_url is required")
	}
	if _, err := url.ParseRequestURI(c.Resources.BaseURL); err != nil {
		return fmt.Errorf("invalid resources.base_url: %w", err)
	}
	if c.Resources.Dir == "" {
		return fmt.Errorf("resources.dir is required")
	}
	if len(c.Resources.Files) == 0 {
		return fmt.Errorf("resources.files must list at least one file")
	}
	if c.Resources.MinFreeSpaceMB < 0 {
		return fmt.Errorf("resources.min_free_space_mb must not be negative")
	}
	if c.Resources.ProbeWorkers < 1 || c.Resources.ProbeWorkers > 16 {
		return fmt.Errorf("resources.probe_workers must be between 1 and 16")
	}
	if _, err := time.ParseDuration(c.Resources.RequestTimeout); err != nil {
		return fmt.Errorf("invalid resources.request_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Resources.TempFileMaxAge); err != nil {
		return fmt.Errorf("invalid resources.temp_file_max_age: %w", err)
	}

	// Validate region catalog
	seen := make(map[string]bool, len(c.Regions.Catalog))
	for i, r := range c.Regions.Catalog {
		if r.ID == "" {
			return fmt.Errorf("regions.catalog[%d].id is required", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("regions.catalog[%d]: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		if !r.Bounds.Valid() {
			return fmt.Errorf("regions.catalog[%d].bounds is invalid", i)
		}
		if r.SizeBytes < 0 {
			return fmt.Errorf("regions.catalog[%d].size_bytes must not be negative", i)
		}
	}

	// Validate intervals
	if _, err := time.ParseDuration(c.Network.PollInterval); err != nil {
		return fmt.Errorf("invalid network.poll_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Location.Interval); err != nil {
		return fmt.Errorf("invalid location.interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Surface.ProgressInterval); err != nil {
		return fmt.Errorf("invalid surface.progress_interval: %w", err)
	}
	if c.Location.Enabled {
		if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
			return fmt.Errorf("location.latitude must be between -90 and 90")
		}
		if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
			return fmt.Errorf("location.longitude must be between -180 and 180")
		}
	}

	if c.Session.MaxAttempts < 1 {
		return fmt.Errorf("session.max_attempts must be positive")
	}
	if c.Session.RetryBackoff != "" {
		if _, err := time.ParseDuration(c.Session.RetryBackoff); err != nil {
			return fmt.Errorf("invalid session.retry_backoff: %w", err)
		}
	}

	// Validate maintenance config
	if c.Maintenance.Enabled {
		durations := map[string]string{
			"stale_region_check_interval": c.Maintenance.StaleRegionCheckInterval,
			"stale_region_timeout":        c.Maintenance.StaleRegionTimeout,
			"cleanup_interval":            c.Maintenance.CleanupInterval,
			"history_max_age":             c.Maintenance.HistoryMaxAge,
		}
		for key, value := range durations {
			if value == "" {
				continue
			}
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid maintenance.%s: %w", key, err)
			}
		}
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetMinFreeSpace returns the free space reserve in bytes
func (c *ResourcesConfig) GetMinFreeSpace() int64 {
	return int64(c.MinFreeSpaceMB) * 1024 * 1024
}

// GetBufferSize returns the copy buffer size in bytes
func (c *ResourcesConfig) GetBufferSize() int {
	if c.BufferSizeMB <= 0 {
		return 1024 * 1024 // 1MB default
	}
	return c.BufferSizeMB * 1024 * 1024
}

// GetRequestTimeout returns the per-request timeout as time.Duration
func (c *ResourcesConfig) GetRequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetTempFileMaxAge returns the age after which stale temp files are removed
func (c *ResourcesConfig) GetTempFileMaxAge() time.Duration {
	d, _ := time.ParseDuration(c.TempFileMaxAge)
	if d == 0 {
		return 24 * time.Hour
	}
	return d
}

// CatalogRegions converts the configured entries to domain regions
func (c *RegionsConfig) CatalogRegions() []domain.CatalogRegion {
	regions := make([]domain.CatalogRegion, 0, len(c.Catalog))
	for _, r := range c.Catalog {
		name := r.Name
		if name == "" {
			name = r.ID
		}
		regions = append(regions, domain.CatalogRegion{
			ID:        r.ID,
			Name:      name,
			Bounds:    r.Bounds,
			SizeBytes: r.SizeBytes,
		})
	}
	return regions
}

// GetPollInterval returns the connectivity poll interval as time.Duration
func (c *NetworkConfig) GetPollInterval() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	if d == 0 {
		return 2 * time.Second
	}
	return d
}

// GetInterval returns the location redelivery interval as time.Duration
func (c *LocationConfig) GetInterval() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	if d == 0 {
		return 5 * time.Second
	}
	return d
}

// GetProgressInterval returns the progress redraw interval as time.Duration
func (c *SurfaceConfig) GetProgressInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProgressInterval)
	return d
}

// GetRetryBackoff returns the wait before retrying on an eligible network
func (c *SessionConfig) GetRetryBackoff() time.Duration {
	d, _ := time.ParseDuration(c.RetryBackoff)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *HTTPConfig) GetReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

// GetWriteTimeout returns the write timeout as time.Duration
func (c *HTTPConfig) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *HTTPConfig) GetIdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	if d == 0 {
		return 60 * time.Second
	}
	return d
}

// GetStaleRegionCheckInterval returns how often stale region records are reset
func (c *MaintenanceConfig) GetStaleRegionCheckInterval() time.Duration {
	d, _ := time.ParseDuration(c.StaleRegionCheckInterval)
	if d == 0 {
		return 5 * time.Minute
	}
	return d
}

// GetStaleRegionTimeout returns when a queued region record counts as stale
func (c *MaintenanceConfig) GetStaleRegionTimeout() time.Duration {
	d, _ := time.ParseDuration(c.StaleRegionTimeout)
	if d == 0 {
		return time.Hour
	}
	return d
}

// GetCleanupInterval returns how often history and temp files are cleaned
func (c *MaintenanceConfig) GetCleanupInterval() time.Duration {
	d, _ := time.ParseDuration(c.CleanupInterval)
	if d == 0 {
		return time.Hour
	}
	return d
}

// GetHistoryMaxAge returns the retention of session history rows
func (c *MaintenanceConfig) GetHistoryMaxAge() time.Duration {
	d, _ := time.ParseDuration(c.HistoryMaxAge)
	if d == 0 {
		return 30 * 24 * time.Hour
	}
	return d
}
