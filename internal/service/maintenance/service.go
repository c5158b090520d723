package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config contains maintenance service configuration
type Config struct {
	// StaleRegionCheckInterval is how often to check for stale region records
	StaleRegionCheckInterval time.Duration

	// StaleRegionTimeout is when a queued or in-progress region is considered stale
	StaleRegionTimeout time.Duration

	// CleanupInterval is how often to run cleanup tasks
	CleanupInterval time.Duration

	// HistoryMaxAge is the maximum age of session events before pruning
	HistoryMaxAge time.Duration

	// TempFileMaxAge is the maximum age of temp files before cleanup
	TempFileMaxAge time.Duration
}

// DefaultConfig returns default maintenance configuration
func DefaultConfig() *Config {
	return &Config{
		StaleRegionCheckInterval: 5 * time.Minute,
		StaleRegionTimeout:       time.Hour,
		CleanupInterval:          time.Hour,
		HistoryMaxAge:            30 * 24 * time.Hour,
		TempFileMaxAge:           24 * time.Hour,
	}
}

// RegionRecords resets region records left behind by interrupted downloads
type RegionRecords interface {
	ResetStale(olderThan time.Duration) (int, error)
}

// HistoryPruner removes old session events
type HistoryPruner interface {
	PruneSessionEvents(olderThan time.Duration) (int, error)
}

// TempCleaner removes abandoned temp files from a storage root
type TempCleaner interface {
	RootDir() string
	CleanOldTempFiles(olderThan time.Duration) (int, error)
}

// Service handles periodic maintenance tasks
type Service struct {
	config   *Config
	regions  RegionRecords
	history  HistoryPruner
	storages []TempCleaner
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new maintenance Service. Storages sharing a root are cleaned
// once.
func New(cfg *Config, regions RegionRecords, history HistoryPruner, logger *zap.Logger, storages ...TempCleaner) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	defaults := DefaultConfig()
	if cfg.StaleRegionCheckInterval == 0 {
		cfg.StaleRegionCheckInterval = defaults.StaleRegionCheckInterval
	}
	if cfg.StaleRegionTimeout == 0 {
		cfg.StaleRegionTimeout = defaults.StaleRegionTimeout
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}
	if cfg.HistoryMaxAge == 0 {
		cfg.HistoryMaxAge = defaults.HistoryMaxAge
	}
	if cfg.TempFileMaxAge == 0 {
		cfg.TempFileMaxAge = defaults.TempFileMaxAge
	}

	seen := make(map[string]bool, len(storages))
	unique := make([]TempCleaner, 0, len(storages))
	for _, st := range storages {
		if seen[st.RootDir()] {
			continue
		}
		seen[st.RootDir()] = true
		unique = append(unique, st)
	}

	return &Service{
		config:   cfg,
		regions:  regions,
		history:  history,
		storages: unique,
		logger:   logger,
	}
}

// Start starts the maintenance service. Stale region records are reset once
// right away.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("maintenance service already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("maintenance service started",
		zap.Duration("stale_check_interval", s.config.StaleRegionCheckInterval),
		zap.Duration("cleanup_interval", s.config.CleanupInterval))

	s.resetStaleRegions()

	s.wg.Add(1)
	go s.maintenanceLoop(ctx)

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("maintenance service stopped")
	return nil
}

// Stop stops the maintenance service
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
}

// maintenanceLoop handles periodic maintenance tasks
func (s *Service) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()

	staleTicker := time.NewTicker(s.config.StaleRegionCheckInterval)
	defer staleTicker.Stop()

	cleanupTicker := time.NewTicker(s.config.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-staleTicker.C:
			s.resetStaleRegions()
		case <-cleanupTicker.C:
			s.pruneHistory()
			s.cleanupTempFiles()
		}
	}
}

// resetStaleRegions resets regions that have been queued for too long
func (s *Service) resetStaleRegions() {
	if s.regions == nil {
		return
	}
	reset, err := s.regions.ResetStale(s.config.StaleRegionTimeout)
	if err != nil {
		s.logger.Error("failed to reset stale region records", zap.Error(err))
	} else if reset > 0 {
		s.logger.Info("reset stale region records", zap.Int("count", reset))
	}
}

// pruneHistory removes old session events
func (s *Service) pruneHistory() {
	if s.history == nil {
		return
	}
	pruned, err := s.history.PruneSessionEvents(s.config.HistoryMaxAge)
	if err != nil {
		s.logger.Error("failed to prune session history", zap.Error(err))
	} else if pruned > 0 {
		s.logger.Info("pruned session history", zap.Int("count", pruned))
	}
}

// cleanupTempFiles removes old temporary files from every storage root
func (s *Service) cleanupTempFiles() {
	for _, st := range s.storages {
		fileCount, err := st.CleanOldTempFiles(s.config.TempFileMaxAge)
		if err != nil {
			s.logger.Error("failed to cleanup old temp files", zap.String("dir", st.RootDir()), zap.Error(err))
		} else if fileCount > 0 {
			s.logger.Info("cleaned up old temp files", zap.String("dir", st.RootDir()), zap.Int("count", fileCount))
		}
	}
}
