package location

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// Config contains location provider settings
type Config struct {
	Enabled   bool
	Latitude  float64
	Longitude float64
	Interval  time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
	}
}

// Provider delivers a configured fix to its listeners, once on registration
// and then on every interval. A disabled provider never delivers.
// Listeners must be comparable, which pointer receivers are.
type Provider struct {
	config Config
	logger *zap.Logger

	mu        sync.Mutex
	listeners []port.LocationListener
}

// Ensure Provider implements port.LocationProvider
var _ port.LocationProvider = (*Provider)(nil)

// New creates a new location provider
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Provider{
		config: cfg,
		logger: logger,
	}
}

// AddListener registers a listener and hands it the current fix
func (p *Provider) AddListener(listener port.LocationListener) {
	p.mu.Lock()
	for _, l := range p.listeners {
		if l == listener {
			p.mu.Unlock()
			return
		}
	}
	p.listeners = append(p.listeners, listener)
	p.mu.Unlock()

	p.logger.Debug("location listener added")
	if fix, ok := p.fix(); ok {
		listener.OnLocationUpdated(fix)
	}
}

// RemoveListener unregisters a listener
func (p *Provider) RemoveListener(listener port.LocationListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, l := range p.listeners {
		if l == listener {
			p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
			p.logger.Debug("location listener removed")
			return
		}
	}
}

// Listeners returns the number of registered listeners
func (p *Provider) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// Deliver hands a fix to every registered listener
func (p *Provider) Deliver(fix domain.Location) {
	p.mu.Lock()
	listeners := append([]port.LocationListener(nil), p.listeners...)
	p.mu.Unlock()

	for _, l := range listeners {
		l.OnLocationUpdated(fix)
	}
}

// Run redelivers the configured fix until ctx is cancelled
func (p *Provider) Run(ctx context.Context) error {
	fix, ok := p.fix()
	if !ok {
		p.logger.Info("location provider disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Deliver(fix)
		}
	}
}

func (p *Provider) fix() (domain.Location, bool) {
	if !p.config.Enabled {
		return domain.Location{}, false
	}
	return domain.Location{Latitude: p.config.Latitude, Longitude: p.config.Longitude}, true
}
