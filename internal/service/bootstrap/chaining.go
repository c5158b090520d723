package bootstrap

import (
	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// Chaining resolves location updates to a region while the required files
// download. The first resolvable region is latched in the session.
type Chaining struct {
	m        *machine
	provider port.LocationProvider
	resolver port.RegionResolver
	exec     Executor
	logger   *zap.Logger

	listener *locationListener
	finished bool
	closed   bool
}

func newChaining(m *machine, provider port.LocationProvider, resolver port.RegionResolver, exec Executor, logger *zap.Logger) *Chaining {
	return &Chaining{
		m:        m,
		provider: provider,
		resolver: resolver,
		exec:     exec,
		logger:   logger,
	}
}

// Activate registers the location listener unless a region is already
// latched or the required-files phase has finished
func (c *Chaining) Activate() {
	if c.closed || c.finished || c.listener != nil {
		return
	}
	if c.m.session.ChainedRegion.IsSet() {
		return
	}

	c.listener = &locationListener{c: c}
	c.provider.AddListener(c.listener)
}

// Deactivate removes the location listener, if registered
func (c *Chaining) Deactivate() {
	if c.listener == nil {
		return
	}
	l := c.listener
	c.listener = nil
	c.provider.RemoveListener(l)
}

// Listening reports whether the location listener is registered
func (c *Chaining) Listening() bool {
	return c.listener != nil
}

// Finish stops chaining once the required-files phase is over. A region
// latched afterwards would be ignored, so none is accepted.
func (c *Chaining) Finish() {
	c.finished = true
	c.Deactivate()
}

// Close stops chaining for good
func (c *Chaining) Close() {
	c.closed = true
	c.Deactivate()
}

func (c *Chaining) onLocation(l *locationListener, loc domain.Location) {
	if c.closed || c.finished || c.listener != l {
		return
	}

	id := c.resolver.ResolveRegion(loc.Latitude, loc.Longitude)
	if id == "" {
		c.logger.Debug("no region at location",
			zap.String("session_id", c.m.id()),
			zap.Float64("lat", loc.Latitude),
			zap.Float64("lon", loc.Longitude),
		)
		return
	}
	if !c.m.session.ChainedRegion.Set(id) {
		return
	}

	c.m.touch()
	c.m.dispatch(event.NewRegionResolved(c.m.id(), id, loc.Latitude, loc.Longitude))
	c.Deactivate()
}

// locationListener posts location updates onto the executor. Each
// registration gets its own listener so updates of a removed one are ignored.
type locationListener struct {
	c *Chaining
}

func (l *locationListener) OnLocationUpdated(loc domain.Location) {
	l.c.exec.Post(func() { l.c.onLocation(l, loc) })
}
