package network

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	gnet "github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// InterfacesFunc lists the network interfaces of the host
type InterfacesFunc func() (gnet.InterfaceStatList, error)

// Config contains connectivity monitor settings
type Config struct {
	PollInterval          time.Duration
	WifiInterfacePrefixes []string
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		PollInterval:          2 * time.Second,
		WifiInterfacePrefixes: []string{"wlan", "wlp", "wl", "wifi"},
	}
}

// Monitor derives connectivity from the host interface table
type Monitor struct {
	config     Config
	interfaces InterfacesFunc
	logger     *zap.Logger

	mu       sync.Mutex
	current  domain.ConnectivitySnapshot
	polled   bool
	watchers map[int]func(domain.ConnectivityObservation)
	nextID   int
}

// Ensure Monitor implements port.ConnectivityMonitor
var _ port.ConnectivityMonitor = (*Monitor)(nil)

// New creates a monitor that reads interfaces through gopsutil
func New(cfg Config, logger *zap.Logger) *Monitor {
	return NewWithInterfaces(cfg, gnet.Interfaces, logger)
}

// NewWithInterfaces creates a monitor with a custom interface source
func NewWithInterfaces(cfg Config, interfaces InterfacesFunc, logger *zap.Logger) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if len(cfg.WifiInterfacePrefixes) == 0 {
		cfg.WifiInterfacePrefixes = DefaultConfig().WifiInterfacePrefixes
	}
	return &Monitor{
		config:     cfg,
		interfaces: interfaces,
		logger:     logger,
		current:    domain.ConnectivitySnapshot{Active: domain.TransportNone},
		watchers:   make(map[int]func(domain.ConnectivityObservation)),
	}
}

// Snapshot returns the current network state
func (m *Monitor) Snapshot() domain.ConnectivitySnapshot {
	m.mu.Lock()
	polled := m.polled
	current := m.current
	m.mu.Unlock()

	if !polled {
		return m.Poll()
	}
	return current
}

// Watch registers fn for availability transitions
func (m *Monitor) Watch(fn func(domain.ConnectivityObservation)) port.Subscription {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.watchers[id] = fn
	m.mu.Unlock()

	return &subscription{cancel: func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}}
}

// Watchers returns the number of registered watchers
func (m *Monitor) Watchers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

// Poll reads the interface table once and notifies watchers on change
func (m *Monitor) Poll() domain.ConnectivitySnapshot {
	next := domain.ConnectivitySnapshot{Active: domain.TransportNone}
	ifaces, err := m.interfaces()
	if err != nil {
		m.logger.Warn("failed to list network interfaces", zap.Error(err))
	} else {
		next.Active = m.classify(ifaces)
	}

	m.mu.Lock()
	prev := m.current
	first := !m.polled
	m.current = next
	m.polled = true
	watchers := make([]func(domain.ConnectivityObservation), 0, len(m.watchers))
	for _, fn := range m.watchers {
		watchers = append(watchers, fn)
	}
	m.mu.Unlock()

	if first || prev.Active == next.Active {
		return next
	}

	m.logger.Info("connectivity changed",
		zap.String("from", string(prev.Active)),
		zap.String("to", string(next.Active)),
	)

	var observations []domain.ConnectivityObservation
	if prev.Connected() {
		observations = append(observations, domain.ConnectivityObservation{Transport: prev.Active, Available: false})
	}
	if next.Connected() {
		observations = append(observations, domain.ConnectivityObservation{Transport: next.Active, Available: true})
	}
	for _, obs := range observations {
		for _, fn := range watchers {
			fn(obs)
		}
	}
	return next
}

// Run polls until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	m.Poll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Poll()
		}
	}
}

// classify picks the best active transport: WiFi beats any other link
func (m *Monitor) classify(ifaces gnet.InterfaceStatList) domain.Transport {
	active := domain.TransportNone
	for _, iface := range ifaces {
		if !isUsable(iface) {
			continue
		}
		if m.isWiFi(iface.Name) {
			return domain.TransportWiFi
		}
		active = domain.TransportOther
	}
	return active
}

func (m *Monitor) isWiFi(name string) bool {
	for _, prefix := range m.config.WifiInterfacePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// isUsable reports whether an interface is up, not loopback and carries a
// routable address
func isUsable(iface gnet.InterfaceStat) bool {
	up := false
	for _, flag := range iface.Flags {
		switch flag {
		case "loopback":
			return false
		case "up":
			up = true
		}
	}
	if !up {
		return false
	}

	for _, addr := range iface.Addrs {
		ip, _, err := net.ParseCIDR(addr.Addr)
		if err != nil {
			ip = net.ParseIP(addr.Addr)
		}
		if ip != nil && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() {
			return true
		}
	}
	return false
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Cancel() {
	s.once.Do(s.cancel)
}
