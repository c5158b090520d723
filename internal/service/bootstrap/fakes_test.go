package bootstrap

import (
	"errors"
	"sync"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// manualExec queues posted functions until drain is called
type manualExec struct {
	queue []func()
}

func (e *manualExec) Post(fn func()) {
	e.queue = append(e.queue, fn)
}

func (e *manualExec) drain() {
	for len(e.queue) > 0 {
		fn := e.queue[0]
		e.queue = e.queue[1:]
		fn()
	}
}

type fakeResources struct {
	sizes []int64
	// syncResults maps a StartNextFile call number (from 1) to the code it
	// returns instead of issuing a request
	syncResults map[int]domain.ResultCode

	sizeQueries int
	starts      int
	overlaps    int
	cancels     int
	reloads     int
	reloadErr   error

	inFlight bool
	listener port.ResourceListener
}

func (r *fakeResources) QuerySizeToDownload() int64 {
	r.sizeQueries++
	if len(r.sizes) == 0 {
		return 0
	}
	size := r.sizes[0]
	if len(r.sizes) > 1 {
		r.sizes = r.sizes[1:]
	}
	return size
}

func (r *fakeResources) StartNextFile(listener port.ResourceListener) domain.ResultCode {
	r.starts++
	if r.inFlight {
		r.overlaps++
	}
	if code, ok := r.syncResults[r.starts]; ok {
		return code
	}
	r.inFlight = true
	r.listener = listener
	return domain.ResultSuccess
}

func (r *fakeResources) CancelCurrentFile() {
	r.cancels++
	r.inFlight = false
}

func (r *fakeResources) ReloadMaps() error {
	r.reloads++
	return r.reloadErr
}

func (r *fakeResources) progress(value int64) {
	r.listener.OnProgress(domain.ProgressUpdate{Value: value})
}

func (r *fakeResources) finish(code domain.ResultCode) {
	r.inFlight = false
	r.listener.OnFinish(code)
}

type fakeRegions struct {
	candidates  map[string]domain.RegionCandidate
	downloadErr error

	nextSlot     int
	listeners    map[int]port.RegionListener
	last         port.RegionListener
	unsubscribed []int
	downloads    []string
}

func newFakeRegions(candidates ...domain.RegionCandidate) *fakeRegions {
	r := &fakeRegions{
		candidates: make(map[string]domain.RegionCandidate),
		listeners:  make(map[int]port.RegionListener),
	}
	for _, c := range candidates {
		r.candidates[c.ID] = c
	}
	return r
}

func (r *fakeRegions) Subscribe(listener port.RegionListener) int {
	r.nextSlot++
	r.listeners[r.nextSlot] = listener
	r.last = listener
	return r.nextSlot
}

func (r *fakeRegions) Unsubscribe(slot int) {
	r.unsubscribed = append(r.unsubscribed, slot)
	delete(r.listeners, slot)
}

func (r *fakeRegions) Region(regionID string) (domain.RegionCandidate, error) {
	c, ok := r.candidates[regionID]
	if !ok {
		return domain.RegionCandidate{}, domain.ErrRegionNotFound
	}
	return c, nil
}

func (r *fakeRegions) Download(regionID string) error {
	r.downloads = append(r.downloads, regionID)
	return r.downloadErr
}

// emit delivers events to the most recent listener, even a released one
func (r *fakeRegions) emit(events ...domain.RegionEvent) {
	r.last.OnStatusChanged(events)
}

func (r *fakeRegions) progress(regionID string, local, remote int64) {
	r.last.OnProgress(regionID, local, remote)
}

type fakeResolver map[domain.Location]string

func (f fakeResolver) ResolveRegion(lat, lon float64) string {
	return f[domain.Location{Latitude: lat, Longitude: lon}]
}

type fakeLocation struct {
	listeners []port.LocationListener
	added     int
	removed   int
}

func (l *fakeLocation) AddListener(listener port.LocationListener) {
	l.added++
	l.listeners = append(l.listeners, listener)
}

func (l *fakeLocation) RemoveListener(listener port.LocationListener) {
	for i, existing := range l.listeners {
		if existing == listener {
			l.removed++
			l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
			return
		}
	}
}

func (l *fakeLocation) deliver(lat, lon float64) {
	for _, listener := range append([]port.LocationListener(nil), l.listeners...) {
		listener.OnLocationUpdated(domain.Location{Latitude: lat, Longitude: lon})
	}
}

type fakeConnectivity struct {
	mu       sync.Mutex
	snapshot domain.ConnectivitySnapshot
	nextID   int
	watchers map[int]func(domain.ConnectivityObservation)
}

func newFakeConnectivity(active domain.Transport) *fakeConnectivity {
	return &fakeConnectivity{
		snapshot: domain.ConnectivitySnapshot{Active: active},
		watchers: make(map[int]func(domain.ConnectivityObservation)),
	}
}

func (c *fakeConnectivity) Snapshot() domain.ConnectivitySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

func (c *fakeConnectivity) Watch(fn func(domain.ConnectivityObservation)) port.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.watchers[id] = fn
	return &fakeSubscription{cancel: func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}}
}

func (c *fakeConnectivity) watcherCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.watchers)
}

// switchTo changes the active transport and notifies watchers
func (c *fakeConnectivity) switchTo(active domain.Transport) {
	c.mu.Lock()
	prev := c.snapshot
	c.snapshot = domain.ConnectivitySnapshot{Active: active}
	fns := make([]func(domain.ConnectivityObservation), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		if prev.Connected() {
			fn(domain.ConnectivityObservation{Transport: prev.Active, Available: false})
		}
		if active != domain.TransportNone {
			fn(domain.ConnectivityObservation{Transport: active, Available: true})
		}
	}
}

type fakeSubscription struct {
	once   sync.Once
	cancel func()
}

func (s *fakeSubscription) Cancel() {
	s.once.Do(s.cancel)
}

type fakePrefs struct {
	wifiOnly bool
}

func (p *fakePrefs) IsWifiOnlyDownloadsEnabled() bool {
	return p.wifiOnly
}

type fakeSurface struct {
	updates       []domain.ScreenUpdate
	modals        []domain.Modal
	onDismiss     []func()
	dismissCalls  int
	prompts       []domain.Prompt
	decide        func(bool)
	proceeds      int
	modalsVisible int
}

func (s *fakeSurface) Update(update domain.ScreenUpdate) {
	s.updates = append(s.updates, update)
}

func (s *fakeSurface) ShowModal(modal domain.Modal, onDismiss func()) {
	s.modals = append(s.modals, modal)
	s.onDismiss = append(s.onDismiss, onDismiss)
	s.modalsVisible++
}

func (s *fakeSurface) DismissModal() {
	s.dismissCalls++
	if s.modalsVisible > 0 {
		s.modalsVisible--
	}
}

func (s *fakeSurface) Confirm(prompt domain.Prompt, decide func(bool)) {
	s.prompts = append(s.prompts, prompt)
	s.decide = decide
}

func (s *fakeSurface) Proceed() {
	s.proceeds++
}

func (s *fakeSurface) last() domain.ScreenUpdate {
	if len(s.updates) == 0 {
		return domain.ScreenUpdate{}
	}
	return s.updates[len(s.updates)-1]
}

// userDismiss dismisses the most recent modal the way a user would
func (s *fakeSurface) userDismiss() {
	if s.modalsVisible > 0 {
		s.modalsVisible--
	}
	s.onDismiss[len(s.onDismiss)-1]()
}

// eventLog records every dispatched event
type eventLog struct {
	events []event.DomainEvent
}

func (l *eventLog) Handle(e event.DomainEvent) error {
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) HandledEvents() []string { return []string{"*"} }

func (l *eventLog) count(name string) int {
	n := 0
	for _, e := range l.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

func (l *eventLog) visited(state domain.SessionState) bool {
	for _, e := range l.events {
		if sc, ok := e.(event.StateChanged); ok && sc.To == state {
			return true
		}
	}
	return false
}

var errBoom = errors.New("boom")
