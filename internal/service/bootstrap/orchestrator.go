package bootstrap

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// Deps holds the collaborators of one bootstrap session
type Deps struct {
	Resources    port.ResourceEngine
	Regions      port.RegionEngine
	Resolver     port.RegionResolver
	Location     port.LocationProvider
	Connectivity port.ConnectivityMonitor
	Preferences  port.PreferenceStore
	Surface      port.Surface
	Events       event.EventDispatcher
}

// Orchestrator drives one bootstrap screen lifetime. Every method except
// Snapshot, State and Done must run on the executor.
type Orchestrator struct {
	exec   Executor
	logger *zap.Logger

	m         *machine
	ui        *screen
	gate      *Gate
	presenter *Presenter
	sequencer *Sequencer
	chaining  *Chaining
	followUp  *FollowUp

	view     atomic.Pointer[domain.SessionView]
	done     chan struct{}
	doneOnce sync.Once

	created   bool
	destroyed bool
}

// NewOrchestrator creates a session in the idle state
func NewOrchestrator(deps Deps, exec Executor, logger *zap.Logger) *Orchestrator {
	session := domain.NewDownloadSession()

	m := newMachine(session, deps.Events, logger)
	ui := newScreen(deps.Surface)
	gate := NewGate(deps.Preferences, deps.Connectivity, exec)
	presenter := newPresenter(m, deps.Surface, gate, exec, logger)

	o := &Orchestrator{
		exec:      exec,
		logger:    logger,
		m:         m,
		ui:        ui,
		gate:      gate,
		presenter: presenter,
		sequencer: newSequencer(m, deps.Resources, exec, ui, presenter, logger),
		chaining:  newChaining(m, deps.Location, deps.Resolver, exec, logger),
		followUp:  newFollowUp(m, deps.Regions, gate, deps.Surface, ui, presenter, exec, logger),
		done:      make(chan struct{}),
	}
	o.sequencer.onReady = o.resourcesReady
	o.followUp.onProceed = o.ui.proceed
	m.onUpdate = o.publish
	m.onChange = o.changed
	o.publish()
	return o
}

// Create runs the size query and shows the initial screen
func (o *Orchestrator) Create() {
	if o.created || o.destroyed {
		return
	}
	o.created = true
	o.m.dispatch(event.NewSessionStarted(o.m.id()))

	o.ui.message(TextDownloadingWorldMap, "", domain.IconGlobe)
	o.sequencer.Prepare()
}

// Resume starts location chaining and, if permitted, the download. While the
// required files are missing the gate is watched for WiFi.
func (o *Orchestrator) Resume() {
	if o.destroyed {
		return
	}
	if !o.created {
		o.Create()
	}

	if o.m.state().IsTerminal() {
		return
	}
	o.chaining.Activate()
	if o.m.session.ResourcesDownloaded() {
		return
	}

	if o.gate.MayDownload() {
		o.start()
	} else if o.sequencer.CanStart() {
		o.ui.message(TextConnectToWiFiTitle, TextConnectToWiFi, domain.IconWiFiOff)
	}
	o.gate.Watch(o.start)
}

// Pause stops watching location and connectivity and dismisses the modal
func (o *Orchestrator) Pause() {
	if o.destroyed {
		return
	}
	o.chaining.Deactivate()
	o.presenter.Dismiss()
	o.gate.Unwatch()
}

// Destroy releases every registration. Callbacks arriving afterwards are
// ignored.
func (o *Orchestrator) Destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true

	o.gate.Unwatch()
	o.chaining.Close()
	o.followUp.Close()
	o.sequencer.Close()
	o.presenter.Close()
	o.ui.close()
	o.logger.Debug("bootstrap session destroyed",
		zap.String("session_id", o.m.id()),
		zap.String("state", string(o.m.state())),
	)
}

// start begins the required-files download. Calls after it has begun are
// no-ops.
func (o *Orchestrator) start() {
	if o.destroyed || !o.sequencer.CanStart() {
		return
	}
	o.ui.message(TextDownloadingWorldMap, downloadResourcesText(o.m.session.TotalBytes), domain.IconGlobe)
	o.sequencer.Start()
}

// resourcesReady runs once the required files are in place
func (o *Orchestrator) resourcesReady() {
	o.chaining.Finish()
	o.gate.Unwatch()
	if !o.m.transition(domain.StateAwaitingChain) {
		return
	}

	if id, ok := o.m.session.ChainedRegion.Get(); ok {
		o.followUp.Start(id)
		return
	}
	o.followUp.skip()
}

func (o *Orchestrator) publish() {
	view := o.m.session.View()
	o.view.Store(&view)
}

func (o *Orchestrator) changed(from, to domain.SessionState) {
	if !to.IsTerminal() {
		return
	}
	o.m.dispatch(event.NewSessionTerminated(o.m.id(), to, time.Since(o.m.session.StartedAt)))
	o.doneOnce.Do(func() { close(o.done) })
}

// Snapshot returns the latest published session view. Safe from any goroutine.
func (o *Orchestrator) Snapshot() domain.SessionView {
	return *o.view.Load()
}

// State returns the latest published session state. Safe from any goroutine.
func (o *Orchestrator) State() domain.SessionState {
	return o.Snapshot().State
}

// Done is closed when the session reaches a terminal state
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}
