package bootstrap

import (
	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// FollowUp downloads the chained region once the required files are in place
type FollowUp struct {
	m         *machine
	engine    port.RegionEngine
	gate      *Gate
	surface   port.Surface
	ui        *screen
	presenter *Presenter
	exec      Executor
	logger    *zap.Logger

	// onProceed runs when the session may show the map
	onProceed func()

	candidate domain.RegionCandidate
	slot      int
	prompted  bool
	closed    bool
}

func newFollowUp(m *machine, engine port.RegionEngine, gate *Gate, surface port.Surface, ui *screen, presenter *Presenter, exec Executor, logger *zap.Logger) *FollowUp {
	return &FollowUp{
		m:         m,
		engine:    engine,
		gate:      gate,
		surface:   surface,
		ui:        ui,
		presenter: presenter,
		exec:      exec,
		logger:    logger,
	}
}

// Start begins the chained download of regionID
func (f *FollowUp) Start(regionID string) {
	if f.closed || f.m.state() != domain.StateAwaitingChain {
		return
	}

	candidate, err := f.engine.Region(regionID)
	if err != nil {
		f.logger.Warn("chained region unavailable, skipping",
			zap.String("session_id", f.m.id()),
			zap.String("region_id", regionID),
			zap.Error(err),
		)
		f.skip()
		return
	}
	f.candidate = candidate

	f.ui.message(TextDownloadingLocalMap, candidate.DisplayName, domain.IconMapSearch)
	f.ui.progress(0, candidate.TotalSizeBytes)
	f.slot = f.engine.Subscribe(&regionListener{f: f})

	if f.gate.MayDownload() {
		f.download()
		return
	}

	f.prompted = true
	prompt := domain.Prompt{Title: TextMobileDataTitle, Message: mobileDataText(candidate)}
	f.surface.Confirm(prompt, func(accepted bool) {
		f.exec.Post(func() { f.decide(accepted) })
	})
}

// Candidate returns the region being downloaded
func (f *FollowUp) Candidate() domain.RegionCandidate {
	return f.candidate
}

// Subscribed reports whether a region engine slot is held
func (f *FollowUp) Subscribed() bool {
	return f.slot != 0
}

func (f *FollowUp) decide(accepted bool) {
	if f.closed || !f.prompted || f.m.state() != domain.StateAwaitingChain {
		return
	}
	f.prompted = false

	if !accepted {
		f.logger.Info("chained download declined",
			zap.String("session_id", f.m.id()),
			zap.String("region_id", f.candidate.ID),
		)
		f.release()
		f.skip()
		return
	}
	f.download()
}

func (f *FollowUp) download() {
	if !f.m.transition(domain.StateChainedDownloading) {
		return
	}
	f.m.dispatch(event.NewRegionDownloadStarted(f.m.id(), f.candidate.ID, f.candidate.TotalSizeBytes))

	if err := f.engine.Download(f.candidate.ID); err != nil {
		code := domain.CodeOf(err)
		if !code.IsFailure() {
			code = domain.ResultDownloadError
		}
		f.logger.Warn("chained download request failed",
			zap.String("session_id", f.m.id()),
			zap.String("region_id", f.candidate.ID),
			zap.Error(err),
		)
		f.fail(code)
	}
}

func (f *FollowUp) onStatus(events []domain.RegionEvent) {
	if f.closed || f.m.state() != domain.StateChainedDownloading {
		return
	}

	for _, e := range events {
		if !e.IsLeaf || e.RegionID != f.candidate.ID {
			continue
		}
		switch e.Status {
		case domain.RegionStatusDone:
			f.release()
			f.m.dispatch(event.NewRegionDownloadFinished(f.m.id(), e.RegionID, e.Status, domain.ResultSuccess))
			total := f.candidate.TotalSizeBytes
			f.ui.progress(total, total)
			if f.m.transition(domain.StateChainSucceeded) {
				f.proceed()
			}
			return
		case domain.RegionStatusFailed:
			code := e.ErrorCode
			if !code.IsFailure() {
				code = domain.ResultDownloadError
			}
			f.fail(code)
			return
		}
	}
}

func (f *FollowUp) onProgress(regionID string, local, remote int64) {
	if f.closed || regionID != f.candidate.ID || f.m.state() != domain.StateChainedDownloading {
		return
	}
	total := f.candidate.TotalSizeBytes
	if total <= 0 {
		total = remote
	}
	f.ui.progress(local, total)
}

func (f *FollowUp) fail(code domain.ResultCode) {
	f.release()
	f.m.dispatch(event.NewRegionDownloadFinished(f.m.id(), f.candidate.ID, domain.RegionStatusFailed, code))
	if f.m.transition(domain.StateChainFailed) {
		f.presenter.Present(code)
	}
}

// skip abandons the chained region and proceeds without it
func (f *FollowUp) skip() {
	if f.m.transition(domain.StateNoChain) && f.m.transition(domain.StateProceedReady) {
		f.proceed()
	}
}

func (f *FollowUp) proceed() {
	if f.onProceed != nil {
		f.onProceed()
	}
}

// release gives the slot back to the region engine. Only the first call
// unsubscribes.
func (f *FollowUp) release() {
	if f.slot == 0 {
		return
	}
	slot := f.slot
	f.slot = 0
	f.engine.Unsubscribe(slot)
}

// Close releases the slot and ignores every later callback
func (f *FollowUp) Close() {
	if f.closed {
		return
	}
	f.closed = true
	f.release()
}

// regionListener posts region engine callbacks onto the executor
type regionListener struct {
	f *FollowUp
}

func (l *regionListener) OnStatusChanged(events []domain.RegionEvent) {
	l.f.exec.Post(func() { l.f.onStatus(events) })
}

func (l *regionListener) OnProgress(regionID string, local, remote int64) {
	l.f.exec.Post(func() { l.f.onProgress(regionID, local, remote) })
}
