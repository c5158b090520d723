package bootstrap

import (
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// Sequencer downloads the required resource files strictly one at a time
type Sequencer struct {
	m         *machine
	engine    port.ResourceEngine
	exec      Executor
	ui        *screen
	presenter *Presenter
	logger    *zap.Logger

	// onReady runs once the required files are in place
	onReady func()

	inFlight       bool
	request        int
	completedBytes int64
	fileBytes      int64
	startedAt      time.Time
	closed         bool
}

func newSequencer(m *machine, engine port.ResourceEngine, exec Executor, ui *screen, presenter *Presenter, logger *zap.Logger) *Sequencer {
	return &Sequencer{
		m:         m,
		engine:    engine,
		exec:      exec,
		ui:        ui,
		presenter: presenter,
		logger:    logger,
	}
}

// Prepare runs the single size query
func (s *Sequencer) Prepare() {
	if s.closed || s.m.state() != domain.StateIdle {
		return
	}
	if !s.m.transition(domain.StateSizingQuery) {
		return
	}

	size := s.engine.QuerySizeToDownload()
	if size >= 0 {
		s.m.dispatch(event.NewResourcesSized(s.m.id(), size))
	}

	switch {
	case size == 0:
		s.logger.Info("required resources already in place", zap.String("session_id", s.m.id()))
		if s.m.transition(domain.StateReadyImmediately) {
			s.m.session.MarkResourcesDownloaded()
			s.ready()
		}
	case size < 0:
		code := domain.ResultCode(size)
		s.logger.Warn("size query failed",
			zap.String("session_id", s.m.id()),
			zap.String("code", code.String()),
		)
		if s.m.transition(domain.StateFailed) {
			s.presenter.Present(code)
		}
	default:
		s.m.session.InitRemaining(size)
		s.m.touch()
		s.ui.subtext(downloadResourcesText(size))
		s.ui.progress(0, size)
	}
}

// CanStart reports whether Start would issue the first file request
func (s *Sequencer) CanStart() bool {
	if s.closed {
		return false
	}
	state := s.m.state()
	return state == domain.StateIdle || state == domain.StateSizingQuery
}

// Start begins the sequential download. It is a no-op once downloading has
// begun or the phase has ended.
func (s *Sequencer) Start() {
	if !s.CanStart() {
		return
	}
	if s.m.state() == domain.StateIdle {
		s.Prepare()
	}
	if s.closed || s.m.state() != domain.StateSizingQuery {
		return
	}
	if !s.m.transition(domain.StateDownloading) {
		return
	}
	s.startedAt = time.Now()
	s.requestNext()
}

// InFlight reports whether a file request awaits its completion
func (s *Sequencer) InFlight() bool {
	return s.inFlight
}

func (s *Sequencer) requestNext() {
	if s.inFlight {
		s.logger.Error("next file requested while one is in flight", zap.String("session_id", s.m.id()))
		return
	}

	s.request++
	s.inFlight = true
	s.fileBytes = 0
	s.m.dispatch(event.NewFileRequested(s.m.id(), s.request))

	code := s.engine.StartNextFile(&fileListener{s: s, request: s.request})
	switch code {
	case domain.ResultSuccess:
		// The outcome arrives on the listener
	case domain.ResultOutOfFiles:
		s.inFlight = false
		s.finish()
	default:
		s.inFlight = false
		s.fail(code)
	}
}

// current reports whether a callback belongs to the live request
func (s *Sequencer) current(request int) bool {
	return !s.closed && s.inFlight && request == s.request
}

func (s *Sequencer) onProgress(request int, update domain.ProgressUpdate) {
	if !s.current(request) {
		return
	}
	if update.Value > s.fileBytes {
		s.fileBytes = update.Value
	}

	total := s.m.session.TotalBytes
	if s.m.session.UpdateRemaining(total - s.completedBytes - s.fileBytes) {
		s.m.touch()
	}
	s.ui.progress(total-s.m.session.RequiredBytesRemaining(), total)
}

func (s *Sequencer) onFinish(request int, code domain.ResultCode) {
	if !s.current(request) {
		return
	}
	s.inFlight = false
	s.m.dispatch(event.NewFileCompleted(s.m.id(), request, code))

	switch code {
	case domain.ResultSuccess:
		s.completedBytes += s.fileBytes
		s.fileBytes = 0
		if s.m.transition(domain.StateDownloading) {
			s.requestNext()
		}
	case domain.ResultOutOfFiles:
		s.finish()
	default:
		s.fail(code)
	}
}

// finish ends the phase successfully
func (s *Sequencer) finish() {
	if !s.m.transition(domain.StateSucceeded) {
		return
	}
	if s.m.session.MarkResourcesDownloaded() {
		s.m.dispatch(event.NewResourcesDownloaded(s.m.id(), s.m.session.TotalBytes, time.Since(s.startedAt)))
	}
	total := s.m.session.TotalBytes
	s.ui.progress(total, total)

	if err := s.engine.ReloadMaps(); err != nil {
		s.logger.Warn("failed to reload maps", zap.String("session_id", s.m.id()), zap.Error(err))
	}
	s.ready()
}

func (s *Sequencer) fail(code domain.ResultCode) {
	s.logger.Warn("resource download failed",
		zap.String("session_id", s.m.id()),
		zap.Int("request", s.request),
		zap.String("code", code.String()),
	)
	if s.m.transition(domain.StateFailed) {
		s.presenter.Present(code)
	}
}

func (s *Sequencer) ready() {
	if s.onReady != nil {
		s.onReady()
	}
}

// Close cancels an in-flight file and ignores every later callback
func (s *Sequencer) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.inFlight {
		s.inFlight = false
		s.engine.CancelCurrentFile()
	}
}

// fileListener routes the callbacks of one file request onto the executor
type fileListener struct {
	s       *Sequencer
	request int
}

func (l *fileListener) OnProgress(update domain.ProgressUpdate) {
	l.s.exec.Post(func() { l.s.onProgress(l.request, update) })
}

func (l *fileListener) OnFinish(code domain.ResultCode) {
	l.s.exec.Post(func() { l.s.onFinish(l.request, code) })
}
