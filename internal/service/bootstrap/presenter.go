package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// failureText is the modal content of one failure code
type failureText struct {
	title   string
	message string
	// offline replaces message when no network is active
	offline string
}

// failureTexts is the closed table of presentable failures
var failureTexts = map[domain.ResultCode]failureText{
	domain.ResultNotEnoughSpace: {
		title:   "Not enough space",
		message: "There is not enough free space on the storage. Free up some space and try again.",
	},
	domain.ResultStorageDisconnected: {
		title:   "Disconnect the USB cable",
		message: "The storage is not available. Disconnect the USB cable and retry.",
	},
	domain.ResultDownloadError: {
		title:   "Connection failed",
		message: "Check your Internet connection and try again.",
		offline: "The download has failed. Try again later.",
	},
	domain.ResultDiskError: {
		title:   "Disk error",
		message: "The map files could not be written. Check the storage and try again.",
	},
}

// ModalFor returns the modal for a failure code. connected is the
// connectivity at presentation time. It panics on a code outside the table.
func ModalFor(code domain.ResultCode, connected bool) domain.Modal {
	text, ok := failureTexts[code]
	if !ok {
		panic(fmt.Sprintf("unexpected result code = %d", int(code)))
	}
	message := text.message
	if !connected && text.offline != "" {
		message = text.offline
	}
	return domain.Modal{Title: text.title, Message: message}
}

// Presenter shows failures as a single modal
type Presenter struct {
	m       *machine
	surface port.Surface
	gate    *Gate
	exec    Executor
	logger  *zap.Logger

	showing    bool
	generation int
	closed     bool
}

func newPresenter(m *machine, surface port.Surface, gate *Gate, exec Executor, logger *zap.Logger) *Presenter {
	return &Presenter{m: m, surface: surface, gate: gate, exec: exec, logger: logger}
}

// Present shows the modal of code. A call while a modal is visible is
// dropped.
func (p *Presenter) Present(code domain.ResultCode) {
	modal := ModalFor(code, p.gate.Connected())

	if p.closed {
		return
	}
	if p.showing {
		p.logger.Debug("failure dropped, modal already visible",
			zap.String("session_id", p.m.id()),
			zap.String("code", code.String()),
		)
		return
	}

	p.showing = true
	p.generation++
	gen := p.generation

	p.m.dispatch(event.NewFailurePresented(p.m.id(), code, modal.Title))
	p.surface.ShowModal(modal, func() {
		p.exec.Post(func() { p.dismissed(gen) })
	})
}

func (p *Presenter) dismissed(gen int) {
	if gen == p.generation {
		p.showing = false
	}
}

// Showing reports whether a modal is visible
func (p *Presenter) Showing() bool {
	return p.showing
}

// Dismiss closes the visible modal
func (p *Presenter) Dismiss() {
	if !p.showing {
		return
	}
	p.showing = false
	p.generation++
	p.surface.DismissModal()
}

// Close dismisses the modal and drops every later Present
func (p *Presenter) Close() {
	p.Dismiss()
	p.closed = true
}
