package bootstrap

import (
	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
)

// machine owns the session and applies state transitions
type machine struct {
	session *domain.DownloadSession
	events  event.EventDispatcher
	logger  *zap.Logger

	// onChange runs after every accepted transition
	onChange func(from, to domain.SessionState)
	// onUpdate runs after every session change, transitions included
	onUpdate func()
}

func newMachine(session *domain.DownloadSession, events event.EventDispatcher, logger *zap.Logger) *machine {
	if events == nil {
		events = event.NewNullDispatcher()
	}
	return &machine{session: session, events: events, logger: logger}
}

// id returns the session id as a string
func (m *machine) id() string {
	return m.session.ID.String()
}

// state returns the current session state
func (m *machine) state() domain.SessionState {
	return m.session.State
}

// transition moves the session to the given state. An illegal transition is
// logged and refused.
func (m *machine) transition(to domain.SessionState) bool {
	from := m.session.State
	if err := m.session.Transition(to); err != nil {
		m.logger.Error("refused state transition",
			zap.String("session_id", m.id()),
			zap.Error(err),
		)
		return false
	}

	m.events.Dispatch(event.NewStateChanged(m.id(), from, to))
	m.touch()
	if m.onChange != nil {
		m.onChange(from, to)
	}
	return true
}

// touch reports a session change that is not a transition
func (m *machine) touch() {
	if m.onUpdate != nil {
		m.onUpdate()
	}
}

// dispatch raises a domain event
func (m *machine) dispatch(e event.DomainEvent) {
	m.events.Dispatch(e)
}
