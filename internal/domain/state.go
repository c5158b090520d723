package domain

import "fmt"

// SessionState is the state of one bootstrap session
type SessionState string

// Session state constants
const (
	StateIdle               SessionState = "idle"
	StateSizingQuery        SessionState = "sizing_query"
	StateReadyImmediately   SessionState = "ready_immediately"
	StateDownloading        SessionState = "downloading"
	StateSucceeded          SessionState = "succeeded"
	StateFailed             SessionState = "failed"
	StateAwaitingChain      SessionState = "awaiting_chain"
	StateChainedDownloading SessionState = "chained_downloading"
	StateChainSucceeded     SessionState = "chain_succeeded"
	StateChainFailed        SessionState = "chain_failed"
	StateNoChain            SessionState = "no_chain"
	StateProceedReady       SessionState = "proceed_ready"
)

// ValidTransitions defines allowed state transitions
var ValidTransitions = map[SessionState][]SessionState{
	StateIdle:               {StateSizingQuery},
	StateSizingQuery:        {StateReadyImmediately, StateDownloading, StateFailed},
	StateDownloading:        {StateDownloading, StateSucceeded, StateFailed},
	StateSucceeded:          {StateAwaitingChain},
	StateReadyImmediately:   {StateAwaitingChain},
	StateAwaitingChain:      {StateChainedDownloading, StateNoChain},
	StateChainedDownloading: {StateChainSucceeded, StateChainFailed},
	StateNoChain:            {StateProceedReady},
}

// CanTransition reports whether from -> to is allowed
func CanTransition(from, to SessionState) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidStateTransition for a refused move
func ValidateTransition(from, to SessionState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}
	return nil
}

// IsTerminal returns true if the session cannot move any further
func (s SessionState) IsTerminal() bool {
	switch s {
	case StateFailed, StateChainFailed, StateChainSucceeded, StateProceedReady:
		return true
	}
	return false
}

// Usable returns true if the required files are in place, whatever
// happened to the optional chained region.
func (s SessionState) Usable() bool {
	switch s {
	case StateChainFailed, StateChainSucceeded, StateProceedReady:
		return true
	}
	return false
}
