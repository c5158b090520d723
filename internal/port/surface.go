package port

import (
	"github.com/vertextoedge/map-bootstrap/internal/domain"
)

// Surface is the presentation surface of the bootstrap screen.
// The core never touches layout, it only pushes these requests.
type Surface interface {
	// Update replaces the screen state
	Update(update domain.ScreenUpdate)

	// ShowModal displays a dismissible dialog. onDismiss is called once when
	// the user dismisses it or DismissModal is called.
	ShowModal(modal domain.Modal, onDismiss func())

	// DismissModal closes the visible dialog, if any
	DismissModal()

	// Confirm asks a yes/no question and calls decide once with the answer
	Confirm(prompt domain.Prompt, decide func(accepted bool))

	// Proceed signals that the map can be shown
	Proceed()
}
