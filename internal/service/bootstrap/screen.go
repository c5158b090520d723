package bootstrap

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// Screen texts
const (
	TextDownloadingWorldMap = "Downloading world map"
	TextConnectToWiFiTitle  = "Connect to WiFi"
	TextConnectToWiFi       = "WiFi-only downloads are enabled. Connect to a WiFi network to download the maps."
	TextDownloadingLocalMap = "Downloading local map"
	TextMobileDataTitle     = "Download over mobile data?"
)

// downloadResourcesText is the subtext shown once the size is known
func downloadResourcesText(bytes int64) string {
	return fmt.Sprintf("Download the required map files (%s)", humanize.Bytes(uint64(bytes)))
}

// mobileDataText is the body of the chained download confirmation
func mobileDataText(c domain.RegionCandidate) string {
	return fmt.Sprintf("%s needs %s. You are not on WiFi.", c.DisplayName, humanize.Bytes(uint64(c.TotalSizeBytes)))
}

// screen keeps the full presentation state and pushes it to the surface.
// Once closed it drops every update.
type screen struct {
	surface port.Surface
	current domain.ScreenUpdate
	closed  bool
}

func newScreen(surface port.Surface) *screen {
	return &screen{surface: surface}
}

// message replaces the texts and icon, keeping the progress
func (s *screen) message(headline, subtext string, icon domain.Icon) {
	s.current.Headline = headline
	s.current.Subtext = subtext
	s.current.Icon = icon
	s.push()
}

// subtext replaces the subtext only
func (s *screen) subtext(text string) {
	s.current.Subtext = text
	s.push()
}

// progress sets the progress bar
func (s *screen) progress(value, max int64) {
	if value < 0 {
		value = 0
	}
	s.current.ProgressValue = value
	s.current.ProgressMax = max
	s.push()
}

func (s *screen) push() {
	if s.closed {
		return
	}
	s.surface.Update(s.current)
}

func (s *screen) proceed() {
	if s.closed {
		return
	}
	s.surface.Proceed()
}

func (s *screen) close() {
	s.closed = true
}
