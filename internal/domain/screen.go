package domain

// ProgressUpdate is one progress report for the file being downloaded.
// Value grows strictly within one file and restarts at 0 for the next one.
type ProgressUpdate struct {
	Value       int64
	IsFinalFile bool
}

// Icon is the state of the screen icon
type Icon string

// Icon constants
const (
	IconNone      Icon = ""
	IconGlobe     Icon = "globe"
	IconWiFiOff   Icon = "wifi_off"
	IconMapSearch Icon = "map_search"
)

// ScreenUpdate is the full presentation state pushed to the surface
type ScreenUpdate struct {
	Headline      string
	Subtext       string
	Icon          Icon
	ProgressValue int64
	ProgressMax   int64
}

// Modal is a dismissible dialog request
type Modal struct {
	Title   string
	Message string
}

// Prompt is a yes/no confirmation request
type Prompt struct {
	Title   string
	Message string
}
