package controller

// Region names a write-only rendering target on the page.
type Region string

const (
	RegionLocation Region = "locationResult"
	RegionStation  Region = "stationResult"
)

// Control names a button on the page.
type Control string

const (
	ControlFlashlight Control = "flashlight"
	ControlAlarm      Control = "alarm"
)

// Style is the visible state of a control.
type Style struct {
	Label      string `json:"label"`
	Background string `json:"background"`
	Color      string `json:"color"`
}

// Surface is everything the controller draws on. Implementations must not
// block on the page.
type Surface interface {
	SetText(region Region, text string)
	SetHTML(region Region, html string)
	StyleControl(control Control, style Style)
	// EnsureOverlay creates the full-viewport overlay if it does not exist.
	EnsureOverlay()
	SetOverlay(active bool)
	Notify(text string)
}
