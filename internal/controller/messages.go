package controller

import "github.com/askwhyharsh/nearhelp/internal/geolocation"

const (
	MsgLocating    = "Attempting to find your location..."
	MsgUnsupported = "Heads up! Geolocation is not supported by your browser. Please update it or try a different one."

	MsgPermissionDenied    = "Permission denied! Please enable location access in your browser settings to use this feature."
	MsgPositionUnavailable = "Location information is unavailable. This might be due to GPS issues or network problems."
	MsgTimeout             = "Request for location timed out. Your device might be having trouble getting a GPS fix."
	MsgUnknown             = "An unknown error occurred while trying to get your location. Please try again."

	MsgLocatedPrefix = "Great! Your Location: "
	MsgNoStations    = "No police stations found in our dummy data. This feature would be fully functional with a real API!"

	MsgAlarmRejected = "The alarm could not start automatically. Your browser might require a user interaction (like a click) before playing audio."
)

// FailureMessage returns the advisory for a failed position request.
func FailureMessage(kind geolocation.ErrorKind) string {
	switch kind {
	case geolocation.PermissionDenied:
		return MsgPermissionDenied
	case geolocation.PositionUnavailable:
		return MsgPositionUnavailable
	case geolocation.Timeout:
		return MsgTimeout
	default:
		return MsgUnknown
	}
}

const (
	colorIdle  = "#e91e63"
	colorLight = "#FFD700"
	colorAlarm = "#DC3545"
)

var (
	FlashlightOn  = Style{Label: "💡 Flashlight (ON)", Background: colorLight, Color: "#333"}
	FlashlightOff = Style{Label: "🔦 Flashlight", Background: colorIdle, Color: "white"}

	AlarmActive = Style{Label: "🛑 Stop Alarm", Background: colorAlarm, Color: "white"}
	AlarmIdle   = Style{Label: "🚨 Alarm", Background: colorIdle, Color: "white"}
	AlarmRetry  = Style{Label: "🚨 Alarm (Click to Start)", Background: colorIdle, Color: "white"}
)
