package websocket

import (
	"time"

	"github.com/askwhyharsh/nearhelp/internal/audio"
	"github.com/askwhyharsh/nearhelp/internal/controller"
	"github.com/askwhyharsh/nearhelp/internal/geolocation"
)

// Page to server.
const (
	TypeHello            = "hello"
	TypeLocate           = "locate"
	TypeToggleFlashlight = "toggle_flashlight"
	TypeOverlayClick     = "overlay_click"
	TypeToggleAlarm      = "toggle_alarm"
	TypePosition         = "position"
	TypePositionError    = "position_error"
	TypeAudioStarted     = "audio_started"
	TypeAudioRejected    = "audio_rejected"
	TypePing             = "ping"
)

// Server to page.
const (
	TypeRenderText      = "render_text"
	TypeRenderHTML      = "render_html"
	TypeStyleControl    = "style_control"
	TypeOverlay         = "overlay"
	TypeNotice          = "notice"
	TypeRequestPosition = "request_position"
	TypeAudioPlay       = "audio_play"
	TypeAudioStop       = "audio_stop"
	TypePong            = "pong"
	TypeError           = "error"
)

// Message is a command sent to the page. Target is a region, a control or
// an audio handle depending on Type.
type Message struct {
	ID        string            `json:"id,omitempty"`
	Type      string            `json:"type"`
	Target    string            `json:"target,omitempty"`
	Content   string            `json:"content,omitempty"`
	Style     *controller.Style `json:"style,omitempty"`
	Create    bool              `json:"create,omitempty"`
	Active    *bool             `json:"active,omitempty"`
	Options   *PositionOptions  `json:"options,omitempty"`
	Track     *audio.Track      `json:"track,omitempty"`
	ErrorCode string            `json:"code,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// PositionOptions is the browser's PositionOptions, durations in milliseconds.
type PositionOptions struct {
	EnableHighAccuracy bool  `json:"enableHighAccuracy"`
	Timeout            int64 `json:"timeout"`
	MaximumAge         int64 `json:"maximumAge"`
}

func positionOptions(opts geolocation.Options) *PositionOptions {
	return &PositionOptions{
		EnableHighAccuracy: opts.HighAccuracy,
		Timeout:            opts.Timeout.Milliseconds(),
		MaximumAge:         opts.MaximumAge.Milliseconds(),
	}
}

// IncomingMessage is an action or a reply from the page. Replies carry the
// ID of the request they answer.
type IncomingMessage struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Geolocation bool    `json:"geolocation"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Accuracy    float64 `json:"accuracy"`
	Code        int     `json:"code"`
	Message     string  `json:"message"`
	Timestamp   int64   `json:"timestamp"`
}

func isReply(msgType string) bool {
	switch msgType {
	case TypePosition, TypePositionError, TypeAudioStarted, TypeAudioRejected:
		return true
	}
	return false
}

func isAction(msgType string) bool {
	switch msgType {
	case TypeLocate, TypeToggleFlashlight, TypeOverlayClick, TypeToggleAlarm:
		return true
	}
	return false
}

func NewErrorMessage(errMsg, code string) *Message {
	return &Message{
		Type:      TypeError,
		Content:   errMsg,
		ErrorCode: code,
		Timestamp: time.Now().Unix(),
	}
}
