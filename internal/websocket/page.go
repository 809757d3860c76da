package websocket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/askwhyharsh/nearhelp/internal/audio"
	"github.com/askwhyharsh/nearhelp/internal/controller"
	"github.com/askwhyharsh/nearhelp/internal/geolocation"
	"github.com/askwhyharsh/nearhelp/internal/location"
	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
)

// playbackStartTimeout bounds the wait for the page to report whether audio started.
const playbackStartTimeout = 10 * time.Second

// A Client is the controller's surface, position provider and audio player.
var (
	_ controller.Surface   = (*Client)(nil)
	_ geolocation.Provider = (*Client)(nil)
	_ audio.Player         = (*Client)(nil)
)

func (c *Client) emit(msg *Message) {
	err := c.Send(msg)
	if err != nil && !errors.Is(err, apperrors.ErrWebSocketClosed) {
		c.logger.Warn("Failed to send page command", "session_id", c.sessionID, "type", msg.Type, "error", err)
	}
}

func (c *Client) SetText(region controller.Region, text string) {
	c.emit(&Message{Type: TypeRenderText, Target: string(region), Content: text})
}

func (c *Client) SetHTML(region controller.Region, html string) {
	c.emit(&Message{Type: TypeRenderHTML, Target: string(region), Content: html})
}

func (c *Client) StyleControl(control controller.Control, style controller.Style) {
	c.emit(&Message{Type: TypeStyleControl, Target: string(control), Style: &style})
}

func (c *Client) EnsureOverlay() {
	c.emit(&Message{Type: TypeOverlay, Create: true})
}

func (c *Client) SetOverlay(active bool) {
	c.emit(&Message{Type: TypeOverlay, Active: &active})
}

func (c *Client) Notify(text string) {
	c.emit(&Message{Type: TypeNotice, Content: text})
}

// Supported reports what the page announced in its hello.
func (c *Client) Supported() bool {
	return c.geolocation.Load()
}

func (c *Client) RequestPosition(ctx context.Context, opts geolocation.Options) (geolocation.Fix, error) {
	reply, err := c.Request(ctx, &Message{Type: TypeRequestPosition, Options: positionOptions(opts)})
	if errors.Is(err, apperrors.ErrWebSocketClosed) {
		return geolocation.Fix{}, &geolocation.PositionError{Kind: geolocation.Unknown, Reason: "connection closed"}
	}
	if err != nil {
		return geolocation.Fix{}, err
	}

	if reply.Type != TypePosition {
		return geolocation.Fix{}, &geolocation.PositionError{
			Kind:   geolocation.KindFromCode(reply.Code),
			Reason: reply.Message,
		}
	}

	ts := time.Now()
	if reply.Timestamp > 0 {
		ts = time.UnixMilli(reply.Timestamp)
	}
	return geolocation.Fix{
		Coordinate: location.Coordinate{Lat: reply.Latitude, Lon: reply.Longitude},
		AccuracyM:  reply.Accuracy,
		Timestamp:  ts,
	}, nil
}

// Open hands out a new page-side audio handle.
func (c *Client) Open(track audio.Track) audio.Playback {
	return &remotePlayback{
		client: c,
		handle: uuid.NewString(),
		track:  track,
	}
}

type remotePlayback struct {
	client *Client
	handle string
	track  audio.Track
}

func (p *remotePlayback) Play(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, playbackStartTimeout)
	defer cancel()

	track := p.track
	reply, err := p.client.Request(ctx, &Message{Type: TypeAudioPlay, Target: p.handle, Track: &track})
	if err != nil {
		// the page may still start it later
		p.Stop()
		return fmt.Errorf("audio %s: %w", p.handle, err)
	}
	if reply.Type != TypeAudioStarted {
		return fmt.Errorf("%w: %s", audio.ErrPlaybackRejected, reply.Message)
	}
	return nil
}

func (p *remotePlayback) Stop() {
	p.client.emit(&Message{Type: TypeAudioStop, Target: p.handle})
}
