// Package controller drives one page session: it acquires a position fix,
// resolves the nearest station and renders the outcome, and owns the
// flashlight and alarm toggles.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/askwhyharsh/nearhelp/internal/audio"
	"github.com/askwhyharsh/nearhelp/internal/geolocation"
	"github.com/askwhyharsh/nearhelp/internal/location"
	"github.com/askwhyharsh/nearhelp/pkg/logger"
)

// requestGrace is added on top of the position timeout before the controller
// gives up on a provider that never answers.
const requestGrace = 2 * time.Second

// Phase of the most recent locate action.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRequesting
	PhaseResolved
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseRequesting:
		return "requesting"
	case PhaseResolved:
		return "resolved"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ToggleState is the session's flashlight and alarm state.
type ToggleState struct {
	Flashlight bool `json:"flashlight"`
	Alarm      bool `json:"alarm"`
}

// Catalog is what the controller ranks fixes against.
type Catalog interface {
	Nearest(user location.Coordinate) (location.DistanceResult, bool)
}

// Snapshot is a copy of the controller's observable state.
type Snapshot struct {
	Toggles ToggleState
	Phase   Phase
	LastFix *location.Coordinate
	Nearest *location.DistanceResult
}

// Recorder is notified after every state change.
type Recorder interface {
	RecordState(ctx context.Context, snap Snapshot) error
}

// Outcome of one Locate call.
type Outcome struct {
	Phase   Phase
	Fix     *geolocation.Fix
	Nearest *location.DistanceResult
	Kind    geolocation.ErrorKind
	Err     error
	// Shared is set when the call joined a locate that was already running.
	Shared bool
}

type Config struct {
	Surface  Surface
	Provider geolocation.Provider
	Player   audio.Player
	Catalog  Catalog
	Options  geolocation.Options
	Alarm    audio.Track
	Recorder Recorder
	Logger   logger.Logger
}

type Controller struct {
	surface  Surface
	provider geolocation.Provider
	player   audio.Player
	catalog  Catalog
	opts     geolocation.Options
	track    audio.Track
	recorder Recorder
	logger   logger.Logger

	mu           sync.Mutex
	toggles      ToggleState
	phase        Phase
	overlayReady bool
	lastFix      *location.Coordinate
	nearest      *location.DistanceResult

	// flashMu keeps flashlight visuals in the order of the state changes.
	flashMu sync.Mutex

	// alarmMu serializes alarm transitions, including the wait for playback.
	alarmMu sync.Mutex
	alarm   audio.Slot

	// recordMu orders recorder writes; each snapshot is taken under it.
	recordMu sync.Mutex

	locates singleflight.Group
}

func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Options.Timeout <= 0 {
		cfg.Options = geolocation.DefaultOptions()
	}

	return &Controller{
		surface:  cfg.Surface,
		provider: cfg.Provider,
		player:   cfg.Player,
		catalog:  cfg.Catalog,
		opts:     cfg.Options,
		track:    cfg.Alarm,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
}

// Init draws both controls in their inactive state.
func (c *Controller) Init() {
	c.surface.StyleControl(ControlFlashlight, FlashlightOff)
	c.surface.StyleControl(ControlAlarm, AlarmIdle)
}

// Locate runs one locate action. Calls made while another locate is in
// flight wait for it and receive its outcome.
func (c *Controller) Locate(ctx context.Context) Outcome {
	v, _, shared := c.locates.Do("locate", func() (interface{}, error) {
		return c.locate(ctx), nil
	})

	out := v.(Outcome)
	out.Shared = shared
	return out
}

func (c *Controller) locate(ctx context.Context) Outcome {
	c.surface.SetHTML(RegionStation, "")

	if c.provider == nil || !c.provider.Supported() {
		return c.unsupported(ctx)
	}

	c.setPhase(PhaseRequesting)
	c.surface.SetText(RegionLocation, MsgLocating)

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout+requestGrace)
	defer cancel()

	fix, err := c.provider.RequestPosition(reqCtx, c.opts)
	if errors.Is(err, geolocation.ErrUnsupported) {
		return c.unsupported(ctx)
	}
	if err != nil {
		kind := geolocation.KindOf(err)
		c.surface.SetText(RegionLocation, FailureMessage(kind))
		c.logger.Warn("Position request failed", "kind", kind.String(), "error", err)
		return c.finish(ctx, Outcome{Phase: PhaseFailed, Kind: kind, Err: err})
	}

	c.surface.SetText(RegionLocation, MsgLocatedPrefix+fix.Coordinate.String())

	out := Outcome{Phase: PhaseResolved, Fix: &fix}

	result, ok := c.catalog.Nearest(fix.Coordinate)
	if !ok {
		c.surface.SetText(RegionStation, MsgNoStations)
		return c.finish(ctx, out)
	}

	html, err := RenderStation(result)
	if err != nil {
		// The panel template is static; this only fails on a broken writer.
		c.logger.Error("Failed to render station panel", "error", err)
		c.surface.SetText(RegionStation, fmt.Sprintf("%s, %s (%s km)", result.Station.Name, result.Station.Address, location.FormatKm(result.DistanceKm)))
	} else {
		c.surface.SetHTML(RegionStation, html)
	}

	out.Nearest = &result
	return c.finish(ctx, out)
}

func (c *Controller) unsupported(ctx context.Context) Outcome {
	c.surface.SetText(RegionLocation, MsgUnsupported)
	return c.finish(ctx, Outcome{Phase: PhaseFailed, Kind: geolocation.Unknown, Err: geolocation.ErrUnsupported})
}

func (c *Controller) finish(ctx context.Context, out Outcome) Outcome {
	c.mu.Lock()
	c.phase = out.Phase
	if out.Fix != nil {
		coord := out.Fix.Coordinate
		c.lastFix = &coord
	}
	c.nearest = out.Nearest
	c.mu.Unlock()

	c.record(ctx)
	return out
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// ToggleFlashlight flips the flashlight and returns the new state.
func (c *Controller) ToggleFlashlight(ctx context.Context) ToggleState {
	c.flashMu.Lock()
	defer c.flashMu.Unlock()

	c.mu.Lock()
	if !c.overlayReady {
		c.surface.EnsureOverlay()
		c.overlayReady = true
	}

	c.toggles.Flashlight = !c.toggles.Flashlight
	on := c.toggles.Flashlight
	state := c.toggles
	c.mu.Unlock()

	c.surface.SetOverlay(on)
	if on {
		c.surface.StyleControl(ControlFlashlight, FlashlightOn)
	} else {
		c.surface.StyleControl(ControlFlashlight, FlashlightOff)
	}

	c.record(ctx)
	return state
}

// OverlayClicked handles a click on the overlay itself, which toggles the
// flashlight the same way the control does.
func (c *Controller) OverlayClicked(ctx context.Context) ToggleState {
	return c.ToggleFlashlight(ctx)
}

// ToggleAlarm starts the alarm when it is off and stops it when it is on.
// A refused start leaves the alarm off and is returned as an error after the
// notice has been shown.
func (c *Controller) ToggleAlarm(ctx context.Context) (ToggleState, error) {
	c.alarmMu.Lock()
	defer c.alarmMu.Unlock()

	if pb := c.alarm.Release(); pb != nil {
		pb.Stop()
		c.surface.StyleControl(ControlAlarm, AlarmIdle)
		return c.setAlarm(ctx, false), nil
	}

	pb, err := c.alarm.Acquire(c.player, c.track)
	if err != nil {
		return c.Toggles(), fmt.Errorf("start alarm: %w", err)
	}

	if err := pb.Play(ctx); err != nil {
		c.alarm.Release()
		c.surface.Notify(MsgAlarmRejected)
		c.surface.StyleControl(ControlAlarm, AlarmRetry)
		c.logger.Warn("Alarm playback did not start", "error", err)
		return c.setAlarm(ctx, false), fmt.Errorf("start alarm: %w", err)
	}

	c.surface.StyleControl(ControlAlarm, AlarmActive)
	return c.setAlarm(ctx, true), nil
}

func (c *Controller) setAlarm(ctx context.Context, on bool) ToggleState {
	c.mu.Lock()
	c.toggles.Alarm = on
	state := c.toggles
	c.mu.Unlock()

	c.record(ctx)
	return state
}

// Toggles returns the current toggle state.
func (c *Controller) Toggles() ToggleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toggles
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{Toggles: c.toggles, Phase: c.phase}
	if c.lastFix != nil {
		fix := *c.lastFix
		snap.LastFix = &fix
	}
	if c.nearest != nil {
		n := *c.nearest
		snap.Nearest = &n
	}
	return snap
}

// Close stops any playing alarm. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.alarmMu.Lock()
	defer c.alarmMu.Unlock()

	if pb := c.alarm.Release(); pb != nil {
		pb.Stop()
	}
}

func (c *Controller) record(ctx context.Context) {
	if c.recorder == nil {
		return
	}

	c.recordMu.Lock()
	defer c.recordMu.Unlock()

	if err := c.recorder.RecordState(ctx, c.Snapshot()); err != nil {
		c.logger.Warn("Failed to record session state", "error", err)
	}
}
