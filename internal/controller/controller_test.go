package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askwhyharsh/nearhelp/internal/audio"
	"github.com/askwhyharsh/nearhelp/internal/geolocation"
	"github.com/askwhyharsh/nearhelp/internal/location"
	"github.com/askwhyharsh/nearhelp/internal/station"
)

type fakeSurface struct {
	mu       sync.Mutex
	text     map[Region]string
	html     map[Region]string
	styles   map[Control]Style
	overlays int
	overlay  bool
	notices  []string
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		text:   map[Region]string{},
		html:   map[Region]string{},
		styles: map[Control]Style{},
	}
}

func (s *fakeSurface) SetText(r Region, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text[r] = text
	delete(s.html, r)
}

func (s *fakeSurface) SetHTML(r Region, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html[r] = html
	delete(s.text, r)
}

func (s *fakeSurface) StyleControl(c Control, style Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles[c] = style
}

func (s *fakeSurface) EnsureOverlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlays++
}

func (s *fakeSurface) SetOverlay(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay = active
}

func (s *fakeSurface) Notify(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, text)
}

type fakeProvider struct {
	supported bool
	fix       geolocation.Fix
	err       error
	gate      chan struct{}
	calls     atomic.Int32
	gotOpts   geolocation.Options
}

func (p *fakeProvider) Supported() bool { return p.supported }

func (p *fakeProvider) RequestPosition(ctx context.Context, opts geolocation.Options) (geolocation.Fix, error) {
	p.calls.Add(1)
	p.gotOpts = opts
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return geolocation.Fix{}, ctx.Err()
		}
	}
	return p.fix, p.err
}

type fakePlayback struct {
	err     error
	played  int
	stopped int
}

func (p *fakePlayback) Play(context.Context) error {
	p.played++
	return p.err
}

func (p *fakePlayback) Stop() { p.stopped++ }

type fakePlayer struct {
	reject  bool
	handles []*fakePlayback
	tracks  []audio.Track
}

func (p *fakePlayer) Open(track audio.Track) audio.Playback {
	pb := &fakePlayback{}
	if p.reject {
		pb.err = audio.ErrPlaybackRejected
	}
	p.handles = append(p.handles, pb)
	p.tracks = append(p.tracks, track)
	return pb
}

type recorderFunc func(ctx context.Context, snap Snapshot) error

func (f recorderFunc) RecordState(ctx context.Context, snap Snapshot) error { return f(ctx, snap) }

func newController(surface *fakeSurface, provider geolocation.Provider, player audio.Player, stations []location.Station) *Controller {
	return New(Config{
		Surface:  surface,
		Provider: provider,
		Player:   player,
		Catalog:  station.NewCatalog(stations),
		Options:  geolocation.DefaultOptions(),
		Alarm:    audio.Track{Source: "alarm.mp3", Loop: true, Volume: 1.0},
	})
}

func fixAt(lat, lon float64) geolocation.Fix {
	return geolocation.Fix{Coordinate: location.Coordinate{Lat: lat, Lon: lon}, Timestamp: time.Now()}
}

func TestLocateResolvesCentralStation(t *testing.T) {
	surface := newFakeSurface()
	provider := &fakeProvider{supported: true, fix: fixAt(22.3146, 87.3106)}
	c := newController(surface, provider, &fakePlayer{}, station.Sample())

	out := c.Locate(context.Background())

	require.Equal(t, PhaseResolved, out.Phase)
	require.NoError(t, out.Err)
	require.NotNil(t, out.Nearest)
	assert.Equal(t, "Central Police Station (Simulated)", out.Nearest.Station.Name)
	assert.Equal(t, "0.00", location.FormatKm(out.Nearest.DistanceKm))

	assert.Equal(t, "Great! Your Location: Lat 22.31460, Lon 87.31060", surface.text[RegionLocation])
	panel := surface.html[RegionStation]
	assert.Contains(t, panel, "Central Police Station (Simulated)")
	assert.Contains(t, panel, "Near IIT Kharagpur, West Bengal")
	assert.Contains(t, panel, "Approximately: 0.00 km away")
	assert.Contains(t, panel, "destination=22.3146,87.3106")
	assert.Contains(t, panel, `target="_blank"`)

	assert.Equal(t, geolocation.DefaultOptions(), provider.gotOpts)
	assert.Equal(t, PhaseResolved, c.Snapshot().Phase)
}

func TestLocateWithoutStations(t *testing.T) {
	surface := newFakeSurface()
	provider := &fakeProvider{supported: true, fix: fixAt(22.3146, 87.3106)}
	c := newController(surface, provider, &fakePlayer{}, nil)

	out := c.Locate(context.Background())

	assert.Equal(t, PhaseResolved, out.Phase)
	assert.NoError(t, out.Err)
	assert.Nil(t, out.Nearest)
	assert.Equal(t, MsgNoStations, surface.text[RegionStation])
}

func TestLocateFailuresRenderDistinctAdvisories(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind geolocation.ErrorKind
		want string
	}{
		{"permission denied", &geolocation.PositionError{Kind: geolocation.PermissionDenied}, geolocation.PermissionDenied, MsgPermissionDenied},
		{"unavailable", &geolocation.PositionError{Kind: geolocation.PositionUnavailable}, geolocation.PositionUnavailable, MsgPositionUnavailable},
		{"timeout", &geolocation.PositionError{Kind: geolocation.Timeout}, geolocation.Timeout, MsgTimeout},
		{"deadline", context.DeadlineExceeded, geolocation.Timeout, MsgTimeout},
		{"unknown", &geolocation.PositionError{Kind: geolocation.Unknown}, geolocation.Unknown, MsgUnknown},
	}

	seen := map[string]bool{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := newFakeSurface()
			surface.SetHTML(RegionStation, "<p>stale</p>")
			c := newController(surface, &fakeProvider{supported: true, err: tt.err}, &fakePlayer{}, station.Sample())

			out := c.Locate(context.Background())

			assert.Equal(t, PhaseFailed, out.Phase)
			assert.Equal(t, tt.kind, out.Kind)
			assert.ErrorIs(t, out.Err, tt.err)
			assert.Equal(t, tt.want, surface.text[RegionLocation])
			assert.Empty(t, surface.html[RegionStation])
			seen[tt.want] = true
		})
	}
	assert.Len(t, seen, 4)
}

func TestLocatePermissionDeniedIsNotGeneric(t *testing.T) {
	surface := newFakeSurface()
	provider := &fakeProvider{supported: true, err: &geolocation.PositionError{Kind: geolocation.PermissionDenied}}
	c := newController(surface, provider, &fakePlayer{}, station.Sample())

	c.Locate(context.Background())

	assert.Equal(t, MsgPermissionDenied, surface.text[RegionLocation])
	assert.NotEqual(t, MsgUnknown, surface.text[RegionLocation])
}

func TestLocateUnsupportedShortCircuits(t *testing.T) {
	surface := newFakeSurface()
	provider := &fakeProvider{supported: false}
	c := newController(surface, provider, &fakePlayer{}, station.Sample())

	out := c.Locate(context.Background())

	assert.Equal(t, PhaseFailed, out.Phase)
	assert.ErrorIs(t, out.Err, geolocation.ErrUnsupported)
	assert.Equal(t, MsgUnsupported, surface.text[RegionLocation])
	assert.Zero(t, provider.calls.Load())

	out = newController(surface, nil, &fakePlayer{}, station.Sample()).Locate(context.Background())
	assert.ErrorIs(t, out.Err, geolocation.ErrUnsupported)
}

func TestLocateProviderReportingUnsupported(t *testing.T) {
	surface := newFakeSurface()
	provider := &fakeProvider{supported: true, err: geolocation.ErrUnsupported}
	c := newController(surface, provider, &fakePlayer{}, station.Sample())

	out := c.Locate(context.Background())

	assert.ErrorIs(t, out.Err, geolocation.ErrUnsupported)
	assert.Equal(t, MsgUnsupported, surface.text[RegionLocation])
}

func TestOverlappingLocatesShareOneRequest(t *testing.T) {
	surface := newFakeSurface()
	provider := &fakeProvider{supported: true, fix: fixAt(22.3270, 87.3190), gate: make(chan struct{})}
	c := newController(surface, provider, &fakePlayer{}, station.Sample())

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 3)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = c.Locate(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return provider.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the other callers time to join the in-flight request.
	time.Sleep(50 * time.Millisecond)
	close(provider.gate)
	wg.Wait()

	assert.Equal(t, int32(1), provider.calls.Load())
	for _, out := range outcomes {
		require.NotNil(t, out.Nearest)
		assert.Equal(t, "Town Police Station (Simulated)", out.Nearest.Station.Name)
	}

	// A later locate issues a fresh request.
	c.Locate(context.Background())
	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestFlashlightToggleParity(t *testing.T) {
	surface := newFakeSurface()
	c := newController(surface, nil, &fakePlayer{}, nil)
	ctx := context.Background()

	state := c.ToggleFlashlight(ctx)
	assert.True(t, state.Flashlight)
	assert.True(t, surface.overlay)
	assert.Equal(t, FlashlightOn, surface.styles[ControlFlashlight])

	state = c.ToggleFlashlight(ctx)
	assert.False(t, state.Flashlight)
	assert.False(t, surface.overlay)
	assert.Equal(t, FlashlightOff, surface.styles[ControlFlashlight])

	assert.Equal(t, 1, surface.overlays, "overlay is created once and reused")
	assert.False(t, c.Toggles().Alarm)
}

func TestOverlayClickTurnsFlashlightOff(t *testing.T) {
	surface := newFakeSurface()
	c := newController(surface, nil, &fakePlayer{}, nil)
	ctx := context.Background()

	c.ToggleFlashlight(ctx)
	state := c.OverlayClicked(ctx)

	assert.False(t, state.Flashlight)
	assert.False(t, surface.overlay)
	assert.Equal(t, FlashlightOff, surface.styles[ControlFlashlight])
}

func TestAlarmStartStopUsesFreshHandles(t *testing.T) {
	surface := newFakeSurface()
	player := &fakePlayer{}
	c := newController(surface, nil, player, nil)
	ctx := context.Background()

	state, err := c.ToggleAlarm(ctx)
	require.NoError(t, err)
	assert.True(t, state.Alarm)
	assert.Equal(t, AlarmActive, surface.styles[ControlAlarm])
	assert.Equal(t, audio.Track{Source: "alarm.mp3", Loop: true, Volume: 1.0}, player.tracks[0])

	state, err = c.ToggleAlarm(ctx)
	require.NoError(t, err)
	assert.False(t, state.Alarm)
	assert.Equal(t, AlarmIdle, surface.styles[ControlAlarm])
	assert.Equal(t, 1, player.handles[0].stopped)

	_, err = c.ToggleAlarm(ctx)
	require.NoError(t, err)
	require.Len(t, player.handles, 2)
	assert.NotSame(t, player.handles[0], player.handles[1])
	assert.Equal(t, 1, player.handles[1].played)
	assert.Zero(t, player.handles[1].stopped)
}

func TestAlarmRejectedRevertsAndNotifies(t *testing.T) {
	surface := newFakeSurface()
	player := &fakePlayer{reject: true}
	c := newController(surface, nil, player, nil)
	ctx := context.Background()

	state, err := c.ToggleAlarm(ctx)
	assert.ErrorIs(t, err, audio.ErrPlaybackRejected)
	assert.False(t, state.Alarm)
	assert.Equal(t, AlarmRetry, surface.styles[ControlAlarm])
	assert.Equal(t, []string{MsgAlarmRejected}, surface.notices)

	// The slot was released, so the next click tries again with a new handle.
	player.reject = false
	state, err = c.ToggleAlarm(ctx)
	require.NoError(t, err)
	assert.True(t, state.Alarm)
	assert.Len(t, player.handles, 2)
	assert.Len(t, surface.notices, 1)
}

func TestCloseStopsAlarm(t *testing.T) {
	player := &fakePlayer{}
	c := newController(newFakeSurface(), nil, player, nil)

	_, err := c.ToggleAlarm(context.Background())
	require.NoError(t, err)

	c.Close()
	assert.Equal(t, 1, player.handles[0].stopped)

	c.Close()
	assert.Equal(t, 1, player.handles[0].stopped)
}

func TestRecorderSeesEveryChange(t *testing.T) {
	var (
		mu    sync.Mutex
		snaps []Snapshot
	)
	rec := recorderFunc(func(_ context.Context, snap Snapshot) error {
		mu.Lock()
		defer mu.Unlock()
		snaps = append(snaps, snap)
		return nil
	})

	c := New(Config{
		Surface:  newFakeSurface(),
		Provider: &fakeProvider{supported: true, fix: fixAt(22.3450, 87.3000)},
		Player:   &fakePlayer{},
		Catalog:  station.NewCatalog(station.Sample()),
		Recorder: rec,
	})
	ctx := context.Background()

	c.ToggleFlashlight(ctx)
	_, _ = c.ToggleAlarm(ctx)
	c.Locate(ctx)

	require.Len(t, snaps, 3)
	assert.True(t, snaps[0].Toggles.Flashlight)
	assert.True(t, snaps[1].Toggles.Alarm)
	last := snaps[2]
	assert.Equal(t, PhaseResolved, last.Phase)
	require.NotNil(t, last.Nearest)
	assert.Equal(t, "Hijli Police Station (Simulated)", last.Nearest.Station.Name)
	require.NotNil(t, last.LastFix)
	assert.Equal(t, 22.3450, last.LastFix.Lat)
}

func TestRecorderNeverEndsOnStaleSnapshot(t *testing.T) {
	var (
		mu       sync.Mutex
		last     Snapshot
		blocked  bool
		entered  = make(chan struct{})
		released = make(chan struct{})
	)
	rec := recorderFunc(func(_ context.Context, snap Snapshot) error {
		mu.Lock()
		hold := !blocked && snap.Phase == PhaseRequesting && snap.Toggles.Flashlight
		if hold {
			blocked = true
		}
		mu.Unlock()

		if hold {
			close(entered)
			<-released
		}

		mu.Lock()
		last = snap
		mu.Unlock()
		return nil
	})

	provider := &fakeProvider{supported: true, fix: fixAt(22.3146, 87.3106), gate: make(chan struct{})}
	c := New(Config{
		Surface:  newFakeSurface(),
		Provider: provider,
		Player:   &fakePlayer{},
		Catalog:  station.NewCatalog(station.Sample()),
		Recorder: rec,
	})
	ctx := context.Background()

	located := make(chan Outcome, 1)
	go func() { located <- c.Locate(ctx) }()
	require.Eventually(t, func() bool { return provider.calls.Load() == 1 }, time.Second, time.Millisecond)

	toggled := make(chan struct{})
	go func() {
		c.ToggleFlashlight(ctx)
		close(toggled)
	}()
	<-entered

	// the locate resolves while the flashlight snapshot is still being written
	close(provider.gate)
	time.Sleep(50 * time.Millisecond)
	close(released)

	out := <-located
	<-toggled
	require.Equal(t, PhaseResolved, out.Phase)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, PhaseResolved, last.Phase)
	require.NotNil(t, last.Nearest)
	assert.True(t, last.Toggles.Flashlight)
}

func TestConcurrentFlashlightTogglesPaintInOrder(t *testing.T) {
	surface := newFakeSurface()
	c := newController(surface, nil, &fakePlayer{}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 51; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ToggleFlashlight(ctx)
		}()
	}
	wg.Wait()

	state := c.Toggles()
	assert.True(t, state.Flashlight)
	assert.Equal(t, state.Flashlight, surface.overlay)
	assert.Equal(t, FlashlightOn, surface.styles[ControlFlashlight])
	assert.Equal(t, 1, surface.overlays)
}

func TestInitStylesControls(t *testing.T) {
	surface := newFakeSurface()
	newController(surface, nil, &fakePlayer{}, nil).Init()

	assert.Equal(t, FlashlightOff, surface.styles[ControlFlashlight])
	assert.Equal(t, AlarmIdle, surface.styles[ControlAlarm])
}
