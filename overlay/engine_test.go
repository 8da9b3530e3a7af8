package overlay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/simukka/waveform-overlay/host"
	"github.com/simukka/waveform-overlay/message"
	"github.com/simukka/waveform-overlay/settings"
	"github.com/simukka/waveform-overlay/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine     *Engine
	store      *store.Memory
	runtime    *fakeRuntime
	media      *fakeObserver
	audio      *fakeAudio
	canvas     *fakeCanvas
	frames     *fakeFrames
	visibility *fakeVisibility
}

func newFixture(t *testing.T, initial settings.Partial, elements ...*fakeElement) *fixture {
	t.Helper()
	f := &fixture{
		store:      store.NewMemory(initial),
		runtime:    &fakeRuntime{},
		media:      &fakeObserver{},
		audio:      &fakeAudio{},
		canvas:     &fakeCanvas{},
		frames:     newFakeFrames(),
		visibility: &fakeVisibility{},
	}
	for _, el := range elements {
		f.media.existing = append(f.media.existing, el)
	}
	f.build(f.store)
	return f
}

// build creates the engine over s and the fixture's fakes.
func (f *fixture) build(s store.Store) {
	f.engine = New(Deps{
		Store:      s,
		Runtime:    f.runtime,
		Media:      f.media,
		Audio:      f.audio,
		Canvas:     f.canvas,
		Frames:     f.frames,
		Visibility: f.visibility,
	}, DefaultConfig(), zerolog.Nop())
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.engine.Start(context.Background()))
}

// connected returns a started fixture with element a playing.
func connected(t *testing.T, initial settings.Partial) (*fixture, *fakeElement) {
	t.Helper()
	a := &fakeElement{id: "a"}
	f := newFixture(t, initial, a)
	f.start(t)
	f.media.play(a)
	require.Equal(t, Connected, f.engine.State())
	return f, a
}

func TestStart_EnabledIsArmed(t *testing.T) {
	f := newFixture(t, settings.Defaults().Partial())
	f.start(t)

	assert.Equal(t, Armed, f.engine.State())
	assert.NotEmpty(t, f.engine.SessionID())
	assert.False(t, f.canvas.isVisible())
	assert.Equal(t, settings.DefaultPanelWidthPx, f.canvas.width)
	assert.Equal(t, 160, f.canvas.height)
}

func TestStart_DisabledIsIdle(t *testing.T) {
	f := newFixture(t, settings.Partial{Enabled: settings.Bool(false)})
	f.start(t)

	assert.Equal(t, Idle, f.engine.State())
	assert.Empty(t, f.engine.SessionID())
}

func TestStart_StoreFailureUsesDefaults(t *testing.T) {
	f := newFixture(t, settings.Partial{Enabled: settings.Bool(false)})
	f.store.Fail(store.ErrUnavailable)
	f.start(t)

	assert.Equal(t, Armed, f.engine.State())
	assert.Equal(t, settings.Defaults(), f.engine.Settings())
}

// stalledStore reads its snapshot, then holds Get until released.
type stalledStore struct {
	*store.Memory
	reading chan struct{}
	release chan struct{}
}

func newStalledStore(m *store.Memory) *stalledStore {
	return &stalledStore{Memory: m, reading: make(chan struct{}), release: make(chan struct{})}
}

func (s *stalledStore) Get(ctx context.Context, keys ...settings.Key) (settings.Partial, error) {
	p, err := s.Memory.Get(ctx, keys...)
	close(s.reading)
	<-s.release
	return p, err
}

// startStalled starts the engine over a stalled store and returns once the
// read is in flight, with a func that releases it and waits for Start.
func (f *fixture) startStalled(t *testing.T) func() {
	t.Helper()
	s := newStalledStore(f.store)
	f.build(s)

	done := make(chan error, 1)
	go func() { done <- f.engine.Start(context.Background()) }()
	<-s.reading
	require.Equal(t, Uninitialized, f.engine.State())

	return func() {
		close(s.release)
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("start did not return")
		}
	}
}

func TestStart_ToggleDuringLoadWins(t *testing.T) {
	f := newFixture(t, settings.Partial{Enabled: settings.Bool(true)})
	finish := f.startStalled(t)

	require.NoError(t, f.store.Set(context.Background(), settings.Partial{Enabled: settings.Bool(false)}))
	_, err := f.engine.HandleMessage(context.Background(), message.VisualizerToggled{Enabled: false})
	require.NoError(t, err)
	finish()

	assert.Equal(t, Idle, f.engine.State())
	assert.False(t, f.engine.Settings().Enabled)
	assert.Empty(t, f.engine.SessionID())
}

func TestStart_SettingsChangedDuringLoadWins(t *testing.T) {
	f := newFixture(t, settings.Partial{Enabled: settings.Bool(true), HueRotationDeg: settings.Int(10)})
	finish := f.startStalled(t)

	_, err := f.engine.HandleMessage(context.Background(), message.SettingsChanged{
		Settings: settings.Partial{BarCount: settings.Int(20), PanelWidthPx: settings.Int(500)},
	})
	require.NoError(t, err)
	_, err = f.engine.HandleMessage(context.Background(), message.SettingsChanged{
		Settings: settings.Partial{BarCount: settings.Int(30)},
	})
	require.NoError(t, err)
	finish()

	s := f.engine.Settings()
	assert.Equal(t, Armed, f.engine.State())
	assert.Equal(t, 10, s.HueRotationDeg)
	assert.Equal(t, 30, s.BarCount)
	assert.Equal(t, settings.MaxPanelWidth, s.PanelWidthPx)
	assert.Equal(t, settings.MaxPanelWidth, f.canvas.width)
	assert.Len(t, f.engine.Peaks(), Bands(30))
	assert.Empty(t, f.store.Writes())
}

func TestStart_ConnectsToAlreadyPlayingElement(t *testing.T) {
	a := &fakeElement{id: "a", playing: true}
	f := newFixture(t, settings.Partial{}, a)
	f.start(t)

	assert.Equal(t, Connected, f.engine.State())
	assert.Equal(t, "a", f.engine.ActiveElement())
}

func TestPlay_ConnectsAndStartsLoop(t *testing.T) {
	f, _ := connected(t, settings.Partial{})

	assert.True(t, f.canvas.isVisible())
	assert.Equal(t, 1, f.frames.count())
	assert.Equal(t, []string{"context", "analyser 256", "attach a"}, f.audio.log())
}

func TestPlay_MutedElementStaysArmed(t *testing.T) {
	a := &fakeElement{id: "a", muted: true}
	f := newFixture(t, settings.Partial{}, a)
	f.start(t)

	f.media.play(a)

	assert.Equal(t, Armed, f.engine.State())
	assert.Empty(t, f.audio.log())
	assert.Zero(t, f.frames.count())
}

func TestUnmute_Connects(t *testing.T) {
	a := &fakeElement{id: "a", muted: true}
	f := newFixture(t, settings.Partial{}, a)
	f.start(t)
	f.media.play(a)

	a.set(true, false)
	f.media.emit(a, host.MediaVolumeChange)

	assert.Equal(t, Connected, f.engine.State())
}

func TestPause_LastElementReturnsToArmed(t *testing.T) {
	f, a := connected(t, settings.Partial{})
	f.audio.reset()

	f.media.pause(a)

	assert.Equal(t, Armed, f.engine.State())
	assert.False(t, f.canvas.isVisible())
	assert.Zero(t, f.frames.count())
	assert.Empty(t, f.engine.ActiveElement())
	assert.Equal(t, []string{"release source a", "release analyser", "close context"}, f.audio.log())
}

func TestMute_ActiveElementReturnsToArmed(t *testing.T) {
	f, a := connected(t, settings.Partial{})

	a.set(true, true)
	f.media.emit(a, host.MediaVolumeChange)

	assert.Equal(t, Armed, f.engine.State())
}

func TestPause_ReanchorsToOtherPlayingElement(t *testing.T) {
	f, a := connected(t, settings.Partial{})
	b := &fakeElement{id: "b", playing: true}
	f.media.emit(b, host.MediaVolumeChange)
	require.Equal(t, "a", f.engine.ActiveElement())
	f.audio.reset()

	f.media.pause(a)

	assert.Equal(t, Connected, f.engine.State())
	assert.Equal(t, "b", f.engine.ActiveElement())
	assert.Equal(t, []string{"release source a", "attach b"}, f.audio.log())
	assert.Equal(t, 1, f.frames.count())
}

func TestPlay_DifferentElementReanchors(t *testing.T) {
	f, _ := connected(t, settings.Partial{})
	b := &fakeElement{id: "b"}
	f.audio.reset()

	f.media.play(b)

	assert.Equal(t, Connected, f.engine.State())
	assert.Equal(t, "b", f.engine.ActiveElement())
	assert.Equal(t, []string{"release source a", "attach b"}, f.audio.log())
}

func TestPlay_SameElementIsNoop(t *testing.T) {
	f, a := connected(t, settings.Partial{})
	f.audio.reset()

	f.media.play(a)

	assert.Empty(t, f.audio.log())
	assert.Equal(t, 1, f.frames.count())
}

func TestAudioFailure_DisablesForPageLoad(t *testing.T) {
	a := &fakeElement{id: "a"}
	f := newFixture(t, settings.Partial{}, a)
	f.audio.failNew = errors.New("NotAllowedError")
	f.start(t)

	f.media.play(a)
	f.media.pause(a)
	f.media.play(a)

	assert.Equal(t, Armed, f.engine.State())
	assert.False(t, f.canvas.isVisible())
	assert.Equal(t, 1, f.audio.contexts)
}

func TestToggle_DisableReleasesAndEnableReconnects(t *testing.T) {
	f, _ := connected(t, settings.Partial{})
	first := f.engine.SessionID()

	_, err := f.engine.HandleMessage(context.Background(), message.VisualizerToggled{Enabled: false})
	require.NoError(t, err)

	assert.Equal(t, Idle, f.engine.State())
	assert.False(t, f.canvas.isVisible())
	assert.Zero(t, f.frames.count())
	assert.Contains(t, f.audio.log(), "close context")

	_, err = f.engine.HandleMessage(context.Background(), message.ToggleVisualizer{Enabled: true})
	require.NoError(t, err)

	assert.Equal(t, Connected, f.engine.State())
	assert.NotEqual(t, first, f.engine.SessionID())
	assert.Equal(t, 2, f.audio.contexts)
}

func TestIdle_IgnoresMediaEvents(t *testing.T) {
	a := &fakeElement{id: "a"}
	f := newFixture(t, settings.Partial{Enabled: settings.Bool(false)}, a)
	f.start(t)

	f.media.play(a)

	assert.Equal(t, Idle, f.engine.State())
	assert.Empty(t, f.audio.log())
}

func TestSettingsChanged_AppliesOnlyPresentFields(t *testing.T) {
	f, _ := connected(t, settings.Partial{HueRotationDeg: settings.Int(90)})

	_, err := f.engine.HandleMessage(context.Background(), message.SettingsChanged{
		Settings: settings.Partial{PanelWidthPx: settings.Int(200)},
	})
	require.NoError(t, err)

	got := f.engine.Settings()
	assert.Equal(t, 200, got.PanelWidthPx)
	assert.Equal(t, 90, got.HueRotationDeg)
	assert.Equal(t, settings.DefaultBarCount, got.BarCount)
	assert.Equal(t, 200, f.canvas.width)
	assert.Equal(t, Connected, f.engine.State())
}

func TestSettingsChanged_EnabledFalseGoesIdle(t *testing.T) {
	f, _ := connected(t, settings.Partial{})

	_, err := f.engine.HandleMessage(context.Background(), message.SettingsChanged{
		Settings: settings.Partial{Enabled: settings.Bool(false)},
	})
	require.NoError(t, err)
	assert.Equal(t, Idle, f.engine.State())
}

func TestSettingsChanged_BarCountResizesEnvelope(t *testing.T) {
	f, _ := connected(t, settings.Partial{})

	_, err := f.engine.HandleMessage(context.Background(), message.SettingsChanged{
		Settings: settings.Partial{BarCount: settings.Int(15)},
	})
	require.NoError(t, err)
	assert.Len(t, f.engine.Peaks(), 8)
}

func TestResetMessage_AppliesDefaultsWithoutPersisting(t *testing.T) {
	f, _ := connected(t, settings.Partial{HueRotationDeg: settings.Int(200), BarCount: settings.Int(70)})

	_, err := f.engine.HandleMessage(context.Background(), message.ResetSettings{})
	require.NoError(t, err)
	f.engine.out.Wait()

	got := f.engine.Settings()
	assert.Equal(t, settings.DefaultHueRotationDeg, got.HueRotationDeg)
	assert.Equal(t, settings.DefaultBarCount, got.BarCount)
	assert.Empty(t, f.store.Writes())
}

func TestPower_PersistsAndGoesIdle(t *testing.T) {
	f, _ := connected(t, settings.Partial{})

	f.engine.Power()
	f.engine.out.Wait()

	assert.Equal(t, Idle, f.engine.State())
	assert.False(t, f.canvas.isVisible())
	require.Len(t, f.store.Writes(), 1)
	assert.False(t, *f.store.Snapshot().Enabled)
}

func TestClose_ReleasesInOrderAndIsIdempotent(t *testing.T) {
	f, a := connected(t, settings.Partial{})
	f.audio.reset()

	f.engine.Close()
	f.engine.Close()

	assert.Equal(t, Closed, f.engine.State())
	assert.Equal(t, []string{"release source a", "release analyser", "close context", "shutdown"}, f.audio.log())
	assert.Zero(t, f.frames.count())
	assert.False(t, f.canvas.isVisible())
	assert.True(t, f.media.stopped)

	f.media.play(a)
	_, err := f.engine.HandleMessage(context.Background(), message.VisualizerToggled{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, Closed, f.engine.State())
	assert.Equal(t, []string{"release source a", "release analyser", "close context", "shutdown"}, f.audio.log())
}

func TestClose_ArmedWithoutGraph(t *testing.T) {
	f := newFixture(t, settings.Partial{})
	f.start(t)

	f.engine.Close()

	assert.Equal(t, Closed, f.engine.State())
	assert.Equal(t, []string{"shutdown"}, f.audio.log())
}
