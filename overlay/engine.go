package overlay

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/simukka/waveform-overlay/bus"
	"github.com/simukka/waveform-overlay/common"
	"github.com/simukka/waveform-overlay/host"
	"github.com/simukka/waveform-overlay/message"
	"github.com/simukka/waveform-overlay/settings"
	"github.com/simukka/waveform-overlay/store"
)

// Deps are the engine's collaborators.
type Deps struct {
	Store      store.Store
	Runtime    bus.Runtime
	Media      host.MediaObserver
	Audio      host.AudioBackend
	Canvas     host.Canvas
	Frames     host.Frames
	Visibility host.Visibility
}

// Engine is the overlay of one page.
//
// Every exported method may be called from a JS event callback: none of them
// blocks. Store writes and bus sends are queued and run in order on a
// background goroutine.
type Engine struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger

	mu       sync.Mutex
	state    State
	settings settings.Settings
	session  *Session

	// early collects settings notified while the store read is in flight.
	early settings.Partial

	// elements is the registry of every media element seen on the page,
	// in discovery order. Entries stay for the page lifetime.
	elements map[string]host.MediaElement
	order    []string
	active   host.MediaElement

	graph       *audioGraph
	audioFailed bool

	rendering    bool
	framePending bool
	frameID      int

	stops []func()
	out   common.Serial
}

// New creates an engine in the Uninitialized state.
func New(deps Deps, cfg Config, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		deps:     deps,
		log:      log,
		settings: settings.Defaults(),
		elements: make(map[string]host.MediaElement),
	}
}

// Start reads the settings, enters Armed or Idle and begins observing the
// page's media elements. A store failure is logged and the defaults are
// used. Notifications that arrive during the read win over what it
// returned.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != Uninitialized {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	loadCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	s, _, err := store.Load(loadCtx, e.deps.Store)
	cancel()
	if err != nil {
		e.log.Warn().Err(err).Msg("loading settings, using defaults")
	}

	e.mu.Lock()
	if e.state != Uninitialized {
		e.mu.Unlock()
		return nil
	}
	s = e.early.Normalize().Apply(s)
	e.early = settings.Partial{}
	e.settings = s
	e.deps.Canvas.Resize(s.PanelWidthPx, e.cfg.PanelHeight)
	e.deps.Canvas.SetVisible(false)
	if s.Enabled {
		e.state = Armed
		e.session = newSession()
		e.session.resize(Bands(s.BarCount))
	} else {
		e.state = Idle
	}
	e.log.Info().Str("state", e.state.String()).Msg("overlay started")
	e.mu.Unlock()

	stopVisibility := e.deps.Visibility.OnChange(e.visibilityChanged)
	stopMedia := e.deps.Media.Observe(e.mediaFound, e.HandleMediaEvent)

	e.mu.Lock()
	if e.state == Closed {
		e.mu.Unlock()
		stopVisibility()
		stopMedia()
		return nil
	}
	e.stops = append(e.stops, stopVisibility, stopMedia)
	e.mu.Unlock()
	return nil
}

// HandleMediaEvent reacts to a media element event. It re-checks the state
// on entry, so events arriving in the middle of a transition are harmless.
func (e *Engine) HandleMediaEvent(el host.MediaElement, ev host.MediaEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registerLocked(el)
	if e.state != Armed && e.state != Connected {
		return
	}

	e.log.Debug().Str("element", el.ID()).Str("event", string(ev)).Msg("media event")
	if ev == host.MediaPlay {
		e.reconcileLocked(el)
		return
	}
	e.reconcileLocked(nil)
}

// HandleMessage is the page's bus listener.
func (e *Engine) HandleMessage(ctx context.Context, m message.Message) (message.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Closed {
		return nil, nil
	}
	if e.state == Uninitialized {
		e.early = e.early.Merge(notified(m))
		return nil, nil
	}

	switch v := m.(type) {
	case message.SettingsChanged:
		e.applyLocked(v.Settings)
	case message.VisualizerToggled:
		e.setEnabledLocked(v.Enabled)
	case message.ToggleVisualizer:
		e.setEnabledLocked(v.Enabled)
	case message.ResetSettings:
		e.applyLocked(settings.Defaults().Visual())
	}
	return nil, nil
}

// notified returns the settings fields a message carries.
func notified(m message.Message) settings.Partial {
	switch v := m.(type) {
	case message.SettingsChanged:
		return v.Settings
	case message.VisualizerToggled:
		return settings.Partial{Enabled: settings.Bool(v.Enabled)}
	case message.ToggleVisualizer:
		return settings.Partial{Enabled: settings.Bool(v.Enabled)}
	case message.ResetSettings:
		return settings.Defaults().Visual()
	}
	return settings.Partial{}
}

// Power turns the overlay off from its own panel and persists that.
func (e *Engine) Power() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Armed && e.state != Connected {
		return
	}
	e.persistLocked(settings.Partial{Enabled: settings.Bool(false)})
	e.setEnabledLocked(false)
}

// Close tears the overlay down: the render loop stops, the audio graph is
// released in order, the audio backend shuts down, the panel hides and media
// observation ends. Close is synchronous and idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.state == Closed {
		e.mu.Unlock()
		return
	}
	e.stopLoopLocked()
	e.releaseGraphLocked()
	if err := e.deps.Audio.Shutdown(); err != nil {
		e.log.Debug().Err(err).Msg("shutting down audio")
	}
	e.deps.Canvas.SetVisible(false)
	e.active = nil
	e.session = nil
	e.state = Closed
	stops := e.stops
	e.stops = nil
	e.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	e.log.Info().Msg("overlay closed")
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Settings returns the engine's view of the settings.
func (e *Engine) Settings() settings.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SessionID returns the current session id, or "" when disabled.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ""
	}
	return e.session.ID.String()
}

// ActiveElement returns the id of the element driving the graph, or "".
func (e *Engine) ActiveElement() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return ""
	}
	return e.active.ID()
}

// Peaks returns a copy of the band envelope.
func (e *Engine) Peaks() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	out := make([]float64, len(e.session.envelope))
	copy(out, e.session.envelope)
	return out
}

// HoverBrightness returns the highlight of bar i in [0,1].
func (e *Engine) HoverBrightness(i int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return 0
	}
	return e.session.hover[i]
}

func (e *Engine) mediaFound(el host.MediaElement) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registerLocked(el)
	if el.Playing() && !el.Muted() {
		e.reconcileLocked(el)
	}
}

func (e *Engine) registerLocked(el host.MediaElement) {
	if _, ok := e.elements[el.ID()]; ok {
		return
	}
	e.elements[el.ID()] = el
	e.order = append(e.order, el.ID())
	e.log.Debug().Str("element", el.ID()).Int("known", len(e.order)).Msg("media element registered")
}

func qualifies(el host.MediaElement) bool {
	return el != nil && el.Playing() && !el.Muted()
}

// candidateLocked picks the element to visualize: preferred if it
// qualifies, else the active element, else the first qualifying element in
// discovery order.
func (e *Engine) candidateLocked(preferred host.MediaElement) host.MediaElement {
	if qualifies(preferred) {
		return preferred
	}
	if qualifies(e.active) {
		return e.active
	}
	for _, id := range e.order {
		if el := e.elements[id]; qualifies(el) {
			return el
		}
	}
	return nil
}

func (e *Engine) reconcileLocked(preferred host.MediaElement) {
	if e.state != Armed && e.state != Connected {
		return
	}

	next := e.candidateLocked(preferred)
	switch {
	case next == nil:
		if e.state == Connected {
			e.disconnectLocked()
		}
	case e.state == Armed:
		e.connectLocked(next)
	case e.active == nil || e.active.ID() != next.ID():
		e.reanchorLocked(next)
	}
}

func (e *Engine) connectLocked(el host.MediaElement) {
	if e.audioFailed {
		return
	}
	if e.graph == nil {
		g, err := newAudioGraph(e.deps.Audio, e.cfg, e.log)
		if err != nil {
			e.audioFailed = true
			e.log.Error().Err(err).Msg("audio analysis unavailable, overlay disabled for this page")
			return
		}
		e.graph = g
	}
	if err := e.graph.attach(el, e.log); err != nil {
		e.log.Warn().Err(err).Str("element", el.ID()).Msg("attaching media element")
		e.releaseGraphLocked()
		return
	}

	e.active = el
	e.state = Connected
	e.deps.Canvas.SetVisible(true)
	e.startLoopLocked()
	e.log.Info().Str("session", e.session.ID.String()).Str("element", el.ID()).Msg("connected")
}

func (e *Engine) reanchorLocked(el host.MediaElement) {
	if err := e.graph.attach(el, e.log); err != nil {
		e.log.Warn().Err(err).Str("element", el.ID()).Msg("re-anchoring media element")
		e.disconnectLocked()
		return
	}
	e.active = el
	e.log.Info().Str("element", el.ID()).Msg("re-anchored")
}

// disconnectLocked returns from Connected to Armed.
func (e *Engine) disconnectLocked() {
	e.endGestureLocked()
	e.stopLoopLocked()
	e.deps.Canvas.SetVisible(false)
	e.releaseGraphLocked()
	e.active = nil
	e.state = Armed
	e.log.Info().Msg("no playing media, armed")
}

func (e *Engine) releaseGraphLocked() {
	if e.graph == nil {
		return
	}
	e.graph.release(e.log)
	e.graph = nil
}

func (e *Engine) setEnabledLocked(enabled bool) {
	e.settings.Enabled = enabled

	switch {
	case !enabled && (e.state == Armed || e.state == Connected):
		if e.state == Connected {
			e.disconnectLocked()
		}
		e.state = Idle
		e.session = nil
		e.log.Info().Msg("disabled")
	case enabled && e.state == Idle:
		e.state = Armed
		e.session = newSession()
		e.session.resize(Bands(e.settings.BarCount))
		e.log.Info().Msg("enabled")
		e.reconcileLocked(nil)
	}
}

// applyLocked takes the present fields of p.
func (e *Engine) applyLocked(p settings.Partial) {
	p = p.Normalize()
	width := e.settings.PanelWidthPx
	e.settings = p.Only(settings.KeyHueRotationDeg, settings.KeyBarCount, settings.KeyPanelWidthPx).Apply(e.settings)

	if e.settings.PanelWidthPx != width {
		e.deps.Canvas.Resize(e.settings.PanelWidthPx, e.cfg.PanelHeight)
	}
	if e.session != nil {
		e.session.resize(Bands(e.settings.BarCount))
	}
	if p.Enabled != nil {
		e.setEnabledLocked(*p.Enabled)
	}
}

func (e *Engine) persistLocked(p settings.Partial) {
	e.out.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Timeout)
		defer cancel()
		if err := e.deps.Store.Set(ctx, p); err != nil {
			e.log.Warn().Err(err).Msg("persisting settings")
		}
	})
}

// syncLocked mirrors the visual settings into an open popup.
func (e *Engine) syncLocked() {
	m := message.LiveControlSync{
		HueRotationDeg: e.settings.HueRotationDeg,
		BarCount:       e.settings.BarCount,
		PanelWidthPx:   e.settings.PanelWidthPx,
	}
	if e.deps.Runtime == nil {
		return
	}
	e.out.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Timeout)
		defer cancel()
		if err := e.deps.Runtime.Send(ctx, m); err != nil {
			e.log.Debug().Err(err).Msg("no popup for live sync")
		}
	})
}

func (e *Engine) visibilityChanged(hidden bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !hidden && e.rendering && e.state == Connected {
		e.scheduleLocked()
	}
}
