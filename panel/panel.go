// Package panel implements the settings popup: it shows the current
// settings, writes changes to the store and forwards them to the background
// with a short per-control debounce.
package panel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/simukka/waveform-overlay/bus"
	"github.com/simukka/waveform-overlay/common"
	"github.com/simukka/waveform-overlay/message"
	"github.com/simukka/waveform-overlay/settings"
	"github.com/simukka/waveform-overlay/store"
)

// Config tunes the panel.
type Config struct {
	// Debounce is how long a slider must rest before its value is sent.
	Debounce time.Duration

	// Timeout bounds each store write and bus send.
	Timeout time.Duration
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Debounce: 50 * time.Millisecond,
		Timeout:  5 * time.Second,
	}
}

// View is the popup's controls.
type View interface {
	// ShowEnabled sets the checkbox and the status text.
	ShowEnabled(enabled bool)

	// ShowValue sets a slider and its value label.
	ShowValue(field settings.Key, value int)
}

// Controls lists the slider fields in display order.
var Controls = []settings.Key{settings.KeyHueRotationDeg, settings.KeyBarCount, settings.KeyPanelWidthPx}

// Panel is one open popup.
type Panel struct {
	cfg     Config
	store   store.Store
	runtime bus.Runtime
	view    View
	clock   clockwork.Clock
	log     zerolog.Logger

	mu      sync.Mutex
	current settings.Settings
	timers  map[settings.Key]clockwork.Timer
	gen     map[settings.Key]uint64
	closed  bool

	// out orders store writes and sends.
	out common.Serial
}

// New creates a panel showing defaults until Open completes.
func New(s store.Store, rt bus.Runtime, v View, clock clockwork.Clock, cfg Config, log zerolog.Logger) *Panel {
	return &Panel{
		cfg:     cfg,
		store:   s,
		runtime: rt,
		view:    v,
		clock:   clock,
		log:     log.With().Str("instance", uuid.NewString()).Logger(),
		current: settings.Defaults(),
		timers:  make(map[settings.Key]clockwork.Timer),
		gen:     make(map[settings.Key]uint64),
	}
}

// Open asks the background for the settings and shows them. On first run,
// when the store has no enabled flag yet, it persists enabled=true. If the
// background does not answer the controls keep their defaults.
func (p *Panel) Open(ctx context.Context) error {
	var openErr error

	reply, err := p.runtime.Request(ctx, message.GetSettings{})
	switch r := reply.(type) {
	case message.SettingsReply:
		p.show(r.Settings)
	default:
		if err == nil {
			err = fmt.Errorf("%w: unexpected reply %T", message.ErrMalformed, reply)
		}
		p.log.Warn().Err(err).Msg("loading settings")
		p.show(p.Settings())
		openErr = err
	}

	existing, err := p.store.Get(ctx, settings.KeyEnabled)
	if err != nil {
		p.log.Warn().Err(err).Msg("checking first run")
		return openErr
	}
	if existing.Enabled == nil {
		p.log.Info().Msg("first run, enabling visualizer")
		if err := p.store.Set(ctx, settings.Partial{Enabled: settings.Bool(true)}); err != nil {
			p.log.Warn().Err(err).Msg("persisting first-run state")
		}
		p.mu.Lock()
		p.current.Enabled = true
		p.mu.Unlock()
		p.view.ShowEnabled(true)
	}
	return openErr
}

// Input handles a slider moving. The value is shown and stored right away;
// the background hears about it once the slider rests for the debounce
// window.
func (p *Panel) Input(field settings.Key, v int) {
	v = normalize(field, v)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.current = settings.Partial{}.With(field, v).Apply(p.current)
	p.stopTimerLocked(field)
	gen := p.gen[field]
	p.timers[field] = p.clock.AfterFunc(p.cfg.Debounce, func() {
		p.fire(field, v, gen)
	})
	p.mu.Unlock()

	p.view.ShowValue(field, v)
	p.persist(settings.Partial{}.With(field, v))
}

// Release handles the end of a slider gesture: any pending debounce is
// dropped and the value is sent now.
func (p *Panel) Release(field settings.Key, v int) {
	v = normalize(field, v)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.stopTimerLocked(field)
	p.current = settings.Partial{}.With(field, v).Apply(p.current)
	p.mu.Unlock()

	p.view.ShowValue(field, v)
	p.sendAsync(message.UpdateSettings{Settings: settings.Partial{}.With(field, v)})
}

// Toggle handles the enable checkbox.
func (p *Panel) Toggle(enabled bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.current.Enabled = enabled
	p.mu.Unlock()

	p.view.ShowEnabled(enabled)
	p.persist(settings.Partial{Enabled: settings.Bool(enabled)})
	p.sendAsync(message.ToggleVisualizer{Enabled: enabled})
}

// Reset restores the default visual fields everywhere.
func (p *Panel) Reset() {
	defaults := settings.Defaults()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	for _, f := range Controls {
		p.stopTimerLocked(f)
	}
	p.current = defaults.Visual().Apply(p.current)
	p.mu.Unlock()

	for _, f := range Controls {
		p.view.ShowValue(f, value(defaults, f))
	}
	p.persist(defaults.Visual())
	p.sendAsync(message.ResetSettings{})
}

// HandleMessage is the popup's bus listener. It mirrors overlay drags into
// the controls without sending anything back.
func (p *Panel) HandleMessage(ctx context.Context, m message.Message) (message.Message, error) {
	live, ok := m.(message.LiveControlSync)
	if !ok {
		return nil, nil
	}
	next := live.Visual().Normalize()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, nil
	}
	for _, f := range Controls {
		p.stopTimerLocked(f)
	}
	p.current = next.Apply(p.current)
	s := p.current
	p.mu.Unlock()

	for _, f := range Controls {
		p.view.ShowValue(f, value(s, f))
	}
	p.log.Debug().Int("hue", s.HueRotationDeg).Int("bars", s.BarCount).Msg("synced from overlay")
	return nil, nil
}

// StorageChanged shows values another window wrote to storage. A field with
// a debounced send still waiting keeps what the user typed.
func (p *Panel) StorageChanged(changed settings.Partial) {
	changed = changed.Normalize()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	var keep []settings.Key
	for _, k := range changed.Keys() {
		if _, busy := p.timers[k]; !busy {
			keep = append(keep, k)
		}
	}
	changed = changed.Only(keep...)
	p.current = changed.Apply(p.current)
	s := p.current
	p.mu.Unlock()

	if changed.Enabled != nil {
		p.view.ShowEnabled(s.Enabled)
	}
	for _, f := range Controls {
		if changed.Has(f) {
			p.view.ShowValue(f, value(s, f))
		}
	}
}

// Close cancels every pending send.
func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for f := range p.timers {
		p.stopTimerLocked(f)
	}
	p.closed = true
}

// Settings returns what the controls currently show.
func (p *Panel) Settings() settings.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Pending reports whether field has a debounced send waiting.
func (p *Panel) Pending(field settings.Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.timers[field]
	return ok
}

func (p *Panel) show(s settings.Settings) {
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()

	p.view.ShowEnabled(s.Enabled)
	for _, f := range Controls {
		p.view.ShowValue(f, value(s, f))
	}
}

func (p *Panel) fire(field settings.Key, v int, gen uint64) {
	p.mu.Lock()
	if p.closed || p.gen[field] != gen {
		p.mu.Unlock()
		return
	}
	delete(p.timers, field)
	p.mu.Unlock()

	p.sendAsync(message.UpdateSettings{Settings: settings.Partial{}.With(field, v)})
}

// stopTimerLocked cancels the pending send for field. Bumping the
// generation also voids a timer that already fired but has not run yet.
func (p *Panel) stopTimerLocked(field settings.Key) {
	p.gen[field]++
	if t, ok := p.timers[field]; ok {
		t.Stop()
		delete(p.timers, field)
	}
}

// persist queues a store write behind any earlier writes and sends.
func (p *Panel) persist(fields settings.Partial) {
	p.out.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
		defer cancel()
		if err := p.store.Set(ctx, fields); err != nil {
			p.log.Warn().Err(err).Msg("persisting settings")
		}
	})
}

func (p *Panel) sendAsync(m message.Message) {
	p.out.Go(func() { p.send(m) })
}

func (p *Panel) send(m message.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()
	if err := p.runtime.Send(ctx, m); err != nil {
		p.log.Debug().Err(err).Str("action", string(m.Kind())).Msg("background did not take message")
	}
}

func normalize(field settings.Key, v int) int {
	switch field {
	case settings.KeyHueRotationDeg:
		return settings.NormalizeHue(v)
	case settings.KeyBarCount:
		return settings.ClampBars(v)
	case settings.KeyPanelWidthPx:
		return settings.ClampWidth(v)
	}
	return v
}

func value(s settings.Settings, field settings.Key) int {
	switch field {
	case settings.KeyHueRotationDeg:
		return s.HueRotationDeg
	case settings.KeyBarCount:
		return s.BarCount
	case settings.KeyPanelWidthPx:
		return s.PanelWidthPx
	}
	return 0
}

// Label formats a slider value the way the popup shows it.
func Label(field settings.Key, v int) string {
	switch field {
	case settings.KeyHueRotationDeg:
		return fmt.Sprintf("%ddeg", v)
	case settings.KeyPanelWidthPx:
		return fmt.Sprintf("%dpx", v)
	}
	return fmt.Sprintf("%d", v)
}

// StatusText is the label next to the enable checkbox.
func StatusText(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "OFF"
}
