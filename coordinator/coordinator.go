// Package coordinator implements the background context: install-time
// seeding, message routing and fan-out to every open page.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/simukka/waveform-overlay/bus"
	"github.com/simukka/waveform-overlay/message"
	"github.com/simukka/waveform-overlay/settings"
	"github.com/simukka/waveform-overlay/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrUnsupported is returned by Handle for messages the background does not
// act on.
var ErrUnsupported = errors.New("unsupported message")

// Config tunes the coordinator.
type Config struct {
	// FanOutLimit bounds concurrent deliveries of one broadcast.
	FanOutLimit int
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{FanOutLimit: 8}
}

// Coordinator is the process-wide background component. It holds no state
// of its own; settings live in the store.
type Coordinator struct {
	store store.Store
	tabs  bus.Tabs
	cfg   Config
	log   zerolog.Logger

	reads singleflight.Group
}

// New creates a coordinator.
func New(s store.Store, tabs bus.Tabs, cfg Config, log zerolog.Logger) *Coordinator {
	if cfg.FanOutLimit <= 0 {
		cfg.FanOutLimit = DefaultConfig().FanOutLimit
	}
	return &Coordinator{store: s, tabs: tabs, cfg: cfg, log: log}
}

// Install writes defaults for every key that is absent. Keys that already
// exist, including values from a previous install, are left alone. It
// returns the fields it wrote.
func (c *Coordinator) Install(ctx context.Context) (settings.Partial, error) {
	existing, err := c.store.Get(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("reading settings on install")
		return settings.Partial{}, fmt.Errorf("install: %w", err)
	}

	missing := existing.Missing()
	if len(missing) == 0 {
		c.log.Debug().Msg("settings already seeded")
		return settings.Partial{}, nil
	}

	seed := settings.Defaults().Partial().Only(missing...)
	if err := c.store.Set(ctx, seed); err != nil {
		c.log.Warn().Err(err).Msg("seeding defaults")
		return settings.Partial{}, fmt.Errorf("install: %w", err)
	}

	c.log.Info().Int("keys", len(missing)).Msg("seeded default settings")
	return seed, nil
}

// Handle routes one incoming message.
func (c *Coordinator) Handle(ctx context.Context, m message.Message) (message.Message, error) {
	switch v := m.(type) {
	case message.GetSettings:
		return message.SettingsReply{Settings: c.GetSettings(ctx)}, nil
	case message.UpdateSettings:
		c.UpdateSettings(ctx, v.Settings)
		return nil, nil
	case message.ToggleVisualizer:
		c.ToggleVisualizer(ctx, v.Enabled)
		return nil, nil
	case message.ResetSettings:
		c.ResetSettings(ctx)
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, m.Kind())
}

// GetSettings reads every key and fills absent ones with defaults. A store
// failure yields the defaults. Concurrent calls share one read.
func (c *Coordinator) GetSettings(ctx context.Context) settings.Settings {
	v, err, shared := c.reads.Do("settings", func() (interface{}, error) {
		s, _, err := store.Load(ctx, c.store)
		return s, err
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("reading settings")
		return settings.Defaults()
	}
	c.log.Debug().Bool("shared", shared).Msg("settings read")
	return v.(settings.Settings)
}

// UpdateSettings persists the present fields and tells every page which
// fields changed. Absent fields are neither written nor broadcast.
func (c *Coordinator) UpdateSettings(ctx context.Context, p settings.Partial) {
	p = p.Normalize()
	if p.Empty() {
		return
	}
	if err := c.store.Set(ctx, p); err != nil {
		c.log.Warn().Err(err).Msg("persisting settings update")
	}
	c.Broadcast(ctx, message.SettingsChanged{Settings: p})
}

// ToggleVisualizer persists enabled and tells every page.
func (c *Coordinator) ToggleVisualizer(ctx context.Context, enabled bool) {
	if err := c.store.Set(ctx, settings.Partial{Enabled: settings.Bool(enabled)}); err != nil {
		c.log.Warn().Err(err).Msg("persisting visualizer toggle")
	}
	c.Broadcast(ctx, message.VisualizerToggled{Enabled: enabled})
}

// ResetSettings restores the default visual fields and tells every page.
func (c *Coordinator) ResetSettings(ctx context.Context) {
	visual := settings.Defaults().Visual()
	if err := c.store.Set(ctx, visual); err != nil {
		c.log.Warn().Err(err).Msg("persisting settings reset")
	}
	c.Broadcast(ctx, message.SettingsChanged{Settings: visual})
}

// Broadcast delivers m to every open page and returns how many accepted it.
// Pages without a listener are skipped silently. It returns once every
// delivery finished, so consecutive broadcasts reach a page in order.
func (c *Coordinator) Broadcast(ctx context.Context, m message.Message) int {
	ids, err := c.tabs.List(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("listing pages")
		return 0
	}

	var (
		g         errgroup.Group
		delivered = make([]bool, len(ids))
	)
	g.SetLimit(c.cfg.FanOutLimit)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := c.tabs.SendToTab(ctx, id, m); err != nil {
				c.log.Debug().Err(err).Int("tab", int(id)).Str("action", string(m.Kind())).Msg("page did not take message")
				return nil
			}
			delivered[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range delivered {
		if ok {
			n++
		}
	}
	c.log.Debug().Str("action", string(m.Kind())).Int("pages", len(ids)).Int("delivered", n).Msg("broadcast")
	return n
}

// OnTabUpdated records a finished navigation. Content scripts inject
// themselves; the background only logs pages that can host an overlay.
func (c *Coordinator) OnTabUpdated(id bus.TabID, url string) {
	if !Injectable(url) {
		return
	}
	c.log.Debug().Int("tab", int(id)).Str("url", url).Msg("page loaded")
}

// Injectable reports whether a content script can run on url.
func Injectable(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
