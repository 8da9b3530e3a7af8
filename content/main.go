//go:build js
// +build js

package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gopherjs/gopherjs/js"
	"github.com/rs/zerolog"
	"github.com/simukka/waveform-overlay/audio"
	"github.com/simukka/waveform-overlay/bus"
	"github.com/simukka/waveform-overlay/dom"
	"github.com/simukka/waveform-overlay/host"
	"github.com/simukka/waveform-overlay/logging"
	"github.com/simukka/waveform-overlay/message"
	"github.com/simukka/waveform-overlay/overlay"
	"github.com/simukka/waveform-overlay/settings"
	"github.com/simukka/waveform-overlay/store"
)

// previewItem is the localStorage item used outside an extension install.
const previewItem = "waveform-overlay-settings"

func main() {
	if logging.DebugRequested() {
		logging.SetLevel("debug")
	}
	log := logging.New("overlay")
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("overlay failed to start")
		}
	}()

	doc := js.Global.Get("document")
	if doc == nil || doc == js.Undefined {
		log.Warn().Msg("no document, overlay not started")
		return
	}

	st, rt := transports(log)
	surface := dom.NewPanel(doc)
	engine := overlay.New(overlay.Deps{
		Store:      st,
		Runtime:    rt,
		Media:      dom.NewMediaObserver(doc),
		Audio:      backend(log),
		Canvas:     surface,
		Frames:     dom.NewFrames(js.Global),
		Visibility: dom.NewVisibility(doc),
	}, overlay.DefaultConfig(), log)

	unbind := surface.Bind(engine)
	stopListen := rt.Listen(engine.HandleMessage)

	var once sync.Once
	teardown := func() {
		once.Do(func() {
			stopListen()
			engine.Close()
			unbind()
		})
	}

	// Expose a small control API for the preview page and the console
	js.Global.Set("WaveformOverlay", map[string]interface{}{
		"toggle": func(enabled bool) {
			go handle(engine, log, message.ToggleVisualizer{Enabled: enabled})
		},
		"reset": func() {
			engine.Reset()
		},
		"state": func() string {
			return engine.State().String()
		},
		"close": teardown,
	})

	// Tear the overlay down when the page goes away
	js.Global.Call("addEventListener", "pagehide", func() { teardown() })
	js.Global.Call("addEventListener", "beforeunload", func() { teardown() })

	go func() {
		if err := engine.Start(context.Background()); err != nil {
			log.Error().Err(err).Msg("starting overlay")
		}
	}()

	select {}
}

func handle(engine *overlay.Engine, log zerolog.Logger, m message.Message) {
	if _, err := engine.HandleMessage(context.Background(), m); err != nil {
		log.Warn().Err(err).Str("action", string(m.Kind())).Msg("page control")
	}
}

// transports binds to the extension APIs. Outside an extension, such as on
// the preview page, settings live in localStorage and messages stay on the
// page.
func transports(log zerolog.Logger) (store.Store, bus.Runtime) {
	rt, err := bus.NewChrome()
	if err == nil {
		st, err := store.NewChrome()
		if err == nil {
			return st, rt
		}
		log.Warn().Err(err).Msg("extension storage unavailable")
	}

	log.Info().Msg("no extension runtime, using preview mode")
	local, err := store.NewLocal(previewItem)
	if err != nil {
		log.Warn().Err(err).Msg("localStorage unavailable, settings are not kept")
		return store.NewMemory(settings.Partial{}), bus.NewMemory().Context("overlay")
	}
	return local, bus.NewMemory().Context("overlay")
}

// backend picks Web Audio, or the synthetic spectrum when the page asks for
// it with a "waveform-synthetic" query parameter.
func backend(log zerolog.Logger) host.AudioBackend {
	location := js.Global.Get("location")
	if location != nil && location != js.Undefined &&
		strings.Contains(location.Get("search").String(), "waveform-synthetic") {
		log.Info().Msg("using synthetic audio")
		return audio.NewSynthetic(uint32(time.Now().UnixNano()))
	}
	return audio.NewWebAudio()
}
