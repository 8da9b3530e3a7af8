//go:build js
// +build js

package main

import (
	"context"

	"github.com/gopherjs/gopherjs/js"
	"github.com/jonboulle/clockwork"
	"github.com/simukka/waveform-overlay/bus"
	"github.com/simukka/waveform-overlay/logging"
	"github.com/simukka/waveform-overlay/panel"
	"github.com/simukka/waveform-overlay/store"
)

func main() {
	if logging.DebugRequested() {
		logging.SetLevel("debug")
	}
	log := logging.New("panel")

	doc := js.Global.Get("document")
	start := func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("popup failed to start")
			}
		}()

		st, err := store.NewChrome()
		if err != nil {
			log.Error().Err(err).Msg("binding extension storage")
			return
		}
		rt, err := bus.NewChrome()
		if err != nil {
			log.Error().Err(err).Msg("binding extension messaging")
			return
		}

		view := panel.NewDOMView(doc, doc.Call("getElementById", "controls"))
		p := panel.New(st, rt, view, clockwork.NewRealClock(), panel.DefaultConfig(), log)
		view.Bind(p)
		stop := rt.Listen(p.HandleMessage)
		unwatch := store.Watch(p.StorageChanged)

		js.Global.Call("addEventListener", "pagehide", func() {
			unwatch()
			stop()
			p.Close()
		})

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), panel.DefaultConfig().Timeout)
			defer cancel()
			if err := p.Open(ctx); err != nil {
				log.Warn().Err(err).Msg("background unavailable, showing defaults")
			}
		}()
	}

	if doc.Get("readyState").String() == "loading" {
		doc.Call("addEventListener", "DOMContentLoaded", func() { start() })
	} else {
		start()
	}

	select {}
}
