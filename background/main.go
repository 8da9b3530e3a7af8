//go:build js
// +build js

package main

import (
	"context"

	"github.com/simukka/waveform-overlay/bus"
	"github.com/simukka/waveform-overlay/coordinator"
	"github.com/simukka/waveform-overlay/logging"
	"github.com/simukka/waveform-overlay/store"
)

func main() {
	if logging.DebugRequested() {
		logging.SetLevel("debug")
	}
	log := logging.New("coordinator")
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("background failed to start")
		}
	}()

	st, err := store.NewChrome()
	if err != nil {
		log.Error().Err(err).Msg("binding extension storage")
		return
	}
	b, err := bus.NewChrome()
	if err != nil {
		log.Error().Err(err).Msg("binding extension messaging")
		return
	}

	c := coordinator.New(st, b, coordinator.DefaultConfig(), log)

	b.OnInstalled(func() {
		if _, err := c.Install(context.Background()); err != nil {
			log.Warn().Err(err).Msg("seeding default settings")
		}
	})
	b.Listen(c.Handle)
	b.OnTabUpdated(c.OnTabUpdated)

	log.Info().Msg("background ready")
	select {}
}
