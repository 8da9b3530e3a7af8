package overlay

import (
	"github.com/rs/zerolog"
	"github.com/simukka/waveform-overlay/host"
)

// audioGraph is the analysis chain for the active element.
type audioGraph struct {
	ctx      host.AudioContext
	analyser host.Analyser
	source   host.Source
	bins     []uint8
}

func newAudioGraph(backend host.AudioBackend, cfg Config, log zerolog.Logger) (*audioGraph, error) {
	ctx, err := backend.NewContext()
	if err != nil {
		return nil, err
	}
	a, err := ctx.NewAnalyser(cfg.FFTSize, cfg.Smoothing)
	if err != nil {
		if cerr := ctx.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("closing audio context")
		}
		return nil, err
	}
	return &audioGraph{ctx: ctx, analyser: a, bins: make([]uint8, a.Bins())}, nil
}

// attach routes el into the analyser, replacing the current source. The
// same element is left as is.
func (g *audioGraph) attach(el host.MediaElement, log zerolog.Logger) error {
	if g.source != nil && g.source.Element().ID() == el.ID() {
		return nil
	}
	g.detach(log)
	src, err := g.ctx.Attach(el, g.analyser)
	if err != nil {
		return err
	}
	g.source = src
	return nil
}

func (g *audioGraph) detach(log zerolog.Logger) {
	if g.source == nil {
		return
	}
	src := g.source
	g.source = nil
	if err := src.Release(); err != nil {
		log.Debug().Err(err).Msg("releasing source")
	}
}

// sample reads the analyser into the graph's bin buffer.
func (g *audioGraph) sample() []uint8 {
	if g.analyser == nil {
		return nil
	}
	g.analyser.Sample(g.bins)
	return g.bins
}

// release tears the graph down in order: source, analyser, context. Each
// step runs at most once and a failing step does not stop the next.
func (g *audioGraph) release(log zerolog.Logger) {
	g.detach(log)
	if g.analyser != nil {
		a := g.analyser
		g.analyser = nil
		if err := a.Release(); err != nil {
			log.Debug().Err(err).Msg("releasing analyser")
		}
	}
	if g.ctx != nil {
		ctx := g.ctx
		g.ctx = nil
		if err := ctx.Close(); err != nil {
			log.Debug().Err(err).Msg("closing audio context")
		}
	}
}
