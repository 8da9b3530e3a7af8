// Package audio provides the analysis backends behind the overlay: Web Audio
// in the browser and a seeded synthetic spectrum for previews and tests.
package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/simukka/waveform-overlay/common"
	"github.com/simukka/waveform-overlay/host"
)

var (
	// ErrClosed is returned by a closed context.
	ErrClosed = errors.New("audio context closed")

	// ErrInvalidAnalyser is returned for analyser settings Web Audio would
	// reject.
	ErrInvalidAnalyser = errors.New("invalid analyser settings")
)

// ValidateAnalyser checks fftSize and smoothing against the ranges an
// AnalyserNode accepts.
func ValidateAnalyser(fftSize int, smoothing float64) error {
	if fftSize < 32 || fftSize > 32768 || fftSize&(fftSize-1) != 0 {
		return fmt.Errorf("%w: fftSize %d", ErrInvalidAnalyser, fftSize)
	}
	if smoothing < 0 || smoothing > 1 {
		return fmt.Errorf("%w: smoothing %v", ErrInvalidAnalyser, smoothing)
	}
	return nil
}

// Synthetic generates a spectrum for any playing, unmuted element. Each
// element gets its own reproducible sequence derived from the seed.
type Synthetic struct {
	seed uint32

	mu       sync.Mutex
	contexts int
	shut     bool
}

// NewSynthetic creates a synthetic backend.
func NewSynthetic(seed uint32) *Synthetic {
	return &Synthetic{seed: seed}
}

// NewContext fails only after Shutdown.
func (s *Synthetic) NewContext() (host.AudioContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shut {
		return nil, ErrClosed
	}
	s.contexts++
	return &syntheticContext{seed: s.seed, sources: make(map[string]*syntheticSource)}, nil
}

// Shutdown refuses further contexts.
func (s *Synthetic) Shutdown() error {
	s.mu.Lock()
	s.shut = true
	s.mu.Unlock()
	return nil
}

// Contexts returns how many contexts were created.
func (s *Synthetic) Contexts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contexts
}

type syntheticContext struct {
	seed uint32

	mu      sync.Mutex
	closed  bool
	sources map[string]*syntheticSource
}

func (c *syntheticContext) NewAnalyser(fftSize int, smoothing float64) (host.Analyser, error) {
	if err := ValidateAnalyser(fftSize, smoothing); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	bins := fftSize / 2
	return &syntheticAnalyser{
		ctx:       c,
		bins:      bins,
		smoothing: smoothing,
		prev:      make([]float64, bins),
		rng:       common.NewSeededRNG(c.seed),
	}, nil
}

// Attach re-uses the element's source when it was attached before, like a
// MediaElementAudioSourceNode that can only be created once per element.
func (c *syntheticContext) Attach(el host.MediaElement, a host.Analyser) (host.Source, error) {
	an, ok := a.(*syntheticAnalyser)
	if !ok || an.ctx != c {
		return nil, fmt.Errorf("%w: analyser from another context", ErrInvalidAnalyser)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	src, ok := c.sources[el.ID()]
	if !ok {
		src = &syntheticSource{ctx: c, el: el}
		c.sources[el.ID()] = src
	}
	src.analyser = an
	an.source = src
	an.rng.SetSeed(common.KeySeed(c.seed, el.ID()))
	return src, nil
}

func (c *syntheticContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return nil
}

type syntheticAnalyser struct {
	ctx       *syntheticContext
	bins      int
	smoothing float64
	prev      []float64
	rng       *common.SeededRNG
	frame     int
	source    *syntheticSource
	released  bool
}

func (a *syntheticAnalyser) Bins() int { return a.bins }

// Sample applies the AnalyserNode time smoothing to a generated spectrum:
// energy falls off with frequency and pulses over time.
func (a *syntheticAnalyser) Sample(dst []uint8) {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()

	live := !a.released && !a.ctx.closed && a.source != nil &&
		a.source.el.Playing() && !a.source.el.Muted()
	pulse := 0.55 + 0.45*math.Abs(math.Sin(float64(a.frame)*0.15))
	a.frame++

	for i := 0; i < len(dst); i++ {
		if i >= a.bins {
			dst[i] = 0
			continue
		}
		raw := 0.0
		if live {
			shape := math.Pow(1-float64(i)/float64(a.bins), 1.5)
			raw = shape * pulse * a.rng.RandomFloat(0.7, 1)
		}
		v := a.smoothing*a.prev[i] + (1-a.smoothing)*raw
		a.prev[i] = v
		dst[i] = toByte(v)
	}
}

func (a *syntheticAnalyser) Release() error {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	a.released = true
	if a.source != nil && a.source.analyser == a {
		a.source.analyser = nil
	}
	a.source = nil
	return nil
}

type syntheticSource struct {
	ctx      *syntheticContext
	el       host.MediaElement
	analyser *syntheticAnalyser
}

func (s *syntheticSource) Element() host.MediaElement { return s.el }

// Release disconnects the source. It stays cached on the context.
func (s *syntheticSource) Release() error {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if s.analyser != nil && s.analyser.source == s {
		s.analyser.source = nil
	}
	s.analyser = nil
	return nil
}

func toByte(v float64) uint8 {
	v *= 255
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
