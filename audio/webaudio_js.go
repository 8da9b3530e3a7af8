//go:build js
// +build js

package audio

import (
	"fmt"

	"github.com/gopherjs/gopherjs/js"
	"github.com/simukka/waveform-overlay/host"
)

// Node exposes the underlying DOM node of a media element.
type Node interface {
	Node() *js.Object
}

// WebAudio builds analysis graphs with the page's Web Audio API.
//
// A page gets a single AudioContext: browsers cap how many a page may open
// and an element can be routed into a MediaElementSource only once. Once
// routed, an element plays through the context, so Close on a handle leaves
// it running; only Shutdown at page teardown closes it. NewContext resumes a
// context the autoplay policy started suspended.
type WebAudio struct {
	ctx     *js.Object
	sources map[string]*js.Object
	shut    bool
}

// NewWebAudio creates the backend. The AudioContext is created lazily.
func NewWebAudio() *WebAudio {
	return &WebAudio{sources: make(map[string]*js.Object)}
}

// NewContext returns the page context, creating or resuming it.
func (w *WebAudio) NewContext() (ctx host.AudioContext, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", host.ErrAudioUnavailable, r)
		}
	}()

	if w.shut {
		return nil, ErrClosed
	}
	if w.ctx == nil {
		ctor := js.Global.Get("AudioContext")
		if ctor == nil || ctor == js.Undefined {
			ctor = js.Global.Get("webkitAudioContext")
		}
		if ctor == nil || ctor == js.Undefined {
			return nil, host.ErrAudioUnavailable
		}
		w.ctx = ctor.New()
	}
	if w.ctx.Get("state").String() == "suspended" {
		w.ctx.Call("resume")
	}
	return &webContext{backend: w}, nil
}

// Shutdown closes the page AudioContext and forgets the element sources.
func (w *WebAudio) Shutdown() (err error) {
	if w.shut {
		return nil
	}
	w.shut = true
	ctx := w.ctx
	w.ctx = nil
	w.sources = make(map[string]*js.Object)
	if ctx == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("closing audio context: %v", r)
		}
	}()
	ctx.Call("close")
	return nil
}

type webContext struct {
	backend *WebAudio
	closed  bool
}

func (c *webContext) NewAnalyser(fftSize int, smoothing float64) (a host.Analyser, err error) {
	if err := ValidateAnalyser(fftSize, smoothing); err != nil {
		return nil, err
	}
	if c.closed {
		return nil, ErrClosed
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", host.ErrAudioUnavailable, r)
		}
	}()

	node := c.backend.ctx.Call("createAnalyser")
	node.Set("fftSize", fftSize)
	node.Set("smoothingTimeConstant", smoothing)
	node.Call("connect", c.backend.ctx.Get("destination"))
	bins := node.Get("frequencyBinCount").Int()
	return &webAnalyser{
		node: node,
		buf:  js.Global.Get("Uint8Array").New(bins),
		bins: bins,
	}, nil
}

// Attach routes el into a. The analyser is connected to the destination, so
// the element stays audible.
func (c *webContext) Attach(el host.MediaElement, a host.Analyser) (src host.Source, err error) {
	if c.closed {
		return nil, ErrClosed
	}
	n, ok := el.(Node)
	if !ok {
		return nil, fmt.Errorf("%w: element %s has no DOM node", host.ErrAudioUnavailable, el.ID())
	}
	an, ok := a.(*webAnalyser)
	if !ok {
		return nil, fmt.Errorf("%w: analyser from another backend", ErrInvalidAnalyser)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("attaching %s: %v", el.ID(), r)
		}
	}()

	source, ok := c.backend.sources[el.ID()]
	if ok {
		source.Call("disconnect")
	} else {
		source = c.backend.ctx.Call("createMediaElementSource", n.Node())
		c.backend.sources[el.ID()] = source
	}
	source.Call("connect", an.node)
	return &webSource{el: el, node: source, analyser: an.node, destination: c.backend.ctx.Get("destination")}, nil
}

// Close retires this handle. The page context keeps running.
func (c *webContext) Close() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return nil
}

type webAnalyser struct {
	node *js.Object
	buf  *js.Object
	bins int
}

func (a *webAnalyser) Bins() int { return a.bins }

func (a *webAnalyser) Sample(dst []uint8) {
	if a.node == nil {
		return
	}
	a.node.Call("getByteFrequencyData", a.buf)
	n := len(dst)
	if n > a.bins {
		n = a.bins
	}
	for i := 0; i < n; i++ {
		dst[i] = uint8(a.buf.Index(i).Int())
	}
}

func (a *webAnalyser) Release() (err error) {
	if a.node == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("disconnecting analyser: %v", r)
		}
	}()
	node := a.node
	a.node = nil
	node.Call("disconnect")
	return nil
}

type webSource struct {
	el          host.MediaElement
	node        *js.Object
	analyser    *js.Object
	destination *js.Object
}

func (s *webSource) Element() host.MediaElement { return s.el }

// Release routes the element straight to the speakers again. The source
// node stays cached for the element.
func (s *webSource) Release() (err error) {
	if s.analyser == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("disconnecting source: %v", r)
		}
	}()
	analyser := s.analyser
	s.analyser = nil
	s.node.Call("disconnect", analyser)
	s.node.Call("connect", s.destination)
	return nil
}
