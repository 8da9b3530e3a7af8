package overlay

import (
	"context"
	"fmt"
	"sync"

	"github.com/simukka/waveform-overlay/bus"
	"github.com/simukka/waveform-overlay/host"
	"github.com/simukka/waveform-overlay/message"
)

type fakeElement struct {
	id string

	mu      sync.Mutex
	playing bool
	muted   bool
}

func (e *fakeElement) ID() string { return e.id }

func (e *fakeElement) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *fakeElement) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

func (e *fakeElement) set(playing, muted bool) {
	e.mu.Lock()
	e.playing, e.muted = playing, muted
	e.mu.Unlock()
}

type fakeObserver struct {
	mu       sync.Mutex
	existing []host.MediaElement
	found    func(host.MediaElement)
	event    func(host.MediaElement, host.MediaEvent)
	stopped  bool
}

func (o *fakeObserver) Observe(found func(host.MediaElement), event func(host.MediaElement, host.MediaEvent)) func() {
	o.mu.Lock()
	o.found, o.event = found, event
	existing := append([]host.MediaElement(nil), o.existing...)
	o.mu.Unlock()

	for _, el := range existing {
		found(el)
	}
	return func() {
		o.mu.Lock()
		o.stopped = true
		o.mu.Unlock()
	}
}

func (o *fakeObserver) emit(el *fakeElement, ev host.MediaEvent) {
	o.mu.Lock()
	fn := o.event
	o.mu.Unlock()
	fn(el, ev)
}

// play starts el and fires its play event, the way a page would.
func (o *fakeObserver) play(el *fakeElement) {
	el.set(true, el.Muted())
	o.emit(el, host.MediaPlay)
}

func (o *fakeObserver) pause(el *fakeElement) {
	el.set(false, el.Muted())
	o.emit(el, host.MediaPause)
}

type fakeFrames struct {
	mu      sync.Mutex
	next    int
	pending map[int]func(float64)
	ts      float64
}

func newFakeFrames() *fakeFrames {
	return &fakeFrames{pending: make(map[int]func(float64))}
}

func (f *fakeFrames) Request(fn func(float64)) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.pending[f.next] = fn
	return f.next
}

func (f *fakeFrames) Cancel(id int) {
	f.mu.Lock()
	delete(f.pending, id)
	f.mu.Unlock()
}

func (f *fakeFrames) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// tick runs every pending callback once.
func (f *fakeFrames) tick() {
	f.mu.Lock()
	f.ts += 16
	ts := f.ts
	fns := make([]func(float64), 0, len(f.pending))
	for id, fn := range f.pending {
		fns = append(fns, fn)
		delete(f.pending, id)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(ts)
	}
}

func (f *fakeFrames) ticks(n int) {
	for i := 0; i < n; i++ {
		f.tick()
	}
}

type fakeVisibility struct {
	mu     sync.Mutex
	hidden bool
	fn     func(bool)
}

func (v *fakeVisibility) Hidden() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hidden
}

func (v *fakeVisibility) OnChange(fn func(bool)) func() {
	v.mu.Lock()
	v.fn = fn
	v.mu.Unlock()
	return func() {}
}

func (v *fakeVisibility) set(hidden bool) {
	v.mu.Lock()
	v.hidden = hidden
	fn := v.fn
	v.mu.Unlock()
	if fn != nil {
		fn(hidden)
	}
}

type rect struct {
	x, y, w, h float64
	color      string
}

type fakeCanvas struct {
	mu            sync.Mutex
	width, height int
	visible       bool
	clears        int
	rects         []rect
}

func (c *fakeCanvas) Resize(w, h int) {
	c.mu.Lock()
	c.width, c.height = w, h
	c.mu.Unlock()
}

func (c *fakeCanvas) SetVisible(v bool) {
	c.mu.Lock()
	c.visible = v
	c.mu.Unlock()
}

func (c *fakeCanvas) Clear() {
	c.mu.Lock()
	c.clears++
	c.rects = c.rects[:0]
	c.mu.Unlock()
}

func (c *fakeCanvas) FillRect(x, y, w, h float64, color string) {
	c.mu.Lock()
	c.rects = append(c.rects, rect{x, y, w, h, color})
	c.mu.Unlock()
}

func (c *fakeCanvas) isVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

func (c *fakeCanvas) drawn() []rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]rect(nil), c.rects...)
}

// fakeAudio records graph lifecycle calls in order.
type fakeAudio struct {
	mu       sync.Mutex
	failNew  error
	level    uint8
	contexts int
	calls    []string
}

func (a *fakeAudio) record(format string, args ...interface{}) {
	a.mu.Lock()
	a.calls = append(a.calls, fmt.Sprintf(format, args...))
	a.mu.Unlock()
}

func (a *fakeAudio) log() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *fakeAudio) reset() {
	a.mu.Lock()
	a.calls = nil
	a.mu.Unlock()
}

func (a *fakeAudio) setLevel(v uint8) {
	a.mu.Lock()
	a.level = v
	a.mu.Unlock()
}

func (a *fakeAudio) NewContext() (host.AudioContext, error) {
	a.mu.Lock()
	err := a.failNew
	a.contexts++
	a.mu.Unlock()
	if err != nil {
		a.record("context failed")
		return nil, err
	}
	a.record("context")
	return &fakeAudioContext{audio: a}, nil
}

func (a *fakeAudio) Shutdown() error {
	a.record("shutdown")
	return nil
}

type fakeAudioContext struct {
	audio *fakeAudio
}

func (c *fakeAudioContext) NewAnalyser(fftSize int, smoothing float64) (host.Analyser, error) {
	c.audio.record("analyser %d", fftSize)
	return &fakeAnalyser{audio: c.audio, bins: fftSize / 2}, nil
}

func (c *fakeAudioContext) Attach(el host.MediaElement, a host.Analyser) (host.Source, error) {
	c.audio.record("attach %s", el.ID())
	return &fakeSource{audio: c.audio, el: el}, nil
}

func (c *fakeAudioContext) Close() error {
	c.audio.record("close context")
	return nil
}

type fakeAnalyser struct {
	audio *fakeAudio
	bins  int
}

func (a *fakeAnalyser) Bins() int { return a.bins }

func (a *fakeAnalyser) Sample(dst []uint8) {
	a.audio.mu.Lock()
	level := a.audio.level
	a.audio.mu.Unlock()
	for i := range dst {
		dst[i] = level
	}
}

func (a *fakeAnalyser) Release() error {
	a.audio.record("release analyser")
	return nil
}

type fakeSource struct {
	audio *fakeAudio
	el    host.MediaElement
}

func (s *fakeSource) Element() host.MediaElement { return s.el }

func (s *fakeSource) Release() error {
	s.audio.record("release source %s", s.el.ID())
	return nil
}

// fakeRuntime records messages the overlay sends toward the popup.
type fakeRuntime struct {
	mu   sync.Mutex
	sent []message.Message
}

func (r *fakeRuntime) Request(ctx context.Context, m message.Message) (message.Message, error) {
	return nil, bus.ErrNoListener
}

func (r *fakeRuntime) Send(ctx context.Context, m message.Message) error {
	r.mu.Lock()
	r.sent = append(r.sent, m)
	r.mu.Unlock()
	return nil
}

func (r *fakeRuntime) Listen(h bus.Handler) func() { return func() {} }

func (r *fakeRuntime) messages() []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]message.Message(nil), r.sent...)
}
