// Package host declares the page facilities the overlay engine drives: media
// elements, the canvas, frame callbacks, page visibility and the audio
// analysis graph. The dom and audio packages implement them for the browser;
// tests use in-memory fakes.
package host

import "errors"

// ErrAudioUnavailable is returned by audio backends that cannot build an
// analysis graph on this page.
var ErrAudioUnavailable = errors.New("audio analysis unavailable")

// MediaEvent is a media element event the overlay reacts to.
type MediaEvent string

const (
	MediaPlay         MediaEvent = "play"
	MediaPause        MediaEvent = "pause"
	MediaEnded        MediaEvent = "ended"
	MediaVolumeChange MediaEvent = "volumechange"
)

// MediaEvents lists every event the overlay listens for.
var MediaEvents = []MediaEvent{MediaPlay, MediaPause, MediaEnded, MediaVolumeChange}

// MediaElement is an <audio> or <video> element. The overlay only relates to
// it; the page owns it.
type MediaElement interface {
	// ID is stable for the element's lifetime.
	ID() string

	// Playing reports started, not paused and not ended.
	Playing() bool

	// Muted reports muted or zero volume.
	Muted() bool
}

// MediaObserver reports media elements on the page.
type MediaObserver interface {
	// Observe calls found once for every element present now or inserted
	// later, and event for each of their MediaEvents. The returned func
	// stops observing insertions.
	Observe(found func(MediaElement), event func(MediaElement, MediaEvent)) (stop func())
}

// Frames schedules per-frame callbacks.
type Frames interface {
	// Request schedules fn for the next frame and returns a handle for
	// Cancel. fn receives the frame timestamp in milliseconds.
	Request(fn func(ts float64)) int

	// Cancel withdraws a pending request.
	Cancel(id int)
}

// Visibility reports whether the page is hidden.
type Visibility interface {
	Hidden() bool

	// OnChange calls fn on every visibility change. The returned func
	// removes it.
	OnChange(fn func(hidden bool)) (stop func())
}

// Canvas is the overlay's drawing surface.
type Canvas interface {
	Resize(width, height int)
	SetVisible(visible bool)
	Clear()
	FillRect(x, y, w, h float64, color string)
}

// AudioBackend creates analysis graphs.
type AudioBackend interface {
	NewContext() (AudioContext, error)

	// Shutdown closes whatever the backend keeps open for the page. It runs
	// once, on teardown; later calls return nil.
	Shutdown() error
}

// AudioContext owns analysis nodes and element sources.
type AudioContext interface {
	NewAnalyser(fftSize int, smoothing float64) (Analyser, error)

	// Attach routes el through a. Attaching an element that was attached
	// before re-uses its source.
	Attach(el MediaElement, a Analyser) (Source, error)

	Close() error
}

// Analyser yields frequency magnitudes.
type Analyser interface {
	// Bins is the number of frequency bins.
	Bins() int

	// Sample fills dst with byte magnitudes, one per bin.
	Sample(dst []uint8)

	Release() error
}

// Source is an element attached to an analyser.
type Source interface {
	Element() MediaElement
	Release() error
}
