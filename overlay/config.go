// Package overlay implements the per-page visualizer: it follows the page's
// media elements, renders the frequency panel while audio plays and lets the
// user adjust hue and bar count by dragging the panel.
package overlay

import "time"

// Config holds the overlay's tuning values.
type Config struct {
	// Decay is the per-frame factor applied to a band peak that got no new
	// maximum.
	Decay float64

	// HoverRise and HoverFall are the per-frame lerp rates toward hovered
	// and unhovered.
	HoverRise float64
	HoverFall float64

	// DegreesPerPixel maps vertical drag to hue.
	DegreesPerPixel float64

	// BarDeadZone is the horizontal drag, in pixels, that must be exceeded
	// for one bar step.
	BarDeadZone float64

	PanelHeight int
	BarFill     float64

	FFTSize   int
	Smoothing float64

	// Timeout bounds store reads and writes and bus sends.
	Timeout time.Duration
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Decay:           0.97,
		HoverRise:       0.6,
		HoverFall:       0.04,
		DegreesPerPixel: 0.5,
		BarDeadZone:     2,
		PanelHeight:     160,
		BarFill:         0.8,
		FFTSize:         256,
		Smoothing:       0.8,
		Timeout:         5 * time.Second,
	}
}

// State is the engine's lifecycle state.
type State int

const (
	Uninitialized State = iota
	// Idle is disabled.
	Idle
	// Armed is enabled with no audio attached.
	Armed
	// Connected is enabled, attached and rendering.
	Connected
	// Closed is after teardown.
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	}
	return "unknown"
}
