// Package settings defines the visualizer settings record shared by the
// background, popup and content contexts, together with its defaults,
// normalization rules and storage wire shape.
package settings

import "errors"

// Key names one settings field in storage and on the wire.
type Key string

const (
	KeyEnabled        Key = "enabled"
	KeyHueRotationDeg Key = "hueRotationDeg"
	KeyBarCount       Key = "barCount"
	KeyPanelWidthPx   Key = "panelWidthPx"
)

// AllKeys lists every settings key in wire order.
var AllKeys = []Key{KeyEnabled, KeyHueRotationDeg, KeyBarCount, KeyPanelWidthPx}

// Bounds and defaults.
const (
	MinBars       = 10
	MaxBars       = 80
	MinPanelWidth = 40
	MaxPanelWidth = 400

	DefaultEnabled        = true
	DefaultHueRotationDeg = 0
	DefaultBarCount       = 40
	DefaultPanelWidthPx   = 120
)

// ErrInvalidField is returned when a wire value has the wrong type.
var ErrInvalidField = errors.New("invalid settings field")

// Settings is the full settings record.
type Settings struct {
	Enabled        bool `json:"enabled"`
	HueRotationDeg int  `json:"hueRotationDeg"`
	BarCount       int  `json:"barCount"`
	PanelWidthPx   int  `json:"panelWidthPx"`
}

// Defaults returns the install-time settings.
func Defaults() Settings {
	return Settings{
		Enabled:        DefaultEnabled,
		HueRotationDeg: DefaultHueRotationDeg,
		BarCount:       DefaultBarCount,
		PanelWidthPx:   DefaultPanelWidthPx,
	}
}

// Normalize wraps the hue and clamps bar count and panel width.
func (s Settings) Normalize() Settings {
	s.HueRotationDeg = NormalizeHue(s.HueRotationDeg)
	s.BarCount = ClampBars(s.BarCount)
	s.PanelWidthPx = ClampWidth(s.PanelWidthPx)
	return s
}

// Visual returns the three visual fields as a partial record, leaving
// Enabled unset.
func (s Settings) Visual() Partial {
	return Partial{
		HueRotationDeg: Int(s.HueRotationDeg),
		BarCount:       Int(s.BarCount),
		PanelWidthPx:   Int(s.PanelWidthPx),
	}
}

// Partial returns every field of s as a partial record.
func (s Settings) Partial() Partial {
	p := s.Visual()
	p.Enabled = Bool(s.Enabled)
	return p
}

// NormalizeHue wraps deg into [0,360), including negative values.
func NormalizeHue(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// ClampBars clamps n into [MinBars, MaxBars].
func ClampBars(n int) int {
	return clamp(n, MinBars, MaxBars)
}

// ClampWidth clamps px into [MinPanelWidth, MaxPanelWidth].
func ClampWidth(px int) int {
	return clamp(px, MinPanelWidth, MaxPanelWidth)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n.
func Int(n int) *int { return &n }
