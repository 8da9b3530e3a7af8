package panel

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/simukka/waveform-overlay/settings"
)

//go:embed controls.gohtml
var controlsHTML string

var controlsTmpl = template.Must(template.New("controls").Parse(controlsHTML))

// DOM element ids of the popup controls.
const (
	IDToggle = "toggleEnabled"
	IDStatus = "statusText"
	IDReset  = "resetBtn"
)

// ControlData holds everything the controls template renders.
type ControlData struct {
	Enabled bool
	Status  string
	Sliders []SliderData
}

// SliderData describes one range input and its value label.
type SliderData struct {
	Field   settings.Key
	ID      string
	LabelID string
	Title   string
	Min     int
	Max     int
	Value   int
	Label   string
}

// Sliders returns the slider descriptions for s in display order.
func Sliders(s settings.Settings) []SliderData {
	return []SliderData{
		slider(settings.KeyHueRotationDeg, "hue", "Hue rotation", 0, 359, s.HueRotationDeg),
		slider(settings.KeyBarCount, "bars", "Bars", settings.MinBars, settings.MaxBars, s.BarCount),
		slider(settings.KeyPanelWidthPx, "width", "Width", settings.MinPanelWidth, settings.MaxPanelWidth, s.PanelWidthPx),
	}
}

func slider(field settings.Key, prefix, title string, lo, hi, v int) SliderData {
	return SliderData{
		Field:   field,
		ID:      prefix + "Slider",
		LabelID: prefix + "Value",
		Title:   title,
		Min:     lo,
		Max:     hi,
		Value:   v,
		Label:   Label(field, v),
	}
}

// Render returns the popup controls markup showing s.
func Render(s settings.Settings) (string, error) {
	data := ControlData{
		Enabled: s.Enabled,
		Status:  StatusText(s.Enabled),
		Sliders: Sliders(s),
	}

	var buf bytes.Buffer
	if err := controlsTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
