// Package message defines the messages exchanged between the background,
// popup and content contexts, and their wire encoding.
package message

import (
	"errors"
	"fmt"

	"github.com/simukka/waveform-overlay/settings"
)

// ErrMalformed is returned by Decode for payloads that do not form a known
// message.
var ErrMalformed = errors.New("malformed message")

// Kind is the value of the "action" field on the wire.
type Kind string

const (
	KindGetSettings       Kind = "getSettings"
	KindUpdateSettings    Kind = "updateSettings"
	KindToggleVisualizer  Kind = "toggleVisualizer"
	KindResetSettings     Kind = "resetSettings"
	KindSettingsChanged   Kind = "settingsChanged"
	KindVisualizerToggled Kind = "visualizerToggled"
	KindLiveControlSync   Kind = "liveControlSync"

	// KindSettingsReply has no action on the wire; the reply to getSettings
	// is the bare settings record.
	KindSettingsReply Kind = ""
)

// Message is one of the types below.
type Message interface {
	Kind() Kind
	isMessage()
}

type base struct{}

func (base) isMessage() {}

// GetSettings asks the background for the current settings.
type GetSettings struct{ base }

// SettingsReply answers GetSettings with every field filled.
type SettingsReply struct {
	base
	Settings settings.Settings
}

// UpdateSettings asks the background to persist and broadcast fields.
type UpdateSettings struct {
	base
	Settings settings.Partial
}

// ToggleVisualizer asks the background to enable or disable every overlay.
// Overlays also accept it directly.
type ToggleVisualizer struct {
	base
	Enabled bool
}

// ResetSettings restores the default visual fields.
type ResetSettings struct{ base }

// SettingsChanged tells an overlay which fields changed.
type SettingsChanged struct {
	base
	Settings settings.Partial
}

// VisualizerToggled tells an overlay the new enabled state.
type VisualizerToggled struct {
	base
	Enabled bool
}

// LiveControlSync mirrors overlay drag results into an open popup.
type LiveControlSync struct {
	base
	HueRotationDeg int
	BarCount       int
	PanelWidthPx   int
}

func (GetSettings) Kind() Kind       { return KindGetSettings }
func (SettingsReply) Kind() Kind     { return KindSettingsReply }
func (UpdateSettings) Kind() Kind    { return KindUpdateSettings }
func (ToggleVisualizer) Kind() Kind  { return KindToggleVisualizer }
func (ResetSettings) Kind() Kind     { return KindResetSettings }
func (SettingsChanged) Kind() Kind   { return KindSettingsChanged }
func (VisualizerToggled) Kind() Kind { return KindVisualizerToggled }
func (LiveControlSync) Kind() Kind   { return KindLiveControlSync }

// Visual returns the synced fields as a partial record.
func (m LiveControlSync) Visual() settings.Partial {
	return settings.Partial{
		HueRotationDeg: settings.Int(m.HueRotationDeg),
		BarCount:       settings.Int(m.BarCount),
		PanelWidthPx:   settings.Int(m.PanelWidthPx),
	}
}

// Encode returns the wire shape of m.
func Encode(m Message) map[string]interface{} {
	switch v := m.(type) {
	case SettingsReply:
		return v.Settings.ToMap()
	case UpdateSettings:
		return envelope(v.Kind(), "settings", v.Settings.ToMap())
	case SettingsChanged:
		return envelope(v.Kind(), "settings", v.Settings.ToMap())
	case ToggleVisualizer:
		return envelope(v.Kind(), "enabled", v.Enabled)
	case VisualizerToggled:
		return envelope(v.Kind(), "enabled", v.Enabled)
	case LiveControlSync:
		return envelope(v.Kind(), "settings", v.Visual().ToMap())
	}
	return map[string]interface{}{"action": string(m.Kind())}
}

func envelope(k Kind, field string, v interface{}) map[string]interface{} {
	return map[string]interface{}{"action": string(k), field: v}
}

// Decode validates and decodes a wire message.
func Decode(m map[string]interface{}) (Message, error) {
	raw, ok := m["action"]
	if !ok {
		return nil, fmt.Errorf("%w: missing action", ErrMalformed)
	}
	action, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: action is %T", ErrMalformed, raw)
	}

	switch Kind(action) {
	case KindGetSettings:
		return GetSettings{}, nil
	case KindResetSettings:
		return ResetSettings{}, nil
	case KindUpdateSettings:
		p, err := partialField(m)
		if err != nil {
			return nil, err
		}
		return UpdateSettings{Settings: p}, nil
	case KindSettingsChanged:
		p, err := partialField(m)
		if err != nil {
			return nil, err
		}
		return SettingsChanged{Settings: p}, nil
	case KindToggleVisualizer:
		b, err := enabledField(m)
		if err != nil {
			return nil, err
		}
		return ToggleVisualizer{Enabled: b}, nil
	case KindVisualizerToggled:
		b, err := enabledField(m)
		if err != nil {
			return nil, err
		}
		return VisualizerToggled{Enabled: b}, nil
	case KindLiveControlSync:
		p, err := partialField(m)
		if err != nil {
			return nil, err
		}
		if p.HueRotationDeg == nil || p.BarCount == nil || p.PanelWidthPx == nil {
			return nil, fmt.Errorf("%w: %s needs every visual field", ErrMalformed, action)
		}
		return LiveControlSync{
			HueRotationDeg: *p.HueRotationDeg,
			BarCount:       *p.BarCount,
			PanelWidthPx:   *p.PanelWidthPx,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown action %q", ErrMalformed, action)
}

// DecodeReply decodes the reply to GetSettings. Absent fields take their
// defaults.
func DecodeReply(m map[string]interface{}) (SettingsReply, error) {
	p, err := settings.FromMap(m)
	if err != nil {
		return SettingsReply{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return SettingsReply{Settings: p.Fill().Normalize()}, nil
}

func partialField(m map[string]interface{}) (settings.Partial, error) {
	raw, ok := m["settings"]
	if !ok || raw == nil {
		return settings.Partial{}, fmt.Errorf("%w: missing settings", ErrMalformed)
	}
	fields, ok := raw.(map[string]interface{})
	if !ok {
		return settings.Partial{}, fmt.Errorf("%w: settings is %T", ErrMalformed, raw)
	}
	p, err := settings.FromMap(fields)
	if err != nil {
		return settings.Partial{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return p, nil
}

func enabledField(m map[string]interface{}) (bool, error) {
	raw, ok := m["enabled"]
	if !ok {
		return false, fmt.Errorf("%w: missing enabled", ErrMalformed)
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%w: enabled is %T", ErrMalformed, raw)
	}
	return b, nil
}
