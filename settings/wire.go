package settings

import (
	"encoding/json"
	"fmt"
	"math"
)

// legacyKeys maps key names written by earlier releases of the extension to
// their current names. They are read only when the current key is absent.
var legacyKeys = map[Key]string{
	KeyEnabled:        "visualizerEnabled",
	KeyHueRotationDeg: "hueRotation",
	KeyPanelWidthPx:   "barWidth",
}

// StorageKeys returns the keys to request from storage for keys, including
// the legacy aliases that FromMap understands.
func StorageKeys(keys ...Key) []string {
	if len(keys) == 0 {
		keys = AllKeys
	}
	out := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, string(k))
		if legacy, ok := legacyKeys[k]; ok {
			out = append(out, legacy)
		}
	}
	return out
}

// FromMap decodes the wire or storage shape. Unknown keys are ignored; a key
// with a value of the wrong type is an error.
func FromMap(m map[string]interface{}) (Partial, error) {
	var p Partial
	for _, k := range AllKeys {
		raw, ok := lookup(m, k)
		if !ok {
			continue
		}
		if k == KeyEnabled {
			b, ok := raw.(bool)
			if !ok {
				return Partial{}, fmt.Errorf("%w: %s: want bool, got %T", ErrInvalidField, k, raw)
			}
			p.Enabled = Bool(b)
			continue
		}
		n, err := toInt(raw)
		if err != nil {
			return Partial{}, fmt.Errorf("%w: %s: %v", ErrInvalidField, k, err)
		}
		switch k {
		case KeyHueRotationDeg:
			p.HueRotationDeg = Int(n)
		case KeyBarCount:
			p.BarCount = Int(n)
		case KeyPanelWidthPx:
			p.PanelWidthPx = Int(n)
		}
	}
	return p, nil
}

// ToMap encodes the present fields using the current key names.
func (p Partial) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(AllKeys))
	if p.Enabled != nil {
		m[string(KeyEnabled)] = *p.Enabled
	}
	if p.HueRotationDeg != nil {
		m[string(KeyHueRotationDeg)] = *p.HueRotationDeg
	}
	if p.BarCount != nil {
		m[string(KeyBarCount)] = *p.BarCount
	}
	if p.PanelWidthPx != nil {
		m[string(KeyPanelWidthPx)] = *p.PanelWidthPx
	}
	return m
}

// ToMap encodes every field.
func (s Settings) ToMap() map[string]interface{} {
	return s.Partial().ToMap()
}

func lookup(m map[string]interface{}, k Key) (interface{}, bool) {
	if v, ok := m[string(k)]; ok && v != nil {
		return v, true
	}
	if legacy, ok := legacyKeys[k]; ok {
		if v, ok := m[legacy]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("not a finite number: %v", n)
		}
		return int(math.Round(n)), nil
	case float32:
		return toInt(float64(n))
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return toInt(f)
	}
	return 0, fmt.Errorf("want number, got %T", v)
}
