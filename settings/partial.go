package settings

// Partial is a settings record where every field is optional. A nil field
// means "not present": it is neither read nor written.
type Partial struct {
	Enabled        *bool `json:"enabled,omitempty"`
	HueRotationDeg *int  `json:"hueRotationDeg,omitempty"`
	BarCount       *int  `json:"barCount,omitempty"`
	PanelWidthPx   *int  `json:"panelWidthPx,omitempty"`
}

// Empty reports whether no field is present.
func (p Partial) Empty() bool {
	return len(p.Keys()) == 0
}

// Has reports whether key is present.
func (p Partial) Has(key Key) bool {
	switch key {
	case KeyEnabled:
		return p.Enabled != nil
	case KeyHueRotationDeg:
		return p.HueRotationDeg != nil
	case KeyBarCount:
		return p.BarCount != nil
	case KeyPanelWidthPx:
		return p.PanelWidthPx != nil
	}
	return false
}

// Keys returns the present keys in wire order.
func (p Partial) Keys() []Key {
	keys := make([]Key, 0, len(AllKeys))
	for _, k := range AllKeys {
		if p.Has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Missing returns the keys that are absent, in wire order.
func (p Partial) Missing() []Key {
	var keys []Key
	for _, k := range AllKeys {
		if !p.Has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Apply merges the present fields of p into s. Absent fields keep the value
// they have in s.
func (p Partial) Apply(s Settings) Settings {
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.HueRotationDeg != nil {
		s.HueRotationDeg = *p.HueRotationDeg
	}
	if p.BarCount != nil {
		s.BarCount = *p.BarCount
	}
	if p.PanelWidthPx != nil {
		s.PanelWidthPx = *p.PanelWidthPx
	}
	return s
}

// Merge returns p with the present fields of other layered on top.
func (p Partial) Merge(other Partial) Partial {
	out := p.clone()
	if other.Enabled != nil {
		out.Enabled = Bool(*other.Enabled)
	}
	if other.HueRotationDeg != nil {
		out.HueRotationDeg = Int(*other.HueRotationDeg)
	}
	if other.BarCount != nil {
		out.BarCount = Int(*other.BarCount)
	}
	if other.PanelWidthPx != nil {
		out.PanelWidthPx = Int(*other.PanelWidthPx)
	}
	return out
}

// With returns a copy of p with the numeric field key set to v. Enabled and
// unknown keys are ignored.
func (p Partial) With(key Key, v int) Partial {
	out := p.clone()
	switch key {
	case KeyHueRotationDeg:
		out.HueRotationDeg = Int(v)
	case KeyBarCount:
		out.BarCount = Int(v)
	case KeyPanelWidthPx:
		out.PanelWidthPx = Int(v)
	}
	return out
}

// Only returns a copy of p restricted to keys.
func (p Partial) Only(keys ...Key) Partial {
	var out Partial
	for _, k := range keys {
		switch k {
		case KeyEnabled:
			if p.Enabled != nil {
				out.Enabled = Bool(*p.Enabled)
			}
		case KeyHueRotationDeg:
			if p.HueRotationDeg != nil {
				out.HueRotationDeg = Int(*p.HueRotationDeg)
			}
		case KeyBarCount:
			if p.BarCount != nil {
				out.BarCount = Int(*p.BarCount)
			}
		case KeyPanelWidthPx:
			if p.PanelWidthPx != nil {
				out.PanelWidthPx = Int(*p.PanelWidthPx)
			}
		}
	}
	return out
}

// Fill returns the full record, using defaults for absent fields.
func (p Partial) Fill() Settings {
	return p.Apply(Defaults())
}

// Normalize returns a copy with present numeric fields wrapped or clamped.
func (p Partial) Normalize() Partial {
	out := p.clone()
	if out.HueRotationDeg != nil {
		out.HueRotationDeg = Int(NormalizeHue(*out.HueRotationDeg))
	}
	if out.BarCount != nil {
		out.BarCount = Int(ClampBars(*out.BarCount))
	}
	if out.PanelWidthPx != nil {
		out.PanelWidthPx = Int(ClampWidth(*out.PanelWidthPx))
	}
	return out
}

func (p Partial) clone() Partial {
	return p.Only(AllKeys...)
}
