package overlay

import (
	"math"

	"github.com/simukka/waveform-overlay/settings"
)

// gestureState tracks one press-drag-release on the panel. Anchors move as
// drag steps are applied, so dragging is relative.
type gestureState struct {
	startX, startY   float64
	anchorX, anchorY float64
	dirty            bool
}

// PointerDown starts a drag at panel coordinates x, y.
func (e *Engine) PointerDown(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Connected || e.session == nil {
		return
	}
	e.session.gesture = &gestureState{startX: x, startY: y, anchorX: x, anchorY: y}
}

// PointerMove updates the hovered bar and applies drag steps. Moving up
// raises the hue; moving sideways past the dead zone adds or removes one
// bar per step.
func (e *Engine) PointerMove(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if e.state != Connected || s == nil {
		return
	}
	s.hovered = HoverIndex(y, float64(e.cfg.PanelHeight), e.settings.BarCount)

	g := s.gesture
	if g == nil {
		return
	}

	changed := false
	if delta := int((g.anchorY - y) * e.cfg.DegreesPerPixel); delta != 0 {
		e.settings.HueRotationDeg = settings.NormalizeHue(e.settings.HueRotationDeg + delta)
		g.anchorY -= float64(delta) / e.cfg.DegreesPerPixel
		changed = true
	}

	if dx := x - g.anchorX; math.Abs(dx) > e.cfg.BarDeadZone {
		step := 1
		if dx < 0 {
			step = -1
		}
		g.anchorX = x
		if next := settings.ClampBars(e.settings.BarCount + step); next != e.settings.BarCount {
			e.settings.BarCount = next
			s.resize(Bands(next))
			changed = true
		}
	}

	if changed {
		g.dirty = true
		e.syncLocked()
	}
}

// PointerUp ends a drag. A drag that changed anything is persisted once.
func (e *Engine) PointerUp() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.endGestureLocked()
}

// PointerLeave clears the hover highlight when the pointer leaves the panel.
func (e *Engine) PointerLeave() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.hovered = -1
	}
}

// DoubleClick restores the default look.
func (e *Engine) DoubleClick() {
	e.Reset()
}

// Reset restores the default hue, bar count and width, persists them and
// mirrors them into an open popup.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Armed && e.state != Connected {
		return
	}
	if g := e.session.gesture; g != nil {
		g.dirty = false
	}
	visual := settings.Defaults().Visual()
	e.applyLocked(visual)
	e.persistLocked(visual)
	e.syncLocked()
}

func (e *Engine) endGestureLocked() {
	if e.session == nil || e.session.gesture == nil {
		return
	}
	g := e.session.gesture
	e.session.gesture = nil
	if g.dirty {
		e.persistLocked(e.settings.Visual())
	}
}
