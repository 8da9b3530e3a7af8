package overlay

import "fmt"

func (e *Engine) startLoopLocked() {
	if e.rendering {
		return
	}
	e.rendering = true
	e.scheduleLocked()
}

// scheduleLocked registers the next frame unless one is pending or the page
// is hidden.
func (e *Engine) scheduleLocked() {
	if e.framePending || e.deps.Visibility.Hidden() {
		return
	}
	e.frameID = e.deps.Frames.Request(e.frame)
	e.framePending = true
}

func (e *Engine) stopLoopLocked() {
	e.rendering = false
	if e.framePending {
		e.deps.Frames.Cancel(e.frameID)
		e.framePending = false
	}
}

// frame is one render loop iteration. On a hidden page the loop ends here;
// visibilityChanged starts it again.
func (e *Engine) frame(ts float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.framePending = false
	if !e.rendering || e.state != Connected {
		return
	}
	if e.deps.Visibility.Hidden() {
		return
	}
	e.drawLocked()
	e.scheduleLocked()
}

func (e *Engine) drawLocked() {
	s, g := e.session, e.graph
	if s == nil || g == nil {
		return
	}

	bands := Bands(e.settings.BarCount)
	s.resize(bands)
	bins := g.sample()
	for b := 0; b < bands; b++ {
		s.envelope[b] = Decay(s.envelope[b], bandLevel(bins, b, bands), e.cfg.Decay)
	}
	s.advanceHover(e.cfg.HoverRise, e.cfg.HoverFall)

	e.rasterizeLocked(s)
}

// bandLevel averages the bins that fall into band b, scaled to [0,1].
func bandLevel(bins []uint8, b, bands int) float64 {
	n := len(bins)
	if n == 0 || bands == 0 {
		return 0
	}
	lo := b * n / bands
	hi := (b + 1) * n / bands
	if hi <= lo {
		hi = lo + 1
	}
	if hi > n {
		hi = n
	}
	if lo >= hi {
		return 0
	}

	sum := 0
	for _, v := range bins[lo:hi] {
		sum += int(v)
	}
	return float64(sum) / float64(hi-lo) / 255
}

// rasterizeLocked draws one horizontal bar per row, mirrored around the
// center row and centered horizontally.
func (e *Engine) rasterizeLocked(s *Session) {
	c := e.deps.Canvas
	c.Clear()

	bars := e.settings.BarCount
	bands := Bands(bars)
	width := float64(e.settings.PanelWidthPx)
	height := float64(e.cfg.PanelHeight)
	rowHeight := height / float64(bars)
	thickness := rowHeight * e.cfg.BarFill
	center := height / 2

	for i := 0; i < bars; i++ {
		d, above := RowDistance(i)
		y := center + float64(d)*rowHeight
		if above {
			y = center - float64(d)*rowHeight
		}
		band := BandOf(i, bands)
		length := s.envelope[band] * width
		if length < 1 {
			length = 1
		}
		c.FillRect((width-length)/2, y-thickness/2, length, thickness, Color(e.settings.HueRotationDeg, band, bands, s.hover[i]))
	}
}

// Color returns the fill of a band. Hue spreads around the wheel starting
// at the rotation; hover brightness lifts the lightness from 50% to 75%.
func Color(hueRotation, band, bands int, brightness float64) string {
	hue := hueRotation
	if bands > 0 {
		hue = (hueRotation + band*360/bands) % 360
	}
	return fmt.Sprintf("hsla(%d, 100%%, %.0f%%, 0.8)", hue, 50+25*brightness)
}
