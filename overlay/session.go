package overlay

import (
	"math"

	"github.com/google/uuid"
)

// Session is the overlay's per-activation state. A new one starts each time
// the overlay is enabled; disabling or closing drops it.
type Session struct {
	ID uuid.UUID

	// envelope holds one peak per band, in [0,1].
	envelope []float64

	// hover holds the brightness of recently hovered bars. Bars that have
	// faded out are removed.
	hover   map[int]float64
	hovered int

	gesture *gestureState
}

func newSession() *Session {
	return &Session{
		ID:      uuid.New(),
		hover:   make(map[int]float64),
		hovered: -1,
	}
}

// Bands returns the envelope length for barCount bars. Mirrored rows above
// and below the center share a band.
func Bands(barCount int) int {
	return (barCount + 1) / 2
}

// resize keeps existing peaks when the band count changes.
func (s *Session) resize(bands int) {
	if len(s.envelope) == bands {
		return
	}
	next := make([]float64, bands)
	copy(next, s.envelope)
	s.envelope = next
}

// Decay applies one frame of the peak filter: a sample at or above the
// decayed peak replaces it, anything lower leaves the decayed peak.
func Decay(peak, sample, factor float64) float64 {
	return math.Max(peak*factor, sample)
}

// Approach moves v one frame toward target at rate.
func Approach(v, target, rate float64) float64 {
	return v + (target-v)*rate
}

// hoverFloor is where a fading bar is dropped from the hover map.
const hoverFloor = 0.001

// advanceHover steps every tracked bar toward its target.
func (s *Session) advanceHover(rise, fall float64) {
	if s.hovered >= 0 {
		if _, ok := s.hover[s.hovered]; !ok {
			s.hover[s.hovered] = 0
		}
	}
	for i, v := range s.hover {
		if i == s.hovered {
			s.hover[i] = Approach(v, 1, rise)
			continue
		}
		v = Approach(v, 0, fall)
		if v < hoverFloor {
			delete(s.hover, i)
			continue
		}
		s.hover[i] = v
	}
}

// RowDistance returns how many rows bar i sits from the center row and
// whether it is above it. Bar 0 is the center row; odd bars are above and
// even bars below, counting outward.
func RowDistance(i int) (dist int, above bool) {
	if i <= 0 {
		return 0, false
	}
	if i%2 == 1 {
		return (i + 1) / 2, true
	}
	return i / 2, false
}

// BandOf returns the envelope band drawn by bar i.
func BandOf(i, bands int) int {
	d, _ := RowDistance(i)
	if d >= bands {
		return bands - 1
	}
	return d
}

// HoverIndex maps a pointer y, relative to the panel top, to a bar index.
// It returns -1 outside the bars.
func HoverIndex(y, panelHeight float64, barCount int) int {
	if barCount <= 0 || y < 0 || y >= panelHeight {
		return -1
	}
	barHeight := panelHeight / float64(barCount)
	center := panelHeight / 2

	dist := int(math.Abs(y-center) / barHeight)
	if dist == 0 {
		return 0
	}
	i := 2 * dist
	if y < center {
		i--
	}
	if i >= barCount {
		return -1
	}
	return i
}
