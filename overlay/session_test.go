package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBands(t *testing.T) {
	assert.Equal(t, 20, Bands(40))
	assert.Equal(t, 8, Bands(15))
	assert.Equal(t, 5, Bands(10))
	assert.Equal(t, 40, Bands(80))
}

func TestRowDistance(t *testing.T) {
	tests := []struct {
		i     int
		dist  int
		above bool
	}{
		{0, 0, false},
		{1, 1, true},
		{2, 1, false},
		{3, 2, true},
		{4, 2, false},
		{39, 20, true},
	}
	for _, tt := range tests {
		d, above := RowDistance(tt.i)
		assert.Equal(t, tt.dist, d, "bar %d", tt.i)
		assert.Equal(t, tt.above, above, "bar %d", tt.i)
	}
}

func TestBandOf_ClampsOutermostRow(t *testing.T) {
	assert.Equal(t, 0, BandOf(0, 20))
	assert.Equal(t, 2, BandOf(3, 20))
	assert.Equal(t, 19, BandOf(38, 20))
	assert.Equal(t, 19, BandOf(39, 20))
	assert.Equal(t, 4, BandOf(9, 5))
}

func TestHoverIndex(t *testing.T) {
	tests := []struct {
		name string
		y    float64
		want int
	}{
		{"center", 80, 0},
		{"inside center row", 81, 0},
		{"first row below", 84, 2},
		{"first row above", 76, 1},
		{"top edge", 0, 39},
		{"bottom edge", 159, 38},
		{"below panel", 160, -1},
		{"above panel", -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HoverIndex(tt.y, 160, 40))
		})
	}
}

func TestHoverIndex_NoBars(t *testing.T) {
	assert.Equal(t, -1, HoverIndex(80, 160, 0))
}

func TestDecay(t *testing.T) {
	assert.InDelta(t, 0.97, Decay(1, 0, 0.97), 1e-9)
	assert.InDelta(t, 0.8, Decay(0.5, 0.8, 0.97), 1e-9)
	assert.InDelta(t, 0.97, Decay(1, 0.97, 0.97), 1e-9)
}

func TestSessionResize_KeepsPeaks(t *testing.T) {
	s := newSession()
	s.resize(4)
	s.envelope[0], s.envelope[3] = 0.5, 0.9

	s.resize(6)
	assert.Equal(t, []float64{0.5, 0, 0, 0.9, 0, 0}, s.envelope)

	s.resize(2)
	assert.Equal(t, []float64{0.5, 0}, s.envelope)
}

func TestAdvanceHover_RisesFasterThanItFalls(t *testing.T) {
	s := newSession()
	s.hovered = 3

	s.advanceHover(0.6, 0.04)
	assert.InDelta(t, 0.6, s.hover[3], 1e-9)

	s.hovered = -1
	s.advanceHover(0.6, 0.04)
	assert.InDelta(t, 0.576, s.hover[3], 1e-9)
}

func TestAdvanceHover_DropsFadedBars(t *testing.T) {
	s := newSession()
	s.hover[5] = 0.001

	s.advanceHover(0.6, 0.04)
	_, ok := s.hover[5]
	assert.False(t, ok)
}

func TestColor(t *testing.T) {
	assert.Equal(t, "hsla(0, 100%, 50%, 0.8)", Color(0, 0, 20, 0))
	assert.Equal(t, "hsla(80, 100%, 50%, 0.8)", Color(350, 1, 4, 0))
	assert.Equal(t, "hsla(18, 100%, 75%, 0.8)", Color(0, 1, 20, 1))
	assert.Equal(t, "hsla(45, 100%, 55%, 0.8)", Color(45, 0, 0, 0.2))
}
