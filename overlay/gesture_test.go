package overlay

import (
	"testing"

	"github.com/simukka/waveform-overlay/message"
	"github.com/simukka/waveform-overlay/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrag_UpRaisesHueAndPersistsOnce(t *testing.T) {
	f, _ := connected(t, settings.Partial{})

	f.engine.PointerDown(60, 120)
	f.engine.PointerMove(60, 70)
	f.engine.PointerMove(60, 20)
	f.engine.out.Wait()
	assert.Empty(t, f.store.Writes())

	f.engine.PointerUp()
	f.engine.out.Wait()

	assert.Equal(t, 50, f.engine.Settings().HueRotationDeg)
	writes := f.store.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, 50, *writes[0].HueRotationDeg)
	assert.Equal(t, settings.DefaultBarCount, *writes[0].BarCount)
	assert.Nil(t, writes[0].Enabled)

	sent := f.runtime.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, message.LiveControlSync{HueRotationDeg: 25, BarCount: 40, PanelWidthPx: 120}, sent[0])
	assert.Equal(t, message.LiveControlSync{HueRotationDeg: 50, BarCount: 40, PanelWidthPx: 120}, sent[1])
}

func TestDrag_DownWrapsHue(t *testing.T) {
	f, _ := connected(t, settings.Partial{HueRotationDeg: settings.Int(10)})

	f.engine.PointerDown(60, 10)
	f.engine.PointerMove(60, 110)
	f.engine.PointerUp()
	f.engine.out.Wait()

	assert.Equal(t, 320, f.engine.Settings().HueRotationDeg)
	require.Len(t, f.store.Writes(), 1)
}

func TestDrag_HueIsRelativeToAnchor(t *testing.T) {
	f, _ := connected(t, settings.Partial{})

	f.engine.PointerDown(60, 100)
	f.engine.PointerMove(60, 99)
	f.engine.PointerMove(60, 98)
	f.engine.PointerMove(60, 97)

	assert.Equal(t, 1, f.engine.Settings().HueRotationDeg)
}

func TestDrag_SidewaysStepsBars(t *testing.T) {
	f, _ := connected(t, settings.Partial{})

	f.engine.PointerDown(50, 80)
	f.engine.PointerMove(53, 80)
	f.engine.PointerMove(57, 80)
	assert.Equal(t, 42, f.engine.Settings().BarCount)
	assert.Len(t, f.engine.Peaks(), 21)

	f.engine.PointerMove(50, 80)
	assert.Equal(t, 41, f.engine.Settings().BarCount)
}

func TestDrag_BarsClampAtMaximum(t *testing.T) {
	f, _ := connected(t, settings.Partial{BarCount: settings.Int(79)})

	f.engine.PointerDown(50, 80)
	f.engine.PointerMove(60, 80)
	f.engine.PointerMove(70, 80)
	f.engine.PointerMove(80, 80)
	f.engine.PointerUp()
	f.engine.out.Wait()

	assert.Equal(t, settings.MaxBars, f.engine.Settings().BarCount)
	writes := f.store.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, settings.MaxBars, *writes[0].BarCount)
	assert.Len(t, f.runtime.messages(), 1)
}

func TestDrag_InsideDeadZoneDoesNotPersist(t *testing.T) {
	f, _ := connected(t, settings.Partial{})

	f.engine.PointerDown(50, 80)
	f.engine.PointerMove(51, 79)
	f.engine.PointerMove(52, 81)
	f.engine.PointerUp()
	f.engine.out.Wait()

	assert.Equal(t, settings.Defaults(), f.engine.Settings())
	assert.Empty(t, f.store.Writes())
	assert.Empty(t, f.runtime.messages())
}

func TestDrag_IgnoredWhenNotConnected(t *testing.T) {
	f := newFixture(t, settings.Partial{})
	f.start(t)

	f.engine.PointerDown(50, 100)
	f.engine.PointerMove(50, 0)
	f.engine.PointerUp()
	f.engine.out.Wait()

	assert.Equal(t, 0, f.engine.Settings().HueRotationDeg)
	assert.Empty(t, f.store.Writes())
}

func TestDrag_PersistedWhenMediaStopsMidGesture(t *testing.T) {
	f, a := connected(t, settings.Partial{})

	f.engine.PointerDown(60, 100)
	f.engine.PointerMove(60, 80)
	f.media.pause(a)
	f.engine.out.Wait()

	require.Len(t, f.store.Writes(), 1)
	assert.Equal(t, 10, *f.store.Writes()[0].HueRotationDeg)

	f.engine.PointerUp()
	f.engine.out.Wait()
	assert.Len(t, f.store.Writes(), 1)
}

func TestDoubleClick_ResetsPersistsAndSyncs(t *testing.T) {
	f, _ := connected(t, settings.Partial{
		HueRotationDeg: settings.Int(200),
		BarCount:       settings.Int(70),
		PanelWidthPx:   settings.Int(300),
	})

	f.engine.DoubleClick()
	f.engine.out.Wait()

	got := f.engine.Settings()
	assert.Equal(t, settings.DefaultHueRotationDeg, got.HueRotationDeg)
	assert.Equal(t, settings.DefaultBarCount, got.BarCount)
	assert.Equal(t, settings.DefaultPanelWidthPx, got.PanelWidthPx)
	assert.Equal(t, settings.DefaultPanelWidthPx, f.canvas.width)

	writes := f.store.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, settings.Defaults().Visual(), writes[0])
	assert.Equal(t, []message.Message{
		message.LiveControlSync{HueRotationDeg: 0, BarCount: 40, PanelWidthPx: 120},
	}, f.runtime.messages())
}

func TestDoubleClick_DuringDragDiscardsDrag(t *testing.T) {
	f, _ := connected(t, settings.Partial{})

	f.engine.PointerDown(60, 100)
	f.engine.PointerMove(60, 60)
	f.engine.DoubleClick()
	f.engine.PointerUp()
	f.engine.out.Wait()

	assert.Equal(t, 0, f.engine.Settings().HueRotationDeg)
	assert.Len(t, f.store.Writes(), 1)
}
