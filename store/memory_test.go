package store

import (
	"context"
	"errors"
	"testing"

	"github.com/simukka/waveform-overlay/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetReturnsOnlyPresentKeys(t *testing.T) {
	m := NewMemory(settings.Partial{BarCount: settings.Int(50)})

	p, err := m.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []settings.Key{settings.KeyBarCount}, p.Keys())
	assert.Equal(t, 50, *p.BarCount)
}

func TestMemory_SetMergesFields(t *testing.T) {
	m := NewMemory(settings.Defaults().Partial())

	require.NoError(t, m.Set(context.Background(), settings.Partial{BarCount: settings.Int(60)}))

	got := m.Snapshot().Fill()
	assert.Equal(t, 60, got.BarCount)
	assert.Equal(t, settings.DefaultPanelWidthPx, got.PanelWidthPx)
	assert.Equal(t, settings.DefaultEnabled, got.Enabled)
	assert.Len(t, m.Writes(), 1)
}

func TestMemory_InterleavedWritesAreLastWriteWinsPerField(t *testing.T) {
	m := NewMemory(settings.Partial{})
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, settings.Partial{HueRotationDeg: settings.Int(10), BarCount: settings.Int(20)}))
	require.NoError(t, m.Set(ctx, settings.Partial{BarCount: settings.Int(30)}))

	got := m.Snapshot()
	assert.Equal(t, 10, *got.HueRotationDeg)
	assert.Equal(t, 30, *got.BarCount)
}

func TestMemory_Fail(t *testing.T) {
	m := NewMemory(settings.Partial{})
	boom := errors.New("quota exceeded")
	m.Fail(boom)

	_, err := m.Get(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.Set(context.Background(), settings.Partial{}), boom)
	assert.Empty(t, m.Writes())

	m.Fail(nil)
	assert.NoError(t, m.Set(context.Background(), settings.Partial{}))
}

func TestMemory_CancelledContext(t *testing.T) {
	m := NewMemory(settings.Partial{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_FillsDefaults(t *testing.T) {
	m := NewMemory(settings.Partial{HueRotationDeg: settings.Int(400)})

	s, raw, err := Load(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, 40, s.HueRotationDeg)
	assert.Equal(t, settings.DefaultBarCount, s.BarCount)
	assert.Nil(t, raw.Enabled)
}

func TestLoad_ErrorReturnsDefaults(t *testing.T) {
	m := NewMemory(settings.Partial{})
	m.Fail(ErrUnavailable)

	s, _, err := Load(context.Background(), m)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, settings.Defaults(), s)
}
