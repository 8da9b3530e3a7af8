package store

import (
	"context"
	"sync"

	"github.com/simukka/waveform-overlay/settings"
)

// Memory is an in-process Store. It backs the preview page and the tests.
type Memory struct {
	mu     sync.Mutex
	data   settings.Partial
	err    error
	writes []settings.Partial
}

// NewMemory creates a store holding initial.
func NewMemory(initial settings.Partial) *Memory {
	return &Memory{data: initial.Merge(settings.Partial{})}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, keys ...settings.Key) (settings.Partial, error) {
	if err := ctx.Err(); err != nil {
		return settings.Partial{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return settings.Partial{}, m.err
	}
	if len(keys) == 0 {
		keys = settings.AllKeys
	}
	return m.data.Only(keys...), nil
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, p settings.Partial) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.data = m.data.Merge(p)
	m.writes = append(m.writes, p.Merge(settings.Partial{}))
	return nil
}

// Fail makes every following operation return err; nil restores the store.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Snapshot returns the stored record as-is.
func (m *Memory) Snapshot() settings.Partial {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Merge(settings.Partial{})
}

// Writes returns every successful Set in order.
func (m *Memory) Writes() []settings.Partial {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]settings.Partial, len(m.writes))
	copy(out, m.writes)
	return out
}
