// Package store provides the asynchronous key-value store that holds the
// canonical settings snapshot.
//
// Get returns only the keys that exist. Set merges: fields that are not
// present in the partial record are left untouched. There is no transaction
// across fields; concurrent writers resolve per field, last write wins.
package store

import (
	"context"
	"errors"

	"github.com/simukka/waveform-overlay/settings"
)

// ErrUnavailable is returned when the backing storage refused an operation.
var ErrUnavailable = errors.New("settings storage unavailable")

// Store reads and writes settings fields.
type Store interface {
	// Get returns the present subset of keys. No keys means all keys.
	Get(ctx context.Context, keys ...settings.Key) (settings.Partial, error)

	// Set merges p into the stored record.
	Set(ctx context.Context, p settings.Partial) error
}

// Load reads every key and fills absent ones with defaults.
func Load(ctx context.Context, s Store) (settings.Settings, settings.Partial, error) {
	p, err := s.Get(ctx)
	if err != nil {
		return settings.Defaults(), settings.Partial{}, err
	}
	return p.Fill().Normalize(), p, nil
}
