//go:build js
// +build js

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gopherjs/gopherjs/js"
	"github.com/simukka/waveform-overlay/settings"
)

// Local keeps settings in window.localStorage under a single JSON item. It
// is used by the preview page where no extension storage exists.
type Local struct {
	storage *js.Object
	item    string
}

// NewLocal binds to window.localStorage.
func NewLocal(item string) (*Local, error) {
	storage := js.Global.Get("localStorage")
	if storage == nil || storage == js.Undefined {
		return nil, ErrUnavailable
	}
	return &Local{storage: storage, item: item}, nil
}

// Get implements Store.
func (l *Local) Get(ctx context.Context, keys ...settings.Key) (settings.Partial, error) {
	if err := ctx.Err(); err != nil {
		return settings.Partial{}, err
	}
	p, err := l.read()
	if err != nil {
		return settings.Partial{}, err
	}
	if len(keys) == 0 {
		keys = settings.AllKeys
	}
	return p.Only(keys...), nil
}

// Set implements Store.
func (l *Local) Set(ctx context.Context, p settings.Partial) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cur, err := l.read()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cur.Merge(p).ToMap())
	if err != nil {
		return err
	}
	l.storage.Call("setItem", l.item, string(raw))
	return nil
}

func (l *Local) read() (settings.Partial, error) {
	v := l.storage.Call("getItem", l.item)
	if v == nil || v == js.Undefined {
		return settings.Partial{}, nil
	}
	m := map[string]interface{}{}
	dec := json.NewDecoder(strings.NewReader(v.String()))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return settings.Partial{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return settings.FromMap(m)
}
