//go:build js
// +build js

package store

import (
	"context"
	"fmt"

	"github.com/gopherjs/gopherjs/js"
	"github.com/simukka/waveform-overlay/settings"
)

// Chrome is the extension's synchronized storage area.
type Chrome struct {
	area *js.Object
}

// NewChrome binds to chrome.storage.sync, or browser.storage.sync on hosts
// that only expose the promise-based namespace. It returns ErrUnavailable
// outside an extension context.
func NewChrome() (*Chrome, error) {
	for _, ns := range []string{"chrome", "browser"} {
		api := js.Global.Get(ns)
		if api == nil || api == js.Undefined {
			continue
		}
		storage := api.Get("storage")
		if storage == nil || storage == js.Undefined {
			continue
		}
		area := storage.Get("sync")
		if area == nil || area == js.Undefined {
			area = storage.Get("local")
		}
		if area == nil || area == js.Undefined {
			continue
		}
		return &Chrome{area: area}, nil
	}
	return nil, ErrUnavailable
}

// Get implements Store.
func (c *Chrome) Get(ctx context.Context, keys ...settings.Key) (settings.Partial, error) {
	names := settings.StorageKeys(keys...)
	done := make(chan result, 1)

	c.area.Call("get", names, func(items *js.Object) {
		if err := lastError(); err != nil {
			done <- result{err: err}
			return
		}
		done <- result{items: items}
	})

	select {
	case <-ctx.Done():
		return settings.Partial{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return settings.Partial{}, r.err
		}
		if r.items == nil || r.items == js.Undefined {
			return settings.Partial{}, nil
		}
		p, err := settings.FromMap(r.items.Interface().(map[string]interface{}))
		if err != nil {
			return settings.Partial{}, err
		}
		if len(keys) > 0 {
			p = p.Only(keys...)
		}
		return p, nil
	}
}

// Set implements Store.
func (c *Chrome) Set(ctx context.Context, p settings.Partial) error {
	if p.Empty() {
		return nil
	}
	done := make(chan error, 1)

	c.area.Call("set", p.ToMap(), func() {
		done <- lastError()
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

type result struct {
	items *js.Object
	err   error
}

func lastError() error {
	chrome := js.Global.Get("chrome")
	if chrome == nil || chrome == js.Undefined {
		return nil
	}
	runtime := chrome.Get("runtime")
	if runtime == nil || runtime == js.Undefined {
		return nil
	}
	le := runtime.Get("lastError")
	if le == nil || le == js.Undefined {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, le.Get("message").String())
}

// Watch calls fn with the new values whenever the synchronized area changes.
// The returned func removes the listener.
func Watch(fn func(settings.Partial)) func() {
	chrome := js.Global.Get("chrome")
	if chrome == nil || chrome == js.Undefined || chrome.Get("storage") == js.Undefined {
		return func() {}
	}
	onChanged := chrome.Get("storage").Get("onChanged")
	listener := js.MakeFunc(func(this *js.Object, args []*js.Object) interface{} {
		if len(args) < 2 || args[1].String() != "sync" {
			return nil
		}
		changes := args[0]
		values := map[string]interface{}{}
		for _, name := range settings.StorageKeys() {
			c := changes.Get(name)
			if c == nil || c == js.Undefined {
				continue
			}
			values[name] = c.Get("newValue").Interface()
		}
		p, err := settings.FromMap(values)
		if err != nil || p.Empty() {
			return nil
		}
		go fn(p)
		return nil
	})
	onChanged.Call("addListener", listener)
	return func() { onChanged.Call("removeListener", listener) }
}
