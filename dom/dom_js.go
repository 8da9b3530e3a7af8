//go:build js
// +build js

// Package dom implements the overlay's host facilities on the browser page:
// the panel canvas, animation frames, page visibility and media element
// discovery.
package dom

import (
	"github.com/gopherjs/gopherjs/js"
)

// missing reports an absent JS value.
func missing(o *js.Object) bool {
	return o == nil || o == js.Undefined
}

// listen adds fn as a listener for event on target. The returned func
// removes it.
func listen(target *js.Object, event string, fn func(event *js.Object), opts ...interface{}) func() {
	handler := js.MakeFunc(func(this *js.Object, args []*js.Object) interface{} {
		var ev *js.Object
		if len(args) > 0 {
			ev = args[0]
		}
		fn(ev)
		return nil
	})
	args := []interface{}{event, handler}
	args = append(args, opts...)
	target.Call("addEventListener", args...)
	return func() {
		target.Call("removeEventListener", event, handler)
	}
}

// Frames schedules callbacks with requestAnimationFrame.
type Frames struct {
	window *js.Object
}

// NewFrames creates a scheduler on window.
func NewFrames(window *js.Object) *Frames {
	return &Frames{window: window}
}

func (f *Frames) Request(fn func(ts float64)) int {
	return f.window.Call("requestAnimationFrame", func(ts float64) {
		fn(ts)
	}).Int()
}

func (f *Frames) Cancel(id int) {
	f.window.Call("cancelAnimationFrame", id)
}

// Visibility follows document.hidden.
type Visibility struct {
	doc *js.Object
}

// NewVisibility creates a visibility source on doc.
func NewVisibility(doc *js.Object) *Visibility {
	return &Visibility{doc: doc}
}

func (v *Visibility) Hidden() bool {
	return v.doc.Get("hidden").Bool()
}

func (v *Visibility) OnChange(fn func(hidden bool)) func() {
	return listen(v.doc, "visibilitychange", func(*js.Object) {
		fn(v.Hidden())
	})
}
