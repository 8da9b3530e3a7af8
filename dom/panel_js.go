//go:build js
// +build js

package dom

import (
	"strconv"

	"github.com/gopherjs/gopherjs/js"
)

// Panel is the overlay's fixed top-right drawing surface with its power and
// reset buttons.
type Panel struct {
	doc    *js.Object
	root   *js.Object
	canvas *js.Object
	ctx    *js.Object
	power  *js.Object
	reset  *js.Object
}

// Gestures receives pointer input on the panel.
type Gestures interface {
	PointerDown(x, y float64)
	PointerMove(x, y float64)
	PointerUp()
	PointerLeave()
	DoubleClick()
	Reset()
	Power()
}

// NewPanel creates the panel, hidden, and appends it to the page.
func NewPanel(doc *js.Object) *Panel {
	root := doc.Call("createElement", "div")
	root.Set("id", "waveform-overlay")
	style(root, map[string]string{
		"position":      "fixed",
		"top":           "10px",
		"right":         "10px",
		"zIndex":        "10000",
		"display":       "none",
		"pointerEvents": "auto",
		"userSelect":    "none",
		"touchAction":   "none",
		"background":    "rgba(0, 0, 0, 0.35)",
		"borderRadius":  "6px",
		"lineHeight":    "0",
	})

	canvas := doc.Call("createElement", "canvas")
	canvas.Get("style").Set("cursor", "ns-resize")
	root.Call("appendChild", canvas)

	p := &Panel{
		doc:    doc,
		root:   root,
		canvas: canvas,
		ctx:    canvas.Call("getContext", "2d"),
		power:  button(doc, "⏻", "Turn visualizer off"),
		reset:  button(doc, "↺", "Reset"),
	}
	style(p.power, map[string]string{"left": "4px"})
	style(p.reset, map[string]string{"right": "4px"})
	root.Call("appendChild", p.power)
	root.Call("appendChild", p.reset)

	parent := doc.Get("body")
	if missing(parent) {
		parent = doc.Get("documentElement")
	}
	parent.Call("appendChild", root)
	return p
}

func style(el *js.Object, props map[string]string) {
	s := el.Get("style")
	for k, v := range props {
		s.Set(k, v)
	}
}

func button(doc *js.Object, label, title string) *js.Object {
	b := doc.Call("createElement", "button")
	b.Set("textContent", label)
	b.Set("title", title)
	style(b, map[string]string{
		"position":   "absolute",
		"top":        "4px",
		"width":      "20px",
		"height":     "20px",
		"padding":    "0",
		"border":     "none",
		"background": "transparent",
		"color":      "#fff",
		"cursor":     "pointer",
		"lineHeight": "20px",
	})
	return b
}

func (p *Panel) Resize(w, h int) {
	p.canvas.Set("width", w)
	p.canvas.Set("height", h)
	style(p.canvas, map[string]string{
		"width":  strconv.Itoa(w) + "px",
		"height": strconv.Itoa(h) + "px",
	})
}

func (p *Panel) SetVisible(visible bool) {
	display := "none"
	if visible {
		display = "block"
	}
	p.root.Get("style").Set("display", display)
}

func (p *Panel) Clear() {
	p.ctx.Call("clearRect", 0, 0, p.canvas.Get("width"), p.canvas.Get("height"))
}

func (p *Panel) FillRect(x, y, w, h float64, color string) {
	p.ctx.Set("fillStyle", color)
	p.ctx.Call("fillRect", x, y, w, h)
}

// point returns the event position relative to the canvas.
func (p *Panel) point(clientX, clientY float64) (float64, float64) {
	r := p.canvas.Call("getBoundingClientRect")
	return clientX - r.Get("left").Float(), clientY - r.Get("top").Float()
}

// Bind wires mouse and single-touch input into g. Releasing the mouse
// anywhere, or leaving the window, ends a drag. The returned func removes
// every listener and the panel.
func (p *Panel) Bind(g Gestures) func() {
	window := js.Global
	var stops []func()
	on := func(target *js.Object, event string, fn func(*js.Object), opts ...interface{}) {
		stops = append(stops, listen(target, event, fn, opts...))
	}

	on(p.canvas, "mousedown", func(ev *js.Object) {
		ev.Call("preventDefault")
		g.PointerDown(p.point(ev.Get("clientX").Float(), ev.Get("clientY").Float()))
	})
	on(p.canvas, "mousemove", func(ev *js.Object) {
		g.PointerMove(p.point(ev.Get("clientX").Float(), ev.Get("clientY").Float()))
	})
	on(p.canvas, "mouseleave", func(*js.Object) {
		g.PointerLeave()
	})
	on(p.canvas, "dblclick", func(ev *js.Object) {
		ev.Call("preventDefault")
		g.DoubleClick()
	})
	on(window, "mousemove", func(ev *js.Object) {
		if ev.Get("buttons").Int() == 0 {
			return
		}
		g.PointerMove(p.point(ev.Get("clientX").Float(), ev.Get("clientY").Float()))
	})
	on(window, "mouseup", func(*js.Object) {
		g.PointerUp()
	})
	on(p.doc, "mouseleave", func(*js.Object) {
		g.PointerUp()
	})

	touch := func(fn func(x, y float64)) func(*js.Object) {
		return func(ev *js.Object) {
			touches := ev.Get("touches")
			if touches.Length() != 1 {
				return
			}
			ev.Call("preventDefault")
			t := touches.Index(0)
			fn(p.point(t.Get("clientX").Float(), t.Get("clientY").Float()))
		}
	}
	passive := map[string]interface{}{"passive": false}
	on(p.canvas, "touchstart", touch(g.PointerDown), passive)
	on(p.canvas, "touchmove", touch(g.PointerMove), passive)
	on(p.canvas, "touchend", func(*js.Object) { g.PointerUp() })
	on(p.canvas, "touchcancel", func(*js.Object) { g.PointerUp() })

	on(p.power, "click", func(ev *js.Object) {
		ev.Call("stopPropagation")
		g.Power()
	})
	on(p.reset, "click", func(ev *js.Object) {
		ev.Call("stopPropagation")
		g.Reset()
	})

	return func() {
		for _, stop := range stops {
			stop()
		}
		stops = nil
		if parent := p.root.Get("parentNode"); !missing(parent) {
			parent.Call("removeChild", p.root)
		}
	}
}
