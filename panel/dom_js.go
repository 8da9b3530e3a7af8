//go:build js
// +build js

package panel

import (
	"github.com/gopherjs/gopherjs/js"
	"github.com/simukka/waveform-overlay/settings"
)

// DOMView drives the popup's controls.
type DOMView struct {
	toggle  *js.Object
	status  *js.Object
	reset   *js.Object
	sliders map[settings.Key]*js.Object
	labels  map[settings.Key]*js.Object
}

// NewDOMView finds the controls in doc. When the popup page does not carry
// them, they are rendered into root first.
func NewDOMView(doc, root *js.Object) *DOMView {
	if missing(doc.Call("getElementById", IDToggle)) && !missing(root) {
		html, err := Render(settings.Defaults())
		if err != nil {
			html = "<div style='color:red'>Template error: " + err.Error() + "</div>"
		}
		root.Set("innerHTML", html)
	}

	v := &DOMView{
		toggle:  doc.Call("getElementById", IDToggle),
		status:  doc.Call("getElementById", IDStatus),
		reset:   doc.Call("getElementById", IDReset),
		sliders: make(map[settings.Key]*js.Object),
		labels:  make(map[settings.Key]*js.Object),
	}
	for _, s := range Sliders(settings.Defaults()) {
		v.sliders[s.Field] = doc.Call("getElementById", s.ID)
		v.labels[s.Field] = doc.Call("getElementById", s.LabelID)
	}
	return v
}

// Bind forwards control events to p.
func (v *DOMView) Bind(p *Panel) {
	attachSlider := func(field settings.Key) {
		slider := v.sliders[field]
		if missing(slider) {
			return
		}
		slider.Call("addEventListener", "input", func(e *js.Object) {
			p.Input(field, e.Get("target").Get("value").Int())
		})
		slider.Call("addEventListener", "change", func(e *js.Object) {
			p.Release(field, e.Get("target").Get("value").Int())
		})
	}
	for _, f := range Controls {
		attachSlider(f)
	}

	if !missing(v.toggle) {
		v.toggle.Call("addEventListener", "change", func(e *js.Object) {
			p.Toggle(e.Get("target").Get("checked").Bool())
		})
	}
	if !missing(v.reset) {
		v.reset.Call("addEventListener", "click", func() {
			p.Reset()
		})
	}
}

// ShowEnabled implements View.
func (v *DOMView) ShowEnabled(enabled bool) {
	if !missing(v.toggle) {
		v.toggle.Set("checked", enabled)
	}
	if !missing(v.status) {
		v.status.Set("textContent", StatusText(enabled))
		if enabled {
			v.status.Set("className", "status-text status-on")
		} else {
			v.status.Set("className", "status-text status-off")
		}
	}
}

// ShowValue implements View.
func (v *DOMView) ShowValue(field settings.Key, value int) {
	if s := v.sliders[field]; !missing(s) {
		s.Set("value", value)
	}
	if l := v.labels[field]; !missing(l) {
		l.Set("textContent", Label(field, value))
	}
}

func missing(o *js.Object) bool {
	return o == nil || o == js.Undefined
}
