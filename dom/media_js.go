//go:build js
// +build js

package dom

import (
	"strconv"

	"github.com/gopherjs/gopherjs/js"
	"github.com/simukka/waveform-overlay/host"
)

// ObservedAttr tags media elements the observer has registered.
const ObservedAttr = "data-waveform-observed"

// Element wraps an <audio> or <video> node.
type Element struct {
	id   string
	node *js.Object
}

func (e *Element) ID() string { return e.id }

func (e *Element) Playing() bool {
	return !e.node.Get("paused").Bool() && !e.node.Get("ended").Bool()
}

func (e *Element) Muted() bool {
	return e.node.Get("muted").Bool() || e.node.Get("volume").Float() == 0
}

// Node returns the DOM node, for routing into Web Audio.
func (e *Element) Node() *js.Object { return e.node }

// MediaObserver finds media elements present at start and inserted later.
type MediaObserver struct {
	doc  *js.Object
	next int
}

// NewMediaObserver creates an observer on doc.
func NewMediaObserver(doc *js.Object) *MediaObserver {
	return &MediaObserver{doc: doc}
}

// Observe tags every element it reports with ObservedAttr so a node is
// reported once, however often it is re-inserted.
func (o *MediaObserver) Observe(found func(host.MediaElement), event func(host.MediaElement, host.MediaEvent)) func() {
	var stops []func()

	register := func(node *js.Object) {
		if node.Call("hasAttribute", ObservedAttr).Bool() {
			return
		}
		o.next++
		el := &Element{id: "media-" + strconv.Itoa(o.next), node: node}
		node.Call("setAttribute", ObservedAttr, el.id)
		for _, ev := range host.MediaEvents {
			ev := ev
			stops = append(stops, listen(node, string(ev), func(*js.Object) {
				event(el, ev)
			}))
		}
		found(el)
	}

	scan := func(root *js.Object) {
		if missing(root) || missing(root.Get("querySelectorAll")) {
			return
		}
		name := root.Get("nodeName").String()
		if name == "AUDIO" || name == "VIDEO" {
			register(root)
		}
		nodes := root.Call("querySelectorAll", "audio, video")
		for i := 0; i < nodes.Length(); i++ {
			register(nodes.Index(i))
		}
	}

	scan(o.doc)

	observer := js.Global.Get("MutationObserver").New(func(records *js.Object) {
		for i := 0; i < records.Length(); i++ {
			added := records.Index(i).Get("addedNodes")
			for j := 0; j < added.Length(); j++ {
				scan(added.Index(j))
			}
		}
	})
	observer.Call("observe", o.doc.Get("documentElement"), map[string]interface{}{
		"childList": true,
		"subtree":   true,
	})

	return func() {
		observer.Call("disconnect")
		for _, stop := range stops {
			stop()
		}
		stops = nil
	}
}
