//go:build js
// +build js

package bus

import (
	"context"
	"fmt"
	"strings"

	"github.com/gopherjs/gopherjs/js"
	"github.com/simukka/waveform-overlay/logging"
	"github.com/simukka/waveform-overlay/message"
)

// Chrome is the extension messaging API. It implements Runtime and Tabs.
type Chrome struct {
	runtime *js.Object
	tabs    *js.Object
}

// NewChrome binds to chrome.runtime and, where available, chrome.tabs.
// Content scripts have no tabs API; Tabs calls then fail with ErrNoListener.
func NewChrome() (*Chrome, error) {
	api := js.Global.Get("chrome")
	if api == nil || api == js.Undefined {
		api = js.Global.Get("browser")
	}
	if api == nil || api == js.Undefined {
		return nil, fmt.Errorf("%w: no extension API", ErrNoListener)
	}
	rt := api.Get("runtime")
	if rt == nil || rt == js.Undefined {
		return nil, fmt.Errorf("%w: no runtime API", ErrNoListener)
	}
	c := &Chrome{runtime: rt}
	if tabs := api.Get("tabs"); tabs != nil && tabs != js.Undefined {
		c.tabs = tabs
	}
	return c, nil
}

// Request implements Runtime.
func (c *Chrome) Request(ctx context.Context, m message.Message) (message.Message, error) {
	done := make(chan result, 1)

	c.runtime.Call("sendMessage", message.Encode(m), func(resp *js.Object) {
		if err := c.lastError(); err != nil {
			done <- result{err: err}
			return
		}
		if resp == nil || resp == js.Undefined {
			done <- result{}
			return
		}
		raw, ok := resp.Interface().(map[string]interface{})
		if !ok {
			done <- result{err: fmt.Errorf("%w: reply is not an object", message.ErrMalformed)}
			return
		}
		if _, isEnvelope := raw["action"]; isEnvelope {
			reply, err := message.Decode(raw)
			done <- result{msg: reply, err: err}
			return
		}
		reply, err := message.DecodeReply(raw)
		done <- result{msg: reply, err: err}
	})

	select {
	case r := <-done:
		return r.msg, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send implements Runtime.
func (c *Chrome) Send(ctx context.Context, m message.Message) error {
	done := make(chan error, 1)
	c.runtime.Call("sendMessage", message.Encode(m), func(*js.Object) {
		done <- c.lastError()
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Listen implements Runtime. The listener keeps the reply channel open and
// answers once the handler goroutine finishes, so the JS callback returns
// immediately.
func (c *Chrome) Listen(h Handler) func() {
	log := logging.New("bus")

	listener := js.MakeFunc(func(this *js.Object, args []*js.Object) interface{} {
		if len(args) < 3 {
			return false
		}
		payload, sendResponse := args[0], args[2]

		raw, ok := payload.Interface().(map[string]interface{})
		if !ok {
			log.Debug().Msg("ignoring non-object message")
			return false
		}
		m, err := message.Decode(raw)
		if err != nil {
			log.Debug().Err(err).Msg("ignoring message")
			return false
		}

		go func() {
			reply, err := h(context.Background(), m)
			if err != nil {
				log.Debug().Err(err).Str("action", string(m.Kind())).Msg("handler failed")
				sendResponse.Invoke()
				return
			}
			if reply == nil {
				sendResponse.Invoke()
				return
			}
			sendResponse.Invoke(message.Encode(reply))
		}()
		return true
	})

	onMessage := c.runtime.Get("onMessage")
	onMessage.Call("addListener", listener)
	return func() { onMessage.Call("removeListener", listener) }
}

// List implements Tabs.
func (c *Chrome) List(ctx context.Context) ([]TabID, error) {
	if c.tabs == nil {
		return nil, ErrNoListener
	}
	done := make(chan []TabID, 1)

	c.tabs.Call("query", map[string]interface{}{}, func(tabs *js.Object) {
		var ids []TabID
		if tabs != nil && tabs != js.Undefined {
			for i := 0; i < tabs.Length(); i++ {
				id := tabs.Index(i).Get("id")
				if id == nil || id == js.Undefined {
					continue
				}
				ids = append(ids, TabID(id.Int()))
			}
		}
		done <- ids
	})

	select {
	case ids := <-done:
		return ids, c.lastError()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendToTab implements Tabs.
func (c *Chrome) SendToTab(ctx context.Context, id TabID, m message.Message) error {
	if c.tabs == nil {
		return ErrNoListener
	}
	done := make(chan error, 1)
	c.tabs.Call("sendMessage", int(id), message.Encode(m), func(*js.Object) {
		done <- c.lastError()
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnTabUpdated calls fn when a tab finishes loading.
func (c *Chrome) OnTabUpdated(fn func(id TabID, url string)) {
	if c.tabs == nil {
		return
	}
	c.tabs.Get("onUpdated").Call("addListener", func(id int, info, tab *js.Object) {
		status := info.Get("status")
		if status == nil || status == js.Undefined || status.String() != "complete" {
			return
		}
		url := ""
		if u := tab.Get("url"); u != nil && u != js.Undefined {
			url = u.String()
		}
		go fn(TabID(id), url)
	})
}

// OnInstalled calls fn when the extension is installed or updated.
func (c *Chrome) OnInstalled(fn func()) {
	ev := c.runtime.Get("onInstalled")
	if ev == nil || ev == js.Undefined {
		return
	}
	ev.Call("addListener", func() { go fn() })
}

func (c *Chrome) lastError() error {
	le := c.runtime.Get("lastError")
	if le == nil || le == js.Undefined {
		return nil
	}
	msg := le.Get("message").String()
	if strings.Contains(msg, "Receiving end does not exist") || strings.Contains(msg, "Could not establish connection") {
		return fmt.Errorf("%w: %s", ErrNoListener, msg)
	}
	return fmt.Errorf("chrome runtime: %s", msg)
}
