package bus

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
	"github.com/simukka/waveform-overlay/message"
)

const inboxSize = 64

// Memory is an in-process bus. Extension pages are created with Context and
// page contexts with Tab; Memory itself implements Tabs for the background.
type Memory struct {
	clock   clockwork.Clock
	timeout time.Duration

	mu       sync.RWMutex
	contexts []*Endpoint
	tabs     map[TabID]*Endpoint
	inboxes  map[string]*pendingRequest
	closed   atomic.Bool
}

// MemoryOption configures a Memory bus.
type MemoryOption func(*Memory)

// WithClock sets the clock used for request timeouts.
func WithClock(c clockwork.Clock) MemoryOption {
	return func(b *Memory) { b.clock = c }
}

// WithRequestTimeout sets how long Request waits for a reply.
func WithRequestTimeout(d time.Duration) MemoryOption {
	return func(b *Memory) { b.timeout = d }
}

// NewMemory creates an empty bus.
func NewMemory(opts ...MemoryOption) *Memory {
	b := &Memory{
		clock:   clockwork.NewRealClock(),
		timeout: DefaultRequestTimeout,
		tabs:    make(map[TabID]*Endpoint),
		inboxes: make(map[string]*pendingRequest),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Context returns a new extension page endpoint, such as the background or
// the popup.
func (b *Memory) Context(name string) *Endpoint {
	e := &Endpoint{bus: b, name: name}
	b.mu.Lock()
	b.contexts = append(b.contexts, e)
	b.mu.Unlock()
	return e
}

// Tab returns the endpoint of page context id, creating it if needed.
func (b *Memory) Tab(id TabID) *Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.tabs[id]; ok {
		return e
	}
	e := &Endpoint{bus: b, tab: id, isTab: true}
	b.tabs[id] = e
	return e
}

// List implements Tabs.
func (b *Memory) List(ctx context.Context) ([]TabID, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	ids := make([]TabID, 0, len(b.tabs))
	for id := range b.tabs {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SendToTab implements Tabs.
func (b *Memory) SendToTab(ctx context.Context, id TabID, m message.Message) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.RLock()
	e, ok := b.tabs[id]
	b.mu.RUnlock()
	if !ok {
		return ErrNoListener
	}
	return e.enqueue(ctx, delivery{msg: m})
}

// Close stops every listener. Further sends fail with ErrClosed.
func (b *Memory) Close() error {
	if b.closed.Swap(true) {
		return ErrClosed
	}

	b.mu.RLock()
	all := append([]*Endpoint(nil), b.contexts...)
	for _, e := range b.tabs {
		all = append(all, e)
	}
	b.mu.RUnlock()

	for _, e := range all {
		e.stop()
	}
	return nil
}

// runtimeTargets returns the listening extension pages other than from.
func (b *Memory) runtimeTargets(from *Endpoint) []*Endpoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*Endpoint
	for _, e := range b.contexts {
		if e != from && e.listening() {
			out = append(out, e)
		}
	}
	return out
}

func (b *Memory) reply(inbox string, m message.Message, err error) {
	b.mu.Lock()
	p, ok := b.inboxes[inbox]
	if ok && m == nil && err == nil {
		p.remaining--
		ok = p.remaining == 0
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	select {
	case p.ch <- result{msg: m, err: err}:
	default:
	}
}

type pendingRequest struct {
	ch        chan result
	remaining int
}

type result struct {
	msg message.Message
	err error
}

type delivery struct {
	msg     message.Message
	replyTo string
}

// Endpoint is one context attached to a Memory bus. It implements Runtime.
type Endpoint struct {
	bus   *Memory
	name  string
	tab   TabID
	isTab bool

	mu      sync.Mutex
	handler Handler
	inbox   chan delivery
	done    chan struct{}
}

// Request implements Runtime.
func (e *Endpoint) Request(ctx context.Context, m message.Message) (message.Message, error) {
	b := e.bus
	if b.closed.Load() {
		return nil, ErrClosed
	}
	targets := b.runtimeTargets(e)
	if len(targets) == 0 {
		return nil, ErrNoListener
	}

	inbox := "_INBOX." + ulid.Make().String()
	p := &pendingRequest{ch: make(chan result, 1), remaining: len(targets)}
	b.mu.Lock()
	b.inboxes[inbox] = p
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.inboxes, inbox)
		b.mu.Unlock()
	}()

	for _, t := range targets {
		if err := t.enqueue(ctx, delivery{msg: m, replyTo: inbox}); err != nil {
			return nil, err
		}
	}

	timer := b.clock.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case r := <-p.ch:
		return r.msg, r.err
	case <-timer.Chan():
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send implements Runtime.
func (e *Endpoint) Send(ctx context.Context, m message.Message) error {
	if e.bus.closed.Load() {
		return ErrClosed
	}
	targets := e.bus.runtimeTargets(e)
	if len(targets) == 0 {
		return ErrNoListener
	}
	for _, t := range targets {
		if err := t.enqueue(ctx, delivery{msg: m}); err != nil {
			return err
		}
	}
	return nil
}

// Listen implements Runtime. A second call replaces the first handler.
func (e *Endpoint) Listen(h Handler) func() {
	e.stop()

	inbox := make(chan delivery, inboxSize)
	done := make(chan struct{})

	e.mu.Lock()
	e.handler = h
	e.inbox = inbox
	e.done = done
	e.mu.Unlock()

	go e.run(h, inbox, done)

	return func() {
		e.mu.Lock()
		current := e.done == done
		e.mu.Unlock()
		if current {
			e.stop()
		}
	}
}

// Close removes the listener and, for a page context, the tab itself.
func (e *Endpoint) Close() {
	e.stop()
	if e.isTab {
		e.bus.mu.Lock()
		if e.bus.tabs[e.tab] == e {
			delete(e.bus.tabs, e.tab)
		}
		e.bus.mu.Unlock()
	}
}

func (e *Endpoint) listening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handler != nil
}

func (e *Endpoint) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done != nil {
		close(e.done)
	}
	e.handler = nil
	e.inbox = nil
	e.done = nil
}

func (e *Endpoint) enqueue(ctx context.Context, d delivery) error {
	e.mu.Lock()
	inbox, done := e.inbox, e.done
	e.mu.Unlock()

	if inbox == nil {
		return ErrNoListener
	}

	select {
	case inbox <- d:
		return nil
	case <-done:
		return ErrNoListener
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Endpoint) run(h Handler, inbox chan delivery, done chan struct{}) {
	for {
		select {
		case d := <-inbox:
			reply, err := h(context.Background(), d.msg)
			if d.replyTo != "" {
				e.bus.reply(d.replyTo, reply, err)
			}
		case <-done:
			return
		}
	}
}
