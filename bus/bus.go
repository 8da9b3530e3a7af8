// Package bus carries messages between the background, popup and content
// contexts.
//
// Delivery is best-effort. Messages from one sender to one receiver arrive
// in send order; nothing is ordered across senders.
package bus

import (
	"context"
	"errors"
	"time"

	"github.com/simukka/waveform-overlay/message"
)

var (
	// ErrNoListener is returned when the target context has no listener,
	// for example a tab whose content script never loaded.
	ErrNoListener = errors.New("no listener for message")

	// ErrTimeout is returned when a request got no reply in time.
	ErrTimeout = errors.New("request timed out")

	// ErrClosed is returned by a closed bus.
	ErrClosed = errors.New("bus closed")
)

// DefaultRequestTimeout bounds Request on buses that enforce a timeout.
const DefaultRequestTimeout = 5 * time.Second

// TabID identifies a page context.
type TabID int

// Handler processes one incoming message. A nil reply with a nil error
// means there is nothing to answer.
type Handler func(ctx context.Context, m message.Message) (message.Message, error)

// Runtime is the extension-wide channel: the background and an open popup
// listen on it, any context sends on it.
type Runtime interface {
	// Request sends m and waits for the first reply.
	Request(ctx context.Context, m message.Message) (message.Message, error)

	// Send delivers m without waiting for a reply.
	Send(ctx context.Context, m message.Message) error

	// Listen registers h for incoming messages. The returned func removes it.
	Listen(h Handler) func()
}

// Tabs addresses page contexts.
type Tabs interface {
	// List returns every open page context.
	List(ctx context.Context) ([]TabID, error)

	// SendToTab delivers m to one page context.
	SendToTab(ctx context.Context, id TabID, m message.Message) error
}
