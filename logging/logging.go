// Package logging configures the zerolog logger shared by every context of
// the extension. In the browser, events go to the devtools console; natively
// they go to stderr.
package logging

import (
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.Mutex
	root = zerolog.New(defaultWriter()).With().Timestamp().Logger()
)

// New returns a logger tagged with component.
func New(component string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return root.With().Str("component", component).Logger()
}

// SetOutput replaces the root writer. Loggers created earlier keep theirs.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root = root.Output(w)
}

// SetLevel sets the global level from its name; unknown names mean info.
func SetLevel(name string) {
	zerolog.SetGlobalLevel(ParseLevel(name))
}

// ParseLevel maps "debug", "info", "warn", "error" to zerolog levels.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
