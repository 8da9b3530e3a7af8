//go:build js
// +build js

package logging

import (
	"io"
	"strings"

	"github.com/gopherjs/gopherjs/js"
	"github.com/rs/zerolog"
)

// consoleWriter forwards each zerolog event to the matching console method.
type consoleWriter struct{}

func defaultWriter() io.Writer {
	return consoleWriter{}
}

func (consoleWriter) Write(p []byte) (int, error) {
	return consoleWriter{}.WriteLevel(zerolog.InfoLevel, p)
}

func (consoleWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	console := js.Global.Get("console")
	if console == nil || console == js.Undefined {
		return len(p), nil
	}

	method := "info"
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		method = "debug"
	case zerolog.WarnLevel:
		method = "warn"
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		method = "error"
	}

	console.Call(method, "[waveform]", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// DebugRequested reports whether the page asked for debug logging through
// a "waveform-debug" query parameter or localStorage entry.
func DebugRequested() bool {
	location := js.Global.Get("location")
	if location != nil && location != js.Undefined {
		if strings.Contains(location.Get("search").String(), "waveform-debug") {
			return true
		}
	}

	storage := js.Global.Get("localStorage")
	if storage == nil || storage == js.Undefined {
		return false
	}
	v := storage.Call("getItem", "waveform-debug")
	return v != nil && v != js.Undefined && v.String() != ""
}
