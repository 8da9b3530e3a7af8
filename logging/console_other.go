//go:build !js
// +build !js

package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func defaultWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
}
