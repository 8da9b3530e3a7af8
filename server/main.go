//go:build !js
// +build !js

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/simukka/waveform-overlay/logging"
)

func main() {
	var cfg config
	flag.IntVar(&cfg.Port, "port", 8080, "HTTP server port")
	flag.StringVar(&cfg.StaticDir, "static", ".", "Directory with the compiled scripts")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logging.SetLevel(cfg.LogLevel)
	log := logging.New("server")

	s := newServer(cfg, log)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("addr", "http://localhost"+srv.Addr).
		Str("static", cfg.StaticDir).
		Msg("preview server starting")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
