// Package httpserver builds the registry's *http.Server from configuration.
package httpserver

import (
	"net/http"
	"time"

	"atelier/internal/platform/config"
)

const readHeaderTimeout = 5 * time.Second

func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}
}
