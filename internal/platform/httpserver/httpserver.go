// Package httpserver builds the SMP's HTTP server with timeouts suited to
// small registry payloads.
package httpserver

import (
	"net/http"
	"time"
)

// New wraps the handler in an http.Server. Write timeouts stay generous
// because lookups may fan out to the backing store under load; header reads
// are bounded to shed slow-loris clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
