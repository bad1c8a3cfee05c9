package httpapi

import (
	"net/http"
	"time"
)

// NewServer wraps the router in an http.Server with the service's timeout
// policy.
//
// WriteTimeout stays unset: starting a calling run dispatches the whole
// recipient list synchronously inside the request, with an inter-call delay
// per recipient, so the response lands only after the run finishes and any
// fixed write deadline would reset the connection before the dispatch
// aggregate is written. Slow or stalled clients are still bounded by the
// read-side and idle timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
