// Package httpserver hosts the server's side-channel HTTP endpoints:
// Prometheus metrics and a liveness probe. It never touches the
// keyspace directly.
package httpserver

import (
	"context"
	"net/http"

	"github.com/nilbyte/respd/internal/telemetry/metric"
)

// Server is a thin net/http.Server wrapper exposing /metrics and
// /healthz.
type Server struct {
	httpServer *http.Server
}

// New creates an HTTP server listening on addr, serving metrics from
// reg.
func New(addr string, reg *metric.Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	mux.HandleFunc("/healthz", handleHealthz)

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
