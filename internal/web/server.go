// Package web is the HTTP surface of the gateway: the per-session websocket
// endpoint, artifact downloads and health.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nkoterov/breeze/internal/agent"
	"github.com/nkoterov/breeze/internal/artifact"
	"github.com/nkoterov/breeze/internal/log"
)

// Server hosts the gateway's HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     log.Logger
}

// NewServer builds the router and the underlying http.Server. Write timeout is
// left unset: websocket connections and model streams are long-lived.
func NewServer(addr string, manager *agent.Manager, artifacts *artifact.Store, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           newRouter(manager, artifacts, logger),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

func newRouter(manager *agent.Manager, artifacts artifactGetter, logger log.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))

	ws := &wsHandler{manager: manager, logger: logger}
	files := &artifactHandler{store: artifacts, logger: logger}

	r.Get("/healthz", handleHealth)
	r.Get("/ws/{sessionID}", ws.ServeHTTP)
	r.Get("/files/{sessionID}/{name}", files.ServeHTTP)

	return r
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
