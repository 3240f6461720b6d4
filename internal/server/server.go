package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tillerhq/tiller/internal/config"
	"github.com/tillerhq/tiller/internal/ratelimit"
	"github.com/tillerhq/tiller/internal/service/chat"
)

// Server is the tiller HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Deps holds everything the server needs. Limiter may be nil (no rate
// limiting).
type Deps struct {
	Config  config.Config
	ChatSvc *chat.Service
	Limiter ratelimit.Limiter
	Logger  *slog.Logger
	Version string
}

// New creates a new HTTP server with all routes configured.
func New(deps Deps) *Server {
	h := NewHandlers(deps.ChatSvc, deps.Config, deps.Logger, deps.Version)

	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}
	chatRL := ratelimit.Middleware(deps.Limiter, ratelimit.IPKeyFunc, reqIDFunc)

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", chatRL(http.HandlerFunc(h.HandleChat)))
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /ready", h.HandleReady)

	// Middleware chain (outermost executes first):
	// request ID → CORS → security headers → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(deps.Logger, handler)
	handler = loggingMiddleware(deps.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = corsMiddleware(deps.Config.CORSOrigins, handler)
	handler = requestIDMiddleware(deps.Config.RequestIDHeader, handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", deps.Config.Port),
			Handler:      handler,
			ReadTimeout:  deps.Config.ReadTimeout,
			WriteTimeout: deps.Config.WriteTimeout,
		},
		handler: handler,
		logger:  deps.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// ShutdownTimeout is the grace period main gives in-flight requests.
const ShutdownTimeout = 10 * time.Second
