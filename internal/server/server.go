package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/drborges/apollo-react-spike/internal/config"
	"github.com/drborges/apollo-react-spike/internal/http/handlers"
	"github.com/drborges/apollo-react-spike/internal/middleware"
	"github.com/drborges/apollo-react-spike/internal/session"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, sessions *session.Manager) *Server {
	return &Server{inner: &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Handler(cfg, sessions),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}}
}

// Handler builds the routed handler chain without binding a listener.
func Handler(cfg config.Config, sessions *session.Manager) http.Handler {
	origins := middleware.NewOrigins(cfg.CORSOrigins)
	r := mux.NewRouter()
	health := handlers.NewHealthHandler(time.Now(), sessions.Len)
	health.Register(r)
	users := handlers.NewUsersHandler(sessions, origins)
	users.Register(r)

	return middleware.CORS(origins, middleware.Logging(r))
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
