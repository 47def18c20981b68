// Package server exposes the relay over HTTP: the WebSocket endpoint
// for couriers and viewers, the ingest adapter for the delivery
// backend, and the health endpoint.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swiftdrop/courier-relay/internal/cache"
	"github.com/swiftdrop/courier-relay/internal/engine"
	"github.com/swiftdrop/courier-relay/internal/hub"
)

// Server wires the relay's HTTP surface.
type Server struct {
	engine *engine.Engine
	hub    *hub.Hub
	cache  *cache.Cache
	logger *slog.Logger

	upgrader      websocket.Upgrader
	sessionBuffer int

	// Optional: health pings it when the history sink is enabled.
	db *pgxpool.Pool
}

// Option configures a Server.
type Option func(*Server)

// WithSessionBuffer sets the per-connection outbox size.
func WithSessionBuffer(n int) Option {
	return func(s *Server) {
		s.sessionBuffer = n
	}
}

// WithDatabase attaches the history pool for health checks.
func WithDatabase(pool *pgxpool.Pool) Option {
	return func(s *Server) {
		s.db = pool
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server.
func New(eng *engine.Engine, h *hub.Hub, c *cache.Cache, opts ...Option) *Server {
	s := &Server{
		engine:        eng,
		hub:           h,
		cache:         c,
		logger:        slog.Default(),
		sessionBuffer: 64,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The relay accepts unauthenticated connections from any
			// origin; clients self-select their audience by joining
			// rooms.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the relay's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/location/update", s.handleLocationUpdate)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}
