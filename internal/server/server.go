package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// DefaultRequestTimeout bounds requests mounted on Router().
const DefaultRequestTimeout = 60 * time.Second

// Config holds server configuration.
type Config struct {
	Addr           string
	AgentType      string        // reported by /healthz
	RequestTimeout time.Duration // zero means DefaultRequestTimeout
}

// Server hosts the agent's HTTP endpoints.
type Server struct {
	cfg        Config
	root       chi.Router
	router     chi.Router
	httpServer *http.Server
}

// New creates a new server. Request/response endpoints are mounted on
// Router(), long-lived connections on StreamRouter().
func New(cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{cfg: cfg}
	s.root = s.buildRouter()
	s.router = s.root.With(middleware.Timeout(cfg.RequestTimeout))
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.root,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// buildRouter creates the base router shared by every route.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", s.handleHealth)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":     "ok",
		"agent_type": s.cfg.AgentType,
	})
}

// requestLogger logs one line per request through the global zerolog logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// Router returns the router for request/response endpoints; every request
// is bounded by the configured timeout.
func (s *Server) Router() chi.Router { return s.router }

// StreamRouter returns the router for long-lived connections such as
// websockets. It applies no request timeout.
func (s *Server) StreamRouter() chi.Router { return s.root }

// Handler is the root handler serving every route.
func (s *Server) Handler() http.Handler { return s.root }

// Start listens on the configured address until Shutdown is called. It
// returns nil at once if Shutdown already ran.
func (s *Server) Start() error {
	log.Info().Str("addr", s.cfg.Addr).Str("agent_type", s.cfg.AgentType).Msg("echo agent listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
