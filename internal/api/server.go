// Package api exposes the question answering service over HTTP: the public
// ask endpoints, health and readiness probes, and the token-protected admin
// reingest trigger. Every public route runs through the shared middleware
// stack (panic recovery, request IDs, logging, CORS, per-IP rate limiting,
// request timeouts); probes bypass it so orchestrators always get a cheap,
// unthrottled answer.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/companyq/companyq/internal/log"
)

// Request timeouts per route class. Reingestion crawls and embeds the whole
// corpus, so it gets far more headroom than a single question.
const (
	askTimeout      = 60 * time.Second
	reingestTimeout = 15 * time.Minute
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      log.Logger
	Answerer    Answerer      // Required
	Ingestor    Reingester    // Optional: nil disables the admin reingest endpoint
	Pool        *pgxpool.Pool // Optional: nil disables pool stats in /ready
	AdminAPIKey string        // Required to enable /admin/reingest
	CORSOrigins []string      // Allowed origins for CORS
	TrustProxy  bool          // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateRPS     float64       // Token refill rate per IP per second (0 = default 5)
	RateBurst   int           // Rate limiter burst size per IP (0 = default 10)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Answerer == nil {
		return nil, errors.New("answerer is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Config{})
	}

	ah := &askHandler{answerer: cfg.Answerer, logger: logger}

	mux := http.NewServeMux()
	mux.Handle("GET /ask", timeoutMiddleware(askTimeout)(http.HandlerFunc(ah.askGet)))
	mux.Handle("POST /api/v1/ask", timeoutMiddleware(askTimeout)(http.HandlerFunc(ah.askPost)))

	if cfg.Ingestor != nil {
		adm := &adminHandler{ingestor: cfg.Ingestor, apiKey: cfg.AdminAPIKey, logger: logger}
		mux.Handle("POST /admin/reingest", timeoutMiddleware(reingestTimeout)(http.HandlerFunc(adm.reingest)))
	}

	rps := cfg.RateRPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 10
	}
	rl := newRateLimiter(rps, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
