// Package server exposes the insight and progression engine over HTTP.
package server

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"

	"github.com/sika-app/backend/internal/config"
	"github.com/sika-app/backend/internal/gamification"
	"github.com/sika-app/backend/internal/insight"
	"github.com/sika-app/backend/internal/notifications"
	"github.com/sika-app/backend/internal/store"
)

// Server wires the engine's read and mutation paths onto an HTTP mux.
type Server struct {
	store        store.Store
	insights     *insight.Aggregator
	gamification *gamification.Service
	hub          *notifications.Hub
	log          *logrus.Logger
}

// New builds a server over the given components.
func New(s store.Store, agg *insight.Aggregator, game *gamification.Service, hub *notifications.Hub, log *logrus.Logger) *Server {
	return &Server{store: s, insights: agg, gamification: game, hub: hub, log: log}
}

// Handler assembles the route table with CORS and per-client rate
// limiting applied.
func (s *Server) Handler(rl config.RateLimitConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/users/{id}/insights", s.handleInsights)
	mux.HandleFunc("POST /v1/users/{id}/activity", s.handleActivity)
	mux.HandleFunc("POST /v1/users/{id}/badges/evaluate", s.handleEvaluateBadges)
	mux.HandleFunc("GET /v1/users/{id}/progress", s.handleProgress)
	mux.HandleFunc("GET /v1/users/{id}/notifications", s.handleNotifications)
	mux.HandleFunc("POST /v1/users/{id}/notifications/read", s.handleMarkNotificationsRead)
	mux.HandleFunc("GET /v1/users/{id}/notifications/stream", s.handleNotificationStream)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	})

	return c.Handler(newRateLimiter(rl, s.log).wrap(mux))
}

// NewHTTPServer builds the net/http server with h2c so HTTP/2 works
// behind TLS-terminating proxies.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// rateLimiter keeps one token bucket per client address. Entries idle
// past the expiry are swept on the next lookup cycle.
type rateLimiter struct {
	limit rate.Limit
	burst int
	log   *logrus.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter
	swept   time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const clientExpiry = 3 * time.Minute

func newRateLimiter(cfg config.RateLimitConfig, log *logrus.Logger) *rateLimiter {
	return &rateLimiter{
		limit:   rate.Limit(float64(cfg.PerMinute) / 60.0),
		burst:   cfg.Burst,
		log:     log,
		clients: map[string]*clientLimiter{},
		swept:   time.Now(),
	}
}

func (rl *rateLimiter) allow(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.swept) > clientExpiry {
		for key, client := range rl.clients {
			if now.Sub(client.lastSeen) > clientExpiry {
				delete(rl.clients, key)
			}
		}
		rl.swept = now
	}

	client, ok := rl.clients[host]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[host] = client
	}
	client.lastSeen = now
	return client.limiter.Allow()
}

func (rl *rateLimiter) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			rl.log.Warnf("[Server] rate limited %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
