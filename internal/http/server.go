// Package http exposes the JSON API: authentication, transaction CRUD, and
// the projected month calendar.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ezzerof/expense-tracker/internal/auth"
	"github.com/Ezzerof/expense-tracker/internal/cache"
	"github.com/Ezzerof/expense-tracker/internal/core"
	"github.com/Ezzerof/expense-tracker/internal/services"
	"github.com/Ezzerof/expense-tracker/internal/store"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

type Server struct {
	http.Server

	auth         *auth.Service
	transactions *services.TransactionService
	calendar     *services.CalendarController
	dayReader    store.TransactionStore

	rateLimiter *rateLimiter
	metrics     securityMetrics

	// Projected months, keyed "userID:YYYY-MM". Any mutation for a user
	// purges that user's prefix; the TTL covers cross-process writers.
	ledgerCache *cache.LRUCache[core.MonthLedger]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, authSvc *auth.Service, txSvc *services.TransactionService, calendar *services.CalendarController, dayReader store.TransactionStore) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		auth:             authSvc,
		transactions:     txSvc,
		calendar:         calendar,
		dayReader:        dayReader,
		rateLimiter:      newRateLimiter(),
		ledgerCache:      cache.NewLRUCache[core.MonthLedger](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/v1/register", s.guard(s.handleRegister))
	mux.HandleFunc("POST /api/v1/login", s.guard(s.handleLogin))

	mux.HandleFunc("POST /api/v1/transaction", s.protect(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/v1/transaction", s.protect(s.handleListTransactions))
	mux.HandleFunc("GET /api/v1/transaction/{id}", s.protect(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/v1/transaction/{id}", s.protect(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/v1/transaction/{id}", s.protect(s.handleDeleteTransaction))

	// Literal segments (month, day, savings) take precedence over {id}.
	mux.HandleFunc("GET /api/v1/transaction/month/{month}", s.protect(s.handleTransactionsForMonth))
	mux.HandleFunc("GET /api/v1/transaction/day/{date}", s.protect(s.handleDay))
	mux.HandleFunc("GET /api/v1/transaction/savings", s.protect(s.handleGetSavings))
	mux.HandleFunc("POST /api/v1/transaction/savings", s.protect(s.handleSetSavings))

	mux.HandleFunc("GET /api/v1/month/{month}", s.protect(s.handleMonth))
	mux.HandleFunc("GET /api/v1/summary/month/{month}", s.protect(s.handleMonthSummary))
	mux.HandleFunc("GET /api/v1/summary/day/{date}", s.protect(s.handleDaySummary))

	return s
}

// guard adds security headers, rate limiting, and request logging.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if detectSuspiciousRequest(r, &s.metrics) {
			slog.WarnContext(ctx, "Suspicious request blocked", "client_ip", clientIP, "url", r.URL.Path)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad request"})
			return
		}

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, &s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// protect is guard plus bearer-token authentication. The resolved user ID
// lands in the request context.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	return s.guard(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			atomic.AddInt64(&s.metrics.authFailures, 1)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		userID, err := s.auth.UserIDFromToken(token)
		if err != nil {
			atomic.AddInt64(&s.metrics.authFailures, 1)
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	})
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// invalidateUser drops every cached projection for the user and bumps the
// calendar generations so in-flight loads notice they are stale.
func (s *Server) invalidateUser(userID int64) {
	s.ledgerCache.DeletePrefix(userCachePrefix(userID))
	s.calendar.InvalidateUser(userID)
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.ledgerCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.shutdown()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
