package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"daftar/internal/log"
	"daftar/internal/services"
)

// Server exposes the ledger engine over a JSON API.
type Server struct {
	http.Server
	ledgers     *services.LedgerService
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	requestLog  *log.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledgers *services.LedgerService) *Server {
	mux := http.NewServeMux()
	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentHTTP})

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: log.Middleware(logger)(mux),
		},
		ledgers:     ledgers,
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
		requestLog:  log.NewStructuredLogger(logger),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/ledger", s.withSecurityHeaders(s.handleGetLedger))
	mux.HandleFunc("/api/ledger/range", s.withSecurityHeaders(s.handleGetLedgerRange))

	mux.HandleFunc("/api/fund-transfers", s.withSecurityHeaders(s.handleCreateFundTransfer))
	mux.HandleFunc("/api/attendance", s.withSecurityHeaders(s.handleCreateAttendance))
	mux.HandleFunc("/api/transport-expenses", s.withSecurityHeaders(s.handleCreateTransportExpense))
	mux.HandleFunc("/api/worker-transfers", s.withSecurityHeaders(s.handleCreateWorkerTransfer))
	mux.HandleFunc("/api/material-purchases", s.withSecurityHeaders(s.handleCreateMaterialPurchase))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		// Enrich the context logger so every handler log carries the request id
		reqLogger := log.FromContext(r.Context()).With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), log.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		s.requestLog.LogHTTPStart(ctx, r, clientIP)

		// Rate limit writes only; reads are cheap and cached
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.requestLog.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	return "req_" + uuid.NewString()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
