package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"renda/internal/cache"
	"renda/internal/core"
	"renda/internal/service"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Server is the JSON API in front of the verification service. Read endpoints
// are LRU-cached; every write invalidates the affected entries.
type Server struct {
	http.Server
	svc         *service.VerificationService
	rateLimiter *rateLimiter
	metrics     securityMetrics

	verificationCache *cache.LRUCache[core.IncomeVerification]
	listCache         *cache.LRUCache[[]core.IncomeVerification]
	cacheManager      *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *service.VerificationService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:               svc,
		rateLimiter:       newRateLimiter(),
		verificationCache: cache.NewLRUCache[core.IncomeVerification](200, 5*time.Minute),
		listCache:         cache.NewLRUCache[[]core.IncomeVerification](1, time.Minute),
		cacheManager:      cache.NewManager(),
	}

	s.cacheManager.Register(s.verificationCache)
	s.cacheManager.Register(s.listCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /verifications", s.secure(s.handleAnalyze))
	mux.HandleFunc("GET /verifications", s.secure(s.handleList))
	mux.HandleFunc("GET /verifications/{id}", s.secure(s.handleGet))
	mux.HandleFunc("DELETE /verifications/{id}", s.secure(s.handleDelete))
	mux.HandleFunc("GET /verifications/{id}/export", s.secure(s.handleExport))
	mux.HandleFunc("PATCH /verifications/{id}/months/{index}/transactions/{txID}", s.secure(s.handlePatchTransaction))

	return s
}

// Shutdown stops the background cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// secure adds security headers, rate limiting and request logging.
func (s *Server) secure(next http.HandlerFunc) http.HandlerFunc {
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
			slog.WarnContext(ctx, "Suspicious request pattern", "client_ip", clientIP, "url", r.URL.String())
		}

		// Rate limit writes only; reads are cached and cheap.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, &s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
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

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.svc.List(ctx); err != nil {
		slog.ErrorContext(ctx, "Readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

const listCacheKey = "all"

func (s *Server) invalidate(id string) {
	if id != "" {
		s.verificationCache.Delete(id)
	}
	s.listCache.Delete(listCacheKey)
}
