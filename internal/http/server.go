// Package http exposes the budgeting API: OTP-backed auth endpoints
// and authenticated funnel/spending CRUD.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"funneltrack/internal/auth"
	"funneltrack/internal/core"
	"funneltrack/internal/log"
)

// AuthService is the credential lifecycle surface the handlers need.
type AuthService interface {
	GenerateSecret(ctx context.Context, username string) (auth.ProvisionedSecret, error)
	Register(ctx context.Context, username, secret, otpCode string) (auth.TokenPair, error)
	Login(ctx context.Context, username, otpCode string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// FunnelProvider serves funnel CRUD with derived figures.
type FunnelProvider interface {
	List(ctx context.Context, owner string) ([]core.FunnelView, error)
	Get(ctx context.Context, id, owner string) (core.FunnelView, error)
	Create(ctx context.Context, f core.Funnel) (core.FunnelView, error)
	Update(ctx context.Context, f core.Funnel) error
	Delete(ctx context.Context, id, owner string) error
}

// SpendingProvider serves spending CRUD.
type SpendingProvider interface {
	Create(ctx context.Context, owner string, s core.Spending) (core.Spending, error)
	List(ctx context.Context, owner, funnelID string, from, to int64) ([]core.Spending, error)
	Update(ctx context.Context, owner string, s core.Spending) error
	Delete(ctx context.Context, owner, id string) error
}

// Server wires routes, middleware, and the services behind them.
type Server struct {
	http.Server
	authSvc     AuthService
	funnels     FunnelProvider
	spendings   SpendingProvider
	rateLimiter *rateLimiter
	logger      *log.Logger
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, authSvc AuthService, funnels FunnelProvider, spendings SpendingProvider, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		authSvc:     authSvc,
		funnels:     funnels,
		spendings:   spendings,
		rateLimiter: newRateLimiter(),
		logger:      logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	// Auth endpoints are rate limited to slow down OTP guessing.
	mux.HandleFunc("POST /user/generate-otp-secret", s.withCommon(true, s.handleGenerateSecret))
	mux.HandleFunc("POST /user", s.withCommon(true, s.handleRegister))
	mux.HandleFunc("POST /user/login", s.withCommon(true, s.handleLogin))
	mux.HandleFunc("POST /user/refresh", s.withCommon(true, s.handleRefresh))
	mux.HandleFunc("GET /user/decode", s.withCommon(false, s.requireAuth(s.handleDecode)))

	mux.HandleFunc("GET /funnels", s.withCommon(false, s.requireAuth(s.handleListFunnels)))
	mux.HandleFunc("POST /funnels", s.withCommon(false, s.requireAuth(s.handleCreateFunnel)))
	mux.HandleFunc("GET /funnels/{id}", s.withCommon(false, s.requireAuth(s.handleGetFunnel)))
	mux.HandleFunc("PUT /funnels/{id}", s.withCommon(false, s.requireAuth(s.handleUpdateFunnel)))
	mux.HandleFunc("DELETE /funnels/{id}", s.withCommon(false, s.requireAuth(s.handleDeleteFunnel)))

	mux.HandleFunc("GET /spendings", s.withCommon(false, s.requireAuth(s.handleListSpendings)))
	mux.HandleFunc("POST /spendings", s.withCommon(false, s.requireAuth(s.handleCreateSpending)))
	mux.HandleFunc("PUT /spendings/{id}", s.withCommon(false, s.requireAuth(s.handleUpdateSpending)))
	mux.HandleFunc("DELETE /spendings/{id}", s.withCommon(false, s.requireAuth(s.handleDeleteSpending)))

	return s
}

// Shutdown stops the rate limiter's cleanup loop along with the
// listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}

// withCommon adds security headers, request logging, and optional
// rate limiting.
func (s *Server) withCommon(rateLimited bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := clientIP(r)
		requestID := generateRequestID()

		if rateLimited && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(r.Context(), "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// requireAuth validates the Bearer access token and stores its claims
// in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.authSvc.Authenticate(r.Context(), token)
		if err != nil {
			writeFailure(w, err)
			return
		}
		next(w, r.WithContext(withClaims(r.Context(), claims)))
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

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
