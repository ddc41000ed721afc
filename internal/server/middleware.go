package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"avatarbook/internal/auth"
	"avatarbook/internal/commons"
	"avatarbook/internal/config"
	"avatarbook/internal/infrastructure/metrics"
)

const (
	RequestIDHeader = "X-Request-Id"
	TraceIDHeader   = "X-Trace-Id"
)

// RequestLogging assigns the trace id, logs each request and records HTTP
// metrics under the matched route pattern.
func RequestLogging(logger *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := r.Header.Get(RequestIDHeader)
			if traceID == "" || len(traceID) > 64 {
				traceID = uuid.New().String()
			}
			w.Header().Set(TraceIDHeader, traceID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(commons.WithTraceID(r.Context(), traceID)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			if m != nil {
				m.ObserveRequest(r.Method, path, status, elapsed)
			}
			logger.Info("http request",
				zap.String("traceId", traceID),
				zap.String("method", r.Method),
				zap.String("route", path),
				zap.Int("status", status),
				zap.Duration("duration", elapsed),
			)
		})
	}
}

// RequireOperator admits requests bearing an operator token with perm.
func RequireOperator(tokens *auth.OperatorTokens, perm string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := commons.TraceID(r.Context())
			log := logger.With(zap.String("traceId", traceID))

			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_request"`)
				commons.WriteError(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", log)
				return
			}

			claims, err := tokens.Verify(raw, perm)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				commons.WriteUseCaseError(w, traceID, err, log)
				return
			}

			log.Info("operator request", zap.String("operator", claims.Subject), zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
		})
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Idle buckets are swept
// lazily on access.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	idle     time.Duration
	lastScan time.Time
	now      func() time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(cfg.RPS),
		burst:   cfg.Burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

func (l *RateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastScan) > l.idle {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > l.idle {
				delete(l.clients, key)
			}
		}
		l.lastScan = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *RateLimiter) Middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r)) {
				traceID := commons.TraceID(r.Context())
				w.Header().Set("Retry-After", "1")
				commons.WriteError(w, traceID, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", logger.With(zap.String("traceId", traceID)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
