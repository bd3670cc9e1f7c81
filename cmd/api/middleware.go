package main

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"formfields/internal/jsonlog"
)

const (
	limiterCleanupInterval = time.Minute
	limiterMaxIdle         = 3 * time.Minute
)

// ipLimiter holds rate limiter and last seen time for an IP address
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter holds per-IP token buckets and a goroutine that evicts idle ones.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rps      rate.Limit
	burst    int
	enabled  bool

	// trustProxy makes getClientIP honour forwarding headers
	trustProxy bool

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// initializeRateLimiter creates the limiter and, when enabled, starts the
// cleanup goroutine. Call shutdown then waitForShutdown to stop it.
func initializeRateLimiter(cfg config, logger *jsonlog.Logger) *rateLimiter {
	rl := &rateLimiter{
		limiters: make(map[string]*ipLimiter),
		rps:      rate.Limit(cfg.Limiter.RPS),
		burst:    cfg.Limiter.Burst,
		enabled:  cfg.Limiter.Enabled,
		done:     make(chan struct{}),

		trustProxy: cfg.Limiter.TrustProxy,
	}

	if !rl.enabled {
		return rl
	}

	rl.wg.Add(1)
	go func() {
		defer rl.wg.Done()

		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if deleted := rl.cleanupOldEntries(limiterMaxIdle); deleted > 0 {
					logger.Debug("rate limiter cleanup", "deleted_entries", deleted)
				}
			case <-rl.done:
				return
			}
		}
	}()

	return rl
}

// getLimiter returns the rate limiter for the given IP, creating one if it doesn't exist
func (rl *rateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[ip]
	if !exists {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter
}

// cleanupOldEntries removes IP entries that haven't been seen for maxAge
func (rl *rateLimiter) cleanupOldEntries(maxAge time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var deletedCount int

	for ip, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, ip)
			deletedCount++
		}
	}

	return deletedCount
}

func (rl *rateLimiter) shutdown() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *rateLimiter) waitForShutdown() {
	rl.wg.Wait()
}

// getClientIP extracts the client IP. X-Forwarded-For and X-Real-IP are
// honoured only when trustProxy is set, since clients can forge them.
func getClientIP(r *http.Request, trustProxy bool) string {
	if !trustProxy {
		return remoteIP(r)
	}

	if xForwardedFor := r.Header.Get("X-Forwarded-For"); xForwardedFor != "" {
		ip := strings.TrimSpace(strings.Split(xForwardedFor, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xRealIP := r.Header.Get("X-Real-IP"); xRealIP != "" {
		if net.ParseIP(xRealIP) != nil {
			return xRealIP
		}
	}

	return remoteIP(r)
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.logger.ErrorWithContext(r.Context(), "panic recovered",
					"panic", fmt.Sprint(err),
					"method", r.Method,
					"uri", r.URL.RequestURI(),
					"addr", r.RemoteAddr)
				app.serverErrorResponse(w, r, fmt.Errorf("%v", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *application) correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := r.Header.Get("X-Correlation-ID")
		if corrID == "" {
			corrID = uuid.New().String()
		}

		w.Header().Set("X-Correlation-ID", corrID)
		next.ServeHTTP(w, r.WithContext(jsonlog.WithCorrelationID(r.Context(), corrID)))
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rr, r)

		app.logger.InfoWithContext(r.Context(), "HTTP request completed",
			"method", r.Method,
			"uri", r.URL.RequestURI(),
			"addr", r.RemoteAddr,
			"proto", r.Proto,
			"status", rr.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"user_agent", r.Header.Get("User-Agent"))
	})
}

// responseRecorder wraps http.ResponseWriter to capture the status code
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.statusCode = code
	rr.ResponseWriter.WriteHeader(code)
}

// rateLimit enforces a per-IP token bucket.
func (app *application) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.rateLimiter == nil || !app.rateLimiter.enabled {
			next.ServeHTTP(w, r)
			return
		}

		ip := getClientIP(r, app.rateLimiter.trustProxy)
		if !app.rateLimiter.getLimiter(ip).Allow() {
			retryAfter := time.Duration(float64(time.Second) / float64(app.rateLimiter.rps))

			app.logger.WarnWithContext(r.Context(), "rate limit exceeded",
				"ip", ip,
				"rps_limit", float64(app.rateLimiter.rps),
				"burst_limit", app.rateLimiter.burst,
				"method", r.Method,
				"uri", r.URL.RequestURI())

			app.rateLimitExceededResponse(w, r, retryAfter)
			return
		}

		next.ServeHTTP(w, r)
	})
}
