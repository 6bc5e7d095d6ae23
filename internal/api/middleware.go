// internal/api/middleware.go
package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/DreamScape/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey    = "request_id"
	sessionIDKey    = "session_id"
	requestIDHeader = "X-Request-ID"
	sessionIDHeader = "X-Session-ID"

	// DefaultSessionID is used when a client names no session.
	DefaultSessionID = "default"
)

// RequestIDMiddleware tags each request with an id, reusing the client's.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// SessionMiddleware resolves the session from the X-Session-ID header or
// the session_id query parameter.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(sessionIDHeader))
		if id == "" {
			id = strings.TrimSpace(c.Query(sessionIDKey))
		}
		if id == "" {
			id = DefaultSessionID
		}
		c.Set(sessionIDKey, id)
		c.Next()
	}
}

// sessionID returns the session resolved by SessionMiddleware.
func sessionID(c *gin.Context) string {
	if id := c.GetString(sessionIDKey); id != "" {
		return id
	}
	return DefaultSessionID
}

// RequestLoggerMiddleware logs each request and records API metrics.
func RequestLoggerMiddleware(metrics *utils.DreamMetrics) gin.HandlerFunc {
	logger := utils.GetLogger().WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)
		metrics.RecordAPIRequest(endpoint, c.Request.Method, status, duration)

		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"session":     sessionID(c),
			"request_id":  c.GetString(requestIDKey),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", fields)
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", fields)
		default:
			logger.Debug("request completed", fields)
		}
	}
}

// RecoveryMiddleware turns panics into a 500 envelope.
func RecoveryMiddleware(rh *ResponseHelper) gin.HandlerFunc {
	logger := utils.GetLogger().WithComponent("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", map[string]interface{}{
					"path":       c.Request.URL.Path,
					"request_id": c.GetString(requestIDKey),
					"panic":      fmt.Sprint(r),
				})
				rh.InternalError(c, "internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// corsMiddleware allows browser clients on other origins.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Session-ID, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RateLimiter is a fixed-window limiter keyed by client.
type RateLimiter struct {
	visitors map[string]*Visitor
	mu       sync.Mutex
	now      func() time.Time
}

// Visitor is one client's window.
type Visitor struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// NewRateLimiter creates an empty limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*Visitor),
		now:      time.Now,
	}
}

// Allow consumes one request from key's window.
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) (bool, Visitor) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweepLocked(now)

	visitor, exists := rl.visitors[key]
	if !exists || now.After(visitor.Reset) {
		visitor = &Visitor{Limit: limit, Remaining: limit, Reset: now.Add(window)}
		rl.visitors[key] = visitor
	}
	if visitor.Remaining <= 0 {
		return false, *visitor
	}
	visitor.Remaining--
	return true, *visitor
}

// sweepLocked drops expired windows once the map grows.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if len(rl.visitors) < 1024 {
		return
	}
	for key, v := range rl.visitors {
		if now.After(v.Reset) {
			delete(rl.visitors, key)
		}
	}
}

// RateLimitMiddleware limits requests per session and client IP.
func RateLimitMiddleware(rl *RateLimiter, limit int, window time.Duration, rh *ResponseHelper) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := sessionID(c) + "|" + c.ClientIP()
		ok, v := rl.Allow(key, limit, window)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", v.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", v.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", v.Reset.Unix()))

		if !ok {
			rh.Error(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
