package http

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// idle buckets older than this are dropped on the next sweep
const bucketTTL = 10 * time.Minute

// LoggingMiddleware emits one structured line per request. Server errors log
// at warn so delivery-path failures stand out in the notification logs.
func LoggingMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"client", clientIP(c),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warnw("request failed", fields...)
			return
		}
		log.Infow("request", fields...)
	}
}

type ipBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a per-client token bucket. Buckets for clients
// idle past bucketTTL are evicted so the map does not grow with every
// address ever seen.
func RateLimitMiddleware(rps, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := make(map[string]*ipBucket)
	lastSweep := time.Now()

	return func(c *gin.Context) {
		ip := clientIP(c)
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > bucketTTL {
			for addr, b := range buckets {
				if now.Sub(b.lastSeen) > bucketTTL {
					delete(buckets, addr)
				}
			}
			lastSweep = now
		}
		b, ok := buckets[ip]
		if !ok {
			b = &ipBucket{lim: rate.NewLimiter(rate.Limit(rps), burst)}
			buckets[ip] = b
		}
		b.lastSeen = now
		mu.Unlock()

		if !b.lim.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
