package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func rateLimitedRouter(rps, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(rps, burst))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func ping(r *gin.Engine, addr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = addr
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware_BurstExhaustion(t *testing.T) {
	r := rateLimitedRouter(1, 2)

	assert.Equal(t, http.StatusOK, ping(r, "10.0.0.1:5555"))
	assert.Equal(t, http.StatusOK, ping(r, "10.0.0.1:5555"))
	assert.Equal(t, http.StatusTooManyRequests, ping(r, "10.0.0.1:5555"))
}

func TestRateLimitMiddleware_PerClientBuckets(t *testing.T) {
	r := rateLimitedRouter(1, 1)

	assert.Equal(t, http.StatusOK, ping(r, "10.0.0.1:5555"))
	assert.Equal(t, http.StatusTooManyRequests, ping(r, "10.0.0.1:5555"))
	// a different client draws from its own bucket
	assert.Equal(t, http.StatusOK, ping(r, "10.0.0.2:5555"))
}
