package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTimeout = 10 * time.Minute

// RateLimiterConfig holds the configuration for the rate limiter
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterData keeps one limiter per client IP
type rateLimiterData struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	config    RateLimiterConfig
	lastSweep time.Time
}

func (d *rateLimiterData) allow(ip string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if now.Sub(d.lastSweep) > limiterIdleTimeout {
		for key, client := range d.clients {
			if now.Sub(client.lastSeen) > limiterIdleTimeout {
				delete(d.clients, key)
			}
		}
		d.lastSweep = now
	}

	client, ok := d.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(d.config.RequestsPerSecond), d.config.Burst)}
		d.clients[ip] = client
	}
	client.lastSeen = now
	return client.limiter.AllowN(now, 1)
}

// NewRateLimiterMiddleware creates a new per-client rate limiter middleware
func NewRateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	data := &rateLimiterData{
		clients:   map[string]*clientLimiter{},
		config:    config,
		lastSweep: time.Now(),
	}

	return func(c *gin.Context) {
		if !data.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
