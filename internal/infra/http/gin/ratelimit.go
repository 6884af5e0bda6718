package ginserver

import (
	"net/http"
	"sync"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// ClientRateLimiter keeps one token bucket per client address. Buckets of
// clients that stay quiet for the idle ttl are evicted.
type ClientRateLimiter struct {
	mu      sync.Mutex
	clients *cache.Cache
	r       rate.Limit
	b       int
}

func NewClientRateLimiter(r rate.Limit, b int) *ClientRateLimiter {
	return NewClientRateLimiterTTL(r, b, limiterIdleTTL)
}

func NewClientRateLimiterTTL(r rate.Limit, b int, idle time.Duration) *ClientRateLimiter {
	return &ClientRateLimiter{clients: cache.New(idle, idle), r: r, b: b}
}

func (l *ClientRateLimiter) limiter(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.clients.Get(client); ok {
		lim := v.(*rate.Limiter)
		l.clients.SetDefault(client, lim)
		return lim
	}
	lim := rate.NewLimiter(l.r, l.b)
	l.clients.SetDefault(client, lim)
	return lim
}

// Clients reports how many buckets are currently tracked.
func (l *ClientRateLimiter) Clients() int { return l.clients.ItemCount() }

// Middleware aborts with 429 once a client exhausts its bucket.
func (l *ClientRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
