package httpapi

import (
	"net"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type keyLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiter hands out one token bucket per client key. Buckets idle for
// longer than ttl are pruned on access.
type limiter struct {
	mu        sync.Mutex
	m         map[string]*keyLimiter
	r         rate.Limit
	b         int
	ttl       time.Duration
	lastPrune time.Time
}

func newLimiter(r rate.Limit, burst int, ttl time.Duration) *limiter {
	return &limiter{m: make(map[string]*keyLimiter), r: r, b: burst, ttl: ttl}
}

func (l *limiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) > l.ttl {
		for k, v := range l.m {
			if now.Sub(v.seen) > l.ttl {
				delete(l.m, k)
			}
		}
		l.lastPrune = now
	}

	kl, ok := l.m[key]
	if !ok {
		kl = &keyLimiter{lim: rate.NewLimiter(l.r, l.b)}
		l.m[key] = kl
	}
	kl.seen = now
	return kl.lim.AllowN(now, 1)
}

// middleware rejects requests over the per-client budget with 429.
func (l *limiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(clientIP(c.Request.RemoteAddr)) {
			c.AbortWithStatusJSON(429, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func clientIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
