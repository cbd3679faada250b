package middleware

import (
	"net/http"
	"sync"
	"time"

	"courtcal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// A bucket idle this long has refilled, so dropping it loses nothing.
const visitorIdle = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Client IPs come from gin's
// c.ClientIP, so forwarding headers count only from the engine's trusted proxies.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	perMin    int
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows perMin requests per minute per IP, bursting up to perMin.
func NewRateLimiter(perMin int) *RateLimiter {
	if perMin <= 0 {
		perMin = 100
	}
	return &RateLimiter{visitors: make(map[string]*visitor), perMin: perMin, now: time.Now}
}

func (l *RateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= visitorIdle {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) >= visitorIdle {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.limiter(ip).Allow() {
			utils.GetLogger().Warn("Rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, utils.ErrorResponse{
				Message: "Rate limit exceeded. Try again later.",
			})
			return
		}
		c.Next()
	}
}
