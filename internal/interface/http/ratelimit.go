package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
	"github.com/yanqian/energy-forecast/internal/infra/config"
	"github.com/yanqian/energy-forecast/pkg/metrics"
)

const (
	clientIdleTTL   = 5 * time.Minute
	clientSweepTick = time.Minute
)

// submissionLimiter hands each client a bucket of burst submissions refilled
// at a steady per-minute rate. Every accepted submission starts a model
// process, so only the prediction routes sit behind it.
type submissionLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*clientBucket
	perMinute float64
	burst     float64
	lastSweep time.Time
	now       func() time.Time
}

type clientBucket struct {
	tokens  float64
	updated time.Time
}

func newSubmissionLimiter(cfg config.RateLimitConfig) *submissionLimiter {
	return &submissionLimiter{
		buckets:   make(map[string]*clientBucket),
		perMinute: float64(cfg.RequestsPerMinute),
		burst:     float64(cfg.Burst),
		now:       time.Now,
	}
}

// take spends one token for client. When the bucket is empty it reports how
// long the client has to wait for the next token.
func (l *submissionLimiter) take(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= clientSweepTick {
		l.sweepLocked(now)
	}

	b, ok := l.buckets[client]
	if !ok {
		b = &clientBucket{tokens: l.burst, updated: now}
		l.buckets[client] = b
	} else if elapsed := now.Sub(b.updated).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.burst, b.tokens+elapsed*l.perMinute/60)
		b.updated = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	seconds := (1 - b.tokens) * 60 / l.perMinute
	return false, time.Duration(seconds * float64(time.Second))
}

func (l *submissionLimiter) sweepLocked(now time.Time) {
	for client, b := range l.buckets {
		if now.Sub(b.updated) > clientIdleTTL {
			delete(l.buckets, client)
		}
	}
	l.lastSweep = now
}

func (l *submissionLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// submissionRateLimit refuses submissions beyond the configured rate with 429
// and a Retry-After hint in whole seconds.
func submissionRateLimit(cfg config.RateLimitConfig, stats *metrics.Pipeline, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 || cfg.Burst <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newSubmissionLimiter(cfg)
	return func(c *gin.Context) {
		client := c.ClientIP()
		ok, wait := limiter.take(client)
		if ok {
			c.Next()
			return
		}
		stats.SubmissionThrottled()
		retryAfter := int(math.Ceil(wait.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		logger.Warn("submission throttled", "client", client, "path", c.Request.URL.Path, "retry_after_s", retryAfter)
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", forecast.StageReceived.Step(), "too many submissions, retry later", nil))
	}
}
