package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/energy-forecast/internal/infra/config"
	"github.com/yanqian/energy-forecast/pkg/metrics"
)

type manualClock struct{ at time.Time }

func (m *manualClock) now() time.Time          { return m.at }
func (m *manualClock) advance(d time.Duration) { m.at = m.at.Add(d) }

func TestSubmissionLimiterRefills(t *testing.T) {
	clock := &manualClock{at: time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC)}
	l := newSubmissionLimiter(config.RateLimitConfig{RequestsPerMinute: 60, Burst: 2})
	l.now = clock.now

	ok, _ := l.take("10.0.0.1")
	require.True(t, ok)
	ok, _ = l.take("10.0.0.1")
	require.True(t, ok)
	ok, wait := l.take("10.0.0.1")
	require.False(t, ok)
	require.Equal(t, time.Second, wait)

	ok, _ = l.take("10.0.0.2")
	require.True(t, ok, "buckets are per client")

	clock.advance(500 * time.Millisecond)
	ok, wait = l.take("10.0.0.1")
	require.False(t, ok)
	require.Equal(t, 500*time.Millisecond, wait)

	clock.advance(500 * time.Millisecond)
	ok, _ = l.take("10.0.0.1")
	require.True(t, ok)

	clock.advance(time.Hour)
	ok, _ = l.take("10.0.0.1")
	require.True(t, ok)
	ok, _ = l.take("10.0.0.1")
	require.True(t, ok)
	ok, _ = l.take("10.0.0.1")
	require.False(t, ok, "refill is capped at burst")
}

func TestSubmissionLimiterForgetsIdleClients(t *testing.T) {
	clock := &manualClock{at: time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC)}
	l := newSubmissionLimiter(config.RateLimitConfig{RequestsPerMinute: 60, Burst: 1})
	l.now = clock.now

	l.take("a")
	l.take("b")
	require.Equal(t, 2, l.tracked())

	clock.advance(clientSweepTick / 2)
	l.take("c")
	require.Equal(t, 3, l.tracked(), "no sweep before the tick elapses")

	clock.advance(clientIdleTTL + clientSweepTick)
	l.take("c")
	require.Equal(t, 1, l.tracked())
}

func TestRouter_RateLimitRetryAfter(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, Burst: 1}
	stats := metrics.NewPipeline()
	server := NewRouter(cfg, NewHandler(&stubForecast{}, stats, newTestLogger()))

	require.Equal(t, http.StatusOK, performRequest(http.MethodPost, "/submit", `{}`, server).Code)
	second := performRequest(http.MethodPost, "/predict-energy", `{}`, server)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Equal(t, "30", second.Header().Get("Retry-After"))

	errBody := decodeErrorBody(t, second.Body.Bytes())
	require.Equal(t, "rate_limit_exceeded", errBody["error"]["code"])
	require.Equal(t, "request", errBody["error"]["stage"])
	require.Equal(t, int64(1), stats.Snapshot().Throttled)

	require.Equal(t, http.StatusOK, performRequest(http.MethodGet, "/healthz", "", server).Code)
}
