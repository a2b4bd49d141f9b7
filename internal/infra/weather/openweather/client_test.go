package openweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
)

func newTestClient(url string, retries int) *Client {
	c := NewClient(Options{BaseURL: url, APIKey: "k", Timeout: time.Second, MaxRetries: retries, RetryInterval: time.Millisecond})
	c.now = func() time.Time { return time.Date(2024, time.July, 7, 14, 30, 0, 0, time.UTC) }
	return c
}

func TestCurrentMapsFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "12.9", q.Get("lat"))
		require.Equal(t, "77.6", q.Get("lon"))
		require.Equal(t, "k", q.Get("appid"))
		require.Equal(t, "metric", q.Get("units"))
		_, _ = w.Write([]byte(`{"main":{"temp":28.5,"humidity":60,"pressure":1012},"wind":{"speed":3.2,"deg":180},"visibility":10000,"clouds":{"all":40}}`))
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL, 0).Current(context.Background(), forecast.Coordinates{Latitude: 12.9, Longitude: 77.6})
	require.NoError(t, err)
	require.Equal(t, 28.5, *snap.Temperature)
	require.Equal(t, 60.0, *snap.Humidity)
	require.Equal(t, 1012.0, *snap.Pressure)
	require.Equal(t, 3.2, *snap.WindSpeed)
	require.Equal(t, 180.0, *snap.WindBearing)
	require.Equal(t, 10000.0, *snap.Visibility)
	require.Equal(t, 40.0, *snap.CloudCover)
	require.Equal(t, 0.0, *snap.PrecipIntensity)
	require.Equal(t, 0.0, *snap.PrecipProbability)
	require.Equal(t, 7, snap.Month)
	require.Equal(t, 7, snap.Day)
	require.Equal(t, 14, snap.Hour)
	require.Equal(t, 0, snap.Weekday)
}

func TestCurrentLeavesMissingFieldsNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"main":{"temp":20},"rain":{"1h":1.5}}`))
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL, 0).Current(context.Background(), forecast.Coordinates{})
	require.NoError(t, err)
	require.Equal(t, 20.0, *snap.Temperature)
	require.Nil(t, snap.Humidity)
	require.Nil(t, snap.WindSpeed)
	require.Nil(t, snap.Visibility)
	require.Nil(t, snap.CloudCover)
	require.Equal(t, 1.5, *snap.PrecipIntensity)
	require.Equal(t, 1.0, *snap.PrecipProbability)
}

func TestCurrentRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).Current(context.Background(), forecast.Coordinates{})
	require.Error(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCurrentDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Current(context.Background(), forecast.Coordinates{})
	require.ErrorContains(t, err, "status=401")
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCurrentRejectsMalformedPayload(t *testing.T) {
	cases := []string{`not json`, `{"cod":"404","message":"city not found"}`}
	for _, body := range cases {
		body := body
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, 0).Current(context.Background(), forecast.Coordinates{})
			require.Error(t, err)
		})
	}
}

func TestCancelledCallsKeepBreakerClosed(t *testing.T) {
	var cancelCurrent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancelCurrent.Load().(context.CancelFunc)()
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	for i := 0; i < 8; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancelCurrent.Store(cancel)
		_, err := c.Current(ctx, forecast.Coordinates{Latitude: 1, Longitude: 2})
		require.ErrorIs(t, err, context.Canceled)
		cancel()
	}
	require.Equal(t, gobreaker.StateClosed, c.breaker.State())
	require.Zero(t, c.breaker.Counts().ConsecutiveFailures)
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	for i := 0; i < 6; i++ {
		_, err := c.Current(context.Background(), forecast.Coordinates{Latitude: 1, Longitude: 2})
		require.Error(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, c.breaker.State())

	_, err := c.Current(context.Background(), forecast.Coordinates{Latitude: 1, Longitude: 2})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}
