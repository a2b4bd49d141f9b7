package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
	"github.com/yanqian/energy-forecast/pkg/util"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Options configures the client.
type Options struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

// Client fetches current conditions from the OpenWeather API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	interval   time.Duration
	breaker    *gobreaker.CircuitBreaker
	now        util.Clock
}

// NewClient builds an API client.
func NewClient(opts Options) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	interval := opts.RetryInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: retries,
		interval:   interval,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openweather",
			MaxRequests: 5,
			Interval:    time.Minute,
			Timeout:     2 * time.Minute,
			// A caller hanging up says nothing about the provider.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
		now: util.LocalClock,
	}
}

// Current retrieves the observation nearest to the coordinates.
func (c *Client) Current(ctx context.Context, at forecast.Coordinates) (forecast.WeatherSnapshot, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")
	endpoint := c.baseURL + "?" + values.Encode()

	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		return forecast.WeatherSnapshot{}, err
	}

	var raw currentPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return forecast.WeatherSnapshot{}, fmt.Errorf("decode weather response: %w", err)
	}
	if raw.Main == nil {
		return forecast.WeatherSnapshot{}, errors.New("decode weather response: main block missing")
	}
	snapshot := normalize(raw)
	snapshot.CalendarFrom(c.now())
	return snapshot, nil
}

// fetch runs one request per attempt through the breaker, retrying transient
// failures at a fixed interval.
func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.do(ctx, endpoint)
		})
		if err == nil {
			body, ok := result.([]byte)
			if !ok {
				return nil, errors.New("unexpected result type from circuit breaker")
			}
			return body, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("weather circuit open: %w", err)
		}
		lastErr = err
		if !retryable(err) || attempt >= c.maxRetries {
			return nil, lastErr
		}

		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &statusError{status: resp.StatusCode, body: string(payload)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	return body, nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("weather request error: status=%d body=%s", e.status, e.body)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= http.StatusInternalServerError || se.status == http.StatusTooManyRequests
	}
	return true
}

type currentPayload struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Visibility *float64 `json:"visibility"`
	Clouds     *struct {
		All *float64 `json:"all"`
	} `json:"clouds"`
	Rain *struct {
		OneHour *float64 `json:"1h"`
	} `json:"rain"`
}

// normalize maps provider fields onto the snapshot. OpenWeather omits the rain
// block when it is not raining, so its absence reads as zero precipitation.
func normalize(raw currentPayload) forecast.WeatherSnapshot {
	var snap forecast.WeatherSnapshot
	if raw.Main != nil {
		snap.Temperature = raw.Main.Temp
		snap.Humidity = raw.Main.Humidity
		snap.Pressure = raw.Main.Pressure
	}
	if raw.Wind != nil {
		snap.WindSpeed = raw.Wind.Speed
		snap.WindBearing = raw.Wind.Deg
	}
	snap.Visibility = raw.Visibility
	if raw.Clouds != nil {
		snap.CloudCover = raw.Clouds.All
	}
	if raw.Rain == nil {
		snap.PrecipIntensity = float(0)
		snap.PrecipProbability = float(0)
	} else {
		snap.PrecipIntensity = raw.Rain.OneHour
		snap.PrecipProbability = float(1)
	}
	return snap
}

func float(v float64) *float64 { return &v }

var _ forecast.WeatherClient = (*Client)(nil)
