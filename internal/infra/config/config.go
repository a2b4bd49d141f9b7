package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Weather   WeatherConfig   `yaml:"weather"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Model     ModelConfig     `yaml:"model"`
	Billing   BillingConfig   `yaml:"billing"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Janitor   JanitorConfig   `yaml:"janitor"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// WeatherConfig points at the OpenWeather current-conditions endpoint.
type WeatherConfig struct {
	APIKey        string        `yaml:"apiKey"`
	BaseURL       string        `yaml:"baseUrl"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"maxRetries"`
	RetryInterval time.Duration `yaml:"retryInterval"`
}

// GeocodingConfig enables place-name lookups for locations without coordinates.
type GeocodingConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"apiKey"`
}

// ModelConfig describes the external prediction process.
type ModelConfig struct {
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	WorkDir string        `yaml:"workDir"`
	Timeout time.Duration `yaml:"timeout"`
}

// BillingConfig holds the tariff and the advisory ladder.
type BillingConfig struct {
	TariffRate float64          `yaml:"tariffRate"`
	Currency   string           `yaml:"currency"`
	Thresholds []AdvisoryConfig `yaml:"thresholds"`
}

// AdvisoryConfig is one rung of the recommendation ladder.
type AdvisoryConfig struct {
	Threshold float64 `yaml:"threshold"`
	Message   string  `yaml:"message"`
}

// RecorderConfig selects the persistence queue and store.
type RecorderConfig struct {
	Queue        string         `yaml:"queue"`
	QueueKey     string         `yaml:"queueKey"`
	WriteTimeout time.Duration  `yaml:"writeTimeout"`
	Valkey       ValkeyConfig   `yaml:"valkey"`
	Postgres     PostgresConfig `yaml:"postgres"`
}

// ValkeyConfig contains connection information for the job queue.
type ValkeyConfig struct {
	Addr string `yaml:"addr"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ArchiveConfig configures the optional S3-compatible run archive.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// JanitorConfig controls cleanup of stale model artifacts.
type JanitorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	MaxAge   time.Duration `yaml:"maxAge"`
}

// Queue backends.
const (
	QueueMemory = "memory"
	QueueValkey = "valkey"
)

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	envString("HTTP_ADDRESS", &cfg.HTTP.Address)
	envBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	envInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	envInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}

	envString("OPENWEATHER_API_KEY", &cfg.Weather.APIKey)
	envString("WEATHER_BASE_URL", &cfg.Weather.BaseURL)
	envDuration("WEATHER_TIMEOUT", &cfg.Weather.Timeout)
	envInt("WEATHER_MAX_RETRIES", &cfg.Weather.MaxRetries)
	envDuration("WEATHER_RETRY_INTERVAL", &cfg.Weather.RetryInterval)

	envBool("GEOCODING_ENABLED", &cfg.Geocoding.Enabled)
	envString("GEOCODING_API_KEY", &cfg.Geocoding.APIKey)

	envString("MODEL_COMMAND", &cfg.Model.Command)
	if v := os.Getenv("MODEL_ARGS"); v != "" {
		cfg.Model.Args = strings.Fields(v)
	}
	envString("MODEL_WORK_DIR", &cfg.Model.WorkDir)
	envDuration("MODEL_TIMEOUT", &cfg.Model.Timeout)

	envFloat("BILLING_TARIFF_RATE", &cfg.Billing.TariffRate)
	envString("BILLING_CURRENCY", &cfg.Billing.Currency)

	envString("RECORDER_QUEUE", &cfg.Recorder.Queue)
	envString("RECORDER_QUEUE_KEY", &cfg.Recorder.QueueKey)
	envDuration("RECORDER_WRITE_TIMEOUT", &cfg.Recorder.WriteTimeout)
	envString("VALKEY_ADDR", &cfg.Recorder.Valkey.Addr)
	envString("POSTGRES_DSN", &cfg.Recorder.Postgres.DSN)
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Recorder.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Recorder.Postgres.MinConns = int32(parsed)
		}
	}

	envBool("ARCHIVE_ENABLED", &cfg.Archive.Enabled)
	envString("ARCHIVE_ENDPOINT", &cfg.Archive.Endpoint)
	envString("ARCHIVE_ACCESS_KEY", &cfg.Archive.AccessKey)
	envString("ARCHIVE_SECRET_KEY", &cfg.Archive.SecretKey)
	envString("ARCHIVE_BUCKET", &cfg.Archive.Bucket)
	envString("ARCHIVE_REGION", &cfg.Archive.Region)

	envBool("JANITOR_ENABLED", &cfg.Janitor.Enabled)
	envDuration("JANITOR_INTERVAL", &cfg.Janitor.Interval)
	envDuration("JANITOR_MAX_AGE", &cfg.Janitor.MaxAge)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Weather: WeatherConfig{
			BaseURL:       "https://api.openweathermap.org/data/2.5/weather",
			Timeout:       10 * time.Second,
			MaxRetries:    2,
			RetryInterval: 500 * time.Millisecond,
		},
		Model: ModelConfig{
			Command: "python3",
			Args:    []string{"model/predict.py"},
			WorkDir: filepath.Join(os.TempDir(), "energy-forecast"),
			Timeout: 60 * time.Second,
		},
		Billing: BillingConfig{
			TariffRate: 0.10,
			Currency:   "USD",
			Thresholds: []AdvisoryConfig{
				{Threshold: 100, Message: "Use energy-efficient appliances."},
				{Threshold: 200, Message: "Shift usage to off-peak hours."},
			},
		},
		Recorder: RecorderConfig{
			Queue:        QueueMemory,
			QueueKey:     "energy:usage:jobs",
			WriteTimeout: 10 * time.Second,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Archive: ArchiveConfig{
			Region: "auto",
		},
		Janitor: JanitorConfig{
			Enabled:  true,
			Interval: 10 * time.Minute,
			MaxAge:   time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.Weather.BaseURL) == "" {
		return errors.New("weather.baseUrl cannot be empty")
	}
	if c.Weather.Timeout <= 0 {
		return errors.New("weather.timeout must be positive")
	}
	if c.Weather.MaxRetries < 0 {
		return errors.New("weather.maxRetries cannot be negative")
	}
	if c.Geocoding.Enabled && strings.TrimSpace(c.Geocoding.APIKey) == "" {
		return errors.New("geocoding.apiKey cannot be empty when geocoding is enabled")
	}
	if strings.TrimSpace(c.Model.Command) == "" {
		return errors.New("model.command cannot be empty")
	}
	if c.Model.Timeout <= 0 {
		return errors.New("model.timeout must be positive")
	}
	if c.Billing.TariffRate < 0 {
		return errors.New("billing.tariffRate cannot be negative")
	}
	for i, rung := range c.Billing.Thresholds {
		if strings.TrimSpace(rung.Message) == "" {
			return fmt.Errorf("billing.thresholds[%d].message cannot be empty", i)
		}
	}
	switch c.Recorder.Queue {
	case QueueMemory:
	case QueueValkey:
		if strings.TrimSpace(c.Recorder.Valkey.Addr) == "" {
			return errors.New("recorder.valkey.addr cannot be empty when the valkey queue is selected")
		}
	default:
		return fmt.Errorf("recorder.queue must be %q or %q", QueueMemory, QueueValkey)
	}
	if c.Recorder.WriteTimeout <= 0 {
		return errors.New("recorder.writeTimeout must be positive")
	}
	if c.Archive.Enabled {
		if strings.TrimSpace(c.Archive.Endpoint) == "" || strings.TrimSpace(c.Archive.Bucket) == "" {
			return errors.New("archive.endpoint and archive.bucket are required when the archive is enabled")
		}
	}
	if c.Janitor.Enabled && (c.Janitor.Interval <= 0 || c.Janitor.MaxAge <= 0) {
		return errors.New("janitor.interval and janitor.maxAge must be positive")
	}
	if c.Janitor.Enabled && filepath.Clean(c.Model.WorkDir) == filepath.Clean(os.TempDir()) {
		return errors.New("model.workDir must not be the shared temp dir while the janitor is enabled")
	}
	return nil
}
