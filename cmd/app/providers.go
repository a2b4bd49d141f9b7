package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
	"github.com/yanqian/energy-forecast/internal/infra/archive"
	"github.com/yanqian/energy-forecast/internal/infra/config"
	"github.com/yanqian/energy-forecast/internal/infra/geocode"
	"github.com/yanqian/energy-forecast/internal/infra/janitor"
	"github.com/yanqian/energy-forecast/internal/infra/predictor"
	"github.com/yanqian/energy-forecast/internal/infra/recorder"
	"github.com/yanqian/energy-forecast/internal/infra/recorder/queue"
	"github.com/yanqian/energy-forecast/internal/infra/usagerepo"
	"github.com/yanqian/energy-forecast/internal/infra/weather/openweather"
	"github.com/yanqian/energy-forecast/pkg/metrics"
)

func provideForecastConfig(cfg *config.Config) forecast.Config {
	ladder := make([]forecast.Advisory, 0, len(cfg.Billing.Thresholds))
	for _, rung := range cfg.Billing.Thresholds {
		ladder = append(ladder, forecast.Advisory{Threshold: rung.Threshold, Message: rung.Message})
	}
	return forecast.Config{
		TariffRate: cfg.Billing.TariffRate,
		Currency:   cfg.Billing.Currency,
		Ladder:     ladder,
	}
}

func provideWeatherClient(cfg *config.Config) *openweather.Client {
	return openweather.NewClient(openweather.Options{
		BaseURL:       cfg.Weather.BaseURL,
		APIKey:        cfg.Weather.APIKey,
		Timeout:       cfg.Weather.Timeout,
		MaxRetries:    cfg.Weather.MaxRetries,
		RetryInterval: cfg.Weather.RetryInterval,
	})
}

func provideGeocoder(cfg *config.Config, logger *slog.Logger) forecast.Geocoder {
	if !cfg.Geocoding.Enabled {
		logger.Info("geocoding disabled, locations must carry coordinates")
		return nil
	}
	client, err := geocode.NewClient(cfg.Geocoding.APIKey)
	if err != nil {
		logger.Error("geocoder unavailable, locations must carry coordinates", "error", err)
		return nil
	}
	return client
}

func provideUsageStore(cfg *config.Config, logger *slog.Logger) forecast.UsageStore {
	fallback := usagerepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Recorder.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory usage repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory usage repository", "error", err)
		return fallback
	}
	if cfg.Recorder.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Recorder.Postgres.MaxConns
	}
	if cfg.Recorder.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Recorder.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory usage repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory usage repository", "error", err)
		pool.Close()
		return fallback
	}
	repo := usagerepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("usage schema setup failed, using memory usage repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("postgres usage repository enabled")
	return repo
}

func provideQueue(cfg *config.Config, logger *slog.Logger) queue.Queue {
	if cfg.Recorder.Queue != config.QueueValkey {
		return queue.NewImmediateQueue(nil)
	}
	opt, err := buildValkeyOptions(cfg.Recorder.Valkey.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to in-process queue", "error", err)
		return queue.NewImmediateQueue(nil)
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to in-process queue", "error", err)
		return queue.NewImmediateQueue(nil)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to in-process queue", "error", err)
		client.Close()
		return queue.NewImmediateQueue(nil)
	}
	logger.Info("valkey usage queue enabled", "addr", cfg.Recorder.Valkey.Addr)
	return queue.NewValkeyQueue(client, cfg.Recorder.QueueKey, logger)
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideRecorder(cfg *config.Config, q queue.Queue, store forecast.UsageStore, stats *metrics.Pipeline, logger *slog.Logger) *recorder.Recorder {
	return recorder.New(q, store, stats, cfg.Recorder.WriteTimeout, logger)
}

func provideArchive(cfg *config.Config, logger *slog.Logger) predictor.Archive {
	if !cfg.Archive.Enabled {
		return nil
	}
	a := cfg.Archive
	store, err := archive.NewS3Archive(a.Endpoint, a.AccessKey, a.SecretKey, a.Bucket, a.Region, logger)
	if err != nil {
		logger.Error("run archive unavailable, continuing without it", "error", err)
		return nil
	}
	logger.Info("run archive enabled", "bucket", a.Bucket)
	return store
}

func providePredictor(cfg *config.Config, store predictor.Archive, logger *slog.Logger) (*predictor.ProcessPredictor, error) {
	return predictor.NewProcessPredictor(predictor.Options{
		Command: cfg.Model.Command,
		Args:    cfg.Model.Args,
		WorkDir: cfg.Model.WorkDir,
		Timeout: cfg.Model.Timeout,
	}, store, logger)
}

func provideJanitor(cfg *config.Config, logger *slog.Logger) *janitor.Sweeper {
	if !cfg.Janitor.Enabled {
		return nil
	}
	return janitor.New(cfg.Model.WorkDir, predictor.ArtifactPrefix+"*"+predictor.ArtifactSuffix, cfg.Janitor.Interval, cfg.Janitor.MaxAge, logger)
}
