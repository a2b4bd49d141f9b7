//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/energy-forecast/internal/bootstrap"
	"github.com/yanqian/energy-forecast/internal/domain/forecast"
	"github.com/yanqian/energy-forecast/internal/infra/config"
	"github.com/yanqian/energy-forecast/internal/infra/predictor"
	"github.com/yanqian/energy-forecast/internal/infra/recorder"
	"github.com/yanqian/energy-forecast/internal/infra/weather/openweather"
	httpiface "github.com/yanqian/energy-forecast/internal/interface/http"
	"github.com/yanqian/energy-forecast/pkg/logger"
	"github.com/yanqian/energy-forecast/pkg/metrics"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		metrics.NewPipeline,
		provideForecastConfig,
		provideWeatherClient,
		provideGeocoder,
		provideUsageStore,
		provideQueue,
		provideRecorder,
		provideArchive,
		providePredictor,
		provideJanitor,
		forecast.NewService,
		wire.Bind(new(forecast.WeatherClient), new(*openweather.Client)),
		wire.Bind(new(forecast.UsageRecorder), new(*recorder.Recorder)),
		wire.Bind(new(forecast.Predictor), new(*predictor.ProcessPredictor)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
