package forecast

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "github.com/yanqian/energy-forecast/pkg/errors"
	"github.com/yanqian/energy-forecast/pkg/metrics"
	"github.com/yanqian/energy-forecast/pkg/util"
)

// Service exposes the household energy prediction pipeline.
type Service interface {
	Predict(ctx context.Context, req Request) (Response, error)
}

type service struct {
	cfg       Config
	resolver  *LocationResolver
	weather   WeatherClient
	recorder  UsageRecorder
	predictor Predictor
	tariff    Tariff
	stats     *metrics.Pipeline
	validate  *validator.Validate
	logger    *slog.Logger
	now       util.Clock
	newID     func() uuid.UUID
}

// NewService wires up the prediction pipeline. geocoder may be nil.
func NewService(cfg Config, weather WeatherClient, geocoder Geocoder, recorder UsageRecorder, predictor Predictor, stats *metrics.Pipeline, logger *slog.Logger) Service {
	if cfg.TariffRate <= 0 {
		cfg.TariffRate = defaultTariffRate
	}
	if len(cfg.Ladder) == 0 {
		cfg.Ladder = DefaultLadder()
	}
	if stats == nil {
		stats = metrics.NewPipeline()
	}
	return &service{
		cfg:       cfg,
		resolver:  NewLocationResolver(geocoder),
		weather:   weather,
		recorder:  recorder,
		predictor: predictor,
		tariff:    FlatTariff{PerUnit: cfg.TariffRate},
		stats:     stats,
		validate:  validator.New(),
		logger:    logger.With("component", "forecast.service"),
		now:       util.NowUTC,
		newID:     uuid.New,
	}
}

type run struct {
	id      uuid.UUID
	stage   Stage
	started time.Time
	logger  *slog.Logger
}

func (r *run) advance(next Stage) {
	r.stage = next
	r.logger.Debug("pipeline stage reached", "stage", next, "elapsed_ms", time.Since(r.started).Milliseconds())
}

func (s *service) Predict(ctx context.Context, req Request) (Response, error) {
	r := &run{id: s.newID(), stage: StageReceived, started: time.Now()}
	r.logger = s.logger.With("request_id", r.id.String())
	s.stats.RunStarted()
	r.logger.Info("prediction requested", "appliances", len(req.Appliances), "phase", req.Phase)

	if err := s.validate.Struct(req); err != nil {
		return Response{}, s.fail(r, StageReceived, apperrors.Wrap(CodeInvalidInput, "submission is incomplete", err))
	}
	appliances, excluded := NormalizeAppliances(req.Appliances)
	s.stats.AppliancesExcluded(len(excluded))
	if len(excluded) > 0 {
		r.logger.Info("appliances excluded", "count", len(excluded), "excluded", excluded)
	}
	if len(appliances) == 0 {
		return Response{}, s.fail(r, StageReceived, apperrors.Wrap(CodeInvalidApplianceUsage, "no appliance has a valid usage declaration", nil))
	}

	coords, err := s.resolver.Resolve(ctx, req.Location)
	if err != nil {
		return Response{}, s.fail(r, StageLocationResolved, err)
	}
	r.advance(StageLocationResolved)

	snapshot, err := s.weather.Current(ctx, coords)
	if err != nil {
		return Response{}, s.fail(r, StageWeatherEnriched, apperrors.Wrap(CodeWeatherUnavailable, "weather data unavailable", err))
	}
	r.advance(StageWeatherEnriched)

	facts := UsageFacts{
		SubmissionID:  r.id,
		Location:      strings.TrimSpace(req.Location),
		Coordinates:   coords,
		ConsumerNo:    req.ConsumerNo,
		Phase:         req.Phase,
		SelectedDates: req.SelectedDates,
		Appliances:    appliances,
		Weather:       snapshot,
		SubmittedAt:   s.now(),
	}
	if err := s.recorder.Record(ctx, facts); err != nil {
		s.stats.PersistenceFailed()
		r.logger.Warn("usage facts not recorded", "error", apperrors.Wrap(CodePersistenceFailure, "record usage facts", err))
	} else {
		r.advance(StageUsageRecorded)
	}

	features := BuildFeatures(appliances, snapshot)
	r.advance(StageFeaturesBuilt)

	prediction, err := s.predictor.Predict(ctx, features)
	if err != nil {
		if apperrors.CodeOf(err) == "" {
			err = apperrors.Wrap(CodeModelInvocation, "model invocation failed", err)
		}
		return Response{}, s.fail(r, StagePredicted, err)
	}
	r.advance(StagePredicted)

	bill := EstimateBill(prediction, s.tariff, s.cfg.Currency)
	recommendations := Recommend(bill.TotalEnergyUsage, s.cfg.Ladder)
	r.advance(StageBilled)

	r.stage = StageCompleted
	s.stats.RunCompleted()
	r.logger.Info("prediction completed",
		"features", len(features),
		"periods", len(prediction.PredictedEnergy),
		"total_energy_usage", bill.TotalEnergyUsage,
		"total_bill", bill.TotalBill,
		"latency_ms", time.Since(r.started).Milliseconds(),
	)

	return Response{
		RequestID:          r.id.String(),
		Prediction:         prediction,
		BillAmount:         bill,
		Recommendations:    recommendations,
		ExcludedAppliances: excluded,
	}, nil
}

// fail moves the run to the absorbing failed state; target is the state that could
// not be reached.
func (s *service) fail(r *run, target Stage, err error) error {
	step := target.Step()
	r.stage = StageFailed
	s.stats.RunFailed(step)
	r.logger.Warn("prediction failed", "step", step, "code", apperrors.CodeOf(err), "error", err)
	return apperrors.WithStage(err, step)
}
