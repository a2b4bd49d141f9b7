package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
	apperrors "github.com/yanqian/energy-forecast/pkg/errors"
)

const (
	// ArtifactPrefix and ArtifactSuffix frame every artifact file name.
	ArtifactPrefix = "features-"
	ArtifactSuffix = ".csv"

	defaultTimeout = 60 * time.Second
	stderrLimit    = 2048
)

// Archive receives copies of run artifacts.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Options configures the model process. WorkDir only holds the feature
// artifacts; the process runs in the caller's working directory so relative
// script paths in Args resolve the same way they do for the server.
type Options struct {
	Command string
	Args    []string
	WorkDir string
	Timeout time.Duration
}

// ProcessPredictor hands features to an external model through a CSV file and
// reads one JSON document from its stdout.
type ProcessPredictor struct {
	opts    Options
	archive Archive
	logger  *slog.Logger
	newID   func() uuid.UUID
}

// NewProcessPredictor validates options and prepares the work directory. archive may be nil.
func NewProcessPredictor(opts Options, archive Archive, logger *slog.Logger) (*ProcessPredictor, error) {
	if strings.TrimSpace(opts.Command) == "" {
		return nil, errors.New("model command is required")
	}
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Join(os.TempDir(), "energy-forecast")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare model work dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessPredictor{
		opts:    opts,
		archive: archive,
		logger:  logger.With("component", "predictor.process"),
		newID:   uuid.New,
	}, nil
}

// Predict implements forecast.Predictor.
func (p *ProcessPredictor) Predict(ctx context.Context, features []forecast.FeatureRecord) (forecast.PredictionResult, error) {
	runID := p.newID().String()
	var artifact bytes.Buffer
	if err := WriteArtifact(&artifact, features); err != nil {
		return forecast.PredictionResult{}, apperrors.Wrap(forecast.CodeModelInvocation, "encode feature artifact", err)
	}
	path := filepath.Join(p.opts.WorkDir, ArtifactPrefix+runID+ArtifactSuffix)
	if err := os.WriteFile(path, artifact.Bytes(), 0o600); err != nil {
		return forecast.PredictionResult{}, apperrors.Wrap(forecast.CodeModelInvocation, "write feature artifact", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("artifact cleanup failed", "path", path, "error", err)
		}
	}()

	stdout, err := p.run(ctx, path)
	if err != nil {
		return forecast.PredictionResult{}, err
	}
	p.archiveRun(ctx, runID, artifact.Bytes(), stdout)

	result, err := ParseOutput(stdout)
	if err != nil {
		return forecast.PredictionResult{}, apperrors.Wrap(forecast.CodeModelOutputParse, "model output is not a valid prediction", err)
	}
	p.logger.Info("model run finished", "runId", runID, "records", len(features), "periods", len(result.PredictedEnergy))
	return result, nil
}

func (p *ProcessPredictor) run(ctx context.Context, artifactPath string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	args := append(append([]string{}, p.opts.Args...), artifactPath)
	cmd := exec.CommandContext(runCtx, p.opts.Command, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	if err == nil {
		p.logger.Debug("model process exited", "latency_ms", time.Since(started).Milliseconds())
		return stdout.Bytes(), nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, apperrors.Wrap(forecast.CodeModelInvocation, fmt.Sprintf("model timed out after %s", p.opts.Timeout), runCtx.Err())
	}
	msg := "model process failed"
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg = fmt.Sprintf("model exited with status %d", exitErr.ExitCode())
	}
	if tail := tailString(stderr.String(), stderrLimit); tail != "" {
		p.logger.Warn("model stderr", "stderr", tail)
	}
	return nil, apperrors.Wrap(forecast.CodeModelInvocation, msg, err)
}

func (p *ProcessPredictor) archiveRun(ctx context.Context, runID string, artifact, output []byte) {
	if p.archive == nil {
		return
	}
	prefix := "runs/" + runID + "/"
	if err := p.archive.Put(ctx, prefix+"features.csv", artifact, "text/csv"); err != nil {
		p.logger.Warn("archive artifact failed", "runId", runID, "error", err)
		return
	}
	if err := p.archive.Put(ctx, prefix+"prediction.json", output, "application/json"); err != nil {
		p.logger.Warn("archive prediction failed", "runId", runID, "error", err)
	}
}

// ParseOutput decodes exactly one prediction document.
func ParseOutput(data []byte) (forecast.PredictionResult, error) {
	var raw struct {
		PredictedEnergy   *[]forecast.DailyUsage `json:"predicted_energy"`
		FeatureImportance map[string]float64     `json:"featureImportance"`
		Recommendations   []string               `json:"recommendations"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return forecast.PredictionResult{}, fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return forecast.PredictionResult{}, errors.New("unexpected data after prediction document")
	}
	if raw.PredictedEnergy == nil {
		return forecast.PredictionResult{}, errors.New("predicted_energy is missing")
	}
	for i, day := range *raw.PredictedEnergy {
		if day.PredictedUse < 0 || math.IsNaN(day.PredictedUse) || math.IsInf(day.PredictedUse, 0) {
			return forecast.PredictionResult{}, fmt.Errorf("predicted_energy[%d]: invalid usage %v", i, day.PredictedUse)
		}
	}
	return forecast.PredictionResult{
		PredictedEnergy:   *raw.PredictedEnergy,
		FeatureImportance: raw.FeatureImportance,
		Recommendations:   raw.Recommendations,
	}, nil
}

func tailString(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}

var _ forecast.Predictor = (*ProcessPredictor)(nil)
