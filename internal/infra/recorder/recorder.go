package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
	"github.com/yanqian/energy-forecast/internal/infra/recorder/queue"
	"github.com/yanqian/energy-forecast/pkg/metrics"
)

// JobName identifies usage-recording jobs on the queue.
const JobName = "usage.record"

const defaultWriteTimeout = 10 * time.Second

// Recorder enqueues usage facts and writes them to the store off the request path.
type Recorder struct {
	queue        queue.Queue
	store        forecast.UsageStore
	stats        *metrics.Pipeline
	writeTimeout time.Duration
	logger       *slog.Logger
}

// New wires the recorder as the queue's handler.
func New(q queue.Queue, store forecast.UsageStore, stats *metrics.Pipeline, writeTimeout time.Duration, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	if stats == nil {
		stats = metrics.NewPipeline()
	}
	r := &Recorder{
		queue:        q,
		store:        store,
		stats:        stats,
		writeTimeout: writeTimeout,
		logger:       logger.With("component", "recorder"),
	}
	q.SetHandler(r.handle)
	return r
}

// Record implements forecast.UsageRecorder. It returns once the job is queued.
func (r *Recorder) Record(ctx context.Context, facts forecast.UsageFacts) error {
	payload, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("encode usage facts: %w", err)
	}
	if err := r.queue.Enqueue(ctx, JobName, payload); err != nil {
		return fmt.Errorf("enqueue usage facts: %w", err)
	}
	return nil
}

// Close drains the queue.
func (r *Recorder) Close() error {
	return r.queue.Close()
}

func (r *Recorder) handle(ctx context.Context, name string, payload []byte) {
	if name != JobName {
		r.logger.Warn("unknown job", "name", name)
		return
	}
	var facts forecast.UsageFacts
	if err := json.Unmarshal(payload, &facts); err != nil {
		r.stats.PersistenceFailed()
		r.logger.Error("decode usage job failed", "error", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
	defer cancel()
	if err := r.store.Save(writeCtx, facts); err != nil {
		r.stats.PersistenceFailed()
		r.logger.Error("persist usage facts failed",
			"submissionId", facts.SubmissionID.String(),
			"location", facts.Location,
			"error", err,
		)
		return
	}
	r.logger.Debug("usage facts persisted", "submissionId", facts.SubmissionID.String(), "appliances", len(facts.Appliances))
}

var _ forecast.UsageRecorder = (*Recorder)(nil)
