package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Pipeline counts prediction runs and their outcomes.
type Pipeline struct {
	runs                atomic.Int64
	completed           atomic.Int64
	persistenceFailures atomic.Int64
	excludedAppliances  atomic.Int64
	throttled           atomic.Int64

	mu       sync.Mutex
	failures map[string]int64
}

// Snapshot is the serializable view of the counters.
type Snapshot struct {
	Runs                int64            `json:"runs"`
	Completed           int64            `json:"completed"`
	PersistenceFailures int64            `json:"persistenceFailures"`
	ExcludedAppliances  int64            `json:"excludedAppliances"`
	Throttled           int64            `json:"throttled"`
	FailuresByStage     map[string]int64 `json:"failuresByStage"`
}

// NewPipeline constructs an empty counter set.
func NewPipeline() *Pipeline {
	return &Pipeline{failures: make(map[string]int64)}
}

func (p *Pipeline) RunStarted()   { p.runs.Add(1) }
func (p *Pipeline) RunCompleted() { p.completed.Add(1) }

// PersistenceFailed records a dropped usage-fact write.
func (p *Pipeline) PersistenceFailed() { p.persistenceFailures.Add(1) }

// AppliancesExcluded records appliances dropped by validation.
func (p *Pipeline) AppliancesExcluded(n int) {
	if n > 0 {
		p.excludedAppliances.Add(int64(n))
	}
}

// SubmissionThrottled records a submission refused before the pipeline ran.
func (p *Pipeline) SubmissionThrottled() { p.throttled.Add(1) }

// RunFailed records a terminal failure at the given stage.
func (p *Pipeline) RunFailed(stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[stage]++
}

// Snapshot copies the current values.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	failures := make(map[string]int64, len(p.failures))
	for k, v := range p.failures {
		failures[k] = v
	}
	p.mu.Unlock()
	return Snapshot{
		Runs:                p.runs.Load(),
		Completed:           p.completed.Load(),
		PersistenceFailures: p.persistenceFailures.Load(),
		ExcludedAppliances:  p.excludedAppliances.Load(),
		Throttled:           p.throttled.Load(),
		FailuresByStage:     failures,
	}
}

// FailedStages lists stages with at least one failure, sorted.
func (s Snapshot) FailedStages() []string {
	out := make([]string, 0, len(s.FailuresByStage))
	for stage := range s.FailuresByStage {
		out = append(out, stage)
	}
	sort.Strings(out)
	return out
}
