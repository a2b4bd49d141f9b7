package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineCounters(t *testing.T) {
	p := NewPipeline()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.RunStarted()
			p.RunFailed("weather")
		}()
	}
	wg.Wait()
	p.RunCompleted()
	p.PersistenceFailed()
	p.AppliancesExcluded(3)
	p.AppliancesExcluded(0)
	p.RunFailed("predict")
	p.SubmissionThrottled()

	snap := p.Snapshot()
	require.Equal(t, int64(20), snap.Runs)
	require.Equal(t, int64(1), snap.Completed)
	require.Equal(t, int64(1), snap.PersistenceFailures)
	require.Equal(t, int64(3), snap.ExcludedAppliances)
	require.Equal(t, int64(1), snap.Throttled)
	require.Equal(t, int64(20), snap.FailuresByStage["weather"])
	require.Equal(t, []string{"predict", "weather"}, snap.FailedStages())
}
