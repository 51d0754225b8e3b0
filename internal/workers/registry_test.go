package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// healthWorker is a minimal WorkerWithHealth backed by BaseWorker
type healthWorker struct {
	*BaseWorker
}

func newHealthWorker(name string, enabled bool) *healthWorker {
	return &healthWorker{BaseWorker: NewBaseWorker(name, time.Minute, enabled)}
}

func (w *healthWorker) Run(ctx context.Context) error { return nil }

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(newHealthWorker("signal_pipeline", true)))
	err := r.Register(newHealthWorker("signal_pipeline", true))
	assert.Error(t, err)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_GetAllHealthSnapshotsWorkers(t *testing.T) {
	r := NewRegistry()

	pipeline := newHealthWorker("signal_pipeline", true)
	watcher := newHealthWorker("release_watcher", true)
	require.NoError(t, r.Register(pipeline))
	require.NoError(t, r.Register(watcher))

	// Health comes from the worker's own accounting, not registry state
	pipeline.RecordRun(2 * time.Second)
	watcher.RecordError(errors.New("broker down"), time.Second)

	health := r.GetAllHealth()
	require.Len(t, health, 2)

	assert.Equal(t, int64(1), health["signal_pipeline"].RunCount)
	assert.Equal(t, int64(0), health["signal_pipeline"].ErrorCount)
	assert.Equal(t, 2*time.Second, health["signal_pipeline"].AvgDuration)

	assert.Equal(t, int64(1), health["release_watcher"].ErrorCount)
	assert.EqualError(t, health["release_watcher"].LastError, "broker down")
}

func TestRegistry_SetEnabled(t *testing.T) {
	r := NewRegistry()
	w := newHealthWorker("release_watcher", true)
	require.NoError(t, r.Register(w))

	require.NoError(t, r.SetEnabled("release_watcher", false))
	assert.False(t, w.Enabled())

	assert.Error(t, r.SetEnabled("missing", true))
}

func TestRegistry_Unhealthy(t *testing.T) {
	r := NewRegistry()

	fresh := newHealthWorker("signal_pipeline", true)
	fresh.RecordRun(time.Second)

	stale := newHealthWorker("release_watcher", true)
	// never ran

	disabled := newHealthWorker("backfill", false)

	require.NoError(t, r.Register(fresh))
	require.NoError(t, r.Register(stale))
	require.NoError(t, r.Register(disabled))

	unhealthy := r.Unhealthy(time.Hour)
	assert.Equal(t, []string{"release_watcher"}, unhealthy)
}

func TestRegistry_UnhealthyErrorRate(t *testing.T) {
	r := NewRegistry()

	flaky := newHealthWorker("release_watcher", true)
	for i := 0; i < 12; i++ {
		flaky.RecordError(errors.New("timeout"), time.Second)
	}
	require.NoError(t, r.Register(flaky))

	assert.Equal(t, []string{"release_watcher"}, r.Unhealthy(time.Hour))
}
