package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/domain/bias"
	"hermes/pkg/logger"
)

// fakeLocker is a single-key distributed lock
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	failNext error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (f *fakeLocker) TryAcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return false, err
	}
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) ReleaseLock(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

func TestAcquireLock_LocalFallback(t *testing.T) {
	r := &Runner{log: logger.Get()}

	ok, release, err := r.acquireLock(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, release)

	// second acquire while held is a no-op, not a queue
	ok2, _, err := r.acquireLock(context.Background())
	require.NoError(t, err)
	assert.False(t, ok2)

	release()

	ok3, release3, err := r.acquireLock(context.Background())
	require.NoError(t, err)
	assert.True(t, ok3)
	release3()
}

func TestAcquireLock_Distributed(t *testing.T) {
	locker := newFakeLocker()
	r := &Runner{locker: locker, lockTTL: time.Minute, log: logger.Get()}

	ok, release, err := r.acquireLock(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ok2, _, err := r.acquireLock(context.Background())
	require.NoError(t, err)
	assert.False(t, ok2, "lock is held, second acquire must fail")

	release()

	ok3, release3, err := r.acquireLock(context.Background())
	require.NoError(t, err)
	assert.True(t, ok3, "released lock must be acquirable again")
	release3()
}

func TestAcquireLock_DistributedError(t *testing.T) {
	locker := newFakeLocker()
	locker.failNext = errors.New("redis unavailable")
	r := &Runner{locker: locker, lockTTL: time.Minute, log: logger.Get()}

	ok, _, err := r.acquireLock(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRenderRowMirrorsBias(t *testing.T) {
	b := bias.MacroBias{
		Symbol:     "EUR/USD",
		Score:      -0.42,
		Direction:  bias.DirectionShort,
		Confidence: 0.61,
		Narrative:  "EUR/USD: short bias.",
	}

	row := renderRow(b)
	assert.Equal(t, "EUR/USD", row.Symbol)
	assert.Equal(t, "sell", row.Action)
	assert.Equal(t, b.Score, row.Score)
	assert.Equal(t, b.Confidence, row.Confidence)
	assert.Equal(t, b.Narrative, row.Narrative)

	b.Direction = bias.DirectionNeutral
	assert.Equal(t, "hold", renderRow(b).Action)
}
