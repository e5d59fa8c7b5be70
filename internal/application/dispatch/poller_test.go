package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-push/internal/domain"
)

func seedPending(store *memStore, n int, base time.Time) {
	for i := 0; i < n; i++ {
		store.put(domain.Notification{
			NotificationID: fmt.Sprintf("n%03d", i),
			UniversityID:   domain.StrPtr("AIRU"),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
	}
}

func TestPollerConfig_Defaults(t *testing.T) {
	c := PollerConfig{}.withDefaults()
	assert.Equal(t, DefaultPollInterval, c.Interval)
	assert.Equal(t, DefaultBatchSize, c.BatchSize)
	assert.Equal(t, 1, c.Concurrency)
	assert.Equal(t, DefaultRecordTimeout, c.RecordTimeout)

	c = PollerConfig{Interval: time.Second}.withDefaults()
	assert.Equal(t, MinPollInterval, c.Interval)
}

func TestRunCycle_BatchLimitOldestFirst(t *testing.T) {
	store := newMemStore()
	seedPending(store, 60, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := &fakeTransport{}
	p := NewPoller(store, newTestPipeline(store, tr, nil, nil), PollerConfig{Concurrency: 4}, nil)

	stats, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleStats{Fetched: 50, Sent: 50}, stats)
	assert.True(t, store.snapshot("n000").Sent)
	assert.True(t, store.snapshot("n049").Sent)
	assert.False(t, store.snapshot("n050").Sent)

	stats, err = p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Sent)
}

// flakyRunner fails for selected ids and delegates the rest.
type flakyRunner struct {
	next runner
	fail map[string]bool
}

func (f flakyRunner) Run(ctx context.Context, n *domain.Notification) (Result, error) {
	if f.fail[n.NotificationID] {
		return Result{}, domain.ErrTransport
	}
	return f.next.Run(ctx, n)
}

func TestRunCycle_FailureDoesNotAbortBatch(t *testing.T) {
	store := newMemStore()
	seedPending(store, 5, time.Now())
	r := flakyRunner{next: newTestPipeline(store, &fakeTransport{}, nil, nil), fail: map[string]bool{"n001": true, "n003": true}}
	p := NewPoller(store, r, PollerConfig{Concurrency: 2}, nil)

	stats, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleStats{Fetched: 5, Sent: 3, Failed: 2}, stats)
}

type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, _ *domain.Notification) (Result, error) {
	<-ctx.Done()
	return Result{}, ctx.Err()
}

func TestRunCycle_PerRecordDeadline(t *testing.T) {
	store := newMemStore()
	seedPending(store, 3, time.Now())
	p := NewPoller(store, blockingRunner{}, PollerConfig{Concurrency: 3, RecordTimeout: 20 * time.Millisecond}, nil)

	start := time.Now()
	stats, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Failed)
	assert.Less(t, time.Since(start), 2*time.Second)
}

type stubLock struct {
	ok       bool
	released bool
}

func (l *stubLock) Acquire(context.Context) (func(), bool, error) {
	return func() { l.released = true }, l.ok, nil
}

func TestRunCycle_Lock(t *testing.T) {
	store := newMemStore()
	seedPending(store, 2, time.Now())
	tr := &fakeTransport{}

	held := &stubLock{ok: false}
	p := NewPoller(store, newTestPipeline(store, tr, nil, nil), PollerConfig{}, nil, WithCycleLock(held))
	stats, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Fetched)
	assert.Zero(t, tr.calls())

	free := &stubLock{ok: true}
	p = NewPoller(store, newTestPipeline(store, tr, nil, nil), PollerConfig{}, nil, WithCycleLock(free))
	stats, err = p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sent)
	assert.True(t, free.released)
}

type signalRunner struct {
	once sync.Once
	ran  chan struct{}
}

func (s *signalRunner) Run(context.Context, *domain.Notification) (Result, error) {
	s.once.Do(func() { close(s.ran) })
	return Result{}, nil
}

func TestPoller_StartRunsImmediately(t *testing.T) {
	store := newMemStore()
	seedPending(store, 1, time.Now())
	r := &signalRunner{ran: make(chan struct{})}
	p := NewPoller(store, r, PollerConfig{Interval: time.Hour}, nil)

	p.Start(context.Background())
	select {
	case <-r.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run at start")
	}
	p.Stop()
}

// stuckRunner blocks every record until release is closed.
type stuckRunner struct {
	runs    atomic.Int32
	release chan struct{}
}

func (s *stuckRunner) Run(ctx context.Context, _ *domain.Notification) (Result, error) {
	s.runs.Add(1)
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return Result{}, nil
}

func TestPoller_SlowCycleSkipsOverlappingTicks(t *testing.T) {
	store := newMemStore()
	seedPending(store, 1, time.Now())
	r := &stuckRunner{release: make(chan struct{})}
	p := NewPoller(store, r, PollerConfig{Interval: MinPollInterval, RecordTimeout: time.Minute}, nil)

	p.Start(context.Background())
	require.Eventually(t, func() bool { return r.runs.Load() == 1 }, time.Second, 10*time.Millisecond)

	// At least two ticks fire while the first cycle is still blocked.
	assert.Never(t, func() bool { return r.runs.Load() > 1 }, 2*MinPollInterval+500*time.Millisecond, 50*time.Millisecond)

	close(r.release)
	p.Stop()
}
