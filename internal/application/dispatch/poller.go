package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/pkg/logger"
)

// PendingStore lists records still waiting for delivery, oldest first.
type PendingStore interface {
	ListPending(ctx context.Context, limit int) ([]domain.Notification, error)
}

// CycleLock guards a poll cycle across processes. ok=false means another
// process holds it and the cycle must be skipped.
type CycleLock interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

type runner interface {
	Run(ctx context.Context, n *domain.Notification) (Result, error)
}

const (
	DefaultPollInterval  = 10 * time.Second
	MinPollInterval      = 2 * time.Second
	DefaultBatchSize     = 50
	DefaultRecordTimeout = 30 * time.Second
)

type PollerConfig struct {
	Interval      time.Duration
	BatchSize     int
	Concurrency   int
	RecordTimeout time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval == 0 {
		c.Interval = DefaultPollInterval
	}
	if c.Interval < MinPollInterval {
		c.Interval = MinPollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.RecordTimeout <= 0 {
		c.RecordTimeout = DefaultRecordTimeout
	}
	return c
}

// CycleStats summarises one poll cycle.
type CycleStats struct {
	Fetched int
	Sent    int
	Failed  int
	Skipped int
}

type PollerOption func(*Poller)

// WithCycleLock makes every cycle take l first.
func WithCycleLock(l CycleLock) PollerOption {
	return func(p *Poller) { p.lock = l }
}

// Poller is the poll-loop driver: every interval it picks up pending records
// and runs each one independently through the pipeline.
type Poller struct {
	store    PendingStore
	pipeline runner
	lock     CycleLock
	cfg      PollerConfig
	log      logrus.FieldLogger

	cron *cron.Cron
	wg   sync.WaitGroup
}

func NewPoller(store PendingStore, pipeline runner, cfg PollerConfig, log logrus.FieldLogger, opts ...PollerOption) *Poller {
	if log == nil {
		log = logger.Discard()
	}
	p := &Poller{
		store:    store,
		pipeline: pipeline,
		cfg:      cfg.withDefaults(),
		log:      log.WithField("component", "poller"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Interval returns the effective polling interval.
func (p *Poller) Interval() time.Duration { return p.cfg.Interval }

// Start runs one cycle immediately, then one per interval. A cycle that is
// still running when the next tick fires causes that tick to be skipped.
func (p *Poller) Start(ctx context.Context) {
	cl := logger.CronAdapter{Log: p.log}
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := p.RunCycle(ctx); err != nil {
			p.log.WithError(err).Error("poll cycle failed")
		}
	}))

	p.cron = cron.New()
	p.cron.Schedule(cron.Every(p.cfg.Interval), job)
	p.cron.Start()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		job.Run()
	}()

	p.log.WithFields(logrus.Fields{
		"interval":    p.cfg.Interval.String(),
		"batch_size":  p.cfg.BatchSize,
		"concurrency": p.cfg.Concurrency,
	}).Info("poller started")
}

// Stop halts scheduling and waits for a running cycle to finish. Cycles started
// by the scheduler are awaited through cron, the initial one through wg.
func (p *Poller) Stop() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
	p.wg.Wait()
	p.log.Info("poller stopped")
}

// RunCycle processes one batch of pending records. A failing record never
// aborts the batch; only failing to list the batch returns an error.
func (p *Poller) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	if p.lock != nil {
		release, ok, err := p.lock.Acquire(ctx)
		if err != nil {
			return stats, fmt.Errorf("acquire poll lock: %w", err)
		}
		if !ok {
			p.log.Debug("poll cycle held by another worker, skipping")
			return stats, nil
		}
		defer release()
	}

	pending, err := p.store.ListPending(ctx, p.cfg.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("list pending notifications: %w", err)
	}
	stats.Fetched = len(pending)
	if len(pending) == 0 {
		return stats, nil
	}

	var sent, failed, skipped atomic.Int64
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i := range pending {
		n := &pending[i]
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(ctx, p.cfg.RecordTimeout)
			defer cancel()
			res, err := p.pipeline.Run(rctx, n)
			switch {
			case err != nil:
				failed.Add(1)
				if errors.Is(err, context.DeadlineExceeded) {
					p.log.WithField("notification_id", n.NotificationID).Warn("record deadline exceeded")
				}
			case res.Skipped:
				skipped.Add(1)
			default:
				sent.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Sent = int(sent.Load())
	stats.Failed = int(failed.Load())
	stats.Skipped = int(skipped.Load())
	p.log.WithFields(logrus.Fields{
		"fetched": stats.Fetched,
		"sent":    stats.Sent,
		"failed":  stats.Failed,
	}).Info("poll cycle complete")
	return stats, nil
}
