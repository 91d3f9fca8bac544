package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/orderdesk/internal/adapter/lock"
	"github.com/polkiloo/orderdesk/internal/domain/model"
)

const sweepLockKey = "reminder-sweep"

// ErrSweepInProgress is returned by RunOnce when another sweep holds the lock.
var ErrSweepInProgress = errors.New("reminder sweep already in progress")

// ReminderProcessor exposes the subset of application functionality required by the sweeper.
type ReminderProcessor interface {
	ProcessAllReminders(ctx context.Context) (model.ReminderRunStats, error)
}

// SweepCounters accumulates sweep outcomes since start. Observability only.
type SweepCounters struct {
	Runs      int64
	Contended int64
	Errors    int64
	Sent      int64
	Failed    int64
	Skipped   int64
}

// ReminderSweeper runs the reminder sweep on a ticker, serialized through a
// Locker so at most one sweep runs across instances.
type ReminderSweeper struct {
	processor ReminderProcessor
	locker    lock.Locker
	interval  time.Duration
	lockTTL   time.Duration
	logger    *slog.Logger

	runs, contended, errs atomic.Int64
	sent, failed, skipped atomic.Int64

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewReminderSweeper constructs the sweeper.
func NewReminderSweeper(processor ReminderProcessor, locker lock.Locker, interval, lockTTL time.Duration, logger *slog.Logger) *ReminderSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &ReminderSweeper{
		processor: processor,
		locker:    locker,
		interval:  interval,
		lockTTL:   lockTTL,
		logger:    logger,
	}
}

// Start launches the background loop.
func (s *ReminderSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(runCtx)
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *ReminderSweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *ReminderSweeper) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) && ctx.Err() == nil {
				s.logger.Error("reminder sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce performs a single locked sweep. The lease is renewed while the sweep
// runs; if it is lost the sweep is cancelled.
func (s *ReminderSweeper) RunOnce(ctx context.Context) (model.ReminderRunStats, error) {
	lease, err := s.locker.Acquire(ctx, sweepLockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			s.contended.Add(1)
			s.logger.Info("reminder sweep skipped, lock held elsewhere")
			return model.ReminderRunStats{}, ErrSweepInProgress
		}
		s.errs.Add(1)
		return model.ReminderRunStats{}, err
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	var renewing sync.WaitGroup
	renewing.Add(1)
	go func() {
		defer renewing.Done()
		s.keepLease(sweepCtx, cancel, lease)
	}()
	defer func() {
		cancel()
		renewing.Wait()
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("reminder sweep lock release failed", slog.String("error", err.Error()))
		}
	}()

	s.runs.Add(1)
	stats, err := s.processor.ProcessAllReminders(sweepCtx)
	s.sent.Add(int64(stats.Sent))
	s.failed.Add(int64(stats.Failed))
	s.skipped.Add(int64(stats.Skipped))
	if err != nil {
		s.errs.Add(1)
		return stats, err
	}
	return stats, nil
}

// keepLease extends the lease every third of its ttl until ctx is done.
// Transient errors are retried on the next tick.
func (s *ReminderSweeper) keepLease(ctx context.Context, lost context.CancelFunc, lease lock.Lease) {
	ticker := time.NewTicker(max(s.lockTTL/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := lease.Extend(ctx, s.lockTTL)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				return
			case errors.Is(err, lock.ErrNotAcquired):
				s.logger.Error("reminder sweep lock lost, stopping sweep")
				lost()
				return
			default:
				s.logger.Warn("reminder sweep lock renewal failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Counters returns a snapshot of the accumulated counters.
func (s *ReminderSweeper) Counters() SweepCounters {
	return SweepCounters{
		Runs:      s.runs.Load(),
		Contended: s.contended.Load(),
		Errors:    s.errs.Load(),
		Sent:      s.sent.Load(),
		Failed:    s.failed.Load(),
		Skipped:   s.skipped.Load(),
	}
}
