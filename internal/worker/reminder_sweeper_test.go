package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/polkiloo/orderdesk/internal/adapter/lock"
	"github.com/polkiloo/orderdesk/internal/domain/model"
)

type processorStub struct {
	mu    sync.Mutex
	calls int
	stats model.ReminderRunStats
	err   error
	block chan struct{}
}

func (p *processorStub) ProcessAllReminders(ctx context.Context) (model.ReminderRunStats, error) {
	p.mu.Lock()
	p.calls++
	block := p.block
	p.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return model.ReminderRunStats{}, ctx.Err()
		}
	}
	return p.stats, p.err
}

func (p *processorStub) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type failingLocker struct{ err error }

func (l failingLocker) Acquire(context.Context, string, time.Duration) (lock.Lease, error) {
	return nil, l.err
}

// lostLease is a lease that can never be extended.
type lostLease struct{ released chan struct{} }

func (l *lostLease) Extend(context.Context, time.Duration) error { return lock.ErrNotAcquired }

func (l *lostLease) Release(context.Context) error {
	close(l.released)
	return nil
}

type lostLocker struct{ lease *lostLease }

func (l lostLocker) Acquire(context.Context, string, time.Duration) (lock.Lease, error) {
	return l.lease, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewReminderSweeperDefaults(t *testing.T) {
	s := NewReminderSweeper(&processorStub{}, lock.NewLocalLocker(), 0, 0, testLogger())
	if s.interval != time.Hour {
		t.Fatalf("expected default interval, got %v", s.interval)
	}
	if s.lockTTL != 10*time.Minute {
		t.Fatalf("expected default lock ttl, got %v", s.lockTTL)
	}
}

func TestRunOnceAccumulatesCounters(t *testing.T) {
	proc := &processorStub{stats: model.ReminderRunStats{Sent: 2, Failed: 1, Skipped: 3}}
	s := NewReminderSweeper(proc, lock.NewLocalLocker(), time.Hour, time.Minute, testLogger())

	for i := 0; i < 2; i++ {
		stats, err := s.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats != proc.stats {
			t.Fatalf("unexpected stats %+v", stats)
		}
	}
	want := SweepCounters{Runs: 2, Sent: 4, Failed: 2, Skipped: 6}
	if got := s.Counters(); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestRunOnceIsSerialized(t *testing.T) {
	proc := &processorStub{block: make(chan struct{})}
	s := NewReminderSweeper(proc, lock.NewLocalLocker(), time.Hour, time.Minute, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(context.Background())
		done <- err
	}()

	deadline := time.After(time.Second)
	for proc.Calls() == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for first sweep")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := s.RunOnce(context.Background()); !errors.Is(err, ErrSweepInProgress) {
		t.Fatalf("expected ErrSweepInProgress, got %v", err)
	}
	close(proc.block)
	if err := <-done; err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if c := s.Counters(); c.Contended != 1 || c.Runs != 1 {
		t.Fatalf("unexpected counters %+v", c)
	}

	// The lock is released after the sweep.
	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected lock to be free, got %v", err)
	}
}

func TestRunOnceRenewsLease(t *testing.T) {
	proc := &processorStub{block: make(chan struct{})}
	locker := lock.NewLocalLocker()
	ttl := 60 * time.Millisecond
	s := NewReminderSweeper(proc, locker, time.Hour, ttl, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(context.Background())
		done <- err
	}()

	time.Sleep(4 * ttl)
	if _, err := locker.Acquire(context.Background(), sweepLockKey, ttl); !errors.Is(err, lock.ErrNotAcquired) {
		t.Fatalf("expected lock to be held past its ttl, got %v", err)
	}
	close(proc.block)
	if err := <-done; err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if _, err := locker.Acquire(context.Background(), sweepLockKey, ttl); err != nil {
		t.Fatalf("expected lock to be released, got %v", err)
	}
}

func TestRunOnceStopsWhenLeaseLost(t *testing.T) {
	proc := &processorStub{block: make(chan struct{})}
	lease := &lostLease{released: make(chan struct{})}
	s := NewReminderSweeper(proc, lostLocker{lease: lease}, time.Hour, 30*time.Millisecond, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancelled sweep, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweep kept running after the lease was lost")
	}
	select {
	case <-lease.released:
	default:
		t.Fatal("expected lease release after the sweep")
	}
}

func TestRunOnceReportsErrors(t *testing.T) {
	boom := errors.New("redis down")
	s := NewReminderSweeper(&processorStub{}, failingLocker{err: boom}, time.Hour, time.Minute, testLogger())
	if _, err := s.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected locker error, got %v", err)
	}

	failing := &processorStub{err: errors.New("db down")}
	s = NewReminderSweeper(failing, lock.NewLocalLocker(), time.Hour, time.Minute, testLogger())
	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected processor error")
	}
	if c := s.Counters(); c.Errors != 1 || c.Runs != 1 {
		t.Fatalf("unexpected counters %+v", c)
	}
}

func TestSweeperRunsOnTicker(t *testing.T) {
	proc := &processorStub{}
	s := NewReminderSweeper(proc, lock.NewLocalLocker(), 5*time.Millisecond, time.Minute, testLogger())

	s.Start(context.Background())
	deadline := time.After(500 * time.Millisecond)
	for proc.Calls() < 2 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for sweeps")
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()

	calls := proc.Calls()
	time.Sleep(20 * time.Millisecond)
	if proc.Calls() != calls {
		t.Fatal("expected no sweeps after stop")
	}
	s.Stop()
}
