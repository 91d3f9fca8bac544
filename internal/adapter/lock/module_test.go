package lock

import (
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/polkiloo/orderdesk/internal/config"
	testhelpers "github.com/polkiloo/orderdesk/internal/test"
)

func TestNewLockerWithoutRedis(t *testing.T) {
	lc := &testhelpers.LifecycleRecorder{}
	l := newLocker(lockerParams{Lifecycle: lc, Config: &config.Config{}, Logger: slog.New(slog.NewJSONHandler(io.Discard, nil))})
	if _, ok := l.(*LocalLocker); !ok {
		t.Fatalf("expected local locker, got %T", l)
	}
	if len(lc.Hooks) != 0 {
		t.Fatalf("expected no hooks, got %d", len(lc.Hooks))
	}
}

func TestNewLockerWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := &testhelpers.LifecycleRecorder{}
	l := newLocker(lockerParams{Lifecycle: lc, Config: &config.Config{RedisAddress: mr.Addr()}, Logger: slog.New(slog.NewJSONHandler(io.Discard, nil))})
	if _, ok := l.(*RedisLocker); !ok {
		t.Fatalf("expected redis locker, got %T", l)
	}
	if len(lc.Hooks) != 1 {
		t.Fatalf("expected one lifecycle hook, got %d", len(lc.Hooks))
	}
	if err := lc.Start(t.Context()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := lc.Stop(t.Context()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
