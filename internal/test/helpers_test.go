package test

import (
	"context"
	"errors"
	"net/mail"
	"testing"

	"go.uber.org/fx"
)

func TestRandomASCIIStringBounds(t *testing.T) {
	for range 50 {
		s := RandomASCIIString(3, 5)
		if len(s) < 3 || len(s) > 5 {
			t.Fatalf("length %d outside bounds", len(s))
		}
	}
	if got := RandomASCIIString(0, -1); len(got) != 1 {
		t.Fatalf("expected clamped length 1, got %q", got)
	}
	if _, err := mail.ParseAddress(RandomEmail()); err != nil {
		t.Fatalf("expected valid email: %v", err)
	}
}

func TestLifecycleRecorderOrdering(t *testing.T) {
	var calls []string
	hook := func(name string, err error) fx.Hook {
		return fx.Hook{
			OnStart: func(context.Context) error { calls = append(calls, "start "+name); return err },
			OnStop:  func(context.Context) error { calls = append(calls, "stop "+name); return err },
		}
	}
	boom := errors.New("boom")

	lc := &LifecycleRecorder{}
	lc.Append(hook("a", nil))
	lc.Append(fx.Hook{})
	lc.Append(hook("b", boom))
	lc.Append(hook("c", nil))

	if err := lc.Start(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	if err := lc.Stop(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected stop error, got %v", err)
	}
	want := []string{"start a", "start b", "stop c", "stop b", "stop a"}
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, calls)
		}
	}
}

func TestShutdownerStubCounts(t *testing.T) {
	s := &ShutdownerStub{}
	_ = s.Shutdown()
	_ = s.Shutdown()
	if s.Calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", s.Calls())
	}
}
