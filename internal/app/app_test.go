package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderdesk/internal/config"
	testhelpers "github.com/polkiloo/orderdesk/internal/test"
)

type sweeperStub struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (s *sweeperStub) Start(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
}

func (s *sweeperStub) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

type bootstrapStub struct {
	login, password string
	created         bool
	err             error
}

func (b *bootstrapStub) EnsureAdmin(_ context.Context, login, password string) (bool, error) {
	b.login, b.password = login, password
	return b.created, b.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{RunAddress: ":9999"}
	router := gin.New()
	server := newHTTPServer(serverParams{Config: cfg, Router: router})
	if server.Addr != ":9999" {
		t.Fatalf("expected address :9999, got %q", server.Addr)
	}
	if server.Handler != router {
		t.Fatalf("expected handler to be router")
	}
}

func TestLifecycleStartStop(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	sweeper := &sweeperStub{}
	admins := &bootstrapStub{created: true}
	cfg := &config.Config{ShutdownTimeout: 100 * time.Millisecond, AdminLogin: "root", AdminPassword: "pw"}

	attachLifecycle(recorder, shutdowner, discardLogger(), server, sweeper, admins, cfg)
	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}

	hook := recorder.Hooks[0]
	if err := hook.OnStart(context.Background()); err != nil {
		t.Fatalf("on start failed: %v", err)
	}
	if admins.login != "root" || admins.password != "pw" {
		t.Fatalf("expected bootstrap with configured credentials, got %q/%q", admins.login, admins.password)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hook.OnStop(context.Background())
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected on stop to finish")
	}

	sweeper.mu.Lock()
	defer sweeper.mu.Unlock()
	if !sweeper.started || !sweeper.stopped {
		t.Fatalf("expected sweeper to start and stop, got %+v", sweeper)
	}
}

func TestLifecycleBootstrapFailureAbortsStart(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	sweeper := &sweeperStub{}
	boom := errors.New("db down")

	attachLifecycle(recorder, &testhelpers.ShutdownerStub{}, discardLogger(), &http.Server{Addr: "127.0.0.1:0"}, sweeper, &bootstrapStub{err: boom}, &config.Config{})
	if err := recorder.Hooks[0].OnStart(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
	if sweeper.started {
		t.Fatal("sweeper must not start when bootstrap fails")
	}
}

func TestLifecycleShutdownOnServerError(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}

	attachLifecycle(recorder, shutdowner, discardLogger(), &http.Server{Addr: "bad addr"}, &sweeperStub{}, &bootstrapStub{}, &config.Config{ShutdownTimeout: time.Second})

	hook := recorder.Hooks[0]
	if err := hook.OnStart(context.Background()); err != nil {
		t.Fatalf("on start returned error: %v", err)
	}
	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}
	_ = hook.OnStop(context.Background())
}

func TestLifecycleStopWithoutStart(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{}
	sweeper := &sweeperStub{}

	attachLifecycle(recorder, shutdowner, discardLogger(), &http.Server{Addr: "127.0.0.1:0"}, sweeper, &bootstrapStub{}, &config.Config{ShutdownTimeout: time.Second})
	if err := recorder.Stop(context.Background()); err != nil {
		t.Fatalf("stop returned error: %v", err)
	}
	if shutdowner.Calls() != 0 {
		t.Fatalf("expected no shutdown requests, got %d", shutdowner.Calls())
	}
}
