package notify

import (
	"testing"
	"time"

	"github.com/polkiloo/orderdesk/internal/config"
)

func TestNewNotifierUsesConfig(t *testing.T) {
	n, err := newNotifier(notifierParams{Config: &config.Config{NotifyURL: "http://relay.local", NotifyTimeout: time.Second}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := n.(*Mailer)
	if !ok {
		t.Fatalf("expected *Mailer, got %T", n)
	}
	if _, ok := m.sender.(*HTTPSender); !ok {
		t.Fatalf("expected HTTP sender, got %T", m.sender)
	}
}

func TestNewNotifierFallsBackToLog(t *testing.T) {
	n, err := newNotifier(notifierParams{Config: &config.Config{}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := n.(*Mailer).sender.(*LogSender); !ok {
		t.Fatal("expected log sender when relay is not configured")
	}
}

func TestNewNotifierRejectsRelativeURL(t *testing.T) {
	if _, err := newNotifier(notifierParams{Config: &config.Config{NotifyURL: "relay"}, Logger: testLogger()}); err == nil {
		t.Fatal("expected error for relative url")
	}
}
