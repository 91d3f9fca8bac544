package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewHTTPSenderValidatesURL(t *testing.T) {
	if _, err := NewHTTPSender("://bad-url", time.Second, testLogger()); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := NewHTTPSender("/relative", time.Second, testLogger()); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestHTTPSenderPostsMessage(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/relay/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender, err := NewHTTPSender(srv.URL+"/relay", time.Second, testLogger())
	if err != nil {
		t.Fatalf("failed to create sender: %v", err)
	}
	msg := Message{To: "jane@example.com", Subject: "Hi", Text: "body", Tag: "invoice"}
	if err := sender.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != msg {
		t.Fatalf("expected %+v, got %+v", msg, got)
	}
}

func TestHTTPSenderHandlesErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		header     http.Header
		check      func(t *testing.T, err error)
	}{
		{
			name:       "too many requests",
			statusCode: http.StatusTooManyRequests,
			header:     http.Header{"Retry-After": []string{"7"}},
			check: func(t *testing.T, err error) {
				var tm TooManyRequestsError
				if !errors.As(err, &tm) {
					t.Fatalf("expected TooManyRequestsError, got %v", err)
				}
				if tm.RetryAfter != 7*time.Second {
					t.Fatalf("expected retry after 7s, got %v", tm.RetryAfter)
				}
			},
		},
		{
			name:       "server error",
			statusCode: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Fatal("expected error for bad gateway")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for key, values := range tt.header {
					for _, v := range values {
						w.Header().Add(key, v)
					}
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer srv.Close()

			sender, err := NewHTTPSender(srv.URL, time.Second, testLogger())
			if err != nil {
				t.Fatalf("failed to create sender: %v", err)
			}
			tt.check(t, sender.Send(context.Background(), Message{To: "x@example.com"}))
		})
	}
}

func TestHTTPSenderHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender, err := NewHTTPSender(srv.URL, time.Second, testLogger())
	if err != nil {
		t.Fatalf("failed to create sender: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sender.Send(ctx, Message{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter(""); got != defaultRetryAfter {
		t.Fatalf("expected default for empty header, got %v", got)
	}
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Fatalf("expected 3s, got %v", got)
	}
	if got := parseRetryAfter("soon"); got != defaultRetryAfter {
		t.Fatalf("expected default for garbage, got %v", got)
	}
	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > time.Minute {
		t.Fatalf("expected positive duration up to a minute, got %v", got)
	}
}

func TestLogSenderNeverFails(t *testing.T) {
	if err := NewLogSender(testLogger()).Send(context.Background(), Message{To: "a@b.c"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
