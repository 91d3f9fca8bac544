package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
)

type reminderFixture struct {
	env *testEnv
	ids map[string]int64
}

func newReminderFixture(t *testing.T) *reminderFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &reminderFixture{env: env, ids: map[string]int64{}}
	today := env.clock.Today()
	add := func(name string, orderStatus model.OrderStatus, invStatus model.InvoiceStatus, dueIn int) int64 {
		id := env.seedOrder(orderStatus)
		env.store.SeedInvoice(model.Invoice{
			OrderID: id,
			Number:  "INV-" + name,
			Status:  invStatus,
			Amount:  11300,
			DueDate: today.AddDate(0, 0, dueIn),
		})
		f.ids[name] = id
		return id
	}

	add("today", model.OrderStatusInvoiced, model.InvoiceStatusSent, 0)
	add("upcoming", model.OrderStatusInvoiced, model.InvoiceStatusSent, 3)
	add("off-schedule", model.OrderStatusInvoiced, model.InvoiceStatusSent, 2)
	add("overdue", model.OrderStatusInvoiced, model.InvoiceStatusDraft, -7)
	paused := add("paused", model.OrderStatusInvoiced, model.InvoiceStatusSent, -7)
	capped := add("capped", model.OrderStatusInvoiced, model.InvoiceStatusSent, 0)
	sentToday := add("sent-today", model.OrderStatusInvoiced, model.InvoiceStatusSent, 0)
	add("paid", model.OrderStatusPaid, model.InvoiceStatusPaid, 0)
	add("cancelled", model.OrderStatusCancelled, model.InvoiceStatusSent, 0)
	failedToday := add("failed-today", model.OrderStatusInvoiced, model.InvoiceStatusSent, 0)

	require.NoError(t, env.store.Reminders().SetPaused(context.Background(), paused, true, "2"))
	for i := 0; i < 4; i++ {
		env.store.SeedReminderLog(model.ReminderLog{OrderID: capped, Success: true, SentAt: env.now.AddDate(0, 0, -10+i)})
	}
	env.store.SeedReminderLog(model.ReminderLog{OrderID: sentToday, Success: true, SentAt: today.Add(time.Hour)})
	env.store.SeedReminderLog(model.ReminderLog{OrderID: failedToday, Success: false, SentAt: today.Add(time.Hour)})
	return f
}

func reminderOrders(rs []model.Reminder) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.OrderID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestPendingReminders(t *testing.T) {
	f := newReminderFixture(t)
	due, skipped, err := f.env.reminders().pending(context.Background())
	require.NoError(t, err)

	want := []int64{f.ids["today"], f.ids["upcoming"], f.ids["overdue"], f.ids["failed-today"]}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	assert.Equal(t, want, reminderOrders(due))
	assert.Equal(t, 3, skipped)

	byOrder := map[int64]model.Reminder{}
	for _, r := range due {
		byOrder[r.OrderID] = r
	}
	assert.Equal(t, model.ReminderDueToday, byOrder[f.ids["today"]].Type)
	assert.Equal(t, 0, byOrder[f.ids["today"]].DaysUntilDue)
	assert.Equal(t, model.ReminderUpcoming, byOrder[f.ids["upcoming"]].Type)
	assert.Equal(t, 3, byOrder[f.ids["upcoming"]].DaysUntilDue)
	assert.Equal(t, model.ReminderOverdue, byOrder[f.ids["overdue"]].Type)
	assert.Equal(t, -7, byOrder[f.ids["overdue"]].DaysUntilDue)
}

func TestClassifyReminder(t *testing.T) {
	s := DefaultReminderSettings()
	cases := []struct {
		days int
		want model.ReminderType
		ok   bool
	}{
		{0, model.ReminderDueToday, true},
		{1, model.ReminderUpcoming, true},
		{3, model.ReminderUpcoming, true},
		{2, "", false},
		{-1, model.ReminderOverdue, true},
		{-14, model.ReminderOverdue, true},
		{-3, "", false},
		{30, "", false},
	}
	for _, tc := range cases {
		got, ok := classifyReminder(tc.days, s)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("days %d: got %q %v, want %q %v", tc.days, got, ok, tc.want, tc.ok)
		}
	}
}

func TestProcessAllReminders(t *testing.T) {
	f := newReminderFixture(t)
	overdue := f.ids["overdue"]
	f.env.notifier.ReminderErr = func(r model.Reminder) error {
		if r.OrderID == overdue {
			return errors.New("mailbox full")
		}
		return nil
	}
	before := len(f.env.store.ReminderLogs())

	stats, err := f.env.reminders().ProcessAllReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ReminderRunStats{Sent: 3, Failed: 1, Skipped: 3}, stats)

	logs := f.env.store.ReminderLogs()[before:]
	require.Len(t, logs, 4)
	for _, l := range logs {
		if l.OrderID == overdue {
			assert.False(t, l.Success)
			assert.Equal(t, "mailbox full", l.Error)
			continue
		}
		assert.True(t, l.Success)
	}

	// A second sweep the same day only retries the failed send.
	due, err := f.env.reminders().PendingReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{overdue}, reminderOrders(due))
}

func TestProcessAllRemindersNeverExceedsCap(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Settings().SaveReminder(context.Background(), model.ReminderSettings{
		DaysBefore: []int{1, 2, 3}, DaysAfter: []int{1}, MaxReminders: 2,
	}))
	id := env.seedOrder(model.OrderStatusInvoiced)
	env.store.SeedInvoice(model.Invoice{OrderID: id, Status: model.InvoiceStatusSent, DueDate: env.clock.Today().AddDate(0, 0, 3)})
	uc := env.reminders()

	sent := 0
	for day := 0; day < 5; day++ {
		stats, err := uc.ProcessAllReminders(context.Background())
		require.NoError(t, err)
		sent += stats.Sent
		env.now = env.now.AddDate(0, 0, 1)
	}
	assert.Equal(t, 2, sent)
}

func TestProcessAllRemindersStopsOnCancelledContext(t *testing.T) {
	f := newReminderFixture(t)
	uc := NewReminderUseCase(f.env.store, f.env.notifier, f.env.audit, f.env.clock, rate.NewLimiter(rate.Limit(1), 1), f.env.logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := uc.ProcessAllReminders(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.env.notifier.Reminders)
}

func TestProcessAllRemindersLogFailureCountsAsFailed(t *testing.T) {
	f := newReminderFixture(t)
	f.env.store.Errs["Reminders.LogAttempt"] = errors.New("db down")

	stats, err := f.env.reminders().ProcessAllReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sent)
	assert.Equal(t, 4, stats.Failed)
}

func TestPauseAndResumeReminders(t *testing.T) {
	f := newReminderFixture(t)
	uc := f.env.reminders()
	ctx := context.Background()
	id := f.ids["today"]

	require.NoError(t, uc.PauseReminders(ctx, id, staffActor))
	paused, err := uc.RemindersPaused(ctx, id)
	require.NoError(t, err)
	assert.True(t, paused)

	due, err := uc.PendingReminders(ctx)
	require.NoError(t, err)
	assert.NotContains(t, reminderOrders(due), id)

	require.NoError(t, uc.ResumeReminders(ctx, id, staffActor))
	due, err = uc.PendingReminders(ctx)
	require.NoError(t, err)
	assert.Contains(t, reminderOrders(due), id)

	assert.Equal(t, domainErrors.KindNotFound, domainErrors.KindOf(uc.PauseReminders(ctx, 9999, staffActor)))
	assert.Equal(t, domainErrors.KindForbidden, domainErrors.KindOf(uc.PauseReminders(ctx, id, viewerActor)))
	assert.Equal(t, domainErrors.KindValidation, domainErrors.KindOf(uc.ResumeReminders(ctx, 0, staffActor)))
}
