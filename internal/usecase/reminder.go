package usecase

import (
	"context"
	"log/slog"
	"slices"

	"golang.org/x/time/rate"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/domain/repository"
)

// ReminderUseCase selects and sends payment reminders. Overlapping sweeps are
// not safe; callers serialize ProcessAllReminders with a scheduler lock.
type ReminderUseCase struct {
	repos    repository.Factory
	notifier Notifier
	audit    *Auditor
	clock    Clock
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewReminderUseCase constructs ReminderUseCase. A nil limiter disables throttling.
func NewReminderUseCase(repos repository.Factory, notifier Notifier, audit *Auditor, clock Clock, limiter *rate.Limiter, logger *slog.Logger) *ReminderUseCase {
	return &ReminderUseCase{repos: repos, notifier: notifier, audit: audit, clock: clock, limiter: limiter, logger: logger}
}

// PendingReminders returns the reminders due today, at most one per order.
func (u *ReminderUseCase) PendingReminders(ctx context.Context) ([]model.Reminder, error) {
	due, _, err := u.pending(ctx)
	return due, err
}

// pending classifies candidates and counts those that were due by offset but
// excluded by pause, cap or an earlier send today.
func (u *ReminderUseCase) pending(ctx context.Context) ([]model.Reminder, int, error) {
	settings, err := loadReminderSettings(ctx, u.repos.Settings())
	if err != nil {
		return nil, 0, err
	}
	candidates, err := u.repos.Reminders().ListCandidates(ctx)
	if err != nil {
		return nil, 0, err
	}

	now := u.clock.Now()
	loc := u.clock.Location()
	seen := make(map[int64]struct{}, len(candidates))
	var (
		due     []model.Reminder
		skipped int
	)
	for _, c := range candidates {
		if _, dup := seen[c.OrderID]; dup {
			continue
		}
		days := daysBetween(now, c.DueDate, loc)
		kind, ok := classifyReminder(days, settings)
		if !ok {
			continue
		}
		seen[c.OrderID] = struct{}{}

		switch {
		case c.Paused:
			skipped++
			continue
		case c.RemindersSent >= settings.MaxReminders:
			skipped++
			continue
		case c.LastReminderAt != nil && daysBetween(*c.LastReminderAt, now, loc) == 0:
			skipped++
			continue
		}

		due = append(due, model.Reminder{
			OrderID:       c.OrderID,
			InvoiceID:     c.InvoiceID,
			InvoiceNumber: c.InvoiceNumber,
			CustomerName:  c.CustomerName,
			CustomerEmail: c.CustomerEmail,
			Amount:        c.Amount,
			DueDate:       c.DueDate,
			DaysUntilDue:  days,
			Type:          kind,
		})
	}
	return due, skipped, nil
}

func classifyReminder(daysUntilDue int, s model.ReminderSettings) (model.ReminderType, bool) {
	switch {
	case daysUntilDue == 0:
		return model.ReminderDueToday, true
	case daysUntilDue > 0 && slices.Contains(s.DaysBefore, daysUntilDue):
		return model.ReminderUpcoming, true
	case daysUntilDue < 0 && slices.Contains(s.DaysAfter, -daysUntilDue):
		return model.ReminderOverdue, true
	default:
		return "", false
	}
}

// SendPaymentReminder sends one reminder and logs the attempt. Failed sends
// are not retried.
func (u *ReminderUseCase) SendPaymentReminder(ctx context.Context, r model.Reminder) error {
	sendErr := u.notifier.SendReminder(ctx, r)
	entry := &model.ReminderLog{
		OrderID:      r.OrderID,
		InvoiceID:    r.InvoiceID,
		Type:         r.Type,
		DaysUntilDue: r.DaysUntilDue,
		Success:      sendErr == nil,
		SentAt:       u.clock.Now(),
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if err := u.repos.Reminders().LogAttempt(context.WithoutCancel(ctx), entry); err != nil {
		u.logger.Error("reminder log failed",
			slog.Int64("order_id", r.OrderID),
			slog.Bool("sent", sendErr == nil),
			slog.String("error", err.Error()),
		)
		if sendErr == nil {
			return err
		}
	}
	return sendErr
}

// ProcessAllReminders sends every pending reminder sequentially, isolating
// per-item failures.
func (u *ReminderUseCase) ProcessAllReminders(ctx context.Context) (model.ReminderRunStats, error) {
	var stats model.ReminderRunStats
	due, skipped, err := u.pending(ctx)
	if err != nil {
		return stats, err
	}
	stats.Skipped = skipped

	for _, r := range due {
		if u.limiter != nil {
			if err := u.limiter.Wait(ctx); err != nil {
				return stats, err
			}
		} else if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := u.SendPaymentReminder(ctx, r); err != nil {
			stats.Failed++
			u.logger.Warn("reminder send failed",
				slog.Int64("order_id", r.OrderID),
				slog.String("type", string(r.Type)),
				slog.String("error", err.Error()),
			)
			continue
		}
		stats.Sent++
	}

	u.logger.Info("reminder sweep finished",
		slog.Int("sent", stats.Sent),
		slog.Int("failed", stats.Failed),
		slog.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// PauseReminders excludes an order from reminders until resumed.
func (u *ReminderUseCase) PauseReminders(ctx context.Context, orderID int64, actor model.Actor) error {
	return u.setPaused(ctx, orderID, true, actor)
}

// ResumeReminders lifts a pause.
func (u *ReminderUseCase) ResumeReminders(ctx context.Context, orderID int64, actor model.Actor) error {
	return u.setPaused(ctx, orderID, false, actor)
}

func (u *ReminderUseCase) setPaused(ctx context.Context, orderID int64, paused bool, actor model.Actor) error {
	if err := authorize(actor, writerRoles...); err != nil {
		return err
	}
	if orderID <= 0 {
		return domainErrors.Validationf("order id must be positive")
	}
	if _, err := u.repos.Orders().GetByID(ctx, orderID); err != nil {
		return err
	}
	if err := u.repos.Reminders().SetPaused(ctx, orderID, paused, actor.ID); err != nil {
		return err
	}
	action := "reminders.resume"
	if paused {
		action = "reminders.pause"
	}
	u.audit.Record(ctx, actor, action, "order", orderID, nil)
	return nil
}

// RemindersPaused reports whether reminders are paused for an order.
func (u *ReminderUseCase) RemindersPaused(ctx context.Context, orderID int64) (bool, error) {
	return u.repos.Reminders().IsPaused(ctx, orderID)
}
