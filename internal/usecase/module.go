package usecase

import (
	"log/slog"
	"time"

	"go.uber.org/fx"
	"golang.org/x/time/rate"

	"github.com/polkiloo/orderdesk/internal/config"
	"github.com/polkiloo/orderdesk/internal/domain/repository"
	pkgAuth "github.com/polkiloo/orderdesk/internal/pkg/auth"
)

// Module provides core business use cases to the fx container.
var Module = fx.Options(
	fx.Provide(
		newClock,
		NewAuditor,
		NewAuthUseCase,
		NewSettingsUseCase,
		NewOrderUseCase,
		NewInvoiceUseCase,
		newReminderUseCase,
		newPaymentUseCase,
	),
)

func newClock(loc *time.Location) Clock {
	return NewClock(loc)
}

type reminderParams struct {
	fx.In

	Repos    repository.Factory
	Notifier Notifier
	Audit    *Auditor
	Clock    Clock
	Config   *config.Config
	Logger   *slog.Logger
}

func newReminderUseCase(p reminderParams) *ReminderUseCase {
	var limiter *rate.Limiter
	if p.Config.ReminderRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.Config.ReminderRate), 1)
	}
	return NewReminderUseCase(p.Repos, p.Notifier, p.Audit, p.Clock, limiter, p.Logger)
}

type paymentParams struct {
	fx.In

	UoW      repository.UnitOfWork
	Repos    repository.Factory
	Verifier *pkgAuth.WebhookVerifier
	Notifier Notifier
	Audit    *Auditor
	Clock    Clock
	Logger   *slog.Logger
}

func newPaymentUseCase(p paymentParams) *PaymentUseCase {
	return NewPaymentUseCase(p.UoW, p.Repos, p.Verifier, p.Notifier, p.Audit, p.Clock, p.Logger)
}
