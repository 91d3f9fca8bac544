package app

import (
	"context"
	"errors"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/tax"
	"github.com/polkiloo/orderdesk/internal/usecase"
	"github.com/polkiloo/orderdesk/internal/worker"
)

// ReminderSweep runs a serialized reminder sweep.
type ReminderSweep interface {
	RunOnce(ctx context.Context) (model.ReminderRunStats, error)
}

// OrderDesk is the single entry point the transport layer talks to.
type OrderDesk struct {
	auth      *usecase.AuthUseCase
	orders    *usecase.OrderUseCase
	invoices  *usecase.InvoiceUseCase
	reminders *usecase.ReminderUseCase
	payments  *usecase.PaymentUseCase
	settings  *usecase.SettingsUseCase
	sweep     ReminderSweep
}

// NewOrderDesk constructs OrderDesk.
func NewOrderDesk(
	auth *usecase.AuthUseCase,
	orders *usecase.OrderUseCase,
	invoices *usecase.InvoiceUseCase,
	reminders *usecase.ReminderUseCase,
	payments *usecase.PaymentUseCase,
	settings *usecase.SettingsUseCase,
	sweep ReminderSweep,
) *OrderDesk {
	return &OrderDesk{
		auth:      auth,
		orders:    orders,
		invoices:  invoices,
		reminders: reminders,
		payments:  payments,
		settings:  settings,
		sweep:     sweep,
	}
}

func (f *OrderDesk) Authenticate(ctx context.Context, login, password string) (model.Actor, string, error) {
	return f.auth.Authenticate(ctx, login, password)
}

func (f *OrderDesk) ParseToken(token string) (model.Actor, error) {
	return f.auth.ParseToken(token)
}

func (f *OrderDesk) CreateUser(ctx context.Context, login, password string, role model.Role, actor model.Actor) (*model.StaffUser, error) {
	return f.auth.CreateUser(ctx, login, password, role, actor)
}

func (f *OrderDesk) CreateOrder(ctx context.Context, in usecase.NewOrderInput, actor model.Actor) (*model.Order, error) {
	return f.orders.CreateOrder(ctx, in, actor)
}

func (f *OrderDesk) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return f.orders.GetOrder(ctx, id)
}

func (f *OrderDesk) OrderHistory(ctx context.Context, id int64) ([]model.StatusHistoryEntry, error) {
	return f.orders.History(ctx, id)
}

func (f *OrderDesk) OrderTransitions(ctx context.Context, id int64) (usecase.AllowedTransitionsResult, error) {
	return f.orders.OrderTransitions(ctx, id)
}

// StatusTransitions lists the targets of a raw status string.
func (f *OrderDesk) StatusTransitions(raw string) (usecase.AllowedTransitionsResult, error) {
	status, err := usecase.ParseOrderStatus(raw)
	if err != nil {
		return usecase.AllowedTransitionsResult{}, err
	}
	return f.orders.AllowedTransitions(status)
}

func (f *OrderDesk) Transition(ctx context.Context, id int64, target model.OrderStatus, actor model.Actor, notes string) (*usecase.TransitionResult, error) {
	return f.orders.AttemptTransition(ctx, id, target, actor, notes)
}

func (f *OrderDesk) BulkTransition(ctx context.Context, ids []int64, target model.OrderStatus, actor model.Actor, notes string) (*usecase.BulkResult, error) {
	return f.orders.BulkTransition(ctx, ids, target, actor, notes)
}

func (f *OrderDesk) CreateInvoice(ctx context.Context, orderID int64, opts usecase.InvoiceOptions, actor model.Actor) (*model.Invoice, bool, error) {
	return f.invoices.CreateInvoiceFromOrder(ctx, orderID, opts, actor)
}

func (f *OrderDesk) GetInvoice(ctx context.Context, orderID int64) (*model.Invoice, error) {
	return f.invoices.GetInvoice(ctx, orderID)
}

func (f *OrderDesk) InvoicePayments(ctx context.Context, orderID int64) ([]model.Payment, error) {
	return f.invoices.Payments(ctx, orderID)
}

func (f *OrderDesk) MarkPaid(ctx context.Context, orderID int64, details usecase.PaymentDetails, actor model.Actor) (*model.Invoice, error) {
	return f.invoices.MarkInvoiceAsPaid(ctx, orderID, details, actor)
}

func (f *OrderDesk) Aging(ctx context.Context) (*model.AgingSummary, error) {
	return f.invoices.AgingSummary(ctx)
}

func (f *OrderDesk) ManualComplete(ctx context.Context, in usecase.ManualCompletionInput, actor model.Actor) (*usecase.ManualCompletionResult, error) {
	return f.payments.ManualComplete(ctx, in, actor)
}

func (f *OrderDesk) HandleWebhook(ctx context.Context, env model.WebhookEnvelope) (model.WebhookResult, error) {
	return f.payments.HandleWebhook(ctx, env)
}

func (f *OrderDesk) PauseReminders(ctx context.Context, orderID int64, actor model.Actor) error {
	return f.reminders.PauseReminders(ctx, orderID, actor)
}

func (f *OrderDesk) ResumeReminders(ctx context.Context, orderID int64, actor model.Actor) error {
	return f.reminders.ResumeReminders(ctx, orderID, actor)
}

func (f *OrderDesk) PendingReminders(ctx context.Context) ([]model.Reminder, error) {
	return f.reminders.PendingReminders(ctx)
}

// ProcessReminders runs a sweep on demand under the same lock as the
// scheduled sweeper.
func (f *OrderDesk) ProcessReminders(ctx context.Context, actor model.Actor) (model.ReminderRunStats, error) {
	if err := usecase.RequireWriter(actor); err != nil {
		return model.ReminderRunStats{}, err
	}
	stats, err := f.sweep.RunOnce(ctx)
	if errors.Is(err, worker.ErrSweepInProgress) {
		return stats, domainErrors.Conflictf("reminder sweep already in progress")
	}
	return stats, err
}

func (f *OrderDesk) TaxSettings(ctx context.Context) (model.TaxSettings, error) {
	return f.settings.Tax(ctx)
}

func (f *OrderDesk) SaveTaxSettings(ctx context.Context, s model.TaxSettings, actor model.Actor) (model.TaxSettings, error) {
	return f.settings.SaveTax(ctx, s, actor)
}

func (f *OrderDesk) InvoiceSettings(ctx context.Context) (model.InvoiceSettings, error) {
	return f.settings.Invoice(ctx)
}

func (f *OrderDesk) SaveInvoiceSettings(ctx context.Context, s model.InvoiceSettings, actor model.Actor) (model.InvoiceSettings, error) {
	return f.settings.SaveInvoice(ctx, s, actor)
}

func (f *OrderDesk) ReminderSettings(ctx context.Context) (model.ReminderSettings, error) {
	return f.settings.Reminder(ctx)
}

func (f *OrderDesk) SaveReminderSettings(ctx context.Context, s model.ReminderSettings, actor model.Actor) (model.ReminderSettings, error) {
	return f.settings.SaveReminder(ctx, s, actor)
}

// CalculateTax runs a forward calculation with the effective rates.
func (f *OrderDesk) CalculateTax(ctx context.Context, subtotal int64, jurisdiction string) (tax.Breakdown, error) {
	engine, err := f.settings.TaxEngine(ctx)
	if err != nil {
		return tax.Breakdown{}, err
	}
	return engine.CalculateTax(subtotal, jurisdiction)
}

// ReverseTax derives a breakdown from a tax-inclusive total.
func (f *OrderDesk) ReverseTax(ctx context.Context, total int64, jurisdiction string) (tax.Breakdown, error) {
	engine, err := f.settings.TaxEngine(ctx)
	if err != nil {
		return tax.Breakdown{}, err
	}
	return engine.CalculateTaxFromTotal(total, jurisdiction)
}
