package handlers

import (
	"context"

	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/tax"
	"github.com/polkiloo/orderdesk/internal/usecase"
)

// AuthFacade covers login and staff account management.
type AuthFacade interface {
	Authenticate(ctx context.Context, login, password string) (model.Actor, string, error)
	ParseToken(token string) (model.Actor, error)
	CreateUser(ctx context.Context, login, password string, role model.Role, actor model.Actor) (*model.StaffUser, error)
}

// OrderFacade covers order lifecycle endpoints.
type OrderFacade interface {
	CreateOrder(ctx context.Context, in usecase.NewOrderInput, actor model.Actor) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	OrderHistory(ctx context.Context, id int64) ([]model.StatusHistoryEntry, error)
	OrderTransitions(ctx context.Context, id int64) (usecase.AllowedTransitionsResult, error)
	StatusTransitions(raw string) (usecase.AllowedTransitionsResult, error)
	Transition(ctx context.Context, id int64, target model.OrderStatus, actor model.Actor, notes string) (*usecase.TransitionResult, error)
	BulkTransition(ctx context.Context, ids []int64, target model.OrderStatus, actor model.Actor, notes string) (*usecase.BulkResult, error)
}

// InvoiceFacade covers invoicing and payment recording.
type InvoiceFacade interface {
	CreateInvoice(ctx context.Context, orderID int64, opts usecase.InvoiceOptions, actor model.Actor) (*model.Invoice, bool, error)
	GetInvoice(ctx context.Context, orderID int64) (*model.Invoice, error)
	InvoicePayments(ctx context.Context, orderID int64) ([]model.Payment, error)
	MarkPaid(ctx context.Context, orderID int64, details usecase.PaymentDetails, actor model.Actor) (*model.Invoice, error)
	Aging(ctx context.Context) (*model.AgingSummary, error)
	ManualComplete(ctx context.Context, in usecase.ManualCompletionInput, actor model.Actor) (*usecase.ManualCompletionResult, error)
}

// ReminderFacade covers reminder scheduling controls.
type ReminderFacade interface {
	PauseReminders(ctx context.Context, orderID int64, actor model.Actor) error
	ResumeReminders(ctx context.Context, orderID int64, actor model.Actor) error
	PendingReminders(ctx context.Context) ([]model.Reminder, error)
	ProcessReminders(ctx context.Context, actor model.Actor) (model.ReminderRunStats, error)
}

// SettingsFacade covers runtime configuration and tax previews.
type SettingsFacade interface {
	TaxSettings(ctx context.Context) (model.TaxSettings, error)
	SaveTaxSettings(ctx context.Context, s model.TaxSettings, actor model.Actor) (model.TaxSettings, error)
	InvoiceSettings(ctx context.Context) (model.InvoiceSettings, error)
	SaveInvoiceSettings(ctx context.Context, s model.InvoiceSettings, actor model.Actor) (model.InvoiceSettings, error)
	ReminderSettings(ctx context.Context) (model.ReminderSettings, error)
	SaveReminderSettings(ctx context.Context, s model.ReminderSettings, actor model.Actor) (model.ReminderSettings, error)
	CalculateTax(ctx context.Context, subtotal int64, jurisdiction string) (tax.Breakdown, error)
	ReverseTax(ctx context.Context, total int64, jurisdiction string) (tax.Breakdown, error)
}

// WebhookFacade accepts payment provider events.
type WebhookFacade interface {
	HandleWebhook(ctx context.Context, env model.WebhookEnvelope) (model.WebhookResult, error)
}

// OrderDeskFacade aggregates every dependency required by router.
type OrderDeskFacade interface {
	AuthFacade
	OrderFacade
	InvoiceFacade
	ReminderFacade
	SettingsFacade
	WebhookFacade
}
