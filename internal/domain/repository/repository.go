// Package repository declares persistence contracts consumed by use cases.
package repository

import (
	"context"
	"time"

	"github.com/polkiloo/orderdesk/internal/domain/model"
)

// UnitOfWork runs fn inside a single transaction. Every write made through tx
// is committed together or rolled back when fn returns an error.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx gives access to repositories bound to one transaction.
type Tx interface {
	Orders() OrderRepository
	History() HistoryRepository
	Invoices() InvoiceRepository
	Payments() PaymentRepository
	Reminders() ReminderRepository
	Settings() SettingsRepository
	WebhookEvents() WebhookEventRepository
}

// Factory describes access to repositories outside of an explicit transaction.
type Factory interface {
	Tx
	Users() UserRepository
	Audit() AuditRepository
}

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	// GetForUpdate loads the order and holds a row lock until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error
	UpdateTotals(ctx context.Context, id int64, taxAmount, totalAmount int64) error
}

// HistoryRepository stores the append-only status trail.
type HistoryRepository interface {
	Append(ctx context.Context, entry *model.StatusHistoryEntry) error
	ListByOrder(ctx context.Context, orderID int64) ([]model.StatusHistoryEntry, error)
}

// InvoiceRepository stores invoices. At most one invoice exists per order.
type InvoiceRepository interface {
	// Create inserts the invoice unless the order already has one. The second
	// return value is false when the insert was skipped.
	Create(ctx context.Context, invoice *model.Invoice) (bool, error)
	GetByOrderID(ctx context.Context, orderID int64) (*model.Invoice, error)
	GetByExternalReference(ctx context.Context, reference string) (*model.Invoice, error)
	UpdateStatus(ctx context.Context, id int64, status model.InvoiceStatus, at time.Time) error
	// MarkSent moves a draft invoice to sent. It reports false and changes
	// nothing when the invoice has already left draft.
	MarkSent(ctx context.Context, id int64, at time.Time) (bool, error)
	ListUnpaid(ctx context.Context) ([]model.Invoice, error)
	NextNumber(ctx context.Context) (int64, error)
}

// PaymentRepository stores payments keyed by a globally unique external reference.
type PaymentRepository interface {
	// Insert returns false when a payment with the same reference already exists.
	Insert(ctx context.Context, payment *model.Payment) (bool, error)
	UpdateStatusByReference(ctx context.Context, reference string, status model.PaymentStatus) (bool, error)
	HasManualForOrder(ctx context.Context, orderID int64) (bool, error)
	ListByInvoice(ctx context.Context, invoiceID int64) ([]model.Payment, error)
}

// ReminderRepository stores reminder logs and pause flags.
type ReminderRepository interface {
	// ListCandidates returns unpaid invoices with successful send counts and pause flags.
	ListCandidates(ctx context.Context) ([]model.ReminderCandidate, error)
	LogAttempt(ctx context.Context, entry *model.ReminderLog) error
	SetPaused(ctx context.Context, orderID int64, paused bool, actorID string) error
	IsPaused(ctx context.Context, orderID int64) (bool, error)
}

// SettingsRepository reads and writes typed configuration aggregates. Getters
// return nil without error when nothing is stored.
type SettingsRepository interface {
	GetTax(ctx context.Context) (*model.TaxSettings, error)
	SaveTax(ctx context.Context, settings model.TaxSettings) error
	GetInvoice(ctx context.Context) (*model.InvoiceSettings, error)
	SaveInvoice(ctx context.Context, settings model.InvoiceSettings) error
	GetReminder(ctx context.Context) (*model.ReminderSettings, error)
	SaveReminder(ctx context.Context, settings model.ReminderSettings) error
}

// WebhookEventRepository is the dedupe ledger of provider events.
type WebhookEventRepository interface {
	// Record returns false when the event id was already recorded.
	Record(ctx context.Context, event *model.WebhookEvent) (bool, error)
}

// UserRepository describes persistence operations for staff users.
type UserRepository interface {
	Create(ctx context.Context, login, passwordHash string, role model.Role) (*model.StaffUser, error)
	GetByLogin(ctx context.Context, login string) (*model.StaffUser, error)
}

// AuditRepository is the append-only audit sink.
type AuditRepository interface {
	Append(ctx context.Context, entry model.AuditEntry) error
}
