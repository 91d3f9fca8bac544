package usecase

import (
	"context"

	"github.com/polkiloo/orderdesk/internal/domain/model"
)

// Notifier delivers customer emails. Calls happen after the owning
// transaction commits; a failed send never rolls state back.
type Notifier interface {
	SendInvoice(ctx context.Context, order model.Order, invoice model.Invoice) error
	SendReceipt(ctx context.Context, order model.Order, invoice model.Invoice, payment model.Payment) error
	SendReminder(ctx context.Context, reminder model.Reminder) error
}
