package test

import (
	"context"
	"errors"
	"strings"

	"github.com/polkiloo/orderdesk/internal/domain/model"
	pkgAuth "github.com/polkiloo/orderdesk/internal/pkg/auth"
)

// HasherStub provides deterministic hashing for tests.
type HasherStub struct {
	HashFn    func(string) (string, error)
	CompareFn func(string, string) error
}

// Hash returns a predictable hash for the supplied password.
func (h HasherStub) Hash(password string) (string, error) {
	if h.HashFn != nil {
		return h.HashFn(password)
	}
	return "hash:" + password, nil
}

// Compare validates password against stored hash.
func (h HasherStub) Compare(hash string, password string) error {
	if h.CompareFn != nil {
		return h.CompareFn(hash, password)
	}
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

// StrategyStub issues and parses tokens of the form "token:<role>:<id>".
type StrategyStub struct {
	IssueFn func(model.Actor) (string, error)
	ParseFn func(string) (model.Actor, error)
	NameVal string
}

// IssueToken returns deterministic tokens for tests.
func (s StrategyStub) IssueToken(actor model.Actor) (string, error) {
	if s.IssueFn != nil {
		return s.IssueFn(actor)
	}
	return "token:" + string(actor.Role) + ":" + actor.ID, nil
}

// ParseToken parses previously issued token strings.
func (s StrategyStub) ParseToken(token string) (model.Actor, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return ParseStubToken(token)
}

// Name returns the strategy identifier used in tests.
func (s StrategyStub) Name() string {
	if s.NameVal != "" {
		return s.NameVal
	}
	return "stub"
}

// ParseStubToken decodes tokens produced by StrategyStub.
func ParseStubToken(token string) (model.Actor, error) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || parts[0] != "token" || parts[2] == "" {
		return model.Actor{}, pkgAuth.ErrInvalidToken
	}
	return model.Actor{ID: parts[2], Role: model.Role(parts[1])}, nil
}

// TokenParserStub implements middleware token parsing contract.
type TokenParserStub struct {
	Actor   model.Actor
	Err     error
	ParseFn func(string) (model.Actor, error)
}

// ParseToken either delegates to override or returns predefined result.
func (s TokenParserStub) ParseToken(token string) (model.Actor, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	if s.Err != nil {
		return model.Actor{}, s.Err
	}
	return s.Actor, nil
}

// NotifierStub records sent emails and fails on demand.
type NotifierStub struct {
	InvoiceErr  error
	ReceiptErr  error
	ReminderErr func(model.Reminder) error
	// OnInvoice runs while the invoice email is being sent.
	OnInvoice func(model.Invoice)

	Invoices  []model.Invoice
	Receipts  []model.Payment
	Reminders []model.Reminder
}

// SendInvoice records the invoice email.
func (n *NotifierStub) SendInvoice(ctx context.Context, order model.Order, invoice model.Invoice) error {
	if n.InvoiceErr != nil {
		return n.InvoiceErr
	}
	if n.OnInvoice != nil {
		n.OnInvoice(invoice)
	}
	n.Invoices = append(n.Invoices, invoice)
	return nil
}

// SendReceipt records the payment receipt.
func (n *NotifierStub) SendReceipt(ctx context.Context, order model.Order, invoice model.Invoice, payment model.Payment) error {
	if n.ReceiptErr != nil {
		return n.ReceiptErr
	}
	n.Receipts = append(n.Receipts, payment)
	return nil
}

// SendReminder records the reminder.
func (n *NotifierStub) SendReminder(ctx context.Context, reminder model.Reminder) error {
	if n.ReminderErr != nil {
		if err := n.ReminderErr(reminder); err != nil {
			return err
		}
	}
	n.Reminders = append(n.Reminders, reminder)
	return nil
}

// VerifierStub accepts or rejects every webhook signature.
type VerifierStub struct {
	Err error
}

// Verify returns the configured error.
func (v VerifierStub) Verify(model.WebhookSignature) error {
	return v.Err
}

var _ pkgAuth.PasswordHasher = HasherStub{}
var _ pkgAuth.Strategy = StrategyStub{}
