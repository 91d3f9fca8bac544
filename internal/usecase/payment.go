package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/domain/repository"
	"github.com/polkiloo/orderdesk/internal/tax"
)

// WebhookVerifier authenticates provider envelopes.
type WebhookVerifier interface {
	Verify(sig model.WebhookSignature) error
}

// ManualCompletionInput is an administrator's offline payment entry.
type ManualCompletionInput struct {
	OrderID          int64               `validate:"gt=0"`
	CompletionAmount int64               `validate:"min=1,max=5000000"`
	PaymentMethod    model.PaymentMethod `validate:"required,oneof=cash check wire other"`
	Notes            string              `validate:"max=2000"`
	SendEmail        bool
}

// ManualCompletionResult describes a committed manual completion.
type ManualCompletionResult struct {
	Success        bool
	OrderID        int64
	PreviousStatus model.OrderStatus
	NewStatus      model.OrderStatus
	Amount         int64
	InvoiceID      int64
	PaymentID      int64
	EmailSent      bool
}

// Webhook acknowledgement reasons. Internal failure details stay in logs.
const (
	reasonMissingEventID  = "missing event id"
	reasonUnsupported     = "unsupported event type"
	reasonMalformed       = "malformed payload"
	reasonDuplicateEvent  = "duplicate event"
	reasonDuplicatePay    = "payment already recorded"
	reasonUnknownPayment  = "unknown payment reference"
	reasonInvoiceNotFound = "invoice not found"
	reasonProcessing      = "processing failed"
)

const manualCompletionNote = "manual completion"

// PaymentUseCase reconciles provider events and manual completions.
type PaymentUseCase struct {
	uow      repository.UnitOfWork
	repos    repository.Factory
	verifier WebhookVerifier
	notifier Notifier
	audit    *Auditor
	clock    Clock
	logger   *slog.Logger
}

// NewPaymentUseCase constructs PaymentUseCase.
func NewPaymentUseCase(uow repository.UnitOfWork, repos repository.Factory, verifier WebhookVerifier, notifier Notifier, audit *Auditor, clock Clock, logger *slog.Logger) *PaymentUseCase {
	return &PaymentUseCase{uow: uow, repos: repos, verifier: verifier, notifier: notifier, audit: audit, clock: clock, logger: logger}
}

type receipt struct {
	order   model.Order
	invoice model.Invoice
	payment model.Payment
}

// HandleWebhook applies a provider event at most once. Only signature and
// replay rejections are returned as errors; every other outcome is an
// acknowledgement.
func (u *PaymentUseCase) HandleWebhook(ctx context.Context, env model.WebhookEnvelope) (model.WebhookResult, error) {
	if err := u.verifier.Verify(env.Signature); err != nil {
		u.logger.Warn("webhook rejected", slog.String("event_id", env.EventID), slog.String("error", err.Error()))
		return model.WebhookResult{}, err
	}

	result := model.WebhookResult{Received: true}
	log := u.logger.With(slog.String("event_id", env.EventID), slog.String("event_type", string(env.EventType)))

	if env.EventID == "" {
		result.Reason = reasonMissingEventID
		return result, nil
	}
	switch env.EventType {
	case model.EventCheckoutCompleted, model.EventPaymentSucceeded, model.EventPaymentFailed, model.EventChargeRefunded:
	default:
		log.Info("webhook event ignored")
		result.Reason = reasonUnsupported
		return result, nil
	}

	var payload model.WebhookPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		log.Warn("webhook payload malformed", slog.String("error", err.Error()))
		result.Reason = reasonMalformed
		return result, nil
	}

	var (
		reason  string
		sendFor *receipt
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		reason, sendFor = "", nil
		recorded, err := tx.WebhookEvents().Record(ctx, &model.WebhookEvent{
			EventID:   env.EventID,
			EventType: env.EventType,
			Outcome:   "applied",
		})
		if err != nil {
			return err
		}
		if !recorded {
			reason = reasonDuplicateEvent
			return nil
		}

		switch env.EventType {
		case model.EventCheckoutCompleted, model.EventPaymentSucceeded:
			sendFor, reason, err = u.settleFromWebhook(ctx, tx, env.EventID, payload)
		case model.EventPaymentFailed:
			reason, err = u.recordFailedPayment(ctx, tx, env.EventID, payload)
		case model.EventChargeRefunded:
			reason, err = u.recordRefund(ctx, tx, env.EventID, payload)
		}
		return err
	})
	if err != nil {
		if domainErrors.KindOf(err) == domainErrors.KindNotFound {
			log.Warn("webhook target not found", slog.String("error", err.Error()))
			result.Reason = reasonInvoiceNotFound
			return result, nil
		}
		log.Error("webhook processing failed", slog.String("error", err.Error()))
		result.Reason = reasonProcessing
		return result, nil
	}

	result.Processed = reason == ""
	result.Reason = reason
	if sendFor != nil {
		u.audit.Record(ctx, model.SystemActor, "payment.webhook", "invoice", sendFor.invoice.ID, map[string]any{
			"event_id":  env.EventID,
			"reference": sendFor.payment.ExternalReference,
		})
		if err := u.notifier.SendReceipt(ctx, sendFor.order, sendFor.invoice, sendFor.payment); err != nil {
			log.Warn("receipt email failed", slog.String("error", err.Error()))
		}
	}
	log.Info("webhook handled", slog.Bool("processed", result.Processed), slog.String("reason", result.Reason))
	return result, nil
}

func paymentReference(eventID string, p model.WebhookPayload) string {
	if p.PaymentReference != "" {
		return p.PaymentReference
	}
	return eventID
}

// resolveInvoice finds the invoice by reference or order id and locks its order.
func resolveInvoice(ctx context.Context, tx repository.Tx, p model.WebhookPayload) (*model.Order, *model.Invoice, error) {
	orderID := p.OrderID
	if p.InvoiceReference != "" {
		inv, err := tx.Invoices().GetByExternalReference(ctx, p.InvoiceReference)
		if err != nil {
			return nil, nil, err
		}
		orderID = inv.OrderID
	}
	if orderID <= 0 {
		return nil, nil, domainErrors.NotFoundf("event carries no invoice reference or order id")
	}
	order, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	// Reload under the order lock so the status is current.
	inv, err := tx.Invoices().GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if p.InvoiceReference != "" && inv.ExternalReference != p.InvoiceReference {
		return nil, nil, domainErrors.NotFoundf("invoice %q does not belong to order %d", p.InvoiceReference, orderID)
	}
	return order, inv, nil
}

func (u *PaymentUseCase) settleFromWebhook(ctx context.Context, tx repository.Tx, eventID string, p model.WebhookPayload) (*receipt, string, error) {
	order, inv, err := resolveInvoice(ctx, tx, p)
	if err != nil {
		return nil, "", err
	}
	amount := p.Amount
	if amount <= 0 {
		amount = inv.Amount
	}
	if amount != inv.Amount {
		u.logger.Warn("webhook amount differs from invoice",
			slog.Int64("invoice_id", inv.ID),
			slog.Int64("invoice_amount", inv.Amount),
			slog.Int64("paid_amount", amount),
		)
	}

	now := u.clock.Now()
	payment := model.Payment{
		InvoiceID:         inv.ID,
		ExternalReference: paymentReference(eventID, p),
		Amount:            amount,
		Status:            model.PaymentStatusSucceeded,
		Method:            model.PaymentMethodCard,
		Source:            model.PaymentSourceWebhook,
		PaidAt:            now,
	}
	inserted, err := tx.Payments().Insert(ctx, &payment)
	if err != nil {
		return nil, "", err
	}
	if !inserted {
		return nil, reasonDuplicatePay, nil
	}
	if err := settle(ctx, tx, order, inv, now, model.SystemActor, "payment "+payment.ExternalReference, u.clock); err != nil {
		return nil, "", err
	}
	return &receipt{order: *order, invoice: *inv, payment: payment}, "", nil
}

func (u *PaymentUseCase) recordFailedPayment(ctx context.Context, tx repository.Tx, eventID string, p model.WebhookPayload) (string, error) {
	_, inv, err := resolveInvoice(ctx, tx, p)
	if err != nil {
		return "", err
	}
	payment := model.Payment{
		InvoiceID:         inv.ID,
		ExternalReference: paymentReference(eventID, p),
		Amount:            p.Amount,
		Status:            model.PaymentStatusFailed,
		Method:            model.PaymentMethodCard,
		Source:            model.PaymentSourceWebhook,
		Notes:             p.FailureMessage,
		PaidAt:            u.clock.Now(),
	}
	inserted, err := tx.Payments().Insert(ctx, &payment)
	if err != nil {
		return "", err
	}
	if !inserted {
		return reasonDuplicatePay, nil
	}
	return "", nil
}

func (u *PaymentUseCase) recordRefund(ctx context.Context, tx repository.Tx, eventID string, p model.WebhookPayload) (string, error) {
	found, err := tx.Payments().UpdateStatusByReference(ctx, paymentReference(eventID, p), model.PaymentStatusRefunded)
	if err != nil {
		return "", err
	}
	if !found {
		return reasonUnknownPayment, nil
	}
	return "", nil
}

// ManualComplete records an offline payment and walks the order to
// completed in one transaction. Requires the admin role.
func (u *PaymentUseCase) ManualComplete(ctx context.Context, in ManualCompletionInput, actor model.Actor) (*ManualCompletionResult, error) {
	if err := authorize(actor, adminRoles...); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var (
		result *ManualCompletionResult
		rcpt   receipt
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		done, err := tx.Payments().HasManualForOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if done {
			return domainErrors.Wrapf(domainErrors.ErrDuplicateCompletion, "order %d", order.ID)
		}
		switch order.Status {
		case model.OrderStatusCompleted, model.OrderStatusDelivered, model.OrderStatusCancelled:
			return domainErrors.Wrapf(domainErrors.ErrInvalidTransition, "order %d is already %s", order.ID, order.Status)
		}
		previous := order.Status

		inv, err := u.manualInvoice(ctx, tx, order, in.CompletionAmount)
		if err != nil {
			return err
		}

		now := u.clock.Now()
		payment := model.Payment{
			InvoiceID:         inv.ID,
			ExternalReference: "manual-" + uuid.NewString(),
			Amount:            in.CompletionAmount,
			Status:            model.PaymentStatusSucceeded,
			Method:            in.PaymentMethod,
			Source:            model.PaymentSourceManual,
			Notes:             in.Notes,
			PaidAt:            now,
		}
		if _, err := tx.Payments().Insert(ctx, &payment); err != nil {
			return err
		}
		if inv.Status != model.InvoiceStatusPaid {
			if err := tx.Invoices().UpdateStatus(ctx, inv.ID, model.InvoiceStatusPaid, now); err != nil {
				return err
			}
			inv.Status = model.InvoiceStatusPaid
			inv.PaidAt = &now
		}

		notes := manualCompletionNote
		if in.Notes != "" {
			notes += ": " + in.Notes
		}
		if err := walkTo(ctx, tx, order, model.OrderStatusCompleted, actor, notes, u.clock); err != nil {
			return err
		}

		result = &ManualCompletionResult{
			Success:        true,
			OrderID:        order.ID,
			PreviousStatus: previous,
			NewStatus:      order.Status,
			Amount:         in.CompletionAmount,
			InvoiceID:      inv.ID,
			PaymentID:      payment.ID,
		}
		rcpt = receipt{order: *order, invoice: *inv, payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.audit.Record(ctx, actor, "order.manual_complete", "order", result.OrderID, map[string]any{
		"amount":     result.Amount,
		"method":     string(in.PaymentMethod),
		"payment_id": result.PaymentID,
		"from":       string(result.PreviousStatus),
	})

	if in.SendEmail {
		if err := u.notifier.SendReceipt(ctx, rcpt.order, rcpt.invoice, rcpt.payment); err != nil {
			u.logger.Warn("manual completion email failed", slog.Int64("order_id", result.OrderID), slog.String("error", err.Error()))
		} else {
			result.EmailSent = true
		}
	}
	return result, nil
}

// manualInvoice reuses the order invoice or issues a manual one whose
// subtotal is derived from the completion amount by reverse tax.
func (u *PaymentUseCase) manualInvoice(ctx context.Context, tx repository.Tx, order *model.Order, amount int64) (*model.Invoice, error) {
	inv, err := tx.Invoices().GetByOrderID(ctx, order.ID)
	if err == nil {
		if inv.Status == model.InvoiceStatusCancelled {
			return nil, domainErrors.Validationf("invoice %s is cancelled", inv.Number)
		}
		return inv, nil
	}
	if domainErrors.KindOf(err) != domainErrors.KindNotFound {
		return nil, err
	}

	engine, err := loadTaxEngine(ctx, tx.Settings())
	if err != nil {
		return nil, err
	}
	b, err := engine.CalculateTaxFromTotal(amount, order.Jurisdiction)
	if err != nil {
		return nil, err
	}
	b = fitTotal(b, amount)
	settings, err := loadInvoiceSettings(ctx, tx.Settings())
	if err != nil {
		return nil, err
	}
	items := []model.LineItem{{Description: manualCompletionNote + ": " + order.PackageName, Amount: b.Subtotal}}
	inv, err = insertInvoice(ctx, tx, u.clock, order, settings.NumberPrefix, 0, model.InvoiceSourceManual, items, b)
	if err != nil {
		return nil, err
	}
	if err := tx.Orders().UpdateTotals(ctx, order.ID, b.TotalTax, b.Total); err != nil {
		return nil, err
	}
	return inv, nil
}

// fitTotal absorbs the reverse calculation rounding into the subtotal so the
// breakdown totals exactly amount while tax components stay unchanged.
func fitTotal(b tax.Breakdown, amount int64) tax.Breakdown {
	b.Subtotal = amount - b.TotalTax
	b.Total = amount
	return b
}
