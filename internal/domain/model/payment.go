package model

import (
	"encoding/json"
	"time"
)

// PaymentStatus describes payment outcome.
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentMethod describes how money was received.
type PaymentMethod string

const (
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodCheck PaymentMethod = "check"
	PaymentMethodWire  PaymentMethod = "wire"
	PaymentMethodOther PaymentMethod = "other"
)

// PaymentSource tells which path recorded the payment.
type PaymentSource string

const (
	PaymentSourceWebhook PaymentSource = "webhook"
	PaymentSourceManual  PaymentSource = "manual"
	PaymentSourceAdmin   PaymentSource = "admin"
)

// Payment is a money movement against an invoice. ExternalReference is globally unique.
type Payment struct {
	ID                int64
	InvoiceID         int64
	ExternalReference string
	Amount            int64
	Status            PaymentStatus
	Method            PaymentMethod
	Source            PaymentSource
	Notes             string
	PaidAt            time.Time
	CreatedAt         time.Time
}

// WebhookEventType enumerates provider event kinds the reconciler understands.
type WebhookEventType string

const (
	EventCheckoutCompleted WebhookEventType = "checkout.session.completed"
	EventPaymentSucceeded  WebhookEventType = "payment_intent.succeeded"
	EventPaymentFailed     WebhookEventType = "payment_intent.payment_failed"
	EventChargeRefunded    WebhookEventType = "charge.refunded"
)

// WebhookSignature carries provider signing material.
type WebhookSignature struct {
	Timestamp string `json:"timestamp"`
	Token     string `json:"token"`
	Signature string `json:"signature"`
}

// WebhookEnvelope is the signed notification delivered by the payment provider.
type WebhookEnvelope struct {
	Signature WebhookSignature `json:"signature"`
	EventType WebhookEventType `json:"event_type"`
	EventID   string           `json:"event_id"`
	Payload   json.RawMessage  `json:"payload"`
}

// WebhookPayload is the event body relevant for reconciliation.
type WebhookPayload struct {
	OrderID          int64  `json:"order_id"`
	InvoiceReference string `json:"invoice_reference"`
	PaymentReference string `json:"payment_reference"`
	Amount           int64  `json:"amount"`
	FailureMessage   string `json:"failure_message"`
}

// WebhookEvent is the dedupe ledger row for processed provider events.
type WebhookEvent struct {
	EventID     string
	EventType   WebhookEventType
	Outcome     string
	ProcessedAt time.Time
}

// WebhookResult is the acknowledgement returned to the provider.
type WebhookResult struct {
	Received  bool
	Processed bool
	Reason    string
}
