package model

import "time"

// InvoiceStatus describes invoice state.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Unpaid reports whether the invoice still awaits payment.
func (s InvoiceStatus) Unpaid() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusSent
}

// InvoiceSource tells how the invoice came to exist.
type InvoiceSource string

const (
	InvoiceSourceStandard InvoiceSource = "standard"
	InvoiceSourceManual   InvoiceSource = "manual"
)

// LineItem is a frozen invoice line.
type LineItem struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// TaxSnapshot is the tax breakdown frozen on the invoice at creation.
type TaxSnapshot struct {
	Jurisdiction string `json:"jurisdiction"`
	Primary      int64  `json:"primary"`
	Secondary    int64  `json:"secondary"`
	Combined     int64  `json:"combined"`
	TotalTax     int64  `json:"total_tax"`
}

// Invoice is the billing document for an order. Amount never changes after creation.
type Invoice struct {
	ID                int64
	OrderID           int64
	Number            string
	ExternalReference string
	Status            InvoiceStatus
	Source            InvoiceSource
	Amount            int64
	Subtotal          int64
	Tax               TaxSnapshot
	LineItems         []LineItem
	IssueDate         time.Time
	DueDate           time.Time
	PaymentTermsDays  int
	SentAt            *time.Time
	PaidAt            *time.Time
	CreatedAt         time.Time
}

// AgingBucket aggregates unpaid invoices of similar age.
type AgingBucket struct {
	Label  string
	Count  int
	Amount int64
}

// AgingSummary partitions every unpaid invoice into exactly one bucket.
type AgingSummary struct {
	Buckets     []AgingBucket
	TotalCount  int
	TotalAmount int64
	AsOf        time.Time
}
