package dto

import "time"

// CreateInvoiceRequest overrides invoice defaults. The body is optional.
type CreateInvoiceRequest struct {
	SendEmail        *bool `json:"send_email"`
	PaymentTermsDays *int  `json:"payment_terms_days"`
}

// LineItem is a frozen invoice line.
type LineItem struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// TaxSnapshot is the frozen tax breakdown of an invoice.
type TaxSnapshot struct {
	Jurisdiction string `json:"jurisdiction"`
	Primary      int64  `json:"primary"`
	Secondary    int64  `json:"secondary"`
	Combined     int64  `json:"combined"`
	TotalTax     int64  `json:"total_tax"`
}

// InvoiceResponse describes an invoice.
type InvoiceResponse struct {
	ID                int64       `json:"id"`
	OrderID           int64       `json:"order_id"`
	Number            string      `json:"number"`
	ExternalReference string      `json:"external_reference"`
	Status            string      `json:"status"`
	Source            string      `json:"source"`
	Amount            int64       `json:"amount"`
	Subtotal          int64       `json:"subtotal"`
	Tax               TaxSnapshot `json:"tax"`
	LineItems         []LineItem  `json:"line_items"`
	IssueDate         string      `json:"issue_date"`
	DueDate           string      `json:"due_date"`
	PaymentTermsDays  int         `json:"payment_terms_days"`
	SentAt            *time.Time  `json:"sent_at,omitempty"`
	PaidAt            *time.Time  `json:"paid_at,omitempty"`
	Created           bool        `json:"created,omitempty"`
}

// PaymentResponse describes a payment.
type PaymentResponse struct {
	ID                int64     `json:"id"`
	ExternalReference string    `json:"external_reference"`
	Amount            int64     `json:"amount"`
	Status            string    `json:"status"`
	Method            string    `json:"method"`
	Source            string    `json:"source"`
	Notes             string    `json:"notes,omitempty"`
	PaidAt            time.Time `json:"paid_at"`
}

// MarkPaidRequest records a payment received by staff.
type MarkPaidRequest struct {
	TransactionID string     `json:"transaction_id"`
	Amount        int64      `json:"amount"`
	Method        string     `json:"method"`
	PaidAt        *time.Time `json:"paid_at"`
	Notes         string     `json:"notes"`
}

// ManualCompleteRequest records an offline payment and completes the order.
type ManualCompleteRequest struct {
	CompletionAmount int64  `json:"completion_amount"`
	PaymentMethod    string `json:"payment_method"`
	Notes            string `json:"notes"`
	SendEmail        bool   `json:"send_email"`
}

// ManualCompleteResponse describes a committed manual completion.
type ManualCompleteResponse struct {
	Success        bool   `json:"success"`
	OrderID        int64  `json:"order_id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	Amount         int64  `json:"amount"`
	InvoiceID      int64  `json:"invoice_id"`
	PaymentID      int64  `json:"payment_id"`
	EmailSent      bool   `json:"email_sent"`
}

// AgingBucket aggregates unpaid invoices of similar age.
type AgingBucket struct {
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Amount int64  `json:"amount"`
}

// AgingResponse is the accounts receivable summary.
type AgingResponse struct {
	Buckets     []AgingBucket `json:"buckets"`
	TotalCount  int           `json:"total_count"`
	TotalAmount int64         `json:"total_amount"`
	AsOf        string        `json:"as_of"`
}
