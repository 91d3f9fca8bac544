package dto

// ReminderResponse describes a reminder due today.
type ReminderResponse struct {
	OrderID       int64  `json:"order_id"`
	InvoiceID     int64  `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Amount        int64  `json:"amount"`
	DueDate       string `json:"due_date"`
	DaysUntilDue  int    `json:"days_until_due"`
	Type          string `json:"type"`
}

// ReminderRunResponse summarizes a sweep.
type ReminderRunResponse struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}
