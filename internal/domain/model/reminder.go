package model

import "time"

// ReminderType classifies a payment reminder relative to the due date.
type ReminderType string

const (
	ReminderUpcoming ReminderType = "upcoming"
	ReminderDueToday ReminderType = "due_today"
	ReminderOverdue  ReminderType = "overdue"
)

// ReminderCandidate is an unpaid invoice joined with its order and reminder history.
type ReminderCandidate struct {
	OrderID        int64
	InvoiceID      int64
	InvoiceNumber  string
	CustomerName   string
	CustomerEmail  string
	Amount         int64
	DueDate        time.Time
	RemindersSent  int
	LastReminderAt *time.Time
	Paused         bool
}

// Reminder is a reminder due to be sent today.
type Reminder struct {
	OrderID       int64
	InvoiceID     int64
	InvoiceNumber string
	CustomerName  string
	CustomerEmail string
	Amount        int64
	DueDate       time.Time
	DaysUntilDue  int
	Type          ReminderType
}

// ReminderLog is an append-only record of a send attempt.
type ReminderLog struct {
	ID           int64
	OrderID      int64
	InvoiceID    int64
	Type         ReminderType
	DaysUntilDue int
	Success      bool
	Error        string
	SentAt       time.Time
}

// ReminderRunStats summarizes a sweep.
type ReminderRunStats struct {
	Sent    int
	Failed  int
	Skipped int
}
