package model

import "time"

// OrderStatus describes order lifecycle.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusSubmitted     OrderStatus = "submitted"
	OrderStatusInProgress    OrderStatus = "in_progress"
	OrderStatusQuoted        OrderStatus = "quoted"
	OrderStatusQuoteViewed   OrderStatus = "quote_viewed"
	OrderStatusQuoteAccepted OrderStatus = "quote_accepted"
	OrderStatusInvoiced      OrderStatus = "invoiced"
	OrderStatusPaid          OrderStatus = "paid"
	OrderStatusCompleted     OrderStatus = "completed"
	OrderStatusDelivered     OrderStatus = "delivered"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusSubmitted,
	OrderStatusInProgress,
	OrderStatusQuoted,
	OrderStatusQuoteViewed,
	OrderStatusQuoteAccepted,
	OrderStatusInvoiced,
	OrderStatusPaid,
	OrderStatusCompleted,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var statusLabels = map[OrderStatus]string{
	OrderStatusPending:       "Pending",
	OrderStatusSubmitted:     "Submitted",
	OrderStatusInProgress:    "In Progress",
	OrderStatusQuoted:        "Quoted",
	OrderStatusQuoteViewed:   "Quote Viewed",
	OrderStatusQuoteAccepted: "Quote Accepted",
	OrderStatusInvoiced:      "Invoiced",
	OrderStatusPaid:          "Paid",
	OrderStatusCompleted:     "Completed",
	OrderStatusDelivered:     "Delivered",
	OrderStatusCancelled:     "Cancelled",
}

// allowedTransitions is the complete transition contract. Statuses absent
// from the map have no outgoing transitions.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:       {OrderStatusSubmitted, OrderStatusCancelled},
	OrderStatusSubmitted:     {OrderStatusInProgress, OrderStatusQuoted, OrderStatusCancelled},
	OrderStatusInProgress:    {OrderStatusQuoted, OrderStatusCancelled},
	OrderStatusQuoted:        {OrderStatusInvoiced, OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusQuoteViewed:   {OrderStatusQuoteAccepted, OrderStatusInvoiced, OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusQuoteAccepted: {OrderStatusInvoiced, OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInvoiced:      {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:          {OrderStatusInProgress, OrderStatusCompleted, OrderStatusDelivered},
	OrderStatusCompleted:     {OrderStatusDelivered},
}

// Valid reports whether s is a member of the status enum.
func (s OrderStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns human readable status name.
func (s OrderStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Terminal reports whether the status has no outgoing transitions.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(allowedTransitions[s]) == 0
}

// AllowedTargets returns a copy of the statuses reachable from s in one step.
func (s OrderStatus) AllowedTargets() []OrderStatus {
	targets := allowedTransitions[s]
	out := make([]OrderStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransitionTo reports whether s -> target is present in the table.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, t := range allowedTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionPath returns the shortest chain of legal transitions leading from
// one status to another without passing through cancelled. The origin is not
// included. Nil means the target is unreachable.
func TransitionPath(from, to OrderStatus) []OrderStatus {
	if from == to {
		return []OrderStatus{}
	}
	prev := map[OrderStatus]OrderStatus{from: from}
	queue := []OrderStatus{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range allowedTransitions[cur] {
			if next == OrderStatusCancelled && to != OrderStatusCancelled {
				continue
			}
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				var path []OrderStatus
				for s := to; s != from; s = prev[s] {
					path = append([]OrderStatus{s}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// AddOn is an itemized extra priced on top of the base package.
type AddOn struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// Order describes a custom-production service order. Amounts are minor units.
type Order struct {
	ID            int64
	Status        OrderStatus
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	PackageName   string
	BasePrice     int64
	AddOns        []AddOn
	Subtotal      int64
	TaxAmount     int64
	TotalAmount   int64
	Jurisdiction  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StatusHistoryEntry is an immutable record of a single status change.
type StatusHistoryEntry struct {
	ID             int64
	OrderID        int64
	PreviousStatus OrderStatus
	NewStatus      OrderStatus
	ActorID        string
	Notes          string
	CreatedAt      time.Time
}
