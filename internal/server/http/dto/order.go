package dto

import "time"

// AddOn is an itemized extra.
type AddOn struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// CreateOrderRequest describes a new order. Amounts are minor units.
type CreateOrderRequest struct {
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	CustomerPhone string  `json:"customer_phone"`
	PackageName   string  `json:"package_name"`
	BasePrice     int64   `json:"base_price"`
	AddOns        []AddOn `json:"add_ons"`
	Jurisdiction  string  `json:"jurisdiction"`
}

// OrderResponse describes an order.
type OrderResponse struct {
	ID            int64     `json:"id"`
	Status        string    `json:"status"`
	StatusLabel   string    `json:"status_label"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	PackageName   string    `json:"package_name"`
	BasePrice     int64     `json:"base_price"`
	AddOns        []AddOn   `json:"add_ons"`
	Subtotal      int64     `json:"subtotal"`
	TaxAmount     int64     `json:"tax_amount"`
	TotalAmount   int64     `json:"total_amount"`
	Jurisdiction  string    `json:"jurisdiction"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HistoryEntryResponse describes one status change.
type HistoryEntryResponse struct {
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ActorID        string    `json:"actor_id"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TransitionRequest asks for a single status change.
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// BulkTransitionRequest asks for the same status change on many orders.
type BulkTransitionRequest struct {
	OrderIDs []int64 `json:"order_ids" binding:"required,min=1"`
	Status   string  `json:"status" binding:"required"`
	Notes    string  `json:"notes"`
}

// TransitionResponse describes an applied status change.
type TransitionResponse struct {
	OrderID        int64  `json:"order_id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
}

// BulkFailure explains a rejected batch member.
type BulkFailure struct {
	OrderID int64  `json:"order_id"`
	Kind    string `json:"kind"`
	Reason  string `json:"reason"`
}

// BulkTransitionResponse partitions a batch.
type BulkTransitionResponse struct {
	Succeeded []int64       `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// StatusOption is a transition target with its label.
type StatusOption struct {
	Status string `json:"status"`
	Label  string `json:"label"`
}

// AllowedTransitionsResponse lists the legal next statuses.
type AllowedTransitionsResponse struct {
	Status             string         `json:"status"`
	AllowedTransitions []StatusOption `json:"allowed_transitions"`
	IsTerminal         bool           `json:"is_terminal"`
}
