package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/server/http/dto"
	"github.com/polkiloo/orderdesk/internal/usecase"
)

const dateLayout = "2006-01-02"

// InvoiceHandler manages invoices and payment recording.
type InvoiceHandler struct {
	facade InvoiceFacade
}

// NewInvoiceHandler constructs InvoiceHandler.
func NewInvoiceHandler(facade InvoiceFacade) *InvoiceHandler {
	return &InvoiceHandler{facade: facade}
}

// Create handles POST /api/orders/:id/invoice. An existing invoice is
// returned with 200, a new one with 201.
func (h *InvoiceHandler) Create(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateInvoiceRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	invoice, created, err := h.facade.CreateInvoice(c.Request.Context(), id, usecase.InvoiceOptions{
		SendEmail:        req.SendEmail,
		PaymentTermsDays: req.PaymentTermsDays,
	}, CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	response := toInvoiceResponse(*invoice)
	response.Created = created
	if created {
		c.JSON(http.StatusCreated, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/orders/:id/invoice.
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.facade.GetInvoice(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInvoiceResponse(*invoice))
}

// Payments handles GET /api/orders/:id/payments.
func (h *InvoiceHandler) Payments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	payments, err := h.facade.InvoicePayments(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	response := make([]dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		response = append(response, dto.PaymentResponse{
			ID:                p.ID,
			ExternalReference: p.ExternalReference,
			Amount:            p.Amount,
			Status:            string(p.Status),
			Method:            string(p.Method),
			Source:            string(p.Source),
			Notes:             p.Notes,
			PaidAt:            p.PaidAt,
		})
	}
	c.JSON(http.StatusOK, response)
}

// MarkPaid handles POST /api/orders/:id/mark-paid.
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.MarkPaidRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	details := usecase.PaymentDetails{
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Method:        model.PaymentMethod(req.Method),
		Notes:         req.Notes,
	}
	if req.PaidAt != nil {
		details.PaidAt = *req.PaidAt
	}
	invoice, err := h.facade.MarkPaid(c.Request.Context(), id, details, CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInvoiceResponse(*invoice))
}

// ManualComplete handles POST /api/orders/:id/manual-complete.
func (h *InvoiceHandler) ManualComplete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ManualCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.facade.ManualComplete(c.Request.Context(), usecase.ManualCompletionInput{
		OrderID:          id,
		CompletionAmount: req.CompletionAmount,
		PaymentMethod:    model.PaymentMethod(req.PaymentMethod),
		Notes:            req.Notes,
		SendEmail:        req.SendEmail,
	}, CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ManualCompleteResponse{
		Success:        res.Success,
		OrderID:        res.OrderID,
		PreviousStatus: string(res.PreviousStatus),
		NewStatus:      string(res.NewStatus),
		Amount:         res.Amount,
		InvoiceID:      res.InvoiceID,
		PaymentID:      res.PaymentID,
		EmailSent:      res.EmailSent,
	})
}

// Aging handles GET /api/invoices/aging.
func (h *InvoiceHandler) Aging(c *gin.Context) {
	summary, err := h.facade.Aging(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	buckets := make([]dto.AgingBucket, 0, len(summary.Buckets))
	for _, b := range summary.Buckets {
		buckets = append(buckets, dto.AgingBucket{Label: b.Label, Count: b.Count, Amount: b.Amount})
	}
	c.JSON(http.StatusOK, dto.AgingResponse{
		Buckets:     buckets,
		TotalCount:  summary.TotalCount,
		TotalAmount: summary.TotalAmount,
		AsOf:        summary.AsOf.Format(dateLayout),
	})
}

func toInvoiceResponse(inv model.Invoice) dto.InvoiceResponse {
	items := make([]dto.LineItem, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		items = append(items, dto.LineItem{Description: li.Description, Amount: li.Amount})
	}
	return dto.InvoiceResponse{
		ID:                inv.ID,
		OrderID:           inv.OrderID,
		Number:            inv.Number,
		ExternalReference: inv.ExternalReference,
		Status:            string(inv.Status),
		Source:            string(inv.Source),
		Amount:            inv.Amount,
		Subtotal:          inv.Subtotal,
		Tax: dto.TaxSnapshot{
			Jurisdiction: inv.Tax.Jurisdiction,
			Primary:      inv.Tax.Primary,
			Secondary:    inv.Tax.Secondary,
			Combined:     inv.Tax.Combined,
			TotalTax:     inv.Tax.TotalTax,
		},
		LineItems:        items,
		IssueDate:        formatDate(inv.IssueDate),
		DueDate:          formatDate(inv.DueDate),
		PaymentTermsDays: inv.PaymentTermsDays,
		SentAt:           inv.SentAt,
		PaidAt:           inv.PaidAt,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
