package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderdesk/internal/server/http/dto"
)

// ReminderHandler exposes reminder controls.
type ReminderHandler struct {
	facade ReminderFacade
}

// NewReminderHandler constructs ReminderHandler.
func NewReminderHandler(facade ReminderFacade) *ReminderHandler {
	return &ReminderHandler{facade: facade}
}

// Pause handles POST /api/orders/:id/reminders/pause.
func (h *ReminderHandler) Pause(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.facade.PauseReminders(c.Request.Context(), id, CurrentActor(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Resume handles POST /api/orders/:id/reminders/resume.
func (h *ReminderHandler) Resume(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.facade.ResumeReminders(c.Request.Context(), id, CurrentActor(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Pending handles GET /api/reminders/pending.
func (h *ReminderHandler) Pending(c *gin.Context) {
	reminders, err := h.facade.PendingReminders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	response := make([]dto.ReminderResponse, 0, len(reminders))
	for _, r := range reminders {
		response = append(response, dto.ReminderResponse{
			OrderID:       r.OrderID,
			InvoiceID:     r.InvoiceID,
			InvoiceNumber: r.InvoiceNumber,
			CustomerName:  r.CustomerName,
			CustomerEmail: r.CustomerEmail,
			Amount:        r.Amount,
			DueDate:       formatDate(r.DueDate),
			DaysUntilDue:  r.DaysUntilDue,
			Type:          string(r.Type),
		})
	}
	c.JSON(http.StatusOK, response)
}

// Process handles POST /api/reminders/process.
func (h *ReminderHandler) Process(c *gin.Context) {
	stats, err := h.facade.ProcessReminders(c.Request.Context(), CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReminderRunResponse{Sent: stats.Sent, Failed: stats.Failed, Skipped: stats.Skipped})
}
