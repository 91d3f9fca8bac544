package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/server/http/dto"
)

// WebhookHandler receives payment provider callbacks. It is not behind auth;
// the envelope signature authenticates the caller.
type WebhookHandler struct {
	facade WebhookFacade
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade) *WebhookHandler {
	return &WebhookHandler{facade: facade}
}

// Payments handles POST /api/webhooks/payments.
func (h *WebhookHandler) Payments(c *gin.Context) {
	// An envelope that does not decode carries no verifiable signature.
	var env model.WebhookEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusUnauthorized, dto.WebhookResponse{Received: false, Reason: "invalid signature"})
		return
	}

	res, err := h.facade.HandleWebhook(c.Request.Context(), env)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.WebhookResponse{Received: res.Received, Processed: res.Processed, Reason: res.Reason})
	case domainErrors.Is(err, domainErrors.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, dto.WebhookResponse{Received: false, Reason: "invalid signature"})
	case domainErrors.Is(err, domainErrors.ErrStaleEvent):
		c.JSON(http.StatusBadRequest, dto.WebhookResponse{Received: false, Reason: "stale event"})
	default:
		writeError(c, err)
	}
}
