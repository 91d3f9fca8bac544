package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/server/http/dto"
	"github.com/polkiloo/orderdesk/internal/tax"
)

// SettingsHandler reads and writes runtime settings and previews tax.
type SettingsHandler struct {
	facade SettingsFacade
}

// NewSettingsHandler constructs SettingsHandler.
func NewSettingsHandler(facade SettingsFacade) *SettingsHandler {
	return &SettingsHandler{facade: facade}
}

// GetTax handles GET /api/settings/tax.
func (h *SettingsHandler) GetTax(c *gin.Context) {
	s, err := h.facade.TaxSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaxSettingsDTO(s))
}

// PutTax handles PUT /api/settings/tax.
func (h *SettingsHandler) PutTax(c *gin.Context) {
	var req dto.TaxSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	in := model.TaxSettings{DefaultJurisdiction: req.DefaultJurisdiction, Rates: make(map[string]model.TaxRates, len(req.Rates))}
	for code, r := range req.Rates {
		in.Rates[code] = model.TaxRates{Primary: r.Primary, Secondary: r.Secondary, Combined: r.Combined}
	}
	saved, err := h.facade.SaveTaxSettings(c.Request.Context(), in, CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaxSettingsDTO(saved))
}

// GetInvoice handles GET /api/settings/invoice.
func (h *SettingsHandler) GetInvoice(c *gin.Context) {
	s, err := h.facade.InvoiceSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.InvoiceSettings(s))
}

// PutInvoice handles PUT /api/settings/invoice.
func (h *SettingsHandler) PutInvoice(c *gin.Context) {
	var req dto.InvoiceSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	saved, err := h.facade.SaveInvoiceSettings(c.Request.Context(), model.InvoiceSettings(req), CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.InvoiceSettings(saved))
}

// GetReminder handles GET /api/settings/reminders.
func (h *SettingsHandler) GetReminder(c *gin.Context) {
	s, err := h.facade.ReminderSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReminderSettings(s))
}

// PutReminder handles PUT /api/settings/reminders.
func (h *SettingsHandler) PutReminder(c *gin.Context) {
	var req dto.ReminderSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	saved, err := h.facade.SaveReminderSettings(c.Request.Context(), model.ReminderSettings(req), CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReminderSettings(saved))
}

// Calculate handles GET /api/tax/calculate.
func (h *SettingsHandler) Calculate(c *gin.Context) {
	var q dto.TaxQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	if q.Subtotal == nil {
		writeError(c, domainErrors.Validationf("subtotal is required"))
		return
	}
	b, err := h.facade.CalculateTax(c.Request.Context(), *q.Subtotal, q.Jurisdiction)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBreakdownDTO(b))
}

// Reverse handles GET /api/tax/reverse.
func (h *SettingsHandler) Reverse(c *gin.Context) {
	var q dto.TaxQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	if q.Total == nil {
		writeError(c, domainErrors.Validationf("total is required"))
		return
	}
	b, err := h.facade.ReverseTax(c.Request.Context(), *q.Total, q.Jurisdiction)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBreakdownDTO(b))
}

func toTaxSettingsDTO(s model.TaxSettings) dto.TaxSettings {
	out := dto.TaxSettings{DefaultJurisdiction: s.DefaultJurisdiction, Rates: make(map[string]dto.TaxRates, len(s.Rates))}
	for code, r := range s.Rates {
		out.Rates[code] = dto.TaxRates{Primary: r.Primary, Secondary: r.Secondary, Combined: r.Combined}
	}
	return out
}

func toBreakdownDTO(b tax.Breakdown) dto.TaxBreakdown {
	return dto.TaxBreakdown(b)
}
