package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/server/http/dto"
	"github.com/polkiloo/orderdesk/internal/usecase"
)

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	addOns := make([]model.AddOn, 0, len(req.AddOns))
	for _, a := range req.AddOns {
		addOns = append(addOns, model.AddOn{Description: a.Description, Amount: a.Amount})
	}
	order, err := h.facade.CreateOrder(c.Request.Context(), usecase.NewOrderInput{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		PackageName:   req.PackageName,
		BasePrice:     req.BasePrice,
		AddOns:        addOns,
		Jurisdiction:  req.Jurisdiction,
	}, CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(*order))
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.facade.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// History handles GET /api/orders/:id/history.
func (h *OrderHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.facade.OrderHistory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	response := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, dto.HistoryEntryResponse{
			PreviousStatus: string(e.PreviousStatus),
			NewStatus:      string(e.NewStatus),
			ActorID:        e.ActorID,
			Notes:          e.Notes,
			CreatedAt:      e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, response)
}

// Transitions handles GET /api/orders/:id/transitions.
func (h *OrderHandler) Transitions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.facade.OrderTransitions(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransitionsResponse(res))
}

// StatusTransitions handles GET /api/statuses/:status/transitions.
func (h *OrderHandler) StatusTransitions(c *gin.Context) {
	res, err := h.facade.StatusTransitions(c.Param("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransitionsResponse(res))
}

// Transition handles POST /api/orders/:id/transition.
func (h *OrderHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.facade.Transition(c.Request.Context(), id, model.OrderStatus(req.Status), CurrentActor(c), req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TransitionResponse{
		OrderID:        res.OrderID,
		PreviousStatus: string(res.PreviousStatus),
		NewStatus:      string(res.NewStatus),
	})
}

// BulkTransition handles POST /api/orders/bulk-transition.
func (h *OrderHandler) BulkTransition(c *gin.Context) {
	var req dto.BulkTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.facade.BulkTransition(c.Request.Context(), req.OrderIDs, model.OrderStatus(req.Status), CurrentActor(c), req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}

	response := dto.BulkTransitionResponse{
		Succeeded: append([]int64{}, res.Succeeded...),
		Failed:    make([]dto.BulkFailure, 0, len(res.Failed)),
	}
	for _, f := range res.Failed {
		response.Failed = append(response.Failed, dto.BulkFailure{OrderID: f.ID, Kind: string(f.Kind), Reason: f.Reason})
	}
	c.JSON(http.StatusOK, response)
}

func toOrderResponse(order model.Order) dto.OrderResponse {
	addOns := make([]dto.AddOn, 0, len(order.AddOns))
	for _, a := range order.AddOns {
		addOns = append(addOns, dto.AddOn{Description: a.Description, Amount: a.Amount})
	}
	return dto.OrderResponse{
		ID:            order.ID,
		Status:        string(order.Status),
		StatusLabel:   order.Status.Label(),
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
		PackageName:   order.PackageName,
		BasePrice:     order.BasePrice,
		AddOns:        addOns,
		Subtotal:      order.Subtotal,
		TaxAmount:     order.TaxAmount,
		TotalAmount:   order.TotalAmount,
		Jurisdiction:  order.Jurisdiction,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func toTransitionsResponse(res usecase.AllowedTransitionsResult) dto.AllowedTransitionsResponse {
	options := make([]dto.StatusOption, 0, len(res.AllowedTransitions))
	for _, o := range res.AllowedTransitions {
		options = append(options, dto.StatusOption{Status: string(o.Status), Label: o.Label})
	}
	return dto.AllowedTransitionsResponse{
		Status:             string(res.Status),
		AllowedTransitions: options,
		IsTerminal:         res.IsTerminal,
	}
}
