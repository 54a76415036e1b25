package v1

import (
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orderSvc *service.OrderService
}

func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

type createOrderRequest struct {
	PrescriptionID *uuid.UUID `json:"prescription_id"`
	MedicationID   uuid.UUID  `json:"medication_id" binding:"required"`
	Quantity       int        `json:"quantity" binding:"required"`
	TotalCents     int64      `json:"total_cents"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	o, err := h.orderSvc.CreateOrder(c.Request.Context(), &order.CreateOrderCommand{
		UserID:         actor.UserID,
		PrescriptionID: req.PrescriptionID,
		MedicationID:   req.MedicationID,
		Quantity:       req.Quantity,
		TotalCents:     req.TotalCents,
	}, actor, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, o)
}

func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderSvc.GetOrder(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, o)
}

func (h *OrderHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	q := &order.ListOrdersQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		s := order.Status(raw)
		q.Status = &s
	}

	paged, err := h.orderSvc.ListOrders(c.Request.Context(), q, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, paged)
}

func (h *OrderHandler) Approve(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderSvc.Approve(c.Request.Context(), id, actor, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, o)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req cancelOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	o, err := h.orderSvc.Cancel(c.Request.Context(), id, req.Reason, actor, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, o)
}
