package handlers

import (
	"net/http"

	"go-storefront/internal/middleware"
	"go-storefront/internal/models"
	"go-storefront/internal/orders"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders *orders.Service
}

func NewOrderHandler(svc *orders.Service) *OrderHandler {
	return &OrderHandler{orders: svc}
}

type StatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// --- POST: /api/orders ---
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req orders.CreateRequest
	if !bindJSON(c, &req) {
		return
	}
	if userID, _, ok := middleware.CurrentUser(c); ok {
		req.UserID = &userID
	}
	order, err := h.orders.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// --- GET: /api/orders/code/:code ---
func (h *OrderHandler) GetByCode(c *gin.Context) {
	order, err := h.orders.ByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// --- GET: /api/orders ---
// Administrators see every order, customers their own, anonymous callers none.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusOK, orders.ListResult{Orders: []models.Order{}, Page: 1})
		return
	}

	filter := orders.ListFilter{Status: models.OrderStatus(c.Query("status"))}
	if role != models.RoleAdmin {
		filter.UserID = &userID
	}
	var valid bool
	if filter.Page, valid = intQuery(c, "page"); !valid {
		return
	}
	if filter.Limit, valid = intQuery(c, "limit"); !valid {
		return
	}

	result, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- GET: /api/admin/orders/:id ---
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.ByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// --- PUT: /api/admin/orders/:id/status ---
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	actorID, _, _ := middleware.CurrentUser(c)
	order, err := h.orders.UpdateStatus(c.Request.Context(), actorID, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
