package handlers

import (
	"log"
	"net/http"

	"go-storefront/internal/apperr"
	"go-storefront/internal/cart"
	"go-storefront/internal/middleware"
	"go-storefront/internal/orders"

	"github.com/gin-gonic/gin"
)

const (
	cartCookie       = "cart_session"
	cartCookieMaxAge = 30 * 24 * 60 * 60
)

type CartHandler struct {
	carts        *cart.Service
	orders       *orders.Service
	secureCookie bool
}

func NewCartHandler(carts *cart.Service, orderSvc *orders.Service, secureCookie bool) *CartHandler {
	return &CartHandler{carts: carts, orders: orderSvc, secureCookie: secureCookie}
}

type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// CheckoutRequest carries the delivery details; the lines come from the cart.
type CheckoutRequest struct {
	CustomerName  string `json:"customer_name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Notes         string `json:"notes"`
	PaymentMethod string `json:"payment_method"`
}

// sessionID returns the caller's cart token, issuing a new cookie when the
// request has none or an unusable one.
func (h *CartHandler) sessionID(c *gin.Context) string {
	if id, err := c.Cookie(cartCookie); err == nil && cart.ValidSessionID(id) {
		return id
	}
	id := cart.NewSessionID()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cartCookie, id, cartCookieMaxAge, "/", "", h.secureCookie, true)
	return id
}

// --- GET: /api/cart ---
func (h *CartHandler) GetCart(c *gin.Context) {
	summary, err := h.carts.Get(c.Request.Context(), h.sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- POST: /api/cart/items ---
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	summary, err := h.carts.Add(c.Request.Context(), h.sessionID(c), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- PUT: /api/cart/items/:productId ---
func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}
	var req UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}
	summary, err := h.carts.Update(c.Request.Context(), h.sessionID(c), productID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- DELETE: /api/cart/items/:productId ---
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}
	summary, err := h.carts.Remove(c.Request.Context(), h.sessionID(c), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- DELETE: /api/cart ---
func (h *CartHandler) ClearCart(c *gin.Context) {
	id := h.sessionID(c)
	if err := h.carts.Clear(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.carts.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- POST: /api/checkout ---
// Turns the session cart into an order and empties the cart on success.
func (h *CartHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	id := h.sessionID(c)

	summary, err := h.carts.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(summary.Items) == 0 {
		respondError(c, apperr.Validation("cart is empty"))
		return
	}

	create := orders.CreateRequest{
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		Notes:         req.Notes,
		PaymentMethod: req.PaymentMethod,
		Items:         make([]orders.LineRequest, len(summary.Items)),
	}
	for i, item := range summary.Items {
		create.Items[i] = orders.LineRequest{ProductID: item.ID, Quantity: item.Quantity}
	}
	if userID, _, ok := middleware.CurrentUser(c); ok {
		create.UserID = &userID
	}

	order, err := h.orders.Create(ctx, create)
	if err != nil {
		respondError(c, err)
		return
	}
	// The order stands even if the cart cannot be cleared.
	if err := h.carts.Clear(ctx, id); err != nil {
		log.Printf("Warning: order %s placed but cart %s not cleared: %v", order.Code, id, err)
	}
	c.JSON(http.StatusCreated, order)
}
