package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/caja-api/internal/application/service"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/request"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/response"
	"github.com/sangkips/caja-api/pkg/apperror"
)

// CartHandler exposes the cart of the caller's register session
type CartHandler struct {
	carts *service.CartStore
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *service.CartStore) *CartHandler {
	return &CartHandler{carts: carts}
}

// Get returns the current cart
// @Router /carrito [get]
func (h *CartHandler) Get(c *gin.Context) {
	sessionID, ok := requireSession(c)
	if !ok {
		return
	}
	response.OK(c, "Cart retrieved successfully", h.carts.Snapshot(sessionID))
}

// AddCatalogItem reserves stock and adds a catalog product
// @Router /carrito/agregar [post]
func (h *CartHandler) AddCatalogItem(c *gin.Context) {
	sessionID, ok := requireSession(c)
	if !ok {
		return
	}

	var req request.AddCatalogItemRequest
	if !bindJSON(c, &req) {
		return
	}

	expected, err := req.ExpectedPrice()
	if err != nil {
		response.Error(c, err)
		return
	}

	cart, err := h.carts.AddCatalogItem(c.Request.Context(), sessionID, service.AddCatalogItemInput{
		ProductID:     req.ProductID,
		Tier:          req.PricingTier(),
		Quantity:      *req.Quantity,
		ExpectedPrice: expected,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Item added to cart", cart)
}

// AddManualItem adds a free-form line
// @Router /carrito/agregar-manual [post]
func (h *CartHandler) AddManualItem(c *gin.Context) {
	sessionID, ok := requireSession(c)
	if !ok {
		return
	}

	var req request.AddManualItemRequest
	if !bindJSON(c, &req) {
		return
	}

	price, err := req.UnitPrice()
	if err != nil {
		response.Error(c, err)
		return
	}

	cart, err := h.carts.AddManualItem(sessionID, service.AddManualItemInput{
		Description: req.Name,
		UnitPrice:   price,
		Quantity:    *req.Quantity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Item added to cart", cart)
}

// RemoveLine drops one line by its position in the cart
// @Router /carrito/items/{indice} [delete]
func (h *CartHandler) RemoveLine(c *gin.Context) {
	sessionID, ok := requireSession(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("indice"))
	if err != nil {
		response.Error(c, apperror.NewValidationError("Invalid line index",
			apperror.FieldError{Field: "indice", Message: "must be an integer"}))
		return
	}

	cart, err := h.carts.RemoveLine(sessionID, index)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Item removed from cart", cart)
}

// Clear empties the cart and releases its reservations
// @Router /carrito/vaciar [post]
func (h *CartHandler) Clear(c *gin.Context) {
	sessionID, ok := requireSession(c)
	if !ok {
		return
	}
	response.OK(c, "Cart cleared", h.carts.Clear(sessionID))
}
