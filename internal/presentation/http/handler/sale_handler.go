package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/caja-api/internal/application/service"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/request"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/response"
	"github.com/sangkips/caja-api/pkg/apperror"
	"github.com/sangkips/caja-api/pkg/pagination"
)

const dateLayout = "2006-01-02"

// SaleHandler handles checkout and the sale history
type SaleHandler struct {
	checkoutService *service.CheckoutService
	saleService     *service.SaleService
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(checkoutService *service.CheckoutService, saleService *service.SaleService) *SaleHandler {
	return &SaleHandler{
		checkoutService: checkoutService,
		saleService:     saleService,
	}
}

// Checkout records the session's cart as a sale
// @Router /ventas/registrar [post]
func (h *SaleHandler) Checkout(c *gin.Context) {
	sessionID, ok := requireSession(c)
	if !ok {
		return
	}
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	sale, err := h.checkoutService.Checkout(c.Request.Context(), service.CheckoutInput{
		SessionID:     sessionID,
		UserID:        *userID,
		PaymentMethod: req.PaymentMethod,
		CustomerRef:   req.CustomerRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Sale recorded successfully", sale)
}

// Get returns one sale with its lines
// @Router /ventas/{id} [get]
func (h *SaleHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.NewNotFoundError("Sale"))
		return
	}

	sale, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Sale retrieved successfully", sale)
}

// List returns recorded sales, newest first
// @Router /ventas [get]
func (h *SaleHandler) List(c *gin.Context) {
	var filter request.SaleFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	input := &service.ListSalesInput{
		Pagination:    &pagination.PaginationParams{Page: filter.Page, PerPage: filter.PerPage},
		PaymentMethod: filter.PaymentMethod,
		CustomerRef:   filter.CustomerRef,
	}

	if filter.From != "" {
		from, err := time.ParseInLocation(dateLayout, filter.From, time.Local)
		if err != nil {
			response.Error(c, invalidDate("fecha_desde"))
			return
		}
		input.From = &from
	}
	if filter.To != "" {
		to, err := time.ParseInLocation(dateLayout, filter.To, time.Local)
		if err != nil {
			response.Error(c, invalidDate("fecha_hasta"))
			return
		}
		// fecha_hasta is inclusive
		to = to.AddDate(0, 0, 1)
		input.To = &to
	}

	result, err := h.saleService.ListSales(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Sales retrieved successfully", result)
}

func invalidDate(field string) error {
	return apperror.NewValidationError("Invalid date",
		apperror.FieldError{Field: field, Message: "must be YYYY-MM-DD"})
}
