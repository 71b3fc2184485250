package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/caja-api/internal/application/service"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/request"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/response"
	"github.com/sangkips/caja-api/pkg/pagination"
)

// CatalogHandler serves the product search of the register
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// Search lists active products matching busqueda with their availability
// @Router /productos [get]
func (h *CatalogHandler) Search(c *gin.Context) {
	var filter request.ProductSearchRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.catalogService.Search(c.Request.Context(), filter.Search, &pagination.PaginationParams{
		Page:    filter.Page,
		PerPage: filter.PerPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, "Products retrieved successfully", result)
}
