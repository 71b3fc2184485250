package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/internal/domain/repository"
	"github.com/sangkips/caja-api/pkg/pagination"
)

// CatalogService lists products for the register, read-only
type CatalogService struct {
	productRepo repository.ProductRepository
	ledger      *InventoryLedger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(productRepo repository.ProductRepository, ledger *InventoryLedger) *CatalogService {
	return &CatalogService{
		productRepo: productRepo,
		ledger:      ledger,
	}
}

// Search returns active products whose name or code matches query, each with
// the units open carts leave available
func (s *CatalogService) Search(ctx context.Context, query string, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.ProductListing], error) {
	if params == nil {
		params = pagination.DefaultPagination()
	}

	products, total, err := s.productRepo.Search(ctx, &repository.ProductFilterParams{
		Pagination: params,
		Search:     strings.TrimSpace(query),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	listings := make([]entity.ProductListing, 0, len(products))
	for _, p := range products {
		listings = append(listings, entity.ProductListing{
			Product:   p,
			Available: max(p.Stock-s.ledger.Reserved(p.ID), 0),
		})
	}

	return pagination.NewPaginatedResult(listings, pagination.NewPagination(params.Page, params.PerPage, total)), nil
}
