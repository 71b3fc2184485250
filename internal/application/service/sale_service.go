package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/internal/domain/repository"
	"github.com/sangkips/caja-api/pkg/apperror"
	"github.com/sangkips/caja-api/pkg/pagination"
)

// SaleService exposes recorded sales read-only
type SaleService struct {
	saleRepo repository.SaleRepository
}

// NewSaleService creates a new sale service
func NewSaleService(saleRepo repository.SaleRepository) *SaleService {
	return &SaleService{saleRepo: saleRepo}
}

// ListSalesInput represents the filters of a sale listing
type ListSalesInput struct {
	Pagination    *pagination.PaginationParams
	From          *time.Time
	To            *time.Time // exclusive
	PaymentMethod string
	CustomerRef   string
}

// GetSale returns one sale with its lines
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	sale, err := s.saleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	if sale == nil {
		return nil, apperror.NewNotFoundError("Sale")
	}
	return sale, nil
}

// ListSales returns sales newest first
func (s *SaleService) ListSales(ctx context.Context, input *ListSalesInput) (*pagination.PaginatedResult[entity.Sale], error) {
	params := input.Pagination
	if params == nil {
		params = pagination.DefaultPagination()
	}

	if input.From != nil && input.To != nil && !input.From.Before(*input.To) {
		return nil, apperror.NewValidationError("Invalid date range",
			apperror.FieldError{Field: "fecha_hasta", Message: "must be after fecha_desde"})
	}

	filter := &repository.SaleFilterParams{
		Pagination:  params,
		StartDate:   input.From,
		EndDate:     input.To,
		CustomerRef: input.CustomerRef,
	}
	if input.PaymentMethod != "" {
		method := enum.NormalizePaymentMethod(input.PaymentMethod)
		filter.PaymentMethod = &method
	}

	sales, total, err := s.saleRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	return pagination.NewPaginatedResult(sales, pagination.NewPagination(params.Page, params.PerPage, total)), nil
}
