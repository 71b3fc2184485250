package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/pkg/pagination"
)

// SaleRepository is the append-only ledger of finalized sales. There are no
// update or delete operations.
type SaleRepository interface {
	// Append stores a sale and its lines. Joins the caller's transaction when
	// the context carries one.
	Append(ctx context.Context, sale *entity.Sale) error
	// GetByID returns (nil, nil) when the sale does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error)
	List(ctx context.Context, params *SaleFilterParams) ([]entity.Sale, int64, error)
}

// SaleFilterParams contains filtering parameters for sale queries
type SaleFilterParams struct {
	Pagination    *pagination.PaginationParams
	StartDate     *time.Time
	EndDate       *time.Time
	PaymentMethod *enum.PaymentMethod
	CustomerRef   string
}
