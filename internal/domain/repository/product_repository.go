package repository

import (
	"context"

	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/pkg/pagination"
)

// ProductRepository defines the interface for product data operations
type ProductRepository interface {
	// GetByID returns (nil, nil) when the product does not exist
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	// GetStocks returns the current stock of every existing product in ids.
	// Unknown ids are absent from the map.
	GetStocks(ctx context.Context, ids []int64) (map[int64]int, error)
	Search(ctx context.Context, params *ProductFilterParams) ([]entity.Product, int64, error)
	// AtomicDecrementBatch atomically decrements stock for multiple products.
	// Returns the product IDs that had insufficient stock; if any product
	// fails, none of the decrements are applied.
	AtomicDecrementBatch(ctx context.Context, decrements map[int64]int) (failedIDs []int64, err error)
}

// ProductFilterParams contains filtering parameters for product queries
type ProductFilterParams struct {
	Pagination      *pagination.PaginationParams
	Search          string
	IncludeInactive bool
}
