package repository

import (
	"context"
	"errors"
	"slices"

	"github.com/sangkips/caja-api/internal/domain/entity"
	domainRepo "github.com/sangkips/caja-api/internal/domain/repository"
	"gorm.io/gorm"
)

// errInsufficientStock rolls back a batch decrement; never returned to callers
var errInsufficientStock = errors.New("insufficient stock")

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) domainRepo.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	var product entity.Product
	err := conn(ctx, r.db).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &product, err
}

func (r *productRepository) GetStocks(ctx context.Context, ids []int64) (map[int64]int, error) {
	stocks := make(map[int64]int, len(ids))
	if len(ids) == 0 {
		return stocks, nil
	}

	var rows []struct {
		ID    int64
		Stock int
	}
	err := conn(ctx, r.db).Model(&entity.Product{}).
		Select("id, stock").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		stocks[row.ID] = row.Stock
	}
	return stocks, nil
}

func (r *productRepository) Search(ctx context.Context, params *domainRepo.ProductFilterParams) ([]entity.Product, int64, error) {
	var products []entity.Product
	var total int64

	query := conn(ctx, r.db).Model(&entity.Product{})
	if !params.IncludeInactive {
		query = query.Where("active = ?", true)
	}

	if params.Search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?",
			"%"+params.Search+"%", "%"+params.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Order("name ASC").Order("id ASC").
		Find(&products).Error

	return products, total, err
}

// AtomicDecrementBatch decrements every product with
// UPDATE products SET stock = stock - n WHERE id = ? AND stock >= n.
// Rows are touched in ascending id so concurrent batches lock in the same order.
func (r *productRepository) AtomicDecrementBatch(ctx context.Context, decrements map[int64]int) ([]int64, error) {
	if len(decrements) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(decrements))
	for id := range decrements {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var failedIDs []int64

	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			amount := decrements[id]
			result := tx.Model(&entity.Product{}).
				Where("id = ? AND stock >= ?", id, amount).
				Update("stock", gorm.Expr("stock - ?", amount))

			if result.Error != nil {
				return result.Error
			}

			if result.RowsAffected == 0 {
				failedIDs = append(failedIDs, id)
			}
		}

		// If any products failed, rollback entire transaction
		if len(failedIDs) > 0 {
			return errInsufficientStock
		}

		return nil
	})

	if errors.Is(err, errInsufficientStock) {
		return failedIDs, nil
	}

	return failedIDs, err
}
