package repository

import (
	"context"

	"productsapi/models"
)

// ProductRepository defines the product operations. userID identifies the
// caller; nil or an unscoped schema means queries are not filtered by owner.
type ProductRepository interface {
	List(ctx context.Context, userID *int64) ([]*models.Product, error)
	Get(ctx context.Context, id string, userID *int64) (*models.Product, error)
	Create(ctx context.Context, product *models.Product, userID *int64) error
	Update(ctx context.Context, id string, product *models.Product, userID *int64) (*models.Product, error)
	Delete(ctx context.Context, id string, userID *int64) error
	Search(ctx context.Context, query string) ([]*models.Product, error)
	AdjustStock(ctx context.Context, id string, quantity int, op string) (*models.StockChange, error)
	Count(ctx context.Context) (int64, error)
}
