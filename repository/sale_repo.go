package repository

import (
	"context"
	"time"

	"productsapi/models"
)

type SaleRepository interface {
	// List returns sales newest first; both bounds must be set to filter.
	List(ctx context.Context, start, end *time.Time) ([]*models.Sale, error)
	Get(ctx context.Context, id string) (*models.Sale, error)
	Create(ctx context.Context, sale *models.Sale) error
	// Summary aggregates all sales plus those in [dayStart, dayEnd).
	Summary(ctx context.Context, dayStart, dayEnd time.Time) (*models.SalesSummary, error)
}
