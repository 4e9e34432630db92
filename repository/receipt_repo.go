package repository

import (
	"context"

	"github.com/pkg/errors"

	"productsapi/models"
)

// ReceiptRepository gathers what a sale receipt needs.
type ReceiptRepository struct {
	SaleRepo    SaleRepository
	ProductRepo ProductRepository
}

func NewReceiptRepository(saleRepo SaleRepository, productRepo ProductRepository) *ReceiptRepository {
	return &ReceiptRepository{
		SaleRepo:    saleRepo,
		ProductRepo: productRepo,
	}
}

// GetSaleForReceipt fetches a sale and fills in product names for items
// that only carry a product id.
func (r *ReceiptRepository) GetSaleForReceipt(ctx context.Context, id string) (*models.Sale, error) {
	sale, err := r.SaleRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.ProductRepo == nil {
		return sale, nil
	}

	for _, item := range sale.Items {
		if _, ok := item["name"]; ok {
			continue
		}
		pid, ok := item["productId"].(string)
		if !ok || pid == "" {
			continue
		}
		p, err := r.ProductRepo.Get(ctx, pid, nil)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		item["name"] = p.Name
	}
	return sale, nil
}
