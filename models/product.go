package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string              `json:"id" db:"id"`
	Name      string              `json:"name" db:"name"`
	Price     decimal.Decimal     `json:"price" db:"price"`
	PriceIn   string              `json:"price_in" db:"price_in"`
	Quantity  int                 `json:"quantity" db:"quantity"`
	ImagePath string              `json:"image_path" db:"image_path"`
	PriceOut  decimal.NullDecimal `json:"price_out" db:"price_out"`
	ImageURL  string              `json:"image_url" db:"image_url"`
	UserID    *int64              `json:"user_id,omitempty" db:"user_id"`
	CreatedAt *time.Time          `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt *time.Time          `json:"updated_at,omitempty" db:"updated_at"`
}

// ForClient returns the product as the mobile client expects it: a missing
// or zero price_out is replaced by price.
func (p Product) ForClient() Product {
	if !p.PriceOut.Valid || p.PriceOut.Decimal.IsZero() {
		p.PriceOut = decimal.NewNullDecimal(p.Price)
	}
	return p
}

func ProductsForClient(products []*Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, p.ForClient())
	}
	return out
}

type StockChange struct {
	ProductID   string `json:"productId"`
	OldQuantity int    `json:"oldQuantity"`
	NewQuantity int    `json:"newQuantity"`
}

const (
	StockAdd      = "add"
	StockSubtract = "subtract"
)

// ApplyStock computes the quantity after op; subtract never goes below zero.
func ApplyStock(current, quantity int, op string) (int, bool) {
	switch op {
	case StockAdd:
		return current + quantity, true
	case StockSubtract:
		if quantity >= current {
			return 0, true
		}
		return current - quantity, true
	default:
		return current, false
	}
}

// ApplyCreateDefaults fills the fields a new product may omit. price_out
// falls back to price unless a positive value was supplied.
func (p *Product) ApplyCreateDefaults() {
	if p.PriceIn == "" {
		p.PriceIn = "0"
	}
	if !p.PriceOut.Valid || !p.PriceOut.Decimal.IsPositive() {
		p.PriceOut = decimal.NewNullDecimal(p.Price)
	}
}
