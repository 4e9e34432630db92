package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

type Sale struct {
	ID            string          `json:"id" db:"id"`
	Timestamp     time.Time       `json:"timestamp" db:"timestamp"`
	Items         []SaleItem      `json:"items" db:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentMethod string          `json:"payment_method" db:"payment_method"`
	CustomerName  *string         `json:"customer_name" db:"customer_name"`
	Notes         *string         `json:"notes" db:"notes"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// SaleItem is one line of a sale as sent by the client. Fields are kept
// verbatim so they round-trip through storage unchanged.
type SaleItem map[string]any

func (it SaleItem) Name() string {
	for _, k := range []string{"name", "productName", "product_name"} {
		if v, ok := it[k]; ok {
			return cast.ToString(v)
		}
	}
	return cast.ToString(it.first("productId", "product_id", "id"))
}

func (it SaleItem) Quantity() int {
	return cast.ToInt(it.first("quantity", "qty"))
}

func (it SaleItem) UnitPrice() decimal.Decimal {
	return toDecimal(it.first("price", "unitPrice", "unit_price", "price_out"))
}

// Subtotal falls back to quantity * unit price when the client sent none.
func (it SaleItem) Subtotal() decimal.Decimal {
	if v := it.first("subtotal", "total", "lineTotal"); v != nil {
		return toDecimal(v)
	}
	return it.UnitPrice().Mul(decimal.NewFromInt(int64(it.Quantity())))
}

func (it SaleItem) first(keys ...string) any {
	for _, k := range keys {
		if v, ok := it[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toDecimal(v any) decimal.Decimal {
	d, err := decimal.NewFromString(cast.ToString(v))
	if err != nil {
		return decimal.Zero
	}
	return d
}

type SalesSummary struct {
	TotalSales        int64           `json:"totalSales"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TodaySales        int64           `json:"todaySales"`
	TodayRevenue      decimal.Decimal `json:"todayRevenue"`
	AverageSaleAmount decimal.Decimal `json:"averageSaleAmount"`
}
