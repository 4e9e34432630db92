package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductForClient(t *testing.T) {
	price := decimal.RequireFromString("9.99")

	cases := []struct {
		name     string
		priceOut decimal.NullDecimal
		want     string
	}{
		{"null price_out", decimal.NullDecimal{}, "9.99"},
		{"zero price_out", decimal.NewNullDecimal(decimal.RequireFromString("0.00")), "9.99"},
		{"own price_out", decimal.NewNullDecimal(decimal.RequireFromString("12.50")), "12.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Product{ID: "p1", Price: price, PriceOut: tc.priceOut}
			got := p.ForClient()
			require.True(t, got.PriceOut.Valid)
			assert.Equal(t, tc.want, got.PriceOut.Decimal.String())
		})
	}
}

func TestProductJSONShape(t *testing.T) {
	p := Product{ID: "p1", Name: "Widget", Price: decimal.RequireFromString("9.99"), Quantity: 5}.ForClient()

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "9.99", out["price_out"])
	assert.Equal(t, float64(5), out["quantity"])
	assert.NotContains(t, out, "user_id")
}

func TestApplyStock(t *testing.T) {
	n, ok := ApplyStock(5, 2, StockSubtract)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = ApplyStock(5, 9, StockSubtract)
	assert.True(t, ok)
	assert.Equal(t, 0, n)

	n, ok = ApplyStock(5, 9, StockAdd)
	assert.True(t, ok)
	assert.Equal(t, 14, n)

	_, ok = ApplyStock(5, 1, "multiply")
	assert.False(t, ok)
}

func TestSaleItemAccessors(t *testing.T) {
	var items []SaleItem
	require.NoError(t, json.Unmarshal([]byte(`[
		{"productId":"p1","name":"Widget","quantity":2,"price":"4.50"},
		{"productId":"p2","qty":"3","unitPrice":1.25,"subtotal":3.75}
	]`), &items))

	assert.Equal(t, "Widget", items[0].Name())
	assert.Equal(t, 2, items[0].Quantity())
	assert.Equal(t, "9", items[0].Subtotal().String())

	assert.Equal(t, "p2", items[1].Name())
	assert.Equal(t, 3, items[1].Quantity())
	assert.Equal(t, "1.25", items[1].UnitPrice().String())
	assert.Equal(t, "3.75", items[1].Subtotal().String())
}
