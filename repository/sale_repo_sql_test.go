package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productsapi/models"
	"productsapi/repository"
)

func sale(id string, at time.Time, total string) *models.Sale {
	var items []models.SaleItem
	_ = json.Unmarshal([]byte(`[{"productId":"p1","name":"Widget","quantity":2,"price":"4.50","note":"gift wrap"}]`), &items)
	return &models.Sale{
		ID:            id,
		Timestamp:     at,
		Items:         items,
		TotalAmount:   decimal.RequireFromString(total),
		PaymentMethod: "cash",
	}
}

func TestSQLSaleRepo_RoundTrip(t *testing.T) {
	repo := repository.NewSQLSaleRepo(openSQLite(t, 0))
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	in := sale("s1", at, "9.00")
	customer := "Ana"
	in.CustomerName = &customer
	require.NoError(t, repo.Create(ctx, in))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, at.Equal(got.Timestamp))
	assert.Equal(t, "9", got.TotalAmount.String())
	require.NotNil(t, got.CustomerName)
	assert.Equal(t, "Ana", *got.CustomerName)
	assert.Nil(t, got.Notes)

	require.Len(t, got.Items, 1)
	assert.Equal(t, "gift wrap", got.Items[0]["note"])
	assert.Equal(t, "Widget", got.Items[0].Name())
	assert.Equal(t, 2, got.Items[0].Quantity())

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, repo.Create(ctx, sale("s1", at, "1")), repository.ErrConflict)
}

func TestSQLSaleRepo_ListRange(t *testing.T) {
	repo := repository.NewSQLSaleRepo(openSQLite(t, 0))
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, sale("early", day.Add(-time.Hour), "1")))
	require.NoError(t, repo.Create(ctx, sale("morning", day.Add(9*time.Hour), "2")))
	require.NoError(t, repo.Create(ctx, sale("evening", day.Add(20*time.Hour), "3")))

	all, err := repo.List(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "evening", all[0].ID)

	end := day.Add(24 * time.Hour)
	inDay, err := repo.List(ctx, &day, &end)
	require.NoError(t, err)
	require.Len(t, inDay, 2)
	assert.Equal(t, "morning", inDay[1].ID)

	// a single bound does not filter
	onlyStart, err := repo.List(ctx, &day, nil)
	require.NoError(t, err)
	assert.Len(t, onlyStart, 3)
}

func TestSQLSaleRepo_Summary(t *testing.T) {
	repo := repository.NewSQLSaleRepo(openSQLite(t, 0))
	ctx := context.Background()

	empty, err := repo.Summary(ctx, time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, empty.TotalSales)
	assert.True(t, empty.TotalRevenue.IsZero())

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, sale("a", day.Add(-time.Hour), "10")))
	require.NoError(t, repo.Create(ctx, sale("b", day.Add(time.Hour), "20.50")))
	require.NoError(t, repo.Create(ctx, sale("c", day.Add(2*time.Hour), "5")))

	sum, err := repo.Summary(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, sum.TotalSales)
	assert.Equal(t, "35.5", sum.TotalRevenue.String())
	assert.EqualValues(t, 2, sum.TodaySales)
	assert.Equal(t, "25.5", sum.TodayRevenue.String())
	assert.Equal(t, "11.83", sum.AverageSaleAmount.String())
}
