package repo

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-orders/internal/database/dbtest"
	"shop-orders/internal/domain"
)

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestYearBounds(t *testing.T) {
	from, to := yearBounds(2024)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestStatisticsRepoRevenueFilter(t *testing.T) {
	db := dbtest.Require(t, testDB)
	orders := NewOrderRepo(db)
	stats := NewStatisticsRepo(db)
	ctx := context.Background()

	customer := dbtest.Customer(t, db, 0)
	product := dbtest.Product(t, db, "Tea", 50, "12.50")

	jan := time.Date(2024, time.January, 31, 23, 30, 0, 0, time.UTC)
	feb := time.Date(2024, time.February, 10, 8, 0, 0, 0, time.UTC)
	prevYear := time.Date(2023, time.December, 31, 23, 59, 0, 0, time.UTC)

	add := func(number string, at time.Time, status domain.OrderStatus, paid bool) {
		o := newOrder(customer, product, number, at)
		o.Status = status
		o.IsSuccess = paid
		require.NoError(t, insertOrder(t, db, orders, o))
	}
	add("ORD-A", jan, domain.OrderCompleted, true)
	add("ORD-B", feb, domain.OrderProcessing, true)
	add("ORD-C", feb, domain.OrderCancelled, true)
	add("ORD-D", feb, domain.OrderPending, false)
	add("ORD-E", prevYear, domain.OrderCompleted, true)

	byMonth, err := stats.MonthlyRevenue(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, byMonth, 2)
	assertMoney(t, "28.00", byMonth[1].Revenue)
	assert.Equal(t, 1, byMonth[1].OrderCount)
	assertMoney(t, "28.00", byMonth[2].Revenue)
	assert.Equal(t, 1, byMonth[2].OrderCount)

	sales, err := stats.ProductSales(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "Tea", sales[0].ProductName)
	assert.Equal(t, 4, sales[0].Quantity)
	assertMoney(t, "50.00", sales[0].Revenue)

	empty, err := stats.MonthlyRevenue(ctx, 2022)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
