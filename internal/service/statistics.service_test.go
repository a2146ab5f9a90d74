package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-orders/internal/config"
	"shop-orders/internal/database/dbtest"
	"shop-orders/internal/domain"
)

type fakeStatsRepo struct {
	calls   int
	byMonth map[int]domain.MonthlyRevenue
	err     error
}

func (r *fakeStatsRepo) MonthlyRevenue(context.Context, int) (map[int]domain.MonthlyRevenue, error) {
	r.calls++
	return r.byMonth, r.err
}

func (r *fakeStatsRepo) ProductSales(context.Context, int) ([]domain.ProductSales, error) {
	return nil, r.err
}

type fakeStatsCache struct {
	reports     map[int]*domain.YearlyRevenue
	invalidated []int
	err         error
}

func (c *fakeStatsCache) GetYearlyRevenue(_ context.Context, year int) (*domain.YearlyRevenue, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.reports[year], nil
}

func (c *fakeStatsCache) SetYearlyRevenue(_ context.Context, report *domain.YearlyRevenue) error {
	if c.err != nil {
		return c.err
	}
	c.reports[report.Year] = report
	return nil
}

func (c *fakeStatsCache) InvalidateYear(_ context.Context, year int) error {
	c.invalidated = append(c.invalidated, year)
	delete(c.reports, year)
	return c.err
}

func TestMonthlyRevenueUsesCache(t *testing.T) {
	stats := &fakeStatsRepo{byMonth: map[int]domain.MonthlyRevenue{3: {Month: 3, Revenue: dec("50"), OrderCount: 2}}}
	cache := &fakeStatsCache{reports: map[int]*domain.YearlyRevenue{}}
	svc := NewStatisticsService(stats, Options{Cache: cache})
	ctx := context.Background()

	first, err := svc.GetMonthlyRevenueForYear(ctx, 2024)
	require.NoError(t, err)
	second, err := svc.GetMonthlyRevenueForYear(ctx, 2024)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.calls)
	assert.Same(t, first, second)
	assertMoney(t, "50", first.TotalRevenue)
}

func TestMonthlyRevenueBypassesBrokenCache(t *testing.T) {
	stats := &fakeStatsRepo{byMonth: map[int]domain.MonthlyRevenue{}}
	cache := &fakeStatsCache{reports: map[int]*domain.YearlyRevenue{}, err: errors.New("redis down")}
	svc := NewStatisticsService(stats, Options{Cache: cache})

	report, err := svc.GetMonthlyRevenueForYear(context.Background(), 2024)
	require.NoError(t, err)
	assert.Len(t, report.Months, 12)
	assert.Equal(t, 1, stats.calls)
}

func TestMonthlyRevenueRejectsBadYear(t *testing.T) {
	svc := NewStatisticsService(&fakeStatsRepo{}, Options{})
	_, err := svc.GetMonthlyRevenueForYear(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = svc.GetProductSalesForYear(context.Background(), 10000)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func advance(t *testing.T, orders OrderService, id uuid.UUID, steps ...domain.OrderStatus) {
	t.Helper()
	for _, s := range steps {
		_, err := orders.UpdateOrderStatus(context.Background(), id, s)
		require.NoError(t, err)
	}
}

func TestStatisticsForMarchOnly(t *testing.T) {
	march := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	cache := &fakeStatsCache{reports: map[int]*domain.YearlyRevenue{}}
	opts := Options{Now: func() time.Time { return march }, Cache: cache}
	f := newFixture(t, config.VoucherPolicyReject, opts)
	svc := NewStatisticsService(f.repos.Statistics, opts)
	ctx := context.Background()

	customer := dbtest.Customer(t, f.db, 0)
	tea := dbtest.Product(t, f.db, "Tea", 20, "12.50")
	cup := dbtest.Product(t, f.db, "Cup", 20, "5.00")

	complete := []domain.OrderStatus{domain.OrderConfirmed, domain.OrderProcessing, domain.OrderShipping, domain.OrderCompleted}
	for i := 0; i < 2; i++ {
		req := orderRequest(customer, tea, 2)
		req.ShippingFee = dec("0")
		res, err := f.orders.CreateOrder(ctx, req)
		require.NoError(t, err)
		advance(t, f.orders, res.Order.ID, complete...)
	}

	// warm the cache, then complete another order and make sure the
	// cached report is dropped
	warm, err := svc.GetMonthlyRevenueForYear(ctx, 2024)
	require.NoError(t, err)
	assert.Len(t, warm.Months, 12)
	assertMoney(t, "50.00", warm.Months[2].Revenue)
	assertMoney(t, "50.00", warm.TotalRevenue)

	res, err := f.orders.CreateOrder(ctx, orderRequest(customer, cup, 1))
	require.NoError(t, err)
	advance(t, f.orders, res.Order.ID, domain.OrderConfirmed, domain.OrderCancelled)

	pending := orderRequest(customer, cup, 3)
	_, err = f.orders.CreateOrder(ctx, pending)
	require.NoError(t, err)

	cupReq := orderRequest(customer, cup, 2)
	cupReq.ShippingFee = dec("0")
	res, err = f.orders.CreateOrder(ctx, cupReq)
	require.NoError(t, err)
	advance(t, f.orders, res.Order.ID, complete...)
	assert.Contains(t, cache.invalidated, 2024)

	report, err := svc.GetMonthlyRevenueForYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, report.Months, 12)
	for i, m := range report.Months {
		assert.Equal(t, i+1, m.Month)
		if m.Month != 3 {
			assert.True(t, m.Revenue.IsZero(), "month %d", m.Month)
		}
	}
	assertMoney(t, "60.00", report.Months[2].Revenue)
	assert.Equal(t, 3, report.Months[2].OrderCount)
	assertMoney(t, "60.00", report.TotalRevenue)

	other, err := svc.GetMonthlyRevenueForYear(ctx, 2023)
	require.NoError(t, err)
	assert.True(t, other.TotalRevenue.IsZero())

	sales, err := svc.GetProductSalesForYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "Tea", sales[0].ProductName)
	assert.Equal(t, 4, sales[0].Quantity)
	assertMoney(t, "50.00", sales[0].Revenue)
	assert.Equal(t, "Cup", sales[1].ProductName)
	assert.Equal(t, 2, sales[1].Quantity)
	assertMoney(t, "10.00", sales[1].Revenue)
}
