package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-orders/internal/config"
	"shop-orders/internal/database/dbtest"
	"shop-orders/internal/domain"
)

func TestProductLifecycle(t *testing.T) {
	f := newFixture(t, config.VoucherPolicyReject, Options{})
	ctx := context.Background()

	created, err := f.products.CreateProduct(ctx, "  Green Tea ", 5, dec("4.999"))
	require.NoError(t, err)
	assert.Equal(t, "Green Tea", created.Product.Name)
	require.NotNil(t, created.Price)
	assert.True(t, created.Price.IsDefault)
	assertMoney(t, "5.00", created.Price.Price)

	id := created.Product.ID
	_, err = f.products.SetActivePrice(ctx, id, dec("6.50"))
	require.NoError(t, err)

	got, err := f.products.GetProduct(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.Price)
	assertMoney(t, "6.50", got.Price.Price)
	assert.False(t, got.Price.IsDefault)
	require.Len(t, got.Prices, 2, "price history is kept")

	restocked, err := f.products.Restock(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, 12, restocked.Stock)
	assert.Equal(t, 12, dbtest.Stock(t, f.db, id))

	list, err := f.products.ListProducts(ctx, Page{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.products.DeleteProduct(ctx, id))
	_, err = f.products.GetProduct(ctx, id)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.ErrorIs(t, f.products.DeleteProduct(ctx, id), domain.ErrProductNotFound)

	customer := dbtest.Customer(t, f.db, 0)
	_, err = f.orders.CreateOrder(ctx, orderRequest(customer, id, 1))
	assert.ErrorIs(t, err, domain.ErrProductNotFound, "deleted products cannot be ordered")

	list, err = f.products.ListProducts(ctx, Page{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProductValidation(t *testing.T) {
	f := newFixture(t, config.VoucherPolicyReject, Options{})
	ctx := context.Background()

	_, err := f.products.CreateProduct(ctx, " ", 1, dec("1"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = f.products.CreateProduct(ctx, "Tea", -1, dec("1"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = f.products.CreateProduct(ctx, "Tea", 1, dec("-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = f.products.Restock(ctx, uuid.New(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = f.products.Restock(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = f.products.SetActivePrice(ctx, uuid.New(), dec("1"))
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCustomerService(t *testing.T) {
	f := newFixture(t, config.VoucherPolicyReject, Options{})
	svc := NewCustomerService(f.db, f.repos.Customers, Options{})
	ctx := context.Background()

	c, err := svc.CreateCustomer(ctx, "Ann <ANN@Example.com>", "Ann Lee", 40)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", c.Email)

	got, err := svc.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Points)

	_, err = svc.CreateCustomer(ctx, "ann@example.com", "Other Ann", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = svc.CreateCustomer(ctx, "not-an-email", "X", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = svc.GetCustomer(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}
