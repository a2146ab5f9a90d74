package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-orders/internal/database"
	"shop-orders/internal/database/dbtest"
	"shop-orders/internal/domain"
)

func newOrder(customerID, productID uuid.UUID, number string, at time.Time) *domain.Order {
	id := uuid.New()
	price := decimal.RequireFromString("12.50")
	o := &domain.Order{
		ID:              id,
		CustomerID:      customerID,
		OrderNumber:     number,
		ShippingAddress: "1 Main St",
		ShippingFee:     decimal.RequireFromString("3.00"),
		PaymentMethod:   domain.PaymentCOD,
		Status:          domain.OrderPending,
		OrderDate:       at,
		CreatedAt:       at,
		UpdatedAt:       at,
		Details: []domain.OrderDetail{
			{ID: uuid.New(), OrderID: id, ProductID: productID, ProductName: "Tea", Quantity: 2, UnitPrice: price},
		},
	}
	o.Subtotal = o.ItemsSubtotal()
	o.Discount = decimal.Zero
	o.Total = o.CalculateTotal()
	return o
}

func insertOrder(t *testing.T, db *sql.DB, orders OrderRepo, o *domain.Order) error {
	t.Helper()
	return database.WithTx(context.Background(), db, func(tx *sql.Tx) error {
		return orders.CreateOrder(context.Background(), tx, o)
	})
}

func TestOrderRepoCreateAndFind(t *testing.T) {
	db := dbtest.Require(t, testDB)
	orders := NewOrderRepo(db)
	ctx := context.Background()

	customer := dbtest.Customer(t, db, 0)
	product := dbtest.Product(t, db, "Tea", 10, "12.50")
	voucher := dbtest.Voucher(t, db, dbtest.VoucherSpec{Code: "SAVE10", Value: "10"})

	o := newOrder(customer, product, "ORD-20240315-AAAAAA", time.Now().UTC())
	o.AppliedVouchers = []domain.ApplyVoucher{
		{OrderID: o.ID, VoucherID: voucher, Code: "SAVE10", DiscountAmount: decimal.RequireFromString("2.50"), AppliedAt: o.CreatedAt},
	}
	o.Discount = o.VoucherDiscount()
	o.Total = o.CalculateTotal()
	require.NoError(t, insertOrder(t, db, orders, o))

	got, err := orders.FindById(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	assert.Equal(t, domain.OrderPending, got.Status)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("25.50")))
	require.Len(t, got.Details, 1)
	assert.Equal(t, 2, got.Details[0].Quantity)
	require.Len(t, got.AppliedVouchers, 1)
	assert.Equal(t, "SAVE10", got.AppliedVouchers[0].Code)
	assert.True(t, got.CalculateTotal().Equal(got.Total), "stored total matches the snapshot rows")

	missing, err := orders.FindById(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepoDuplicateNumber(t *testing.T) {
	db := dbtest.Require(t, testDB)
	orders := NewOrderRepo(db)

	customer := dbtest.Customer(t, db, 0)
	product := dbtest.Product(t, db, "Tea", 10, "12.50")

	require.NoError(t, insertOrder(t, db, orders, newOrder(customer, product, "ORD-20240315-DUPDUP", time.Now())))
	err := insertOrder(t, db, orders, newOrder(customer, product, "ORD-20240315-DUPDUP", time.Now()))
	assert.ErrorIs(t, err, domain.ErrOrderNumberTaken)
	assert.Equal(t, 1, dbtest.Count(t, db, "orders"))
	assert.Equal(t, 1, dbtest.Count(t, db, "order_details"))
}

func TestOrderRepoStatusAndPaid(t *testing.T) {
	db := dbtest.Require(t, testDB)
	orders := NewOrderRepo(db)
	ctx := context.Background()

	customer := dbtest.Customer(t, db, 0)
	product := dbtest.Product(t, db, "Tea", 10, "12.50")
	o := newOrder(customer, product, "ORD-20240315-STATUS", time.Now())
	require.NoError(t, insertOrder(t, db, orders, o))

	require.NoError(t, database.WithTx(ctx, db, func(tx *sql.Tx) error {
		locked, err := orders.FindByIdForUpdate(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		if err := locked.Transition(domain.OrderConfirmed, time.Now()); err != nil {
			return err
		}
		if err := orders.UpdateOrderStatus(ctx, tx, locked); err != nil {
			return err
		}
		return orders.MarkPaid(ctx, tx, o.ID)
	}))

	got, err := orders.FindById(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, got.Status)
	assert.True(t, got.IsSuccess)
}

func TestOrderRepoListByCustomer(t *testing.T) {
	db := dbtest.Require(t, testDB)
	orders := NewOrderRepo(db)
	ctx := context.Background()

	customer := dbtest.Customer(t, db, 0)
	other := dbtest.Customer(t, db, 0)
	product := dbtest.Product(t, db, "Tea", 10, "12.50")

	base := time.Now().Add(-time.Hour)
	for i, n := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		require.NoError(t, insertOrder(t, db, orders, newOrder(customer, product, n, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, insertOrder(t, db, orders, newOrder(other, product, "ORD-4", base)))

	page, total, err := orders.ListByCustomer(ctx, customer, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "ORD-3", page[0].OrderNumber, "newest first")
	assert.Equal(t, "ORD-2", page[1].OrderNumber)

	page, _, err = orders.ListByCustomer(ctx, customer, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "ORD-1", page[0].OrderNumber)
}
