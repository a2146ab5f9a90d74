package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-orders/internal/config"
	"shop-orders/internal/database"
	"shop-orders/internal/database/dbtest"
	"shop-orders/internal/domain"
	"shop-orders/internal/infrastructure/payment"
	"shop-orders/internal/worker"
)

func payOSRequest(t *testing.T, f *fixture) CreateOrderRequest {
	t.Helper()
	customer := dbtest.Customer(t, f.db, 0)
	product := dbtest.Product(t, f.db, "Tea", 10, "12.50")
	req := orderRequest(customer, product, 2)
	req.PaymentMethod = "payos"
	return req
}

func TestCheckoutOutcomes(t *testing.T) {
	f := newFixture(t, config.VoucherPolicyReject, Options{})
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc := NewPaymentService(f.db, f.repos.Orders, f.repos.Payments, payment.NewMockGateway(payment.Fixed(payment.OutcomeSuccess), 0), Options{})
		res, err := f.orders.CreateOrder(ctx, payOSRequest(t, f))
		require.NoError(t, err)

		p, err := svc.Checkout(ctx, res.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentSucceeded, p.Status)
		assertMoney(t, "28.00", p.Amount)

		order, err := f.orders.GetOrderDetails(ctx, res.Order.ID)
		require.NoError(t, err)
		assert.True(t, order.IsSuccess)
		assert.Equal(t, domain.OrderPending, order.Status)

		_, err = svc.Checkout(ctx, res.Order.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
	})

	t.Run("declined", func(t *testing.T) {
		svc := NewPaymentService(f.db, f.repos.Orders, f.repos.Payments, payment.NewMockGateway(payment.Fixed(payment.OutcomeDeclined), 0), Options{})
		res, err := f.orders.CreateOrder(ctx, payOSRequest(t, f))
		require.NoError(t, err)

		p, err := svc.Checkout(ctx, res.Order.ID)
		assert.ErrorIs(t, err, domain.ErrPaymentDeclined)
		require.NotNil(t, p)
		assert.Equal(t, domain.PaymentFailed, p.Status)

		order, err := f.orders.GetOrderDetails(ctx, res.Order.ID)
		require.NoError(t, err)
		assert.False(t, order.IsSuccess)
	})

	t.Run("cash on delivery", func(t *testing.T) {
		svc := NewPaymentService(f.db, f.repos.Orders, f.repos.Payments, payment.NewMockGateway(payment.Fixed(payment.OutcomeSuccess), 0), Options{})
		req := payOSRequest(t, f)
		req.PaymentMethod = "COD"
		res, err := f.orders.CreateOrder(ctx, req)
		require.NoError(t, err)

		_, err = svc.Checkout(ctx, res.Order.ID)
		assert.ErrorIs(t, err, domain.ErrPaymentNotAllowed)
	})

	t.Run("cancelled", func(t *testing.T) {
		svc := NewPaymentService(f.db, f.repos.Orders, f.repos.Payments, payment.NewMockGateway(payment.Fixed(payment.OutcomeSuccess), 0), Options{})
		res, err := f.orders.CreateOrder(ctx, payOSRequest(t, f))
		require.NoError(t, err)
		_, err = f.orders.CancelOrderAndRestoreStock(ctx, res.Order.ID)
		require.NoError(t, err)

		_, err = svc.Checkout(ctx, res.Order.ID)
		assert.ErrorIs(t, err, domain.ErrPaymentNotAllowed)
	})
}

func TestPhantomChargeIsReconciled(t *testing.T) {
	f := newFixture(t, config.VoucherPolicyReject, Options{})
	ctx := context.Background()

	gateway := payment.NewMockGateway(payment.Fixed(payment.OutcomePhantom), 0)
	svc := NewPaymentService(f.db, f.repos.Orders, f.repos.Payments, gateway, Options{})

	res, err := f.orders.CreateOrder(ctx, payOSRequest(t, f))
	require.NoError(t, err)

	p, err := svc.Checkout(ctx, res.Order.ID)
	require.ErrorIs(t, err, domain.ErrPaymentPending)
	assert.Equal(t, domain.PaymentProcessing, p.Status)

	_, err = svc.Checkout(ctx, res.Order.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentPending, "no second charge while one is open")

	rw := worker.NewReconciliationWorker(f.repos.Payments, svc, gateway, time.Second, -time.Minute)
	n, err := rw.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	settled, err := svc.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, settled.Status)
	assert.True(t, settled.GatewayTxn.Valid)

	order, err := f.orders.GetOrderDetails(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, order.IsSuccess)

	// a second pass finds nothing left to do
	n, err = rw.Process(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	again, err := svc.SettlePayment(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, again.Status, "settled payments are not changed")
}

func TestCancelWaitsForOpenPayment(t *testing.T) {
	f := newFixture(t, config.VoucherPolicyReject, Options{})
	ctx := context.Background()

	gateway := payment.NewMockGateway(payment.Fixed(payment.OutcomePhantom), 0)
	svc := NewPaymentService(f.db, f.repos.Orders, f.repos.Payments, gateway, Options{})

	res, err := f.orders.CreateOrder(ctx, payOSRequest(t, f))
	require.NoError(t, err)
	p, err := svc.Checkout(ctx, res.Order.ID)
	require.ErrorIs(t, err, domain.ErrPaymentPending)

	_, err = f.orders.CancelOrderAndRestoreStock(ctx, res.Order.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentInProgress)
	_, err = f.orders.UpdateOrderStatus(ctx, res.Order.ID, domain.OrderCancelled)
	assert.ErrorIs(t, err, domain.ErrPaymentInProgress)

	order, err := f.orders.GetOrderDetails(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)

	_, err = svc.SettlePayment(ctx, p.ID, true)
	require.NoError(t, err)
	order, err = f.orders.GetOrderDetails(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, order.IsSuccess)
	assert.Equal(t, domain.OrderPending, order.Status)
}

func TestSettleLeavesClosedOrderAlone(t *testing.T) {
	f := newFixture(t, config.VoucherPolicyReject, Options{})
	ctx := context.Background()
	svc := NewPaymentService(f.db, f.repos.Orders, f.repos.Payments, payment.NewMockGateway(payment.Fixed(payment.OutcomeSuccess), 0), Options{})

	res, err := f.orders.CreateOrder(ctx, payOSRequest(t, f))
	require.NoError(t, err)
	_, err = f.orders.CancelOrderAndRestoreStock(ctx, res.Order.ID)
	require.NoError(t, err)

	// a charge that was already in flight when the order closed
	now := time.Now()
	p := &domain.Payment{
		ID:        uuid.New(),
		OrderID:   res.Order.ID,
		Amount:    res.Order.Total,
		Status:    domain.PaymentProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, database.WithTx(ctx, f.db, func(tx *sql.Tx) error {
		return f.repos.Payments.CreatePayment(ctx, tx, p)
	}))

	settled, err := svc.SettlePayment(ctx, p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, settled.Status)

	order, err := f.orders.GetOrderDetails(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, order.Status)
	assert.False(t, order.IsSuccess)
}
