package worker

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-orders/internal/domain"
)

type fakePayments struct {
	processing []domain.Payment
	before     time.Time
	err        error
}

func (f *fakePayments) CreatePayment(context.Context, *sql.Tx, *domain.Payment) error { return nil }
func (f *fakePayments) FindById(context.Context, uuid.UUID) (*domain.Payment, error) {
	return nil, nil
}
func (f *fakePayments) FindByIdForUpdate(context.Context, *sql.Tx, uuid.UUID) (*domain.Payment, error) {
	return nil, nil
}
func (f *fakePayments) FindOpenByOrder(context.Context, *sql.Tx, uuid.UUID) (*domain.Payment, error) {
	return nil, nil
}
func (f *fakePayments) UpdatePaymentStatus(context.Context, *sql.Tx, uuid.UUID, domain.PaymentStatus, uuid.NullUUID) error {
	return nil
}
func (f *fakePayments) FindProcessingBefore(_ context.Context, before time.Time, _ int) ([]domain.Payment, error) {
	f.before = before
	return f.processing, f.err
}

type fakeGateway struct {
	paid map[uuid.UUID]bool
	fail map[uuid.UUID]bool
}

func (g *fakeGateway) Charge(context.Context, decimal.Decimal, uuid.UUID) (bool, error) {
	return false, errors.New("not used")
}

func (g *fakeGateway) CheckStatus(_ context.Context, key uuid.UUID) (bool, error) {
	if g.fail[key] {
		return false, errors.New("gateway unavailable")
	}
	return g.paid[key], nil
}

type fakeSettler struct {
	settled map[uuid.UUID]bool
}

func (s *fakeSettler) SettlePayment(_ context.Context, id uuid.UUID, paid bool) (*domain.Payment, error) {
	s.settled[id] = paid
	return &domain.Payment{ID: id}, nil
}

func TestProcessSettlesStuckPayments(t *testing.T) {
	phantom := domain.Payment{ID: uuid.New(), OrderID: uuid.New(), Status: domain.PaymentProcessing}
	abandoned := domain.Payment{ID: uuid.New(), OrderID: uuid.New(), Status: domain.PaymentProcessing}
	unreachable := domain.Payment{ID: uuid.New(), OrderID: uuid.New(), Status: domain.PaymentProcessing}

	payments := &fakePayments{processing: []domain.Payment{phantom, abandoned, unreachable}}
	gateway := &fakeGateway{
		paid: map[uuid.UUID]bool{phantom.ID: true},
		fail: map[uuid.UUID]bool{unreachable.ID: true},
	}
	settler := &fakeSettler{settled: map[uuid.UUID]bool{}}

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rw := NewReconciliationWorker(payments, settler, gateway, time.Second, time.Minute)
	rw.now = func() time.Time { return now }

	n, err := rw.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, now.Add(-time.Minute), payments.before)

	assert.Equal(t, map[uuid.UUID]bool{phantom.ID: true, abandoned.ID: false}, settler.settled)
}

func TestProcessNothingStuck(t *testing.T) {
	settler := &fakeSettler{settled: map[uuid.UUID]bool{}}
	rw := NewReconciliationWorker(&fakePayments{}, settler, &fakeGateway{}, time.Second, time.Minute)

	n, err := rw.Process(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, settler.settled)
}

func TestProcessRepoError(t *testing.T) {
	rw := NewReconciliationWorker(&fakePayments{err: errors.New("db down")}, &fakeSettler{}, &fakeGateway{}, time.Second, time.Minute)
	_, err := rw.Process(context.Background())
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	rw := NewReconciliationWorker(&fakePayments{}, &fakeSettler{settled: map[uuid.UUID]bool{}}, &fakeGateway{}, 10*time.Millisecond, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		rw.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
