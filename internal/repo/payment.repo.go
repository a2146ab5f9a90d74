package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"shop-orders/internal/domain"
)

type PaymentRepo interface {
	// tx *sql.Tx -> the payment row is written together with order changes
	CreatePayment(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error)
	// FindOpenByOrder returns the newest payment of the order that is not FAILED.
	FindOpenByOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.PaymentStatus, gatewayTxn uuid.NullUUID) error
	FindProcessingBefore(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error)
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

const paymentColumns = "id, order_id, amount, gateway_txn_id, status, created_at, updated_at"

func scanPayment(row interface{ Scan(...any) error }) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Amount,
		&p.GatewayTxn,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) CreatePayment(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error {
	query := `INSERT INTO payments (id, order_id, amount, gateway_txn_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.ExecContext(
		ctx, query, payment.ID, payment.OrderID, payment.Amount, payment.GatewayTxn, payment.Status, payment.CreatedAt, payment.UpdatedAt,
	)
	return pkgerrors.Wrap(err, "insert payment")
}

func (r *paymentRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select payment")
	}
	return p, nil
}

func (r *paymentRepo) FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error) {
	p, err := scanPayment(tx.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "lock payment")
	}
	return p, nil
}

func (r *paymentRepo) FindOpenByOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*domain.Payment, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE order_id = $1 AND status <> $2 ORDER BY created_at DESC LIMIT 1",
		orderID, domain.PaymentFailed)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select open payment")
	}
	return p, nil
}

func (r *paymentRepo) UpdatePaymentStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.PaymentStatus, gatewayTxn uuid.NullUUID) error {
	query := `
		UPDATE payments
		SET status = $2,
		    gateway_txn_id = COALESCE($3, gateway_txn_id),
		    updated_at = now()
		WHERE id = $1
	`
	_, err := tx.ExecContext(
		ctx,
		query,
		id,
		status,
		gatewayTxn,
	)
	return pkgerrors.Wrap(err, "update payment status")
}

func (r *paymentRepo) FindProcessingBefore(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE status = $1
		AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, domain.PaymentProcessing, before, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select processing payments")
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan payment")
		}
		payments = append(payments, *p)
	}
	return payments, pkgerrors.Wrap(rows.Err(), "iterate payments")
}
