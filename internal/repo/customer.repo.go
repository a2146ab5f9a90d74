package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"shop-orders/internal/domain"
)

type CustomerRepo interface {
	Create(ctx context.Context, tx *sql.Tx, customer *domain.Customer) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Customer, error)
	AdjustPoints(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta int) error
}

type customerRepo struct {
	db *sql.DB
}

func NewCustomerRepo(db *sql.DB) CustomerRepo {
	return &customerRepo{db: db}
}

const customerColumns = "id, email, full_name, points, created_at"

func scanCustomer(row *sql.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Email, &c.FullName, &c.Points, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select customer")
	}
	return &c, nil
}

func (r *customerRepo) Create(ctx context.Context, tx *sql.Tx, c *domain.Customer) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO customers (id, email, full_name, points, created_at) VALUES ($1, $2, $3, $4, $5)",
		c.ID, c.Email, c.FullName, c.Points, c.CreatedAt)
	return pkgerrors.Wrap(err, "insert customer")
}

func (r *customerRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return scanCustomer(r.db.QueryRowContext(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = $1", id))
}

func (r *customerRepo) FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Customer, error) {
	return scanCustomer(tx.QueryRowContext(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = $1 FOR UPDATE", id))
}

func (r *customerRepo) AdjustPoints(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta int) error {
	_, err := tx.ExecContext(ctx, "UPDATE customers SET points = points + $2 WHERE id = $1", id, delta)
	return pkgerrors.Wrap(err, "adjust points")
}
