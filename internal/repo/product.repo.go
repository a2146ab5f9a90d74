package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"shop-orders/internal/database"
	"shop-orders/internal/domain"
)

type ProductRepo interface {
	Create(ctx context.Context, tx *sql.Tx, product *domain.Product) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// FindByIdForUpdate locks the product row until the transaction ends.
	FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
	AdjustStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta int) error
	SoftDelete(ctx context.Context, tx *sql.Tx, id uuid.UUID) (bool, error)

	CreatePrice(ctx context.Context, tx *sql.Tx, price *domain.ProductPrice) error
	FindActivePrice(ctx context.Context, q database.DBTX, productID uuid.UUID) (*domain.ProductPrice, error)
	DeactivatePrices(ctx context.Context, tx *sql.Tx, productID uuid.UUID) error
	ListPrices(ctx context.Context, productID uuid.UUID) ([]domain.ProductPrice, error)
}

type productRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepo {
	return &productRepo{db: db}
}

// productVisible is the single soft-delete filter for every product read.
const productVisible = "is_deleted = false"

const productColumns = "id, name, stock, is_deleted, created_at, updated_at"

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Stock, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) Create(ctx context.Context, tx *sql.Tx, p *domain.Product) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO products (id, name, stock, is_deleted, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)",
		p.ID, p.Name, p.Stock, p.IsDeleted, p.CreatedAt, p.UpdatedAt)
	return pkgerrors.Wrap(err, "insert product")
}

func (r *productRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1 AND "+productVisible, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select product")
	}
	return p, nil
}

func (r *productRepo) FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Product, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1 AND "+productVisible+" FOR UPDATE", id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "lock product")
	}
	return p, nil
}

func (r *productRepo) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE "+productVisible+" ORDER BY created_at, id LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list products")
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan product")
		}
		products = append(products, *p)
	}
	return products, pkgerrors.Wrap(rows.Err(), "iterate products")
}

func (r *productRepo) AdjustStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock + $2, updated_at = $3 WHERE id = $1",
		id, delta, time.Now())
	if err != nil {
		return pkgerrors.Wrap(err, "adjust stock")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProductNotFound.Withf("product %s not found", id)
	}
	return nil
}

func (r *productRepo) SoftDelete(ctx context.Context, tx *sql.Tx, id uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET is_deleted = true, updated_at = $2 WHERE id = $1 AND "+productVisible,
		id, time.Now())
	if err != nil {
		return false, pkgerrors.Wrap(err, "soft delete product")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, pkgerrors.Wrap(err, "soft delete product")
	}
	return n > 0, nil
}

const priceColumns = "id, product_id, price, is_default, is_active, created_at"

func scanPrice(row interface{ Scan(...any) error }) (*domain.ProductPrice, error) {
	var p domain.ProductPrice
	if err := row.Scan(&p.ID, &p.ProductID, &p.Price, &p.IsDefault, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) CreatePrice(ctx context.Context, tx *sql.Tx, p *domain.ProductPrice) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO product_prices (id, product_id, price, is_default, is_active, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		p.ID, p.ProductID, p.Price, p.IsDefault, p.IsActive, p.CreatedAt)
	return pkgerrors.Wrap(err, "insert product price")
}

func (r *productRepo) FindActivePrice(ctx context.Context, q database.DBTX, productID uuid.UUID) (*domain.ProductPrice, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+priceColumns+" FROM product_prices WHERE product_id = $1 AND is_active", productID)
	p, err := scanPrice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select active price")
	}
	return p, nil
}

func (r *productRepo) DeactivatePrices(ctx context.Context, tx *sql.Tx, productID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE product_prices SET is_active = false WHERE product_id = $1 AND is_active", productID)
	return pkgerrors.Wrap(err, "deactivate prices")
}

func (r *productRepo) ListPrices(ctx context.Context, productID uuid.UUID) ([]domain.ProductPrice, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+priceColumns+" FROM product_prices WHERE product_id = $1 ORDER BY created_at DESC, id", productID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list prices")
	}
	defer rows.Close()

	var prices []domain.ProductPrice
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan price")
		}
		prices = append(prices, *p)
	}
	return prices, pkgerrors.Wrap(rows.Err(), "iterate prices")
}
