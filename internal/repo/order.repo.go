package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"shop-orders/internal/database"
	"shop-orders/internal/domain"
)

type OrderRepo interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// FindByIdForUpdate loads the full order graph and locks the order row.
	FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Order, int, error)
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, customer_id, order_number, shipping_address, shipping_fee, shipping_code,
	payment_method, status, subtotal, discount, total, is_success, order_date, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.OrderNumber,
		&o.ShippingAddress,
		&o.ShippingFee,
		&o.ShippingCode,
		&o.PaymentMethod,
		&o.Status,
		&o.Subtotal,
		&o.Discount,
		&o.Total,
		&o.IsSuccess,
		&o.OrderDate,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOrder(ctx, r.db, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
}

func (r *orderRepo) FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	return r.findOrder(ctx, tx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
}

func (r *orderRepo) findOrder(ctx context.Context, q database.DBTX, query string, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select order") // system error
	}
	if order.Details, err = r.findDetails(ctx, q, id); err != nil {
		return nil, err
	}
	if order.AppliedVouchers, err = r.findAppliedVouchers(ctx, q, id); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepo) findDetails(ctx context.Context, q database.DBTX, orderID uuid.UUID) ([]domain.OrderDetail, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, unit_price
		 FROM order_details WHERE order_id = $1 ORDER BY product_name, id`, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select order details")
	}
	defer rows.Close()

	var details []domain.OrderDetail
	for rows.Next() {
		var d domain.OrderDetail
		if err := rows.Scan(&d.ID, &d.OrderID, &d.ProductID, &d.ProductName, &d.Quantity, &d.UnitPrice); err != nil {
			return nil, pkgerrors.Wrap(err, "scan order detail")
		}
		details = append(details, d)
	}
	return details, pkgerrors.Wrap(rows.Err(), "iterate order details")
}

func (r *orderRepo) findAppliedVouchers(ctx context.Context, q database.DBTX, orderID uuid.UUID) ([]domain.ApplyVoucher, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT order_id, voucher_id, code, discount_amount, applied_at
		 FROM apply_vouchers WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select applied vouchers")
	}
	defer rows.Close()

	var applied []domain.ApplyVoucher
	for rows.Next() {
		var av domain.ApplyVoucher
		if err := rows.Scan(&av.OrderID, &av.VoucherID, &av.Code, &av.DiscountAmount, &av.AppliedAt); err != nil {
			return nil, pkgerrors.Wrap(err, "scan applied voucher")
		}
		applied = append(applied, av)
	}
	return applied, pkgerrors.Wrap(rows.Err(), "iterate applied vouchers")
}

// ListByCustomer returns one page of orders without their line items, plus
// the total number of orders the customer has.
func (r *orderRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM orders WHERE customer_id = $1", customerID).Scan(&total); err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count orders")
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE customer_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3",
		customerID, limit, offset)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, pkgerrors.Wrap(err, "scan order")
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, pkgerrors.Wrap(err, "iterate orders")
	}
	return orders, total, nil
}

// CreateOrder writes the order, its details and its applied vouchers.
func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, order_number, shipping_address, shipping_fee, shipping_code,
		                    payment_method, status, subtotal, discount, total, is_success, order_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.CustomerID, o.OrderNumber, o.ShippingAddress, o.ShippingFee, o.ShippingCode,
		o.PaymentMethod, o.Status, o.Subtotal, o.Discount, o.Total, o.IsSuccess, o.OrderDate, o.CreatedAt, o.UpdatedAt)
	if database.IsUniqueViolation(err, "orders_order_number_key") {
		return domain.ErrOrderNumberTaken.Withf("order number %s already exists", o.OrderNumber).Wrap(err)
	}
	if err != nil {
		return pkgerrors.Wrap(err, "insert order")
	}

	for _, d := range o.Details {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_details (id, order_id, product_id, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			d.ID, o.ID, d.ProductID, d.ProductName, d.Quantity, d.UnitPrice)
		if err != nil {
			return pkgerrors.Wrap(err, "insert order detail")
		}
	}

	for i, av := range o.AppliedVouchers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO apply_vouchers (order_id, voucher_id, code, discount_amount, position, applied_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, av.VoucherID, av.Code, av.DiscountAmount, i, av.AppliedAt)
		if err != nil {
			return pkgerrors.Wrap(err, "insert applied voucher")
		}
	}
	return nil
}

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, is_success = $2, updated_at = $3 WHERE id = $4",
		order.Status, order.IsSuccess, order.UpdatedAt, order.ID)
	return pkgerrors.Wrap(err, "update order status")
}

func (r *orderRepo) MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE orders SET is_success = true, updated_at = now() WHERE id = $1", id)
	return pkgerrors.Wrap(err, "mark order paid")
}
