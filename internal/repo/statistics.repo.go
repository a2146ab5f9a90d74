package repo

import (
	"context"
	"database/sql"
	"time"

	pkgerrors "github.com/pkg/errors"

	"shop-orders/internal/domain"
)

type StatisticsRepo interface {
	MonthlyRevenue(ctx context.Context, year int) (map[int]domain.MonthlyRevenue, error)
	ProductSales(ctx context.Context, year int) ([]domain.ProductSales, error)
}

type statisticsRepo struct {
	db *sql.DB
}

func NewStatisticsRepo(db *sql.DB) StatisticsRepo {
	return &statisticsRepo{db: db}
}

// revenueFilter selects orders that count as revenue: completed, or paid and
// not cancelled afterwards.
const revenueFilter = `(o.status = 'COMPLETED' OR (o.is_success AND o.status <> 'CANCELLED'))
	AND o.order_date >= $1 AND o.order_date < $2`

func yearBounds(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

func (r *statisticsRepo) MonthlyRevenue(ctx context.Context, year int) (map[int]domain.MonthlyRevenue, error) {
	from, to := yearBounds(year)
	rows, err := r.db.QueryContext(ctx, `
		SELECT EXTRACT(MONTH FROM o.order_date AT TIME ZONE 'UTC')::int AS month,
		       COALESCE(SUM(o.total), 0),
		       COUNT(*)
		FROM orders o
		WHERE `+revenueFilter+`
		GROUP BY month`, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "monthly revenue")
	}
	defer rows.Close()

	out := make(map[int]domain.MonthlyRevenue)
	for rows.Next() {
		var m domain.MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.Revenue, &m.OrderCount); err != nil {
			return nil, pkgerrors.Wrap(err, "scan monthly revenue")
		}
		out[m.Month] = m
	}
	return out, pkgerrors.Wrap(rows.Err(), "iterate monthly revenue")
}

func (r *statisticsRepo) ProductSales(ctx context.Context, year int) ([]domain.ProductSales, error) {
	from, to := yearBounds(year)
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.product_id,
		       p.name,
		       SUM(d.quantity)::int,
		       SUM(d.quantity * d.unit_price)
		FROM order_details d
		JOIN orders o ON o.id = d.order_id
		JOIN products p ON p.id = d.product_id
		WHERE `+revenueFilter+`
		GROUP BY d.product_id, p.name
		ORDER BY SUM(d.quantity * d.unit_price) DESC, p.name`, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "product sales")
	}
	defer rows.Close()

	var sales []domain.ProductSales
	for rows.Next() {
		var s domain.ProductSales
		if err := rows.Scan(&s.ProductID, &s.ProductName, &s.Quantity, &s.Revenue); err != nil {
			return nil, pkgerrors.Wrap(err, "scan product sales")
		}
		sales = append(sales, s)
	}
	return sales, pkgerrors.Wrap(rows.Err(), "iterate product sales")
}
