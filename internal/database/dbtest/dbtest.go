// Package dbtest starts a throwaway Postgres for integration tests and
// offers small fixtures written in plain SQL.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"shop-orders/internal/database"
)

const image = "postgres:16-alpine"

// Start runs a Postgres container and applies the schema. Callers use it
// from TestMain; when Docker is not reachable the error is returned so the
// package can skip its integration tests.
func Start(ctx context.Context) (db *sql.DB, stop func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start postgres container: %v", r)
		}
	}()

	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase("shop"),
		postgres.WithUsername("shop"),
		postgres.WithPassword("shop"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		if ctr != nil {
			_ = testcontainers.TerminateContainer(ctr)
		}
		return nil, nil, err
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, nil, err
	}
	db, err = sql.Open("pgx", dsn)
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		_ = testcontainers.TerminateContainer(ctr)
		return nil, nil, err
	}

	stop = func() {
		_ = db.Close()
		_ = testcontainers.TerminateContainer(ctr)
	}
	return db, stop, nil
}

// Require skips the test when no database was started and otherwise empties
// every table.
func Require(t *testing.T, db *sql.DB) *sql.DB {
	t.Helper()
	if db == nil {
		t.Skip("postgres container not available")
	}
	_, err := db.ExecContext(context.Background(), `
		TRUNCATE payments, apply_vouchers, order_details, orders,
		         vouchers, product_prices, products, customers CASCADE`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return db
}

func Customer(t *testing.T, db *sql.DB, points int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`INSERT INTO customers (id, email, full_name, points) VALUES ($1, $2, $3, $4)`,
		id, id.String()+"@example.com", "Test Customer", points)
	if err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	return id
}

// Product inserts a product with one default, active price.
func Product(t *testing.T, db *sql.DB, name string, stock int, price string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := db.Exec(`INSERT INTO products (id, name, stock) VALUES ($1, $2, $3)`, id, name, stock); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	_, err := db.Exec(`INSERT INTO product_prices (id, product_id, price, is_default, is_active) VALUES ($1, $2, $3, true, true)`,
		uuid.New(), id, decimal.RequireFromString(price))
	if err != nil {
		t.Fatalf("insert price: %v", err)
	}
	return id
}

// ProductWithoutPrice inserts a product that cannot be ordered.
func ProductWithoutPrice(t *testing.T, db *sql.DB, name string, stock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := db.Exec(`INSERT INTO products (id, name, stock) VALUES ($1, $2, $3)`, id, name, stock); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}

func Stock(t *testing.T, db *sql.DB, productID uuid.UUID) int {
	t.Helper()
	var stock int
	if err := db.QueryRow(`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}

type VoucherSpec struct {
	Code         string
	DiscountType string
	Value        string
	MinOrder     string
	MaxDiscount  string
	UsageLimit   int
	UsageCount   int
	Inactive     bool
	OwnerID      *uuid.UUID
	PointCost    int
}

// Voucher inserts a voucher valid from an hour ago until tomorrow.
func Voucher(t *testing.T, db *sql.DB, v VoucherSpec) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if v.DiscountType == "" {
		v.DiscountType = "PERCENTAGE"
	}
	now := time.Now()
	metadata := "{}"
	if v.OwnerID != nil {
		metadata = fmt.Sprintf(`{"customer_id":%q}`, v.OwnerID.String())
	}
	_, err := db.Exec(`
		INSERT INTO vouchers (id, code, discount_type, discount_value, start_date, end_date,
		                      min_order, max_discount, usage_limit, usage_count, is_active, is_root, metadata, point_cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, v.Code, v.DiscountType, decimal.RequireFromString(v.Value), now.Add(-time.Hour), now.Add(24*time.Hour),
		nullDecimal(v.MinOrder), nullDecimal(v.MaxDiscount), nullInt(v.UsageLimit), v.UsageCount,
		!v.Inactive, v.OwnerID == nil, metadata, nullInt(v.PointCost))
	if err != nil {
		t.Fatalf("insert voucher: %v", err)
	}
	return id
}

func VoucherUsage(t *testing.T, db *sql.DB, code string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT usage_count FROM vouchers WHERE code = $1`, code).Scan(&n); err != nil {
		t.Fatalf("read voucher usage: %v", err)
	}
	return n
}

func Count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func nullDecimal(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i > 0}
}
