package service

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"shop-orders/internal/config"
	"shop-orders/internal/database/dbtest"
	"shop-orders/internal/repo"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	flag.Parse()
	stop := func() {}
	if !testing.Short() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		db, stopDB, err := dbtest.Start(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "integration tests skipped: %v\n", err)
		} else {
			testDB, stop = db, stopDB
		}
	}
	code := m.Run()
	stop()
	os.Exit(code)
}

type fixture struct {
	db       *sql.DB
	repos    repo.Repositories
	orders   OrderService
	vouchers VoucherService
	products ProductService
}

func newFixture(t *testing.T, policy config.VoucherPolicy, opts Options) *fixture {
	t.Helper()
	db := dbtest.Require(t, testDB)
	repos := repo.NewRepositories(db)
	return &fixture{
		db:       db,
		repos:    repos,
		orders:   NewOrderService(db, repos, policy, opts),
		vouchers: NewVoucherService(db, repos.Vouchers, repos.Customers, opts),
		products: NewProductService(db, repos.Products, opts),
	}
}
