package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"shop-orders/internal/config"
	"shop-orders/internal/database"
	"shop-orders/internal/domain"
	"shop-orders/internal/infrastructure/payment"
	"shop-orders/internal/logger"
	"shop-orders/internal/repo"
	"shop-orders/internal/service"
	"shop-orders/internal/worker"
)

// simulate seeds a product and a voucher, fires concurrent orders and online
// checkouts against them, then lets the reconciliation worker settle the
// phantom charges and prints what ended up in the database.
func main() {
	buyers := flag.Int("buyers", 20, "concurrent buyers")
	stock := flag.Int("stock", 15, "units of the seeded product")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("load config")
	}
	logger.Init("shop-simulate", cfg.LogLevel, true)
	ctx := context.Background()

	dbs, err := database.New(ctx, cfg.DB)
	if err != nil {
		zlog.Fatal().Err(err).Msg("connect database")
	}
	defer dbs.Close()
	db := dbs.DB()
	if err := database.Migrate(ctx, db); err != nil {
		zlog.Fatal().Err(err).Msg("migrate database")
	}

	repos := repo.NewRepositories(db)
	opts := service.Options{}
	gateway := payment.NewMockGateway(payment.RandomOutcome, 100*time.Millisecond)

	customers := service.NewCustomerService(db, repos.Customers, opts)
	products := service.NewProductService(db, repos.Products, opts)
	vouchers := service.NewVoucherService(db, repos.Vouchers, repos.Customers, opts)
	orders := service.NewOrderService(db, repos, cfg.VoucherPolicy, opts)
	payments := service.NewPaymentService(db, repos.Orders, repos.Payments, gateway, opts)

	run := uuid.NewString()[:8]
	product, err := products.CreateProduct(ctx, "Simulated Tea "+run, *stock, decimal.RequireFromString("12.50"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("seed product")
	}
	limit := max(*buyers/4, 1)
	voucherCode := "SIM" + run
	_, err = vouchers.CreateVoucher(ctx, service.CreateVoucherRequest{
		Code:          voucherCode,
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		StartDate:     time.Now().Add(-time.Minute),
		EndDate:       time.Now().Add(time.Hour),
		MaxDiscount:   decimal.NewNullDecimal(decimal.NewFromInt(5)),
		UsageLimit:    &limit,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("seed voucher")
	}

	fmt.Printf("--- STARTING SIMULATION (%d buyers, %d units, voucher %s limited to %d) ---\n", *buyers, *stock, voucherCode, limit)

	var (
		mu      sync.Mutex
		results = map[string]int{}
		wg      sync.WaitGroup
	)
	count := func(key string) {
		mu.Lock()
		results[key]++
		mu.Unlock()
	}

	for i := 0; i < *buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := customers.CreateCustomer(ctx, fmt.Sprintf("buyer-%s-%d@example.com", run, i), fmt.Sprintf("Buyer %d", i), 0)
			if err != nil {
				count("customer error")
				return
			}
			res, err := orders.CreateOrder(ctx, service.CreateOrderRequest{
				CustomerID:      c.ID,
				Items:           []service.OrderItem{{ProductID: product.Product.ID, Quantity: 1}},
				VoucherCodes:    []string{voucherCode},
				ShippingAddress: "1 Simulation Way",
				ShippingFee:     decimal.RequireFromString("3.00"),
				PaymentMethod:   string(domain.PaymentPayOS),
			})
			if err != nil {
				count("order " + domain.AsError(err).Code)
				return
			}
			count("order placed")

			_, err = payments.Checkout(ctx, res.Order.ID)
			switch {
			case err == nil:
				count("checkout paid")
			case errors.Is(err, domain.ErrPaymentPending):
				count("checkout timed out")
			default:
				count("checkout " + domain.AsError(err).Code)
			}
		}(i)
	}
	wg.Wait()

	for k, v := range results {
		fmt.Printf("%-40s %d\n", k, v)
	}

	// timed-out charges are older than zero seconds right away, so one pass
	// settles all of them
	rw := worker.NewReconciliationWorker(repos.Payments, payments, gateway, time.Second, 0)
	settled, err := rw.Process(ctx)
	if err != nil {
		zlog.Fatal().Err(err).Msg("reconcile")
	}

	left, err := products.GetProduct(ctx, product.Product.ID)
	if err != nil {
		zlog.Fatal().Err(err).Msg("reload product")
	}
	v, err := vouchers.GetVoucher(ctx, voucherCode)
	if err != nil {
		zlog.Fatal().Err(err).Msg("reload voucher")
	}
	fmt.Println("---------------------------------------------------")
	fmt.Printf("payments settled by reconciliation: %d\n", settled)
	fmt.Printf("stock left: %d (never negative)\n", left.Product.Stock)
	fmt.Printf("voucher uses: %d of %d\n", v.UsageCount, limit)
}
