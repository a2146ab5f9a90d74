package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shop-orders/internal/metrics"
	"shop-orders/internal/service"
)

// Services are the use cases the HTTP layer passes requests through to.
type Services struct {
	Customers  service.CustomerService
	Products   service.ProductService
	Vouchers   service.VoucherService
	Orders     service.OrderService
	Payments   service.PaymentService
	Statistics service.StatisticsService
}

type Options struct {
	CORSOrigins []string
	Metrics     *metrics.Metrics
	// Gatherer backs /metrics. It is not mounted when nil.
	Gatherer prometheus.Gatherer
	// Health reports dependency status for /healthz.
	Health func(ctx context.Context) map[string]string
	Now    func() time.Time
}

type handler struct {
	svc Services
	now func() time.Time
}

func NewRouter(svc Services, opts Options) *gin.Engine {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &handler{svc: svc, now: opts.Now}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(opts.CORSOrigins))
	r.Use(requestContext())
	r.Use(observeRequests(opts.Metrics))

	r.GET("/healthz", func(c *gin.Context) {
		if opts.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "up"})
			return
		}
		stats := opts.Health(c.Request.Context())
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")

	customers := api.Group("/customers")
	customers.POST("", h.createCustomer)
	customers.GET("/:id", h.getCustomer)
	customers.GET("/:id/orders", h.listCustomerOrders)
	customers.GET("/:id/vouchers", h.listCustomerVouchers)

	products := api.Group("/products")
	products.POST("", h.createProduct)
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)
	products.PUT("/:id/price", h.setActivePrice)
	products.POST("/:id/restock", h.restock)
	products.DELETE("/:id", h.deleteProduct)

	vouchers := api.Group("/vouchers")
	vouchers.POST("", h.createVoucher)
	vouchers.POST("/:code/preview", h.previewVoucher)
	vouchers.GET("/:code", h.getVoucher)
	vouchers.POST("/:code/redeem", h.redeemVoucher)

	orders := api.Group("/orders")
	orders.POST("", h.createOrder)
	orders.GET("/:id", h.getOrder)
	orders.GET("/:id/total", h.orderTotal)
	orders.PATCH("/:id/status", h.updateOrderStatus)
	orders.POST("/:id/cancel", h.cancelOrder)
	orders.POST("/:id/checkout", h.checkout)

	api.GET("/payments/:id", h.getPayment)

	stats := api.Group("/statistics")
	stats.GET("/revenue", h.monthlyRevenue)
	stats.GET("/product-sales", h.productSales)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", headerRequestID},
		ExposeHeaders: []string{headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
