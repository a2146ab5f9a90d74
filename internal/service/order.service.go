package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"shop-orders/internal/config"
	"shop-orders/internal/database"
	"shop-orders/internal/domain"
	"shop-orders/internal/events"
	"shop-orders/internal/repo"
)

// maxOrderNumberAttempts bounds how often an order is retried after its
// generated number collided with an existing one.
const maxOrderNumberAttempts = 3

// maxLineQuantity is the largest quantity per product an order may hold,
// the range of the INTEGER quantity and stock columns.
const maxLineQuantity = math.MaxInt32

type OrderItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateOrderRequest struct {
	CustomerID      uuid.UUID
	Items           []OrderItem
	VoucherCodes    []string
	ShippingAddress string
	ShippingFee     decimal.Decimal
	ShippingCode    string
	PaymentMethod   string
}

type CreateOrderResult struct {
	Order *domain.Order
	// SkippedVouchers is only filled under the skip policy.
	SkippedVouchers []SkippedVoucher
}

type Page struct {
	Number int
	Size   int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// keeps (Number-1)*Size inside an int32 offset
	maxPageNumber = math.MaxInt32/maxPageSize + 1
)

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	if p.Number > maxPageNumber {
		p.Number = maxPageNumber
	}
	return p
}

type OrderPage struct {
	Orders []domain.Order
	Total  int
	Page   Page
}

type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error)
	GetOrderDetails(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, page Page) (*OrderPage, error)
	CalculateOrderTotal(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	CancelOrderAndRestoreStock(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

type orderService struct {
	db          *sql.DB
	orderRepo   repo.OrderRepo
	productRepo repo.ProductRepo
	customers   repo.CustomerRepo
	paymentRepo repo.PaymentRepo
	vouchers    *voucherApplier
	opts        Options
	orderNumber func(time.Time) string
}

func NewOrderService(
	db *sql.DB,
	repos repo.Repositories,
	policy config.VoucherPolicy,
	opts Options,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   repos.Orders,
		productRepo: repos.Products,
		customers:   repos.Customers,
		paymentRepo: repos.Payments,
		vouchers:    &voucherApplier{vouchers: repos.Vouchers, policy: policy},
		opts:        opts.withDefaults(),
		orderNumber: domain.NewOrderNumber,
	}
}

// validate checks the request shape and merges lines for the same product.
// Lines come back sorted by product id, the order rows are locked in.
func (req CreateOrderRequest) validate() ([]OrderItem, domain.PaymentMethod, error) {
	if req.CustomerID == uuid.Nil {
		return nil, "", domain.Invalidf("customer id is required")
	}
	if len(req.Items) == 0 {
		return nil, "", domain.Invalidf("order needs at least one item")
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return nil, "", domain.Invalidf("shipping address is required")
	}
	if req.ShippingFee.IsNegative() {
		return nil, "", domain.Invalidf("shipping fee must not be negative")
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, "", err
	}

	qty := make(map[uuid.UUID]int, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == uuid.Nil {
			return nil, "", domain.Invalidf("product id is required")
		}
		if it.Quantity <= 0 {
			return nil, "", domain.Invalidf("quantity for product %s must be positive", it.ProductID)
		}
		if it.Quantity > maxLineQuantity-qty[it.ProductID] {
			return nil, "", domain.Invalidf("quantity for product %s must not exceed %d", it.ProductID, maxLineQuantity)
		}
		qty[it.ProductID] += it.Quantity
	}
	items := make([]OrderItem, 0, len(qty))
	for id, q := range qty {
		items = append(items, OrderItem{ProductID: id, Quantity: q})
	}
	sort.Slice(items, func(i, j int) bool {
		return bytes.Compare(items[i].ProductID[:], items[j].ProductID[:]) < 0
	})
	return items, method, nil
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (res *CreateOrderResult, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder")
	span.SetAttributes(attribute.String("customer.id", req.CustomerID.String()), attribute.Int("order.lines", len(req.Items)))
	defer func() { endSpan(span, err) }()

	defer func() {
		if err != nil {
			s.opts.Metrics.OrdersRejected.WithLabelValues(domain.AsError(err).Code).Inc()
		}
	}()

	items, method, err := req.validate()
	if err != nil {
		return nil, err
	}
	codes, err := normalizeCodes(req.VoucherCodes)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindById(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrCustomerNotFound.Withf("customer %s not found", req.CustomerID)
	}

	for attempt := 1; ; attempt++ {
		res, err = s.placeOrder(ctx, req, items, codes, method)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrOrderNumberTaken) || attempt == maxOrderNumberAttempts {
			return nil, err
		}
		zlog.Ctx(ctx).Warn().Int("attempt", attempt).Msg("order number collision, retrying")
	}

	order := res.Order
	s.opts.Metrics.ObserveOrder(order.Total)
	s.opts.Metrics.VouchersApplied.Add(float64(len(order.AppliedVouchers)))
	for _, sv := range res.SkippedVouchers {
		s.opts.Metrics.VouchersSkipped.WithLabelValues(sv.Reason).Inc()
	}
	s.opts.publish(ctx, func() (events.Event, error) { return events.OrderPlacedEvent(order) })

	zlog.Ctx(ctx).Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("total", order.Total.StringFixed(2)).
		Int("vouchers", len(order.AppliedVouchers)).
		Msg("order placed")
	return res, nil
}

// placeOrder runs one attempt. Everything it writes is rolled back on error.
func (s *orderService) placeOrder(ctx context.Context, req CreateOrderRequest, items []OrderItem, codes []string, method domain.PaymentMethod) (*CreateOrderResult, error) {
	now := s.opts.Now()
	order := &domain.Order{
		ID:              uuid.New(),
		CustomerID:      req.CustomerID,
		OrderNumber:     s.orderNumber(now),
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		ShippingFee:     domain.RoundMoney(req.ShippingFee),
		ShippingCode:    req.ShippingCode,
		PaymentMethod:   method,
		Status:          domain.OrderPending,
		OrderDate:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	res := &CreateOrderResult{Order: order}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, it := range items {
			product, err := s.productRepo.FindByIdForUpdate(ctx, tx, it.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return domain.ErrProductNotFound.Withf("product %s not found", it.ProductID)
			}
			if it.Quantity > product.Stock {
				return domain.ErrInsufficientStock.Withf("product %s has %d in stock, %d requested", product.Name, product.Stock, it.Quantity)
			}
			price, err := s.productRepo.FindActivePrice(ctx, tx, product.ID)
			if err != nil {
				return err
			}
			if price == nil {
				return domain.ErrNoActivePrice.Withf("product %s has no active price", product.Name)
			}
			if err := s.productRepo.AdjustStock(ctx, tx, product.ID, -it.Quantity); err != nil {
				return err
			}
			order.Details = append(order.Details, domain.OrderDetail{
				ID:          uuid.New(),
				OrderID:     order.ID,
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    it.Quantity,
				UnitPrice:   price.Price,
			})
		}
		order.Subtotal = domain.RoundMoney(order.ItemsSubtotal())

		applied, err := s.vouchers.apply(ctx, tx, req.CustomerID, codes, order.Subtotal, now)
		if err != nil {
			return err
		}
		for i := range applied.applied {
			applied.applied[i].OrderID = order.ID
		}
		order.AppliedVouchers = applied.applied
		order.Discount = applied.discount
		order.Total = domain.ComputeTotal(order.Subtotal, order.ShippingFee, order.Discount)
		res.SkippedVouchers = applied.skipped

		return s.orderRepo.CreateOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *orderService) GetOrderDetails(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound.Withf("order %s not found", orderID)
	}
	return order, nil
}

func (s *orderService) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, page Page) (*OrderPage, error) {
	page = page.normalize()
	orders, total, err := s.orderRepo.ListByCustomer(ctx, customerID, page.Size, (page.Number-1)*page.Size)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &OrderPage{Orders: orders, Total: total, Page: page}, nil
}

// CalculateOrderTotal recomputes the total from the stored snapshot, so
// later price changes never affect it.
func (s *orderService) CalculateOrderTotal(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	order, err := s.GetOrderDetails(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	return order.CalculateTotal(), nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (order *domain.Order, err error) {
	if status == domain.OrderCancelled {
		return s.CancelOrderAndRestoreStock(ctx, orderID)
	}

	ctx, span := tracer.Start(ctx, "OrderService.UpdateOrderStatus")
	span.SetAttributes(attribute.String("order.id", orderID.String()), attribute.String("order.status", string(status)))
	defer func() { endSpan(span, err) }()

	var from domain.OrderStatus
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		order, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if err := order.Transition(status, s.opts.Now()); err != nil {
			return err
		}
		return s.orderRepo.UpdateOrderStatus(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, order, from)
	return order, nil
}

func (s *orderService) CancelOrderAndRestoreStock(ctx context.Context, orderID uuid.UUID) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.CancelOrderAndRestoreStock")
	span.SetAttributes(attribute.String("order.id", orderID.String()))
	defer func() { endSpan(span, err) }()

	var from domain.OrderStatus
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		order, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if err := order.Transition(domain.OrderCancelled, s.opts.Now()); err != nil {
			return err
		}
		// Checkout also locks the order, so no payment can open after this check.
		open, err := s.paymentRepo.FindOpenByOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if open != nil && open.Status == domain.PaymentProcessing {
			return domain.ErrPaymentInProgress.Withf("order %s has payment %s in progress", order.OrderNumber, open.ID)
		}

		details := make([]domain.OrderDetail, len(order.Details))
		copy(details, order.Details)
		sort.Slice(details, func(i, j int) bool {
			return bytes.Compare(details[i].ProductID[:], details[j].ProductID[:]) < 0
		})
		for _, d := range details {
			if err := s.productRepo.AdjustStock(ctx, tx, d.ProductID, d.Quantity); err != nil {
				return err
			}
		}
		return s.orderRepo.UpdateOrderStatus(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, order, from)
	return order, nil
}

func (s *orderService) lockOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByIdForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound.Withf("order %s not found", orderID)
	}
	return order, nil
}

func (s *orderService) afterTransition(ctx context.Context, order *domain.Order, from domain.OrderStatus) {
	s.opts.Metrics.StatusTransitions.WithLabelValues(string(from), string(order.Status)).Inc()
	if order.IsSuccess {
		s.opts.invalidateYear(ctx, order.OrderDate.UTC().Year())
	}
	s.opts.publish(ctx, func() (events.Event, error) { return events.StatusChangedEvent(order, from) })

	zlog.Ctx(ctx).Info().
		Str("order_id", order.ID.String()).
		Str("from", string(from)).
		Str("to", string(order.Status)).
		Msg("order status changed")
}
