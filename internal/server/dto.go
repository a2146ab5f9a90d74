package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shop-orders/internal/domain"
	"shop-orders/internal/service"
)

// money renders amounts with two decimals so "25.5" never leaks out.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := money(d.Decimal)
	return &s
}

type customerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Points   int    `json:"points"`
}

type customerResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

func toCustomer(c *domain.Customer) customerResponse {
	return customerResponse{ID: c.ID, Email: c.Email, FullName: c.FullName, Points: c.Points, CreatedAt: c.CreatedAt}
}

type productRequest struct {
	Name  string          `json:"name"`
	Stock int             `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

type priceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

type priceResponse struct {
	ID        uuid.UUID `json:"id"`
	Price     string    `json:"price"`
	IsDefault bool      `json:"is_default"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toPrice(p domain.ProductPrice) priceResponse {
	return priceResponse{ID: p.ID, Price: money(p.Price), IsDefault: p.IsDefault, IsActive: p.IsActive, CreatedAt: p.CreatedAt}
}

type productResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Stock     int             `json:"stock"`
	Price     *string         `json:"price,omitempty"`
	Prices    []priceResponse `json:"prices,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toProduct(p domain.Product) productResponse {
	return productResponse{ID: p.ID, Name: p.Name, Stock: p.Stock, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

func toProductWithPrice(p *service.ProductWithPrice) productResponse {
	out := toProduct(p.Product)
	if p.Price != nil {
		s := money(p.Price.Price)
		out.Price = &s
	}
	out.Prices = make([]priceResponse, 0, len(p.Prices))
	for _, pp := range p.Prices {
		out.Prices = append(out.Prices, toPrice(pp))
	}
	return out
}

type voucherRequest struct {
	Code          string              `json:"code"`
	DiscountType  domain.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	StartDate     time.Time           `json:"start_date"`
	EndDate       time.Time           `json:"end_date"`
	MinOrder      decimal.NullDecimal `json:"min_order"`
	MaxDiscount   decimal.NullDecimal `json:"max_discount"`
	UsageLimit    *int                `json:"usage_limit"`
	PointCost     *int                `json:"point_cost"`
	OwnerID       *uuid.UUID          `json:"owner_id"`
	Note          string              `json:"note"`
}

func (r voucherRequest) toService() service.CreateVoucherRequest {
	return service.CreateVoucherRequest{
		Code:          r.Code,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		MinOrder:      r.MinOrder,
		MaxDiscount:   r.MaxDiscount,
		UsageLimit:    r.UsageLimit,
		PointCost:     r.PointCost,
		OwnerID:       r.OwnerID,
		Note:          r.Note,
	}
}

type previewRequest struct {
	CustomerID uuid.UUID       `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type redeemRequest struct {
	CustomerID uuid.UUID `json:"customer_id"`
}

type voucherResponse struct {
	ID            uuid.UUID              `json:"id"`
	Code          string                 `json:"code"`
	DiscountType  domain.DiscountType    `json:"discount_type"`
	DiscountValue string                 `json:"discount_value"`
	StartDate     time.Time              `json:"start_date"`
	EndDate       time.Time              `json:"end_date"`
	MinOrder      *string                `json:"min_order,omitempty"`
	MaxDiscount   *string                `json:"max_discount,omitempty"`
	UsageLimit    *int                   `json:"usage_limit,omitempty"`
	UsageCount    int                    `json:"usage_count"`
	IsActive      bool                   `json:"is_active"`
	IsRoot        bool                   `json:"is_root"`
	PointCost     *int                   `json:"point_cost,omitempty"`
	Metadata      domain.VoucherMetadata `json:"metadata"`
}

func toVoucher(v *domain.Voucher) voucherResponse {
	return voucherResponse{
		ID:            v.ID,
		Code:          v.Code,
		DiscountType:  v.DiscountType,
		DiscountValue: money(v.DiscountValue),
		StartDate:     v.StartDate,
		EndDate:       v.EndDate,
		MinOrder:      nullMoney(v.MinOrder),
		MaxDiscount:   nullMoney(v.MaxDiscount),
		UsageLimit:    v.UsageLimit,
		UsageCount:    v.UsageCount,
		IsActive:      v.IsActive,
		IsRoot:        v.IsRoot,
		PointCost:     v.PointCost,
		Metadata:      v.Metadata,
	}
}

type previewResponse struct {
	Code        string `json:"code"`
	Amount      string `json:"amount"`
	Discount    string `json:"discount"`
	AmountAfter string `json:"amount_after"`
}

type orderItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type orderRequest struct {
	CustomerID      uuid.UUID          `json:"customer_id"`
	Items           []orderItemRequest `json:"items"`
	VoucherCodes    []string           `json:"voucher_codes"`
	ShippingAddress string             `json:"shipping_address"`
	ShippingFee     decimal.Decimal    `json:"shipping_fee"`
	ShippingCode    string             `json:"shipping_code"`
	PaymentMethod   string             `json:"payment_method"`
}

func (r orderRequest) toService() service.CreateOrderRequest {
	items := make([]service.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, service.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return service.CreateOrderRequest{
		CustomerID:      r.CustomerID,
		Items:           items,
		VoucherCodes:    r.VoucherCodes,
		ShippingAddress: r.ShippingAddress,
		ShippingFee:     r.ShippingFee,
		ShippingCode:    r.ShippingCode,
		PaymentMethod:   r.PaymentMethod,
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Subtotal    string    `json:"subtotal"`
}

type appliedVoucherResponse struct {
	Code     string `json:"code"`
	Discount string `json:"discount"`
}

type orderResponse struct {
	ID              uuid.UUID                `json:"id"`
	CustomerID      uuid.UUID                `json:"customer_id"`
	OrderNumber     string                   `json:"order_number"`
	Status          domain.OrderStatus       `json:"status"`
	StatusName      string                   `json:"status_name"`
	Items           []orderItemResponse      `json:"items,omitempty"`
	Vouchers        []appliedVoucherResponse `json:"vouchers,omitempty"`
	ShippingAddress string                   `json:"shipping_address"`
	ShippingFee     string                   `json:"shipping_fee"`
	ShippingCode    string                   `json:"shipping_code,omitempty"`
	PaymentMethod   domain.PaymentMethod     `json:"payment_method"`
	Subtotal        string                   `json:"subtotal"`
	Discount        string                   `json:"discount"`
	Total           string                   `json:"total"`
	IsSuccess       bool                     `json:"is_success"`
	OrderDate       time.Time                `json:"order_date"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

func toOrder(o *domain.Order) orderResponse {
	out := orderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		StatusName:      o.Status.DisplayName(),
		ShippingAddress: o.ShippingAddress,
		ShippingFee:     money(o.ShippingFee),
		ShippingCode:    o.ShippingCode,
		PaymentMethod:   o.PaymentMethod,
		Subtotal:        money(o.Subtotal),
		Discount:        money(o.Discount),
		Total:           money(o.Total),
		IsSuccess:       o.IsSuccess,
		OrderDate:       o.OrderDate,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, d := range o.Details {
		out.Items = append(out.Items, orderItemResponse{
			ProductID:   d.ProductID,
			ProductName: d.ProductName,
			Quantity:    d.Quantity,
			UnitPrice:   money(d.UnitPrice),
			Subtotal:    money(d.Subtotal()),
		})
	}
	for _, av := range o.AppliedVouchers {
		out.Vouchers = append(out.Vouchers, appliedVoucherResponse{Code: av.Code, Discount: money(av.DiscountAmount)})
	}
	return out
}

type createOrderResponse struct {
	Order           orderResponse            `json:"order"`
	SkippedVouchers []service.SkippedVoucher `json:"skipped_vouchers"`
}

type orderPageResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Size   int             `json:"size"`
}

type totalResponse struct {
	OrderID uuid.UUID `json:"order_id"`
	Total   string    `json:"total"`
}

type paymentResponse struct {
	ID         uuid.UUID            `json:"id"`
	OrderID    uuid.UUID            `json:"order_id"`
	Amount     string               `json:"amount"`
	Status     domain.PaymentStatus `json:"status"`
	GatewayTxn *uuid.UUID           `json:"gateway_txn_id,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

func toPayment(p *domain.Payment) paymentResponse {
	out := paymentResponse{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Amount:    money(p.Amount),
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.GatewayTxn.Valid {
		id := p.GatewayTxn.UUID
		out.GatewayTxn = &id
	}
	return out
}

type monthResponse struct {
	Month      int    `json:"month"`
	Revenue    string `json:"revenue"`
	OrderCount int    `json:"order_count"`
}

type revenueResponse struct {
	Year         int             `json:"year"`
	Months       []monthResponse `json:"months"`
	TotalRevenue string          `json:"total_revenue"`
}

func toRevenue(r *domain.YearlyRevenue) revenueResponse {
	out := revenueResponse{Year: r.Year, TotalRevenue: money(r.TotalRevenue), Months: make([]monthResponse, 0, len(r.Months))}
	for _, m := range r.Months {
		out.Months = append(out.Months, monthResponse{Month: m.Month, Revenue: money(m.Revenue), OrderCount: m.OrderCount})
	}
	return out
}

type productSalesResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Revenue     string    `json:"revenue"`
}
