package domain

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCOD   PaymentMethod = "COD"
	PaymentPayOS PaymentMethod = "PAYOS"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case PaymentCOD, PaymentPayOS:
		return m, nil
	}
	return "", Invalidf("unknown payment method %q", s)
}

type Order struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	OrderNumber     string
	Details         []OrderDetail
	AppliedVouchers []ApplyVoucher
	ShippingAddress string
	ShippingFee     decimal.Decimal
	ShippingCode    string
	PaymentMethod   PaymentMethod
	Status          OrderStatus
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	IsSuccess       bool
	OrderDate       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderDetail holds the price snapshot taken when the order was placed.
type OrderDetail struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

func (d OrderDetail) Subtotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

type ApplyVoucher struct {
	OrderID        uuid.UUID
	VoucherID      uuid.UUID
	Code           string
	DiscountAmount decimal.Decimal
	AppliedAt      time.Time
}

func (o *Order) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, d := range o.Details {
		sum = sum.Add(d.Subtotal())
	}
	return sum
}

func (o *Order) VoucherDiscount() decimal.Decimal {
	sum := decimal.Zero
	for _, av := range o.AppliedVouchers {
		sum = sum.Add(av.DiscountAmount)
	}
	return sum
}

// CalculateTotal derives the payable amount from the snapshot rows only.
func (o *Order) CalculateTotal() decimal.Decimal {
	return ComputeTotal(o.ItemsSubtotal(), o.ShippingFee, o.VoucherDiscount())
}

// ComputeTotal is subtotal + shipping - discount, never below zero.
func ComputeTotal(subtotal, shippingFee, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(shippingFee).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return RoundMoney(total)
}

func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Transition moves the order to next when the workflow allows it.
func (o *Order) Transition(next OrderStatus, now time.Time) error {
	if err := ValidateTransition(o.Status, next); err != nil {
		return err
	}
	o.Status = next
	if next == OrderCompleted {
		o.IsSuccess = true
	}
	o.UpdatedAt = now
	return nil
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXX.
func NewOrderNumber(now time.Time) string {
	var suffix [6]byte
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.IntN(len(orderNumberAlphabet))]
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix[:])
}
