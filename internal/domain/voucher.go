package domain

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

var hundred = decimal.NewFromInt(100)

// VoucherMetadata is stored as JSONB. A customer-scoped voucher names its
// owner here; redeemed vouchers also point at the root they came from.
type VoucherMetadata struct {
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Note       string     `json:"note,omitempty"`
}

func (m VoucherMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *VoucherMetadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = VoucherMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return errors.Errorf("voucher metadata: unsupported type %T", src)
}

type Voucher struct {
	ID            uuid.UUID
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	StartDate     time.Time
	EndDate       time.Time
	MinOrder      decimal.NullDecimal
	MaxDiscount   decimal.NullDecimal
	UsageLimit    *int
	UsageCount    int
	IsActive      bool
	IsRoot        bool
	Metadata      VoucherMetadata
	PointCost     *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EvaluationContext is what a voucher is checked against. Amount is the
// running total at the point the voucher is applied, shipping excluded.
type EvaluationContext struct {
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	Now        time.Time
}

func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckEligibility applies the rules in order and stops at the first failure.
func (v *Voucher) CheckEligibility(ec EvaluationContext) error {
	if !v.IsActive {
		return ErrVoucherInactive.Withf("voucher %s is not active", v.Code)
	}
	if ec.Now.Before(v.StartDate) {
		return ErrVoucherNotStarted.Withf("voucher %s is valid from %s", v.Code, v.StartDate.Format(time.RFC3339))
	}
	if ec.Now.After(v.EndDate) {
		return ErrVoucherExpired.Withf("voucher %s expired at %s", v.Code, v.EndDate.Format(time.RFC3339))
	}
	if v.MinOrder.Valid && ec.Amount.LessThan(v.MinOrder.Decimal) {
		return ErrVoucherMinOrder.Withf("voucher %s requires an order of at least %s", v.Code, v.MinOrder.Decimal.StringFixed(2))
	}
	if v.UsageLimit != nil && v.UsageCount >= *v.UsageLimit {
		return ErrVoucherUsageExhausted.Withf("voucher %s has been used %d of %d times", v.Code, v.UsageCount, *v.UsageLimit)
	}
	if !v.IsRoot {
		if v.Metadata.CustomerID == nil || *v.Metadata.CustomerID != ec.CustomerID {
			return ErrVoucherNotOwner.Withf("voucher %s belongs to another customer", v.Code)
		}
	}
	return nil
}

// Discount never exceeds amount.
func (v *Voucher) Discount(amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	var d decimal.Decimal
	switch v.DiscountType {
	case DiscountPercentage:
		d = amount.Mul(v.DiscountValue).Div(hundred)
		if v.MaxDiscount.Valid && d.GreaterThan(v.MaxDiscount.Decimal) {
			d = v.MaxDiscount.Decimal
		}
	case DiscountFixedAmount:
		d = v.DiscountValue
	}
	d = RoundMoney(d)
	if d.GreaterThan(amount) {
		return amount
	}
	return d
}

func EvaluateVoucher(v *Voucher, ec EvaluationContext) (decimal.Decimal, error) {
	if err := v.CheckEligibility(ec); err != nil {
		return decimal.Zero, err
	}
	return v.Discount(ec.Amount), nil
}

func (v *Voucher) Validate() error {
	if v.Code == "" {
		return Invalidf("voucher code is required")
	}
	switch v.DiscountType {
	case DiscountPercentage:
		if v.DiscountValue.GreaterThan(hundred) {
			return Invalidf("percentage discount cannot exceed 100")
		}
	case DiscountFixedAmount:
	default:
		return Invalidf("unknown discount type %q", v.DiscountType)
	}
	if !v.DiscountValue.IsPositive() {
		return Invalidf("discount value must be positive")
	}
	if !v.EndDate.After(v.StartDate) {
		return Invalidf("voucher end date must be after its start date")
	}
	if v.MinOrder.Valid && v.MinOrder.Decimal.IsNegative() {
		return Invalidf("minimum order cannot be negative")
	}
	if v.MaxDiscount.Valid && !v.MaxDiscount.Decimal.IsPositive() {
		return Invalidf("maximum discount must be positive")
	}
	if v.UsageLimit != nil && *v.UsageLimit <= 0 {
		return Invalidf("usage limit must be positive")
	}
	if v.PointCost != nil && *v.PointCost <= 0 {
		return Invalidf("point cost must be positive")
	}
	if !v.IsRoot && v.Metadata.CustomerID == nil {
		return Invalidf("customer-scoped voucher needs an owner")
	}
	return nil
}
