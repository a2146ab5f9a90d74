package service

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"shop-orders/internal/config"
	"shop-orders/internal/database"
	"shop-orders/internal/domain"
	"shop-orders/internal/repo"
)

// SkippedVoucher is a code that was ignored under the skip policy.
type SkippedVoucher struct {
	Code    string `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type voucherResult struct {
	applied  []domain.ApplyVoucher
	skipped  []SkippedVoucher
	discount decimal.Decimal
}

// voucherApplier applies a list of codes to an order inside its transaction.
type voucherApplier struct {
	vouchers repo.VoucherRepo
	policy   config.VoucherPolicy
}

func normalizeCodes(codes []string) ([]string, error) {
	out := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		code := domain.NormalizeVoucherCode(c)
		if code == "" {
			return nil, domain.Invalidf("voucher code must not be empty")
		}
		if seen[code] {
			return nil, domain.Invalidf("voucher %s is given more than once", code)
		}
		seen[code] = true
		out = append(out, code)
	}
	return out, nil
}

// apply evaluates codes in order. Each voucher sees the amount left after
// the ones before it. Applied vouchers are locked and their usage counted.
func (a *voucherApplier) apply(ctx context.Context, tx *sql.Tx, customerID uuid.UUID, codes []string, subtotal decimal.Decimal, now time.Time) (*voucherResult, error) {
	res := &voucherResult{discount: decimal.Zero}
	running := subtotal

	for _, code := range codes {
		v, err := a.vouchers.FindByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return nil, err
		}

		var amount decimal.Decimal
		if v == nil {
			err = domain.ErrVoucherNotFound.Withf("voucher %s not found", code)
		} else {
			amount, err = domain.EvaluateVoucher(v, domain.EvaluationContext{
				CustomerID: customerID,
				Amount:     running,
				Now:        now,
			})
		}
		if err != nil {
			if a.policy != config.VoucherPolicySkip {
				return nil, err
			}
			de := domain.AsError(err)
			if de.Kind == domain.KindSystem {
				return nil, err
			}
			zlog.Ctx(ctx).Info().Str("code", code).Str("reason", de.Code).Msg("voucher skipped")
			res.skipped = append(res.skipped, SkippedVoucher{Code: code, Reason: de.Code, Message: de.Message})
			continue
		}

		if err := a.vouchers.IncrementUsage(ctx, tx, v.ID); err != nil {
			return nil, err
		}
		running = running.Sub(amount)
		res.discount = res.discount.Add(amount)
		res.applied = append(res.applied, domain.ApplyVoucher{
			VoucherID:      v.ID,
			Code:           v.Code,
			DiscountAmount: amount,
			AppliedAt:      now,
		})
	}
	return res, nil
}

type CreateVoucherRequest struct {
	Code          string
	DiscountType  domain.DiscountType
	DiscountValue decimal.Decimal
	StartDate     time.Time
	EndDate       time.Time
	MinOrder      decimal.NullDecimal
	MaxDiscount   decimal.NullDecimal
	UsageLimit    *int
	PointCost     *int
	// OwnerID makes the voucher usable by one customer only.
	OwnerID *uuid.UUID
	Note    string
}

type VoucherPreview struct {
	Code        string          `json:"code"`
	Amount      decimal.Decimal `json:"amount"`
	Discount    decimal.Decimal `json:"discount"`
	AmountAfter decimal.Decimal `json:"amount_after"`
}

type VoucherService interface {
	// Evaluate checks one voucher against ec without consuming it.
	Evaluate(ctx context.Context, code string, ec domain.EvaluationContext) (decimal.Decimal, error)
	PreviewVoucher(ctx context.Context, code string, customerID uuid.UUID, amount decimal.Decimal) (*VoucherPreview, error)
	CreateVoucher(ctx context.Context, req CreateVoucherRequest) (*domain.Voucher, error)
	GetVoucher(ctx context.Context, code string) (*domain.Voucher, error)
	// RedeemVoucher spends the root voucher's point cost and issues a
	// single-use voucher owned by the customer.
	RedeemVoucher(ctx context.Context, customerID uuid.UUID, rootCode string) (*domain.Voucher, error)
	ListCustomerVouchers(ctx context.Context, customerID uuid.UUID) ([]domain.Voucher, error)
}

type voucherService struct {
	db        *sql.DB
	vouchers  repo.VoucherRepo
	customers repo.CustomerRepo
	opts      Options
}

func NewVoucherService(db *sql.DB, vouchers repo.VoucherRepo, customers repo.CustomerRepo, opts Options) VoucherService {
	return &voucherService{
		db:        db,
		vouchers:  vouchers,
		customers: customers,
		opts:      opts.withDefaults(),
	}
}

func (s *voucherService) Evaluate(ctx context.Context, code string, ec domain.EvaluationContext) (amount decimal.Decimal, err error) {
	ctx, span := tracer.Start(ctx, "VoucherService.Evaluate")
	defer func() { endSpan(span, err) }()

	v, err := s.vouchers.FindByCode(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}
	if v == nil {
		return decimal.Zero, domain.ErrVoucherNotFound.Withf("voucher %s not found", domain.NormalizeVoucherCode(code))
	}
	if ec.Now.IsZero() {
		ec.Now = s.opts.Now()
	}
	return domain.EvaluateVoucher(v, ec)
}

func (s *voucherService) PreviewVoucher(ctx context.Context, code string, customerID uuid.UUID, amount decimal.Decimal) (*VoucherPreview, error) {
	if amount.IsNegative() {
		return nil, domain.Invalidf("amount must not be negative")
	}
	discount, err := s.Evaluate(ctx, code, domain.EvaluationContext{CustomerID: customerID, Amount: amount})
	if err != nil {
		return nil, err
	}
	return &VoucherPreview{
		Code:        domain.NormalizeVoucherCode(code),
		Amount:      amount,
		Discount:    discount,
		AmountAfter: amount.Sub(discount),
	}, nil
}

func (s *voucherService) CreateVoucher(ctx context.Context, req CreateVoucherRequest) (v *domain.Voucher, err error) {
	ctx, span := tracer.Start(ctx, "VoucherService.CreateVoucher")
	defer func() { endSpan(span, err) }()

	now := s.opts.Now()
	v = &domain.Voucher{
		ID:            uuid.New(),
		Code:          domain.NormalizeVoucherCode(req.Code),
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		MinOrder:      req.MinOrder,
		MaxDiscount:   req.MaxDiscount,
		UsageLimit:    req.UsageLimit,
		IsActive:      true,
		IsRoot:        req.OwnerID == nil,
		Metadata:      domain.VoucherMetadata{CustomerID: req.OwnerID, Note: req.Note},
		PointCost:     req.PointCost,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if req.OwnerID != nil {
			owner, err := s.customers.FindByIdForUpdate(ctx, tx, *req.OwnerID)
			if err != nil {
				return err
			}
			if owner == nil {
				return domain.ErrCustomerNotFound.Withf("customer %s not found", req.OwnerID)
			}
		}
		return s.vouchers.Create(ctx, tx, v)
	})
	if err != nil {
		return nil, err
	}

	zlog.Ctx(ctx).Info().Str("code", v.Code).Str("type", string(v.DiscountType)).Msg("voucher created")
	return v, nil
}

func (s *voucherService) GetVoucher(ctx context.Context, code string) (*domain.Voucher, error) {
	v, err := s.vouchers.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrVoucherNotFound.Withf("voucher %s not found", domain.NormalizeVoucherCode(code))
	}
	return v, nil
}

const redeemedCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func redeemedCode(root string) string {
	var suffix [6]byte
	for i := range suffix {
		suffix[i] = redeemedCodeAlphabet[rand.IntN(len(redeemedCodeAlphabet))]
	}
	return fmt.Sprintf("%s-%s", root, suffix[:])
}

func (s *voucherService) RedeemVoucher(ctx context.Context, customerID uuid.UUID, rootCode string) (child *domain.Voucher, err error) {
	ctx, span := tracer.Start(ctx, "VoucherService.RedeemVoucher")
	span.SetAttributes(attribute.String("voucher.code", domain.NormalizeVoucherCode(rootCode)))
	defer func() { endSpan(span, err) }()

	now := s.opts.Now()
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		customer, err := s.customers.FindByIdForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrCustomerNotFound.Withf("customer %s not found", customerID)
		}

		root, err := s.vouchers.FindByCodeForUpdate(ctx, tx, rootCode)
		if err != nil {
			return err
		}
		if root == nil {
			return domain.ErrVoucherNotFound.Withf("voucher %s not found", domain.NormalizeVoucherCode(rootCode))
		}
		if !root.IsRoot || root.PointCost == nil {
			return domain.ErrVoucherNotRedeemable.Withf("voucher %s cannot be redeemed with points", root.Code)
		}
		// a redemption is checked like an order that meets every minimum
		if err := root.CheckEligibility(domain.EvaluationContext{
			CustomerID: customerID,
			Amount:     root.MinOrder.Decimal,
			Now:        now,
		}); err != nil {
			return err
		}
		if customer.Points < *root.PointCost {
			return domain.ErrInsufficientPoints.Withf("redeeming %s needs %d points, customer has %d", root.Code, *root.PointCost, customer.Points)
		}

		if err := s.customers.AdjustPoints(ctx, tx, customerID, -*root.PointCost); err != nil {
			return err
		}
		if err := s.vouchers.IncrementUsage(ctx, tx, root.ID); err != nil {
			return err
		}

		single := 1
		parentID := root.ID
		owner := customerID
		child = &domain.Voucher{
			ID:            uuid.New(),
			Code:          redeemedCode(root.Code),
			DiscountType:  root.DiscountType,
			DiscountValue: root.DiscountValue,
			StartDate:     now,
			EndDate:       root.EndDate,
			MinOrder:      root.MinOrder,
			MaxDiscount:   root.MaxDiscount,
			UsageLimit:    &single,
			IsActive:      true,
			IsRoot:        false,
			Metadata:      domain.VoucherMetadata{CustomerID: &owner, ParentID: &parentID},
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.vouchers.Create(ctx, tx, child)
	})
	if err != nil {
		return nil, err
	}

	zlog.Ctx(ctx).Info().Str("customer_id", customerID.String()).Str("code", child.Code).Msg("voucher redeemed")
	return child, nil
}

func (s *voucherService) ListCustomerVouchers(ctx context.Context, customerID uuid.UUID) ([]domain.Voucher, error) {
	vouchers, err := s.vouchers.ListByOwner(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if vouchers == nil {
		vouchers = []domain.Voucher{}
	}
	return vouchers, nil
}
