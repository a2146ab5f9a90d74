package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"shop-orders/internal/database"
	"shop-orders/internal/domain"
	"shop-orders/internal/events"
	"shop-orders/internal/infrastructure/payment"
	"shop-orders/internal/repo"
)

type PaymentService interface {
	// Checkout charges an online-paid order. A gateway timeout leaves the
	// payment PROCESSING for the reconciliation worker and returns
	// ErrPaymentPending.
	Checkout(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	// SettlePayment records the gateway's verdict for a PROCESSING payment.
	// Settling an already settled payment is a no-op.
	SettlePayment(ctx context.Context, paymentID uuid.UUID, paid bool) (*domain.Payment, error)
}

type paymentService struct {
	db          *sql.DB
	orderRepo   repo.OrderRepo
	paymentRepo repo.PaymentRepo
	paymentGtw  payment.PaymentGateway
	opts        Options
}

func NewPaymentService(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	paymentRepo repo.PaymentRepo,
	paymentGtw payment.PaymentGateway,
	opts Options,
) PaymentService {
	return &paymentService{
		db:          db,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		paymentGtw:  paymentGtw,
		opts:        opts.withDefaults(),
	}
}

func (s *paymentService) Checkout(ctx context.Context, orderID uuid.UUID) (p *domain.Payment, err error) {
	ctx, span := tracer.Start(ctx, "PaymentService.Checkout")
	span.SetAttributes(attribute.String("order.id", orderID.String()))
	defer func() { endSpan(span, err) }()

	// the payment row is committed before the gateway is called so a lost
	// response can still be reconciled
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		order, err := s.orderRepo.FindByIdForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound.Withf("order %s not found", orderID)
		}
		if order.IsSuccess {
			return domain.ErrAlreadyPaid.Withf("order %s is already paid", order.OrderNumber)
		}
		if order.Status == domain.OrderCancelled {
			return domain.ErrPaymentNotAllowed.Withf("order %s is cancelled", order.OrderNumber)
		}
		if order.PaymentMethod != domain.PaymentPayOS {
			return domain.ErrPaymentNotAllowed.Withf("order %s is paid with %s", order.OrderNumber, order.PaymentMethod)
		}

		open, err := s.paymentRepo.FindOpenByOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if open != nil {
			if open.Status == domain.PaymentSucceeded {
				return domain.ErrAlreadyPaid.Withf("order %s is already paid", order.OrderNumber)
			}
			return domain.ErrPaymentPending.Withf("payment %s for order %s is still processing", open.ID, order.OrderNumber)
		}

		now := s.opts.Now()
		p = &domain.Payment{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Amount:    order.Total,
			Status:    domain.PaymentProcessing,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.paymentRepo.CreatePayment(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	isPaid, chargeErr := s.paymentGtw.Charge(ctx, p.Amount, p.ID)
	switch {
	case chargeErr == nil || errors.Is(chargeErr, payment.ErrCardDeclined):
		settled, err := s.SettlePayment(ctx, p.ID, isPaid)
		if err != nil {
			return nil, err
		}
		if !isPaid {
			return settled, domain.ErrPaymentDeclined.Withf("payment for order %s was declined", orderID)
		}
		return settled, nil
	default:
		zlog.Ctx(ctx).Warn().Err(chargeErr).Str("payment_id", p.ID.String()).Msg("payment outcome unknown, left for reconciliation")
		s.opts.Metrics.Payments.WithLabelValues(string(domain.PaymentProcessing)).Inc()
		return p, domain.ErrPaymentPending.Withf("payment %s outcome is not known yet", p.ID).Wrap(chargeErr)
	}
}

func (s *paymentService) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := s.paymentRepo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrPaymentNotFound.Withf("payment %s not found", id)
	}
	return p, nil
}

func (s *paymentService) SettlePayment(ctx context.Context, paymentID uuid.UUID, paid bool) (p *domain.Payment, err error) {
	ctx, span := tracer.Start(ctx, "PaymentService.SettlePayment")
	span.SetAttributes(attribute.String("payment.id", paymentID.String()), attribute.Bool("payment.paid", paid))
	defer func() { endSpan(span, err) }()

	var (
		changed   bool
		orderYear int
		orderPaid bool
	)
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		p, err = s.paymentRepo.FindByIdForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrPaymentNotFound.Withf("payment %s not found", paymentID)
		}
		if p.Status != domain.PaymentProcessing {
			return nil
		}

		status := domain.PaymentFailed
		if paid {
			status = domain.PaymentSucceeded
		}
		txn := uuid.NullUUID{UUID: p.ID, Valid: paid}
		if err := s.paymentRepo.UpdatePaymentStatus(ctx, tx, p.ID, status, txn); err != nil {
			return err
		}
		p.Status = status
		p.GatewayTxn = txn
		p.UpdatedAt = s.opts.Now()
		changed = true

		if !paid {
			return nil
		}
		order, err := s.orderRepo.FindByIdForUpdate(ctx, tx, p.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound.Withf("order %s not found", p.OrderID)
		}
		if order.Status.IsTerminal() {
			// closed orders stay as they are; the captured amount needs a refund
			zlog.Ctx(ctx).Error().
				Str("order_id", order.ID.String()).
				Str("order_status", string(order.Status)).
				Str("payment_id", p.ID.String()).
				Str("amount", p.Amount.StringFixed(2)).
				Msg("payment captured for a closed order, refund required")
			return nil
		}
		orderYear = order.OrderDate.UTC().Year()
		orderPaid = true
		return s.orderRepo.MarkPaid(ctx, tx, order.ID)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return p, nil
	}

	s.opts.Metrics.Payments.WithLabelValues(string(p.Status)).Inc()
	if orderPaid {
		s.opts.invalidateYear(ctx, orderYear)
	}
	now := s.opts.Now()
	s.opts.publish(ctx, func() (events.Event, error) { return events.PaymentSettledEvent(p, now) })

	zlog.Ctx(ctx).Info().
		Str("payment_id", p.ID.String()).
		Str("order_id", p.OrderID.String()).
		Str("status", string(p.Status)).
		Msg("payment settled")
	return p, nil
}
