package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"shop-orders/internal/domain"
	"shop-orders/internal/infrastructure/payment"
	"shop-orders/internal/repo"
)

// batchSize caps how many stuck payments one tick looks at.
const batchSize = 100

// Settler records the final state of a payment.
type Settler interface {
	SettlePayment(ctx context.Context, paymentID uuid.UUID, paid bool) (*domain.Payment, error)
}

// ReconciliationWorker settles payments whose checkout never learned the
// gateway's answer.
type ReconciliationWorker struct {
	paymentRepo repo.PaymentRepo
	settler     Settler
	gateway     payment.PaymentGateway
	interval    time.Duration
	after       time.Duration
	now         func() time.Time
}

func NewReconciliationWorker(
	paymentRepo repo.PaymentRepo,
	settler Settler,
	gateway payment.PaymentGateway,
	interval time.Duration,
	after time.Duration,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		paymentRepo: paymentRepo,
		settler:     settler,
		gateway:     gateway,
		interval:    interval,
		after:       after,
		now:         time.Now,
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	log := zlog.Ctx(ctx).With().Str("worker", "reconciliation").Logger()
	log.Info().Dur("interval", rw.interval).Dur("after", rw.after).Msg("reconciliation worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconciliation worker stopped")
			return
		case <-ticker.C:
			n, err := rw.Process(ctx)
			if err != nil {
				log.Error().Err(err).Msg("reconciliation failed")
				continue
			}
			if n > 0 {
				log.Info().Int("settled", n).Msg("reconciliation pass done")
			}
		}
	}
}

// Process runs one pass and returns how many payments it settled. A payment
// the gateway has not seen yet counts as failed, since its charge can no
// longer arrive.
func (rw *ReconciliationWorker) Process(ctx context.Context) (int, error) {
	stuck, err := rw.paymentRepo.FindProcessingBefore(ctx, rw.now().Add(-rw.after), batchSize)
	if err != nil {
		return 0, err
	}
	if len(stuck) == 0 {
		return 0, nil
	}

	log := zlog.Ctx(ctx)
	log.Info().Int("count", len(stuck)).Msg("found stuck payments")

	settled := 0
	for _, p := range stuck {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		isPaid, err := rw.gateway.CheckStatus(ctx, p.ID)
		if err != nil {
			log.Warn().Err(err).Str("payment_id", p.ID.String()).Msg("check payment status")
			continue // next pass
		}

		if isPaid {
			log.Info().Str("payment_id", p.ID.String()).Str("order_id", p.OrderID.String()).Msg("phantom charge found, marking paid")
		} else {
			log.Info().Str("payment_id", p.ID.String()).Str("order_id", p.OrderID.String()).Msg("abandoned payment, marking failed")
		}
		if _, err := rw.settler.SettlePayment(ctx, p.ID, isPaid); err != nil {
			log.Error().Err(err).Str("payment_id", p.ID.String()).Msg("settle payment")
			continue
		}
		settled++
	}
	return settled, nil
}
