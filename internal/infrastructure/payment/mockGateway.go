package payment

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrCardDeclined = errors.New("card declined")
	// ErrTimeout means the outcome is unknown: the charge may have gone
	// through. Only CheckStatus can tell.
	ErrTimeout = errors.New("gateway timeout")
)

type PaymentGateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, idempotencyKey uuid.UUID) (bool, error)
	CheckStatus(ctx context.Context, idempotencyKey uuid.UUID) (bool, error)
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeDeclined
	// OutcomePhantom charges the card but reports a timeout to the caller.
	OutcomePhantom
)

// RandomOutcome succeeds 70% of the time, declines 20% and times out 10%.
func RandomOutcome() Outcome {
	chance := rand.IntN(100)
	switch {
	case chance < 70:
		return OutcomeSuccess
	case chance < 90:
		return OutcomeDeclined
	default:
		return OutcomePhantom
	}
}

// Fixed always yields the same outcome, for tests.
func Fixed(o Outcome) func() Outcome {
	return func() Outcome { return o }
}

type mockGateway struct {
	mu            sync.RWMutex
	chargeSuccess map[uuid.UUID]bool
	outcome       func() Outcome
	latency       time.Duration
}

// NewMockGateway simulates a card processor. latency is applied to every
// charge; a phantom charge waits twice as long.
func NewMockGateway(outcome func() Outcome, latency time.Duration) PaymentGateway {
	if outcome == nil {
		outcome = RandomOutcome
	}
	return &mockGateway{
		chargeSuccess: make(map[uuid.UUID]bool),
		outcome:       outcome,
		latency:       latency,
	}
}

func (g *mockGateway) Charge(ctx context.Context, amount decimal.Decimal, idempotencyKey uuid.UUID) (bool, error) {
	// a repeated key returns the first result without charging again
	g.mu.RLock()
	if paid, exists := g.chargeSuccess[idempotencyKey]; exists {
		g.mu.RUnlock()
		return paid, nil
	}
	g.mu.RUnlock()

	switch g.outcome() {
	case OutcomeSuccess:
		if err := g.wait(ctx, g.latency); err != nil {
			return false, err
		}
		g.record(idempotencyKey, true)
		return true, nil

	case OutcomeDeclined:
		if err := g.wait(ctx, g.latency); err != nil {
			return false, err
		}
		g.record(idempotencyKey, false)
		return false, ErrCardDeclined

	default:
		if err := g.wait(ctx, 2*g.latency); err != nil {
			return false, err
		}
		g.record(idempotencyKey, true)
		zlog.Ctx(ctx).Warn().Str("key", idempotencyKey.String()).Str("amount", amount.StringFixed(2)).Msg("gateway charged but reported timeout")
		return false, ErrTimeout
	}
}

func (g *mockGateway) CheckStatus(ctx context.Context, idempotencyKey uuid.UUID) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if paid, exists := g.chargeSuccess[idempotencyKey]; exists {
		return paid, nil
	}
	return false, nil // never seen
}

func (g *mockGateway) record(key uuid.UUID, paid bool) {
	g.mu.Lock()
	g.chargeSuccess[key] = paid
	g.mu.Unlock()
}

func (g *mockGateway) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
