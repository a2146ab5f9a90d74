package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentInitiated  PaymentStatus = "INIT"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentSucceeded  PaymentStatus = "SUCCEEDED"
	PaymentFailed     PaymentStatus = "FAILED"
)

// Payment.ID doubles as the gateway idempotency key.
type Payment struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Amount     decimal.Decimal
	Status     PaymentStatus
	GatewayTxn uuid.NullUUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
