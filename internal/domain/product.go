package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID        uuid.UUID
	Name      string
	Stock     int
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ProductPrice struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Price     decimal.Decimal
	IsDefault bool
	IsActive  bool
	CreatedAt time.Time
}

type Customer struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	Points    int
	CreatedAt time.Time
}
