package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MonthlyRevenue struct {
	Month      int             `json:"month"`
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int             `json:"order_count"`
}

type YearlyRevenue struct {
	Year         int              `json:"year"`
	Months       []MonthlyRevenue `json:"months"`
	TotalRevenue decimal.Decimal  `json:"total_revenue"`
}

// NewYearlyRevenue always yields twelve months, ordered 1-12, with zero
// entries for months that had no revenue.
func NewYearlyRevenue(year int, byMonth map[int]MonthlyRevenue) *YearlyRevenue {
	yr := &YearlyRevenue{Year: year, Months: make([]MonthlyRevenue, 12), TotalRevenue: decimal.Zero}
	for m := 1; m <= 12; m++ {
		entry, ok := byMonth[m]
		if !ok {
			entry = MonthlyRevenue{Revenue: decimal.Zero}
		}
		entry.Month = m
		yr.Months[m-1] = entry
		yr.TotalRevenue = yr.TotalRevenue.Add(entry.Revenue)
	}
	return yr
}

type ProductSales struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}
