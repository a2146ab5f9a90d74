package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewYearlyRevenue_FillsSparseMonths(t *testing.T) {
	yr := NewYearlyRevenue(2024, map[int]MonthlyRevenue{
		3: {Revenue: dec("50.00"), OrderCount: 1},
	})

	require.Len(t, yr.Months, 12)
	for i, m := range yr.Months {
		assert.Equal(t, i+1, m.Month)
		if m.Month == 3 {
			assert.True(t, dec("50").Equal(m.Revenue))
			assert.Equal(t, 1, m.OrderCount)
			continue
		}
		assert.True(t, m.Revenue.IsZero(), "month %d", m.Month)
	}
	assert.True(t, dec("50").Equal(yr.TotalRevenue))
}

func TestAsError(t *testing.T) {
	wrapped := errors.Wrap(ErrInsufficientStock.Withf("only 1 left"), "create order")
	de := AsError(wrapped)
	assert.Equal(t, KindConflict, de.Kind)
	assert.Equal(t, "only 1 left", de.Message)

	raw := errors.New("connection reset")
	de = AsError(raw)
	assert.Equal(t, KindSystem, de.Kind)
	assert.ErrorIs(t, de, raw)

	assert.Nil(t, AsError(nil))
}
