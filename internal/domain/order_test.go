package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotal(t *testing.T) {
	assert.True(t, dec("25.50").Equal(ComputeTotal(dec("25"), dec("3"), dec("2.5"))))
	assert.True(t, dec("28").Equal(ComputeTotal(dec("25"), dec("3"), dec("0"))))
	assert.True(t, ComputeTotal(dec("10"), dec("0"), dec("15")).IsZero())
}

func TestOrder_CalculateTotalUsesSnapshot(t *testing.T) {
	o := &Order{
		ShippingFee: dec("3.00"),
		Details: []OrderDetail{
			{ProductID: uuid.New(), Quantity: 2, UnitPrice: dec("10.00")},
			{ProductID: uuid.New(), Quantity: 1, UnitPrice: dec("5.00")},
		},
		AppliedVouchers: []ApplyVoucher{{Code: "SAVE10", DiscountAmount: dec("2.50")}},
	}

	assert.True(t, dec("25").Equal(o.ItemsSubtotal()))
	assert.True(t, dec("25.50").Equal(o.CalculateTotal()))
}

func TestOrder_Transition(t *testing.T) {
	now := time.Now()
	o := &Order{Status: OrderShipping}

	require.NoError(t, o.Transition(OrderCompleted, now))
	assert.Equal(t, OrderCompleted, o.Status)
	assert.True(t, o.IsSuccess)
	assert.Equal(t, now, o.UpdatedAt)

	err := o.Transition(OrderCancelled, now)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Equal(t, OrderCompleted, o.Status)
}

func TestNewOrderNumber(t *testing.T) {
	now := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^ORD-20240305-[A-HJ-NP-Z2-9]{6}$`)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		n := NewOrderNumber(now)
		assert.Regexp(t, pattern, n)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod(" payos ")
	require.NoError(t, err)
	assert.Equal(t, PaymentPayOS, m)

	_, err = ParsePaymentMethod("barter")
	assert.Equal(t, KindValidation, KindOf(err))
}
