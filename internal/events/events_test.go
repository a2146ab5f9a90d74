package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"shop-orders/internal/domain"
)

func TestOrderPlacedMessage(t *testing.T) {
	order := &domain.Order{
		ID:          uuid.New(),
		CustomerID:  uuid.New(),
		OrderNumber: "ORD-20240301-ABC234",
		Total:       decimal.RequireFromString("25.50"),
		Discount:    decimal.RequireFromString("2.50"),
		AppliedVouchers: []domain.ApplyVoucher{
			{Code: "SAVE10", DiscountAmount: decimal.RequireFromString("2.50")},
		},
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	ev, err := OrderPlacedEvent(order)
	require.NoError(t, err)
	assert.Equal(t, TypeOrderPlaced, ev.Type)

	msg, err := Message(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, order.ID.String(), string(msg.Key))
	assert.Equal(t, order.CreatedAt, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypeOrderPlaced, string(msg.Headers[0].Value))

	var decoded struct {
		Type    string `json:"type"`
		Payload struct {
			OrderNumber string   `json:"order_number"`
			Total       string   `json:"total"`
			Vouchers    []string `json:"vouchers"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, TypeOrderPlaced, decoded.Type)
	assert.Equal(t, "ORD-20240301-ABC234", decoded.Payload.OrderNumber)
	assert.Equal(t, "25.5", decoded.Payload.Total)
	assert.Equal(t, []string{"SAVE10"}, decoded.Payload.Vouchers)
}

func TestStatusChangedEvent(t *testing.T) {
	order := &domain.Order{ID: uuid.New(), Status: domain.OrderCancelled, UpdatedAt: time.Now()}
	ev, err := StatusChangedEvent(order, domain.OrderPending)
	require.NoError(t, err)

	var payload OrderStatusChanged
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, domain.OrderPending, payload.From)
	assert.Equal(t, domain.OrderCancelled, payload.To)
	assert.Equal(t, order.ID, ev.OrderID)
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoop()
	ev, err := New(TypeOrderPlaced, uuid.New(), map[string]string{}, time.Now())
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background(), ev))
	assert.NoError(t, p.Close())
}

func TestMessageCarriesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	ev, err := New(TypeOrderStatusChanged, uuid.New(), map[string]string{"to": "SHIPPING"}, time.Now())
	require.NoError(t, err)
	msg, err := Message(ctx, ev)
	require.NoError(t, err)

	carrier := HeaderCarrier{Headers: &msg.Headers}
	assert.Equal(t, TypeOrderStatusChanged, carrier.Get("event-type"))
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", carrier.Get("traceparent"))

	got := trace.SpanContextFromContext(otel.GetTextMapPropagator().Extract(context.Background(), carrier))
	assert.Equal(t, sc.TraceID(), got.TraceID())
	assert.Equal(t, sc.SpanID(), got.SpanID())
}
