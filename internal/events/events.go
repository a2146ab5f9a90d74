package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"shop-orders/internal/domain"
)

const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
	TypePaymentSettled     = "payment.settled"
)

// Event is the envelope written to the order topic. Messages are keyed by
// order id so all events of one order land on the same partition.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	OrderID    uuid.UUID       `json:"order_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type OrderPlaced struct {
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	Total       decimal.Decimal `json:"total"`
	Discount    decimal.Decimal `json:"discount"`
	Vouchers    []string        `json:"vouchers,omitempty"`
}

type OrderStatusChanged struct {
	From domain.OrderStatus `json:"from"`
	To   domain.OrderStatus `json:"to"`
}

type PaymentSettled struct {
	PaymentID uuid.UUID            `json:"payment_id"`
	Status    domain.PaymentStatus `json:"status"`
	Amount    decimal.Decimal      `json:"amount"`
}

// Publisher is called after a transaction commits; a failed publish never
// undoes the committed change.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

func New(eventType string, orderID uuid.UUID, payload any, now time.Time) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, errors.Wrapf(err, "marshal %s payload", eventType)
	}
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OrderID:    orderID,
		OccurredAt: now.UTC(),
		Payload:    raw,
	}, nil
}

func OrderPlacedEvent(o *domain.Order) (Event, error) {
	codes := make([]string, 0, len(o.AppliedVouchers))
	for _, av := range o.AppliedVouchers {
		codes = append(codes, av.Code)
	}
	return New(TypeOrderPlaced, o.ID, OrderPlaced{
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Total:       o.Total,
		Discount:    o.Discount,
		Vouchers:    codes,
	}, o.CreatedAt)
}

func StatusChangedEvent(o *domain.Order, from domain.OrderStatus) (Event, error) {
	return New(TypeOrderStatusChanged, o.ID, OrderStatusChanged{From: from, To: o.Status}, o.UpdatedAt)
}

func PaymentSettledEvent(p *domain.Payment, now time.Time) (Event, error) {
	return New(TypePaymentSettled, p.OrderID, PaymentSettled{PaymentID: p.ID, Status: p.Status, Amount: p.Amount}, now)
}

// HeaderCarrier lets the otel propagator read and write kafka headers.
type HeaderCarrier struct {
	Headers *[]kafka.Header
}

func (c HeaderCarrier) Get(key string) string {
	for _, h := range *c.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c HeaderCarrier) Set(key, value string) {
	for i, h := range *c.Headers {
		if h.Key == key {
			(*c.Headers)[i].Value = []byte(value)
			return
		}
	}
	*c.Headers = append(*c.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.Headers))
	for _, h := range *c.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// Message converts an event into the kafka record that carries it. The
// trace context of ctx travels in the headers.
func Message(ctx context.Context, e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, "marshal event")
	}
	headers := []kafka.Header{{Key: "event-type", Value: []byte(e.Type)}}
	otel.GetTextMapPropagator().Inject(ctx, HeaderCarrier{Headers: &headers})
	return kafka.Message{
		Key:     []byte(e.OrderID.String()),
		Value:   value,
		Time:    e.OccurredAt,
		Headers: headers,
	}, nil
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
}

func NewKafkaPublisher(writer *kafka.Writer) Publisher {
	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		m, err := Message(ctx, e)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "write kafka messages")
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type noopPublisher struct{}

// NewNoop returns a publisher that only logs, used when no brokers are set.
func NewNoop() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(ctx context.Context, events ...Event) error {
	for _, e := range events {
		zlog.Ctx(ctx).Debug().Str("type", e.Type).Str("order_id", e.OrderID.String()).Msg("event not published, no brokers configured")
	}
	return nil
}

func (noopPublisher) Close() error { return nil }
