package domain

import "strings"

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipping   OrderStatus = "SHIPPING"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

var statusNames = map[OrderStatus]string{
	OrderPending:    "Pending confirmation",
	OrderConfirmed:  "Confirmed",
	OrderProcessing: "Processing",
	OrderShipping:   "Shipping",
	OrderCompleted:  "Completed",
	OrderCancelled:  "Cancelled",
}

var transitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderConfirmed, OrderCancelled},
	OrderConfirmed:  {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipping, OrderCancelled},
	OrderShipping:   {OrderCompleted},
}

// ParseOrderStatus accepts the stable code in any letter case.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := statusNames[status]; !ok {
		return "", Invalidf("unknown order status %q", s)
	}
	return status, nil
}

func (s OrderStatus) DisplayName() string {
	return statusNames[s]
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return ErrInvalidStatusTransition.Withf("cannot move order from %s to %s", from, to)
	}
	return nil
}
