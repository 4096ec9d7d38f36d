package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the canonical lifecycle of a marketplace order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusPickedUp,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// orderTransition is a single edge of the order state machine.
type orderTransition struct {
	from OrderStatus
	to   OrderStatus
}

// orderTransitions is the complete set of actor-driven edges. Anything absent is rejected.
var orderTransitions = map[orderTransition][]Role{
	{OrderStatusPending, OrderStatusAccepted}:   {RoleVendor},
	{OrderStatusPending, OrderStatusCancelled}:  {RoleVendor, RoleCustomer},
	{OrderStatusAccepted, OrderStatusPreparing}: {RoleVendor},
	{OrderStatusPreparing, OrderStatusReady}:    {RoleVendor},
	{OrderStatusReady, OrderStatusPickedUp}:     {RoleDelivery},
	{OrderStatusPickedUp, OrderStatusDelivered}: {RoleDelivery},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further mutation is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// AwaitingDispatch reports whether the order has not yet left the vendor.
func (s OrderStatus) AwaitingDispatch() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusPreparing, OrderStatusReady:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an edge of the state machine at all.
func CanTransition(from, to OrderStatus) bool {
	_, ok := orderTransitions[orderTransition{from: from, to: to}]
	return ok
}

// TransitionAllowedFor reports whether role may drive from -> to.
func TransitionAllowedFor(from, to OrderStatus, role Role) bool {
	roles, ok := orderTransitions[orderTransition{from: from, to: to}]
	if !ok {
		return false
	}
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// DispatchableOrderStatuses lists the order states whose delivery request may still be claimed.
func DispatchableOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPending, OrderStatusAccepted, OrderStatusPreparing, OrderStatusReady}
}

// ParseOrderStatus converts raw input into an OrderStatus. The legacy "confirmed"
// and "out_for_delivery" spellings map onto their canonical states.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "confirmed":
		return OrderStatusAccepted, nil
	case "out_for_delivery":
		return OrderStatusPickedUp, nil
	}
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
