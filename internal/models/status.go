package models

// OrderStatus is the unified order status enum. The modern and legacy
// stores each keep their own native representation; translation between
// them lives in the status package.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusRefunded   OrderStatus = "REFUNDED"
)

// statusTransitions is the full transition table. CANCELLED and REFUNDED
// are terminal; DELIVERED can only move to REFUNDED.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusRefunded},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// Valid reports whether s is a known unified status.
func (s OrderStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Terminal reports whether s has no outgoing transitions.
func (s OrderStatus) Terminal() bool {
	next, ok := statusTransitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether from -> to is an allowed transition.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an InvalidTransitionError if from -> to is
// not allowed. Unknown statuses are rejected the same way.
func ValidateTransition(from, to OrderStatus) error {
	if !from.Valid() || !to.Valid() || !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
