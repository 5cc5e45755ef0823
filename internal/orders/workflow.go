package orders

import "go-storefront/internal/models"

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending: {models.OrderPaid, models.OrderCancelled},
	models.OrderPaid:    {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped: {models.OrderDelivered, models.OrderCancelled},
}

// CanTransition reports whether the strict workflow allows from -> to.
// Staying in place is always allowed.
func CanTransition(from, to models.OrderStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from from in one step.
func NextStatuses(from models.OrderStatus) []models.OrderStatus {
	next := transitions[from]
	out := make([]models.OrderStatus, len(next))
	copy(out, next)
	return out
}
