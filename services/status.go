package services

import (
	"context"

	"marketplace/models"
)

// statusTransitions is the explicit lifecycle graph. cancelled is reachable
// from every non-terminal state; delivered and cancelled are terminal.
var statusTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusShipped, models.StatusCancelled},
	models.StatusShipped:   {models.StatusDelivered, models.StatusCancelled},
	models.StatusDelivered: {},
	models.StatusCancelled: {},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves an order to a new lifecycle state and appends exactly
// one history row, in one transaction. Invalid transitions are rejected
// before any write.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, newStatus models.OrderStatus, comment string, updatedBy *int64) (*models.Order, error) {
	if !newStatus.Valid() {
		return nil, &InvalidStatusTransitionError{To: newStatus}
	}
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, newStatus) {
		return nil, &InvalidStatusTransitionError{From: order.Status, To: newStatus}
	}
	return s.store.UpdateOrderStatus(ctx, orderID, order.Status, newStatus, comment, updatedBy)
}
