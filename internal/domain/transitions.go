package domain

import (
	"slices"
)

// orderStateTransitions is the single source of truth for legal order status
// moves. A status mapping to an empty set is terminal. headingToCustomer
// carries the union of the type-specific exits; the order service picks the
// type-appropriate target before consulting the table.
var orderStateTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:           {OrderStatusPendingPickup, OrderStatusPickedUp, OrderStatusCanceled},
	OrderStatusPendingPickup: {OrderStatusPickedUp, OrderStatusCanceled},
	OrderStatusPickedUp:      {OrderStatusInStock, OrderStatusReturnToWarehouse, OrderStatusCanceled},
	OrderStatusInStock:       {OrderStatusInProgress, OrderStatusInReturnStock, OrderStatusCanceled},
	OrderStatusInReturnStock: {OrderStatusReturnToBusiness, OrderStatusCanceled},
	OrderStatusInProgress:    {OrderStatusHeadingToCustomer, OrderStatusCanceled},
	OrderStatusHeadingToCustomer: {OrderStatusCompleted, OrderStatusWaitingAction, OrderStatusRejected,
		OrderStatusReturnToWarehouse, OrderStatusCollectionComplete, OrderStatusExchangePickup},
	OrderStatusReturnToWarehouse: {OrderStatusInReturnStock, OrderStatusCanceled},
	OrderStatusHeadingToYou:      {OrderStatusReturnCompleted, OrderStatusWaitingAction},
	OrderStatusRescheduled:       {OrderStatusHeadingToCustomer, OrderStatusCanceled},
	OrderStatusWaitingAction:     {OrderStatusHeadingToCustomer, OrderStatusReturnToWarehouse, OrderStatusCanceled},

	// The one sanctioned re-opening of a terminal state: a post-delivery
	// return request.
	OrderStatusCompleted: {OrderStatusReturnInitiated},

	OrderStatusReturnInitiated:   {OrderStatusReturnAssigned, OrderStatusCanceled},
	OrderStatusReturnAssigned:    {OrderStatusReturnPickedUp, OrderStatusCanceled},
	OrderStatusReturnPickedUp:    {OrderStatusReturnAtWarehouse, OrderStatusCanceled},
	OrderStatusReturnAtWarehouse: {OrderStatusReturnInspection, OrderStatusReturnToBusiness, OrderStatusCanceled},
	OrderStatusReturnInspection:  {OrderStatusReturnProcessing, OrderStatusCanceled},
	OrderStatusReturnProcessing:  {OrderStatusReturnToBusiness, OrderStatusCanceled},
	OrderStatusReturnToBusiness:  {OrderStatusReturnCompleted, OrderStatusCanceled},
	OrderStatusReturnCompleted:   {},
	OrderStatusCanceled:          {},
	OrderStatusRejected:          {OrderStatusReturnToWarehouse, OrderStatusWaitingAction},
	OrderStatusReturned:          {},
	OrderStatusTerminated:        {},
	OrderStatusDeliveryFailed:    {OrderStatusReturnToWarehouse, OrderStatusWaitingAction},

	OrderStatusAutoReturnInitiated: {OrderStatusReturnAssigned},
	OrderStatusReturnLinked:        {OrderStatusReturnPickedUp},

	// Exchange legs are deliberately restrictive so the flow cannot skip the
	// replacement delivery.
	OrderStatusExchangePickup:   {OrderStatusExchangeDelivery},
	OrderStatusExchangeDelivery: {OrderStatusCompleted},

	OrderStatusCollectionComplete: {OrderStatusCompleted, OrderStatusWaitingAction, OrderStatusRejected},
}

var pickupStateTransitions = map[PickupStatus][]PickupStatus{
	PickupStatusNew:            {PickupStatusPendingPickup, PickupStatusDriverAssigned, PickupStatusCanceled},
	PickupStatusPendingPickup:  {PickupStatusDriverAssigned, PickupStatusPickedUp, PickupStatusCanceled},
	PickupStatusDriverAssigned: {PickupStatusPickedUp, PickupStatusRejected, PickupStatusCanceled},
	PickupStatusPickedUp:       {PickupStatusInStock, PickupStatusCompleted, PickupStatusReturned},
	PickupStatusInStock:        {PickupStatusInProgress, PickupStatusCompleted},
	PickupStatusInProgress:     {PickupStatusCompleted, PickupStatusReturned},
	PickupStatusCompleted:      {},
	PickupStatusCanceled:       {},
	PickupStatusRejected:       {PickupStatusPendingPickup, PickupStatusTerminated},
	PickupStatusReturned:       {},
	PickupStatusTerminated:     {},
}

// IsValidOrderTransition reports whether current may move to target. Statuses
// absent from the table accept nothing.
func IsValidOrderTransition(current, target OrderStatus) bool {
	return slices.Contains(orderStateTransitions[current], target)
}

// NextOrderStatuses enumerates the legal next statuses from current.
func NextOrderStatuses(current OrderStatus) []OrderStatus {
	next := orderStateTransitions[current]
	if len(next) == 0 {
		return nil
	}
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// IsValidPickupTransition reports whether current may move to target.
func IsValidPickupTransition(current, target PickupStatus) bool {
	return slices.Contains(pickupStateTransitions[current], target)
}

// NextPickupStatuses enumerates the legal next statuses from current.
func NextPickupStatuses(current PickupStatus) []PickupStatus {
	next := pickupStateTransitions[current]
	if len(next) == 0 {
		return nil
	}
	out := make([]PickupStatus, len(next))
	copy(out, next)
	return out
}

// IsLockedOrderStatus reports whether ordinary workflow operations are blocked
// for the status. Locked means the transition table offers no exits, so the
// guard cannot drift from the table itself. completed is not locked solely
// because of the return-reopen edge; callers that must refuse even that edge
// check the target against the table instead.
func IsLockedOrderStatus(status OrderStatus) bool {
	return len(orderStateTransitions[status]) == 0
}

// IsLockedPickupStatus reports whether the pickup status accepts no further
// transitions.
func IsLockedPickupStatus(status PickupStatus) bool {
	return len(pickupStateTransitions[status]) == 0
}

// ResolveDeliveryTarget picks the order-type-appropriate completion target
// when a courier finishes the headingToCustomer leg.
func ResolveDeliveryTarget(orderType OrderType) OrderStatus {
	switch orderType {
	case OrderTypeExchange:
		return OrderStatusExchangePickup
	case OrderTypeCashCollection:
		return OrderStatusCollectionComplete
	default:
		return OrderStatusCompleted
	}
}
