package domain

import (
	"slices"
)

// StatusCategory classifies a status for dashboards and filtering. The string
// values are part of the external contract and must not change.
type StatusCategory string

const (
	// CategoryNew groups freshly created, not-yet-moving entities.
	CategoryNew StatusCategory = "NEW"
	// CategoryProcessing groups entities actively moving through the flow.
	CategoryProcessing StatusCategory = "PROCESSING"
	// CategoryPaused groups entities waiting on a business decision.
	CategoryPaused StatusCategory = "PAUSED"
	// CategorySuccessful groups terminally successful entities.
	CategorySuccessful StatusCategory = "SUCCESSFUL"
	// CategoryUnsuccessful groups terminally failed entities.
	CategoryUnsuccessful StatusCategory = "UNSUCCESSFUL"
)

// OrderStatus enumerates the order workflow vocabulary. The literal values are
// consumed by UI and API clients and are a hard compatibility contract.
type OrderStatus string

const (
	OrderStatusNew                 OrderStatus = "new"
	OrderStatusPendingPickup       OrderStatus = "pendingPickup"
	OrderStatusPickedUp            OrderStatus = "pickedUp"
	OrderStatusInStock             OrderStatus = "inStock"
	OrderStatusInReturnStock       OrderStatus = "inReturnStock"
	OrderStatusInProgress          OrderStatus = "inProgress"
	OrderStatusHeadingToCustomer   OrderStatus = "headingToCustomer"
	OrderStatusReturnToWarehouse   OrderStatus = "returnToWarehouse"
	OrderStatusHeadingToYou        OrderStatus = "headingToYou"
	OrderStatusRescheduled         OrderStatus = "rescheduled"
	OrderStatusReturnInitiated     OrderStatus = "returnInitiated"
	OrderStatusReturnAssigned      OrderStatus = "returnAssigned"
	OrderStatusReturnPickedUp      OrderStatus = "returnPickedUp"
	OrderStatusReturnAtWarehouse   OrderStatus = "returnAtWarehouse"
	OrderStatusReturnInspection    OrderStatus = "returnInspection"
	OrderStatusReturnProcessing    OrderStatus = "returnProcessing"
	OrderStatusReturnToBusiness    OrderStatus = "returnToBusiness"
	OrderStatusExchangePickup      OrderStatus = "exchangePickup"
	OrderStatusExchangeDelivery    OrderStatus = "exchangeDelivery"
	OrderStatusCollectionComplete  OrderStatus = "collectionComplete"
	OrderStatusWaitingAction       OrderStatus = "waitingAction"
	OrderStatusRejected            OrderStatus = "rejected"
	OrderStatusCompleted           OrderStatus = "completed"
	OrderStatusReturnCompleted     OrderStatus = "returnCompleted"
	OrderStatusCanceled            OrderStatus = "canceled"
	OrderStatusReturned            OrderStatus = "returned"
	OrderStatusTerminated          OrderStatus = "terminated"
	OrderStatusDeliveryFailed      OrderStatus = "deliveryFailed"
	OrderStatusAutoReturnInitiated OrderStatus = "autoReturnInitiated"
	OrderStatusReturnLinked        OrderStatus = "returnLinked"
)

// PickupStatus enumerates the pickup workflow vocabulary, a smaller state
// space than orders.
type PickupStatus string

const (
	PickupStatusNew            PickupStatus = "new"
	PickupStatusPendingPickup  PickupStatus = "pendingPickup"
	PickupStatusDriverAssigned PickupStatus = "driverAssigned"
	PickupStatusPickedUp       PickupStatus = "pickedUp"
	PickupStatusInStock        PickupStatus = "inStock"
	PickupStatusInProgress     PickupStatus = "inProgress"
	PickupStatusCompleted      PickupStatus = "completed"
	PickupStatusCanceled       PickupStatus = "canceled"
	PickupStatusRejected       PickupStatus = "rejected"
	PickupStatusReturned       PickupStatus = "returned"
	PickupStatusTerminated     PickupStatus = "terminated"
)

// OrderType selects which status sub-flow applies to an order.
type OrderType string

const (
	OrderTypeDeliver        OrderType = "Deliver"
	OrderTypeReturn         OrderType = "Return"
	OrderTypeExchange       OrderType = "Exchange"
	OrderTypeCashCollection OrderType = "Cash Collection"
	OrderTypeSignAndReturn  OrderType = "Sign & Return"
)

// StatusInfo carries the registry metadata for a single status.
type StatusInfo struct {
	Category    StatusCategory
	Label       string
	Description string
}

var orderStatusRegistry = map[OrderStatus]StatusInfo{
	OrderStatusNew:           {CategoryNew, "New", "Order has been created"},
	OrderStatusPendingPickup: {CategoryNew, "Pending Pickup", "Order is waiting for pickup"},

	OrderStatusPickedUp:          {CategoryProcessing, "Picked Up", "Order has been picked up from business"},
	OrderStatusInStock:           {CategoryProcessing, "In Stock", "Order is in warehouse"},
	OrderStatusInReturnStock:     {CategoryProcessing, "In Return Stock", "Return order is in warehouse"},
	OrderStatusInProgress:        {CategoryProcessing, "In Progress", "Order is being processed"},
	OrderStatusHeadingToCustomer: {CategoryProcessing, "Heading to Customer", "Order is on the way to customer"},
	OrderStatusReturnToWarehouse: {CategoryProcessing, "Return to Warehouse", "Return is on the way to warehouse"},
	OrderStatusHeadingToYou:      {CategoryProcessing, "Heading to You", "Order is heading to business (return)"},
	OrderStatusRescheduled:       {CategoryProcessing, "Rescheduled", "Delivery has been rescheduled"},
	OrderStatusReturnInitiated:   {CategoryProcessing, "Return Initiated", "Return has been initiated"},
	OrderStatusReturnAssigned:    {CategoryProcessing, "Return Assigned", "Courier assigned to return"},
	OrderStatusReturnPickedUp:    {CategoryProcessing, "Return Picked Up", "Return has been picked up from customer"},
	OrderStatusReturnAtWarehouse: {CategoryProcessing, "Return at Warehouse", "Return is at warehouse"},
	OrderStatusReturnInspection:  {CategoryProcessing, "Return Inspection", "Return is being inspected"},
	OrderStatusReturnProcessing:  {CategoryProcessing, "Return Processing", "Return is being processed"},
	OrderStatusReturnToBusiness:  {CategoryProcessing, "Return to Business", "Return is on the way to business"},
	OrderStatusExchangePickup:    {CategoryProcessing, "Exchange Pickup", "Original item picked up for exchange"},
	OrderStatusExchangeDelivery:  {CategoryProcessing, "Exchange Delivery", "Replacement item being delivered"},
	OrderStatusCollectionComplete: {CategoryProcessing, "Collection Complete", "Cash has been collected successfully"},
	OrderStatusReturnLinked:       {CategoryProcessing, "Return Linked", "Return order linked to deliver order"},

	OrderStatusWaitingAction: {CategoryPaused, "Awaiting Action", "Order is waiting for business action"},
	OrderStatusRejected:      {CategoryPaused, "Rejected", "Order has been rejected by courier"},

	OrderStatusCompleted:       {CategorySuccessful, "Completed", "Order has been successfully delivered"},
	OrderStatusReturnCompleted: {CategorySuccessful, "Return Completed", "Return has been successfully completed"},

	OrderStatusCanceled:            {CategoryUnsuccessful, "Canceled", "Order has been canceled"},
	OrderStatusReturned:            {CategoryUnsuccessful, "Returned", "Order has been returned to business"},
	OrderStatusTerminated:          {CategoryUnsuccessful, "Terminated", "Order has been terminated"},
	OrderStatusDeliveryFailed:      {CategoryUnsuccessful, "Delivery Failed", "Delivery has failed"},
	OrderStatusAutoReturnInitiated: {CategoryUnsuccessful, "Auto-Return Initiated", "System initiated return"},
}

var pickupStatusRegistry = map[PickupStatus]StatusInfo{
	PickupStatusNew:            {CategoryNew, "New", "Pickup request has been created"},
	PickupStatusPendingPickup:  {CategoryNew, "Pending Pickup", "Pickup is waiting to be assigned"},
	PickupStatusDriverAssigned: {CategoryNew, "Driver Assigned", "Driver has been assigned to pickup"},

	PickupStatusPickedUp:   {CategoryProcessing, "Picked Up", "Orders have been picked up"},
	PickupStatusInStock:    {CategoryProcessing, "In Stock", "Pickup is in warehouse"},
	PickupStatusInProgress: {CategoryProcessing, "In Progress", "Pickup is being processed"},

	PickupStatusCompleted: {CategorySuccessful, "Completed", "Pickup has been successfully completed"},

	PickupStatusCanceled:   {CategoryUnsuccessful, "Canceled", "Pickup has been canceled"},
	PickupStatusRejected:   {CategoryUnsuccessful, "Rejected", "Pickup has been rejected by driver"},
	PickupStatusReturned:   {CategoryUnsuccessful, "Returned", "Pickup has been returned to business"},
	PickupStatusTerminated: {CategoryUnsuccessful, "Terminated", "Pickup has been terminated"},
}

var orderTypeLabels = map[OrderType]StatusInfo{
	OrderTypeDeliver:        {Label: "Deliver", Description: "Standard delivery order"},
	OrderTypeReturn:         {Label: "Return", Description: "Return order"},
	OrderTypeExchange:       {Label: "Exchange", Description: "Exchange order with replacement items"},
	OrderTypeCashCollection: {Label: "Cash Collection", Description: "Cash collection without product delivery"},
	OrderTypeSignAndReturn:  {Label: "Sign & Return", Description: "Sign and return order"},
}

// statusFlows lists the happy-path status sequence per order type.
var statusFlows = map[OrderType][]OrderStatus{
	OrderTypeDeliver: {OrderStatusNew, OrderStatusPickedUp, OrderStatusInStock, OrderStatusInProgress, OrderStatusHeadingToCustomer, OrderStatusCompleted},
	OrderTypeReturn: {OrderStatusNew, OrderStatusReturnInitiated, OrderStatusReturnAssigned, OrderStatusReturnPickedUp, OrderStatusReturnAtWarehouse,
		OrderStatusReturnInspection, OrderStatusReturnProcessing, OrderStatusReturnToBusiness, OrderStatusReturnCompleted},
	OrderTypeExchange: {OrderStatusNew, OrderStatusPickedUp, OrderStatusInStock, OrderStatusInProgress, OrderStatusHeadingToCustomer,
		OrderStatusExchangePickup, OrderStatusExchangeDelivery, OrderStatusCompleted},
	OrderTypeCashCollection: {OrderStatusNew, OrderStatusPickedUp, OrderStatusInStock, OrderStatusInProgress, OrderStatusHeadingToCustomer,
		OrderStatusCollectionComplete, OrderStatusCompleted},
}

// OrderStatusInfo returns registry metadata for an order status. Unknown
// statuses resolve to category NEW with the raw status echoed as label; this
// deliberately degrades instead of erroring so stale documents keep rendering.
func OrderStatusInfo(status OrderStatus) StatusInfo {
	if info, ok := orderStatusRegistry[status]; ok {
		return info
	}
	return StatusInfo{Category: CategoryNew, Label: string(status)}
}

// OrderStatusCategory returns the category for an order status.
func OrderStatusCategory(status OrderStatus) StatusCategory {
	return OrderStatusInfo(status).Category
}

// OrderStatusLabel returns the human-readable label for an order status.
func OrderStatusLabel(status OrderStatus) string {
	return OrderStatusInfo(status).Label
}

// OrderStatusDescription returns the description for an order status.
func OrderStatusDescription(status OrderStatus) string {
	return OrderStatusInfo(status).Description
}

// PickupStatusInfo returns registry metadata for a pickup status with the
// same unknown-status degradation as orders.
func PickupStatusInfo(status PickupStatus) StatusInfo {
	if info, ok := pickupStatusRegistry[status]; ok {
		return info
	}
	return StatusInfo{Category: CategoryNew, Label: string(status)}
}

// PickupStatusCategory returns the category for a pickup status.
func PickupStatusCategory(status PickupStatus) StatusCategory {
	return PickupStatusInfo(status).Category
}

// PickupStatusLabel returns the human-readable label for a pickup status.
func PickupStatusLabel(status PickupStatus) string {
	return PickupStatusInfo(status).Label
}

// PickupStatusDescription returns the description for a pickup status.
func PickupStatusDescription(status PickupStatus) string {
	return PickupStatusInfo(status).Description
}

// OrderStatusesInCategory lists all order statuses mapped to the category.
func OrderStatusesInCategory(category StatusCategory) []OrderStatus {
	statuses := make([]OrderStatus, 0, len(orderStatusRegistry))
	for status, info := range orderStatusRegistry {
		if info.Category == category {
			statuses = append(statuses, status)
		}
	}
	sortStatuses(statuses)
	return statuses
}

// PickupStatusesInCategory lists all pickup statuses mapped to the category.
func PickupStatusesInCategory(category StatusCategory) []PickupStatus {
	statuses := make([]PickupStatus, 0, len(pickupStatusRegistry))
	for status, info := range pickupStatusRegistry {
		if info.Category == category {
			statuses = append(statuses, status)
		}
	}
	sortStatuses(statuses)
	return statuses
}

// KnownOrderType reports whether the order type is registered.
func KnownOrderType(orderType OrderType) bool {
	_, ok := orderTypeLabels[orderType]
	return ok
}

// OrderTypeLabel returns the display label for an order type.
func OrderTypeLabel(orderType OrderType) string {
	if info, ok := orderTypeLabels[orderType]; ok {
		return info.Label
	}
	return string(orderType)
}

// StatusFlow returns the happy-path status sequence for the order type, or
// nil when the type has no predefined flow.
func StatusFlow(orderType OrderType) []OrderStatus {
	flow, ok := statusFlows[orderType]
	if !ok {
		return nil
	}
	out := make([]OrderStatus, len(flow))
	copy(out, flow)
	return out
}

func sortStatuses[T ~string](statuses []T) {
	slices.Sort(statuses)
}
