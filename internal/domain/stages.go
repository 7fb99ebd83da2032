package domain

import (
	"time"
)

// Stage is a single lifecycle milestone tracked independently of the
// top-level status.
type Stage struct {
	IsCompleted bool
	CompletedAt *time.Time
	Notes       string
}

// Complete marks the stage done. Completion is write-once: a stage that is
// already complete keeps its original timestamp and notes, and the call
// reports false.
func (s *Stage) Complete(now time.Time, notes string) bool {
	if s == nil || s.IsCompleted {
		return false
	}
	completedAt := now.UTC()
	s.IsCompleted = true
	s.CompletedAt = &completedAt
	s.Notes = notes
	return true
}

// Reset clears the stage back to incomplete. Only the return sub-flow uses
// this, to roll back forward-delivery progress before re-routing the order.
func (s *Stage) Reset() {
	if s == nil {
		return
	}
	s.IsCompleted = false
	s.CompletedAt = nil
	s.Notes = ""
}

// OrderStageName identifies one of the named order lifecycle milestones.
type OrderStageName string

const (
	StageOrderPlaced        OrderStageName = "orderPlaced"
	StagePacked             OrderStageName = "packed"
	StageShipping           OrderStageName = "shipping"
	StageInProgress         OrderStageName = "inProgress"
	StageOutForDelivery     OrderStageName = "outForDelivery"
	StageDelivered          OrderStageName = "delivered"
	StageReturnInitiated    OrderStageName = "returnInitiated"
	StageReturnAssigned     OrderStageName = "returnAssigned"
	StageReturnPickedUp     OrderStageName = "returnPickedUp"
	StageReturnAtWarehouse  OrderStageName = "returnAtWarehouse"
	StageReturnInspection   OrderStageName = "returnInspection"
	StageReturnProcessing   OrderStageName = "returnProcessing"
	StageReturnToBusiness   OrderStageName = "returnToBusiness"
	StageReturnCompleted    OrderStageName = "returnCompleted"
	StageExchangePickup     OrderStageName = "exchangePickup"
	StageExchangeDelivery   OrderStageName = "exchangeDelivery"
	StageCollectionComplete OrderStageName = "collectionComplete"
)

// OrderStages tracks every named milestone for an order.
type OrderStages struct {
	OrderPlaced        Stage
	Packed             Stage
	Shipping           Stage
	InProgress         Stage
	OutForDelivery     Stage
	Delivered          Stage
	ReturnInitiated    Stage
	ReturnAssigned     Stage
	ReturnPickedUp     Stage
	ReturnAtWarehouse  Stage
	ReturnInspection   Stage
	ReturnProcessing   Stage
	ReturnToBusiness   Stage
	ReturnCompleted    Stage
	ExchangePickup     Stage
	ExchangeDelivery   Stage
	CollectionComplete Stage
}

// Stage returns the addressable stage record for the given name, or nil for
// unknown names.
func (s *OrderStages) Stage(name OrderStageName) *Stage {
	if s == nil {
		return nil
	}
	switch name {
	case StageOrderPlaced:
		return &s.OrderPlaced
	case StagePacked:
		return &s.Packed
	case StageShipping:
		return &s.Shipping
	case StageInProgress:
		return &s.InProgress
	case StageOutForDelivery:
		return &s.OutForDelivery
	case StageDelivered:
		return &s.Delivered
	case StageReturnInitiated:
		return &s.ReturnInitiated
	case StageReturnAssigned:
		return &s.ReturnAssigned
	case StageReturnPickedUp:
		return &s.ReturnPickedUp
	case StageReturnAtWarehouse:
		return &s.ReturnAtWarehouse
	case StageReturnInspection:
		return &s.ReturnInspection
	case StageReturnProcessing:
		return &s.ReturnProcessing
	case StageReturnToBusiness:
		return &s.ReturnToBusiness
	case StageReturnCompleted:
		return &s.ReturnCompleted
	case StageExchangePickup:
		return &s.ExchangePickup
	case StageExchangeDelivery:
		return &s.ExchangeDelivery
	case StageCollectionComplete:
		return &s.CollectionComplete
	default:
		return nil
	}
}

// CompleteStage marks the named stage complete, preserving the write-once
// guarantee. Unknown names are ignored and report false.
func (s *OrderStages) CompleteStage(name OrderStageName, now time.Time, notes string) bool {
	stage := s.Stage(name)
	if stage == nil {
		return false
	}
	return stage.Complete(now, notes)
}

// forwardDeliveryStages are the milestones force-completed when a regular
// delivery finishes, in flow order.
var forwardDeliveryStages = []OrderStageName{
	StageOrderPlaced,
	StagePacked,
	StageShipping,
	StageInProgress,
	StageOutForDelivery,
	StageDelivered,
}

// CompleteForwardStages marks every forward-delivery milestone complete.
// Already-complete stages keep their original timestamps.
func (s *OrderStages) CompleteForwardStages(now time.Time, notes string) {
	for _, name := range forwardDeliveryStages {
		s.CompleteStage(name, now, notes)
	}
}

// ResetForReturn rolls back the in-flight delivery milestones before the
// order enters the return sub-flow. This is the only sanctioned un-completion
// of stages.
func (s *OrderStages) ResetForReturn() {
	if s == nil {
		return
	}
	s.OutForDelivery.Reset()
	s.InProgress.Reset()
}

// PickupStageName identifies a pickup lifecycle milestone.
type PickupStageName string

const (
	PickupStageScheduled      PickupStageName = "scheduled"
	PickupStageDriverAssigned PickupStageName = "driverAssigned"
	PickupStagePickedUp       PickupStageName = "pickedUp"
	PickupStageInStock        PickupStageName = "inStock"
	PickupStageCompleted      PickupStageName = "completed"
)

// PickupStages tracks the pickup run milestones, same record shape as orders.
type PickupStages struct {
	Scheduled      Stage
	DriverAssigned Stage
	PickedUp       Stage
	InStock        Stage
	Completed      Stage
}

// Stage returns the addressable stage record for the given name, or nil for
// unknown names.
func (s *PickupStages) Stage(name PickupStageName) *Stage {
	if s == nil {
		return nil
	}
	switch name {
	case PickupStageScheduled:
		return &s.Scheduled
	case PickupStageDriverAssigned:
		return &s.DriverAssigned
	case PickupStagePickedUp:
		return &s.PickedUp
	case PickupStageInStock:
		return &s.InStock
	case PickupStageCompleted:
		return &s.Completed
	default:
		return nil
	}
}

// CompleteStage marks the named stage complete with the write-once guarantee.
func (s *PickupStages) CompleteStage(name PickupStageName, now time.Time, notes string) bool {
	stage := s.Stage(name)
	if stage == nil {
		return false
	}
	return stage.Complete(now, notes)
}
