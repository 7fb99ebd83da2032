package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/repositories"
)

const (
	pickupEventCreated        = "pickup.created"
	pickupEventStatusChanged  = "pickup.status.changed"
	pickupEventCompleted      = "pickup.completed"
	pickupEventDriverAssigned = "pickup.driver.assigned"
	pickupEventOrdersChanged  = "pickup.orders.changed"

	pickupIDPrefix = "pkp_"
)

var (
	// ErrPickupInvalidInput signals the caller provided invalid data.
	ErrPickupInvalidInput = errors.New("pickup: invalid input")
	// ErrPickupNotFound indicates the pickup could not be located.
	ErrPickupNotFound = errors.New("pickup: not found")
	// ErrPickupInvalidState indicates an illegal status transition or an
	// operation against a locked pickup.
	ErrPickupInvalidState = errors.New("pickup: invalid status transition")
	// ErrPickupConflict indicates optimistic concurrency conflicts or duplicates.
	ErrPickupConflict = errors.New("pickup: conflict")
)

// pickupStatusStageEffects maps each pickup status to the stage completed on
// arrival.
var pickupStatusStageEffects = map[domain.PickupStatus]domain.PickupStageName{
	domain.PickupStatusDriverAssigned: domain.PickupStageDriverAssigned,
	domain.PickupStatusPickedUp:       domain.PickupStagePickedUp,
	domain.PickupStatusInStock:        domain.PickupStageInStock,
	domain.PickupStatusCompleted:      domain.PickupStageCompleted,
}

// PickupEventPublisher publishes pickup domain events for downstream consumers.
type PickupEventPublisher interface {
	PublishPickupEvent(ctx context.Context, event PickupEvent) error
}

// PickupEvent captures metadata for emitted pickup domain events.
type PickupEvent struct {
	Type           string
	PickupID       string
	PickupNumber   string
	BusinessID     string
	PreviousStatus string
	CurrentStatus  string
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// PickupServiceDeps bundles collaborators required to construct the pickup service.
type PickupServiceDeps struct {
	Pickups     repositories.PickupRepository
	Businesses  repositories.BusinessRepository
	Ledger      LedgerService
	Counters    repositories.CounterRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Events      PickupEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type pickupService struct {
	pickups    repositories.PickupRepository
	businesses repositories.BusinessRepository
	ledger     LedgerService
	counters   repositories.CounterRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	events     PickupEventPublisher
	logger     func(context.Context, string, map[string]any)
}

// NewPickupService wires dependencies into a concrete PickupService implementation.
func NewPickupService(deps PickupServiceDeps) (PickupService, error) {
	if deps.Pickups == nil {
		return nil, errors.New("pickup service: pickup repository is required")
	}
	if deps.Businesses == nil {
		return nil, errors.New("pickup service: business repository is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("pickup service: ledger service is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("pickup service: counter repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &pickupService{
		pickups:    deps.Pickups,
		businesses: deps.Businesses,
		ledger:     deps.Ledger,
		counters:   deps.Counters,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: deps.Events,
		logger: logger,
	}, nil
}

func (s *pickupService) CreatePickup(ctx context.Context, cmd CreatePickupCommand) (Pickup, error) {
	businessID := strings.TrimSpace(cmd.BusinessID)
	if businessID == "" {
		return Pickup{}, fmt.Errorf("%w: business id is required", ErrPickupInvalidInput)
	}
	if _, err := s.businesses.FindByID(ctx, businessID); err != nil {
		return Pickup{}, s.mapRepositoryError(err)
	}

	now := s.clock()
	seq, err := s.counters.Next(ctx, "pickups", 1)
	if err != nil {
		return Pickup{}, s.mapRepositoryError(err)
	}

	pickup := Pickup{
		ID:           pickupIDPrefix + s.newID(),
		PickupNumber: fmt.Sprintf("PKP-%04d-%06d", now.Year(), seq),
		BusinessID:   businessID,
		Fees:         CalculatePickupFee(cmd.City, 0),
		CreatedAt:    now,
	}
	pickup.ApplyStatus(domain.PickupStatusNew, now)
	pickup.Stages.CompleteStage(domain.PickupStageScheduled, now, "")

	if err := s.pickups.Insert(ctx, pickup); err != nil {
		return Pickup{}, s.mapRepositoryError(err)
	}
	pickup.Revision = 1

	s.publishEvent(ctx, PickupEvent{
		Type:          pickupEventCreated,
		PickupID:      pickup.ID,
		PickupNumber:  pickup.PickupNumber,
		BusinessID:    pickup.BusinessID,
		CurrentStatus: pickup.Status,
		ActorID:       cmd.ActorID,
		OccurredAt:    now,
	})
	return pickup, nil
}

func (s *pickupService) GetPickup(ctx context.Context, pickupID string) (Pickup, error) {
	pickupID = strings.TrimSpace(pickupID)
	if pickupID == "" {
		return Pickup{}, fmt.Errorf("%w: pickup id is required", ErrPickupInvalidInput)
	}
	pickup, err := s.pickups.FindByID(ctx, pickupID)
	if err != nil {
		return Pickup{}, s.mapRepositoryError(err)
	}
	return pickup, nil
}

func (s *pickupService) ListPickups(ctx context.Context, filter repositories.PickupListFilter) (domain.CursorPage[Pickup], error) {
	page, err := s.pickups.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Pickup]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *pickupService) TransitionStatus(ctx context.Context, cmd PickupStatusTransitionCommand) (Pickup, error) {
	target := domain.PickupStatus(strings.TrimSpace(string(cmd.TargetStatus)))
	if target == "" {
		return Pickup{}, fmt.Errorf("%w: target status is required", ErrPickupInvalidInput)
	}

	var updated Pickup
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		pickup, err := s.loadUnlocked(txCtx, cmd.PickupID)
		if err != nil {
			return err
		}
		current := domain.PickupStatus(pickup.Status)
		if current == target {
			return fmt.Errorf("%w: pickup already %s", ErrPickupInvalidState, target)
		}
		if !domain.IsValidPickupTransition(current, target) {
			return fmt.Errorf("%w: %s -> %s", ErrPickupInvalidState, current, target)
		}

		now := s.clock()
		pickup.ApplyStatus(target, now)
		if stage, ok := pickupStatusStageEffects[target]; ok {
			pickup.Stages.CompleteStage(stage, now, cmd.Notes)
		}
		s.appendDriverAction(&pickup, cmd.ActorID, "status:"+string(target), cmd.Notes, now)

		if err := s.pickups.Update(txCtx, pickup); err != nil {
			return s.mapRepositoryError(err)
		}
		pickup.Revision++
		updated = pickup
		return nil
	})
	if err != nil {
		return Pickup{}, err
	}

	s.publishStatusChange(ctx, updated, cmd.ActorID)
	return updated, nil
}

func (s *pickupService) AssignDriver(ctx context.Context, cmd AssignDriverCommand) (Pickup, error) {
	driverID := strings.TrimSpace(cmd.DriverID)
	if driverID == "" {
		return Pickup{}, fmt.Errorf("%w: driver id is required", ErrPickupInvalidInput)
	}

	var updated Pickup
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		pickup, err := s.loadUnlocked(txCtx, cmd.PickupID)
		if err != nil {
			return err
		}
		current := domain.PickupStatus(pickup.Status)
		if current != domain.PickupStatusDriverAssigned &&
			!domain.IsValidPickupTransition(current, domain.PickupStatusDriverAssigned) {
			return fmt.Errorf("%w: cannot assign driver from %s", ErrPickupInvalidState, current)
		}

		now := s.clock()
		pickup.DriverID = &driverID
		s.appendDriverAction(&pickup, driverID, "assigned", cmd.Notes, now)
		if current != domain.PickupStatusDriverAssigned {
			pickup.ApplyStatus(domain.PickupStatusDriverAssigned, now)
			pickup.Stages.CompleteStage(domain.PickupStageDriverAssigned, now, cmd.Notes)
		} else {
			pickup.UpdatedAt = now
		}

		if err := s.pickups.Update(txCtx, pickup); err != nil {
			return s.mapRepositoryError(err)
		}
		pickup.Revision++
		updated = pickup
		return nil
	})
	if err != nil {
		return Pickup{}, err
	}

	s.publishEvent(ctx, PickupEvent{
		Type:          pickupEventDriverAssigned,
		PickupID:      updated.ID,
		PickupNumber:  updated.PickupNumber,
		BusinessID:    updated.BusinessID,
		CurrentStatus: updated.Status,
		ActorID:       cmd.ActorID,
		OccurredAt:    s.clock(),
		Metadata:      map[string]any{"driver": driverID},
	})
	return updated, nil
}

func (s *pickupService) AddOrder(ctx context.Context, cmd PickupOrderCommand) (Pickup, error) {
	return s.changeOrders(ctx, cmd, true)
}

func (s *pickupService) RemoveOrder(ctx context.Context, cmd PickupOrderCommand) (Pickup, error) {
	return s.changeOrders(ctx, cmd, false)
}

func (s *pickupService) changeOrders(ctx context.Context, cmd PickupOrderCommand, add bool) (Pickup, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Pickup{}, fmt.Errorf("%w: order id is required", ErrPickupInvalidInput)
	}

	var updated Pickup
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		pickup, err := s.loadUnlocked(txCtx, cmd.PickupID)
		if err != nil {
			return err
		}

		if add {
			if slices.Contains(pickup.OrderIDs, orderID) {
				return fmt.Errorf("%w: order %s already in pickup", ErrPickupConflict, orderID)
			}
			pickup.OrderIDs = append(pickup.OrderIDs, orderID)
		} else {
			idx := slices.Index(pickup.OrderIDs, orderID)
			if idx < 0 {
				return fmt.Errorf("%w: order %s not in pickup", ErrPickupNotFound, orderID)
			}
			pickup.OrderIDs = slices.Delete(pickup.OrderIDs, idx, idx+1)
		}

		business, err := s.businesses.FindByID(txCtx, pickup.BusinessID)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		pickup.Fees = CalculatePickupFee(business.City, len(pickup.OrderIDs))

		now := s.clock()
		pickup.UpdatedAt = now
		action := "orderRemoved"
		if add {
			action = "orderAdded"
		}
		s.appendDriverAction(&pickup, cmd.ActorID, action, orderID, now)

		if err := s.pickups.Update(txCtx, pickup); err != nil {
			return s.mapRepositoryError(err)
		}
		pickup.Revision++
		updated = pickup
		return nil
	})
	if err != nil {
		return Pickup{}, err
	}

	s.publishEvent(ctx, PickupEvent{
		Type:          pickupEventOrdersChanged,
		PickupID:      updated.ID,
		PickupNumber:  updated.PickupNumber,
		BusinessID:    updated.BusinessID,
		CurrentStatus: updated.Status,
		ActorID:       cmd.ActorID,
		OccurredAt:    s.clock(),
		Metadata:      map[string]any{"orders": len(updated.OrderIDs), "fees": updated.Fees},
	})
	return updated, nil
}

// CompletePickup finishes the run and charges the flat pickup fee exactly
// once; the fee transaction id on the pickup guards against double charging.
func (s *pickupService) CompletePickup(ctx context.Context, cmd CompletePickupCommand) (Pickup, error) {
	var updated Pickup
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		pickup, err := s.loadUnlocked(txCtx, cmd.PickupID)
		if err != nil {
			return err
		}
		current := domain.PickupStatus(pickup.Status)
		if !domain.IsValidPickupTransition(current, domain.PickupStatusCompleted) {
			return fmt.Errorf("%w: cannot complete from %s", ErrPickupInvalidState, current)
		}

		now := s.clock()
		pickup.ApplyStatus(domain.PickupStatusCompleted, now)
		pickup.Stages.CompleteStage(domain.PickupStageCompleted, now, cmd.Notes)
		if pickup.CompletedDate == nil {
			completed := now
			pickup.CompletedDate = &completed
		}
		s.appendDriverAction(&pickup, cmd.DriverID, "completed", cmd.Notes, now)

		if pickup.FeesTxnID == nil && pickup.Fees > 0 {
			txn, err := s.ledger.CreateTransaction(txCtx, CreateTransactionCommand{
				BusinessID:     pickup.BusinessID,
				Type:           domain.TransactionTypePickupFees,
				Amount:         -pickup.Fees,
				Notes:          fmt.Sprintf("Pickup fee for %s (%d orders)", pickup.PickupNumber, len(pickup.OrderIDs)),
				SourceOrderIDs: pickup.OrderIDs,
			})
			if err != nil {
				return err
			}
			pickup.FeesTxnID = &txn.ID
		}

		if err := s.pickups.Update(txCtx, pickup); err != nil {
			return s.mapRepositoryError(err)
		}
		pickup.Revision++
		updated = pickup
		return nil
	})
	if err != nil {
		return Pickup{}, err
	}

	s.publishEvent(ctx, PickupEvent{
		Type:          pickupEventCompleted,
		PickupID:      updated.ID,
		PickupNumber:  updated.PickupNumber,
		BusinessID:    updated.BusinessID,
		CurrentStatus: updated.Status,
		ActorID:       cmd.DriverID,
		OccurredAt:    s.clock(),
		Metadata:      map[string]any{"fees": updated.Fees, "orders": len(updated.OrderIDs)},
	})
	return updated, nil
}

// Internals ------------------------------------------------------------------

func (s *pickupService) loadUnlocked(ctx context.Context, pickupID string) (Pickup, error) {
	pickupID = strings.TrimSpace(pickupID)
	if pickupID == "" {
		return Pickup{}, fmt.Errorf("%w: pickup id is required", ErrPickupInvalidInput)
	}
	pickup, err := s.pickups.FindByID(ctx, pickupID)
	if err != nil {
		return Pickup{}, s.mapRepositoryError(err)
	}
	if domain.IsLockedPickupStatus(domain.PickupStatus(pickup.Status)) {
		return Pickup{}, fmt.Errorf("%w: pickup %s is locked in status %s", ErrPickupInvalidState, pickup.PickupNumber, pickup.Status)
	}
	return pickup, nil
}

func (s *pickupService) appendDriverAction(pickup *Pickup, driverID, action, notes string, now time.Time) {
	entry := CourierHistoryEntry{
		CourierID:  strings.TrimSpace(driverID),
		Action:     action,
		Notes:      notes,
		AssignedAt: now,
	}
	if entry.CourierID == "" && pickup.DriverID != nil {
		entry.CourierID = *pickup.DriverID
	}
	pickup.DriverHistory = append(pickup.DriverHistory, entry)
}

func (s *pickupService) publishStatusChange(ctx context.Context, pickup Pickup, actorID string) {
	event := PickupEvent{
		Type:          pickupEventStatusChanged,
		PickupID:      pickup.ID,
		PickupNumber:  pickup.PickupNumber,
		BusinessID:    pickup.BusinessID,
		CurrentStatus: pickup.Status,
		ActorID:       actorID,
		OccurredAt:    s.clock(),
	}
	if len(pickup.StatusHistory) > 1 {
		event.PreviousStatus = pickup.StatusHistory[len(pickup.StatusHistory)-2].Status
	}
	s.publishEvent(ctx, event)
}

func (s *pickupService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrPickupNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrPickupConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("pickup: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *pickupService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *pickupService) publishEvent(ctx context.Context, event PickupEvent) {
	if s.events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := s.events.PublishPickupEvent(ctx, event); err != nil {
		s.logger(ctx, "pickup.event.publish.failed", map[string]any{
			"type":   event.Type,
			"pickup": event.PickupID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}
