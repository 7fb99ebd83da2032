package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/repositories"
)

const (
	orderEventCreated             = "order.created"
	orderEventStatusChanged       = "order.status.changed"
	orderEventCompleted           = "order.completed"
	orderEventReturnInitiated     = "order.return.initiated"
	orderEventUnavailableReported = "order.unavailable.reported"
	orderEventCourierAssigned     = "order.courier.assigned"

	orderIDPrefix = "ord_"

	// unavailableAttemptCap is the default delivery attempt ceiling; the
	// second failed attempt flips the order into the return sub-flow.
	unavailableAttemptCap = 2

	defaultRetryDelay = 24 * time.Hour

	customerUnavailableNote = "Customer unavailable"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an illegal status transition or an
	// operation against a locked order.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates optimistic concurrency conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
)

// statusStageEffects maps each status to the stage force-completed when the
// order arrives there.
var statusStageEffects = map[domain.OrderStatus]domain.OrderStageName{
	domain.OrderStatusPickedUp:           domain.StagePacked,
	domain.OrderStatusInStock:            domain.StageShipping,
	domain.OrderStatusInProgress:         domain.StageInProgress,
	domain.OrderStatusHeadingToCustomer:  domain.StageOutForDelivery,
	domain.OrderStatusCompleted:          domain.StageDelivered,
	domain.OrderStatusReturnInitiated:    domain.StageReturnInitiated,
	domain.OrderStatusReturnAssigned:     domain.StageReturnAssigned,
	domain.OrderStatusReturnPickedUp:     domain.StageReturnPickedUp,
	domain.OrderStatusReturnAtWarehouse:  domain.StageReturnAtWarehouse,
	domain.OrderStatusReturnInspection:   domain.StageReturnInspection,
	domain.OrderStatusReturnProcessing:   domain.StageReturnProcessing,
	domain.OrderStatusReturnToBusiness:   domain.StageReturnToBusiness,
	domain.OrderStatusReturnCompleted:    domain.StageReturnCompleted,
	domain.OrderStatusExchangePickup:     domain.StageExchangePickup,
	domain.OrderStatusExchangeDelivery:   domain.StageExchangeDelivery,
	domain.OrderStatusCollectionComplete: domain.StageCollectionComplete,
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	OrderNumber    string
	BusinessID     string
	PreviousStatus string
	CurrentStatus  string
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Counters    repositories.CounterRepository
	UnitOfWork  repositories.UnitOfWork
	RetryDelay  time.Duration
	MaxAttempts int
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders      repositories.OrderRepository
	counters    repositories.CounterRepository
	unitOfWork  repositories.UnitOfWork
	retryDelay  time.Duration
	maxAttempts int
	clock       func() time.Time
	newID       func() string
	events      OrderEventPublisher
	logger      func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	retryDelay := deps.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	maxAttempts := deps.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = unavailableAttemptCap
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

	return &orderService{
		orders:      deps.Orders,
		counters:    deps.Counters,
		unitOfWork:  unit,
		retryDelay:  retryDelay,
		maxAttempts: maxAttempts,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: deps.Events,
		logger: logger,
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	businessID := strings.TrimSpace(cmd.BusinessID)
	if businessID == "" {
		return Order{}, fmt.Errorf("%w: business id is required", ErrOrderInvalidInput)
	}
	if !domain.KnownOrderType(cmd.OrderType) {
		return Order{}, fmt.Errorf("%w: unknown order type %q", ErrOrderInvalidInput, cmd.OrderType)
	}
	if cmd.Amount < 0 {
		return Order{}, fmt.Errorf("%w: amount must not be negative", ErrOrderInvalidInput)
	}

	now := s.clock()
	orderNumber, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	order := Order{
		ID:            orderIDPrefix + s.newID(),
		OrderNumber:   orderNumber,
		BusinessID:    businessID,
		CustomerName:  strings.TrimSpace(cmd.CustomerName),
		CustomerPhone: strings.TrimSpace(cmd.CustomerPhone),
		Shipping: OrderShipping{
			OrderType:  cmd.OrderType,
			AmountType: strings.TrimSpace(cmd.AmountType),
			Amount:     cmd.Amount,
			City:       strings.TrimSpace(cmd.City),
			IsExpress:  cmd.IsExpress,
		},
		Fees:      CalculateOrderFee(cmd.City, cmd.OrderType, cmd.IsExpress),
		CreatedAt: now,
	}
	order.ApplyStatus(domain.OrderStatusNew, now)
	order.Stages.CompleteStage(domain.StageOrderPlaced, now, "")

	if err := s.orders.Insert(ctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	order.Revision = 1

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		BusinessID:    order.BusinessID,
		CurrentStatus: order.Status,
		ActorID:       cmd.ActorID,
		OccurredAt:    now,
	})
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return Order{}, fmt.Errorf("%w: order number is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) NextStatuses(ctx context.Context, orderID string) ([]OrderStatus, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return domain.NextOrderStatuses(domain.OrderStatus(order.Status)), nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	target := domain.OrderStatus(strings.TrimSpace(string(cmd.TargetStatus)))
	if target == "" {
		return Order{}, fmt.Errorf("%w: target status is required", ErrOrderInvalidInput)
	}

	var updated Order
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		order, err := s.loadUnlocked(txCtx, cmd.OrderID)
		if err != nil {
			return err
		}
		current := domain.OrderStatus(order.Status)
		if current == target {
			return fmt.Errorf("%w: order already %s", ErrOrderInvalidState, target)
		}
		if !domain.IsValidOrderTransition(current, target) {
			return fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, current, target)
		}

		now := s.clock()
		if target == domain.OrderStatusRejected {
			// Courier refusal flips straight into the return sub-flow.
			order.ApplyStatus(domain.OrderStatusRejected, now)
			s.appendCourierAction(&order, cmd.ActorID, "rejected", cmd.Notes, now)
			s.initiateFullReturn(&order, "Courier rejected delivery", now)
		} else {
			order.ApplyStatus(target, now)
			s.applyStageEffect(&order, target, cmd.Notes, now)
			s.appendCourierAction(&order, cmd.ActorID, "status:"+string(target), cmd.Notes, now)
			if target == domain.OrderStatusCompleted {
				s.finalizeCompletion(&order, now)
			}
		}

		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		order.Revision++
		updated = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publishStatusChange(ctx, updated, cmd.ActorID, nil)
	return updated, nil
}

func (s *orderService) CompleteOrder(ctx context.Context, cmd CompleteOrderCommand) (Order, error) {
	var updated Order
	var eventType string
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		order, err := s.loadUnlocked(txCtx, cmd.OrderID)
		if err != nil {
			return err
		}

		now := s.clock()
		eventType = orderEventStatusChanged
		current := domain.OrderStatus(order.Status)

		switch current {
		case domain.OrderStatusReturnToWarehouse:
			// Courier finished the return pickup leg.
			order.ApplyStatus(domain.OrderStatusInReturnStock, now)

		case domain.OrderStatusHeadingToYou:
			// Return delivered back to the business.
			order.ApplyStatus(domain.OrderStatusReturnCompleted, now)
			s.applyStageEffect(&order, domain.OrderStatusReturnCompleted, cmd.Notes, now)
			if order.CompletedDate == nil {
				completed := now
				order.CompletedDate = &completed
			}

		case domain.OrderStatusHeadingToCustomer:
			target := domain.ResolveDeliveryTarget(order.Shipping.OrderType)
			order.ApplyStatus(target, now)
			s.applyStageEffect(&order, target, cmd.Notes, now)
			if target == domain.OrderStatusCompleted {
				s.finalizeCompletion(&order, now)
				eventType = orderEventCompleted
			}

		case domain.OrderStatusExchangePickup:
			order.ApplyStatus(domain.OrderStatusExchangeDelivery, now)
			s.applyStageEffect(&order, domain.OrderStatusExchangeDelivery, cmd.Notes, now)

		case domain.OrderStatusExchangeDelivery, domain.OrderStatusCollectionComplete:
			order.ApplyStatus(domain.OrderStatusCompleted, now)
			s.applyStageEffect(&order, domain.OrderStatusCompleted, cmd.Notes, now)
			s.finalizeCompletion(&order, now)
			eventType = orderEventCompleted

		default:
			return fmt.Errorf("%w: cannot complete from %s", ErrOrderInvalidState, current)
		}

		s.appendCourierAction(&order, cmd.CourierID, "completed:"+order.Status, cmd.Notes, now)

		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		order.Revision++
		updated = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	event := OrderEvent{
		Type:          eventType,
		OrderID:       updated.ID,
		OrderNumber:   updated.OrderNumber,
		BusinessID:    updated.BusinessID,
		CurrentStatus: updated.Status,
		ActorID:       cmd.CourierID,
		OccurredAt:    s.clock(),
	}
	if len(updated.StatusHistory) > 1 {
		event.PreviousStatus = updated.StatusHistory[len(updated.StatusHistory)-2].Status
	}
	s.publishEvent(ctx, event)
	return updated, nil
}

func (s *orderService) ReportUnavailable(ctx context.Context, cmd ReportUnavailableCommand) (Order, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return Order{}, fmt.Errorf("%w: unavailability reason is required", ErrOrderInvalidInput)
	}

	var updated Order
	var returned bool
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		order, err := s.loadUnlocked(txCtx, cmd.OrderID)
		if err != nil {
			return err
		}
		current := domain.OrderStatus(order.Status)
		if current != domain.OrderStatusHeadingToCustomer && current != domain.OrderStatusWaitingAction {
			return fmt.Errorf("%w: cannot report unavailable from %s", ErrOrderInvalidState, current)
		}

		now := s.clock()
		order.Attempts++
		order.UnavailableReasons = append(order.UnavailableReasons, reason)

		if order.Attempts >= s.maxAttempts {
			s.appendCourierAction(&order, cmd.CourierID, "unavailable", reason, now)
			s.initiateFullReturn(&order, reason, now)
			returned = true
		} else {
			order.ApplyStatus(domain.OrderStatusWaitingAction, now)
			order.Stages.CompleteStage(domain.StageInProgress, now, customerUnavailableNote)
			order.Stages.Stage(domain.StageOutForDelivery).Reset()
			retryAt := now.Add(s.retryDelay)
			order.ScheduledRetryAt = &retryAt
			s.appendCourierAction(&order, cmd.CourierID, "unavailable", reason, now)
		}

		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		order.Revision++
		updated = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	eventType := orderEventUnavailableReported
	if returned {
		eventType = orderEventReturnInitiated
	}
	s.publishEvent(ctx, OrderEvent{
		Type:          eventType,
		OrderID:       updated.ID,
		OrderNumber:   updated.OrderNumber,
		BusinessID:    updated.BusinessID,
		CurrentStatus: updated.Status,
		ActorID:       cmd.CourierID,
		OccurredAt:    s.clock(),
		Metadata:      map[string]any{"attempts": updated.Attempts, "reason": reason},
	})
	return updated, nil
}

func (s *orderService) AssignCourier(ctx context.Context, cmd AssignCourierCommand) (Order, error) {
	courierID := strings.TrimSpace(cmd.CourierID)
	if courierID == "" {
		return Order{}, fmt.Errorf("%w: courier id is required", ErrOrderInvalidInput)
	}

	var updated Order
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		order, err := s.loadUnlocked(txCtx, cmd.OrderID)
		if err != nil {
			return err
		}

		now := s.clock()
		order.CourierID = &courierID
		s.appendCourierAction(&order, courierID, "assigned", cmd.Notes, now)
		if domain.OrderStatus(order.Status) == domain.OrderStatusNew {
			order.ApplyStatus(domain.OrderStatusPendingPickup, now)
		} else {
			order.UpdatedAt = now
		}

		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		order.Revision++
		updated = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCourierAssigned,
		OrderID:       updated.ID,
		OrderNumber:   updated.OrderNumber,
		BusinessID:    updated.BusinessID,
		CurrentStatus: updated.Status,
		ActorID:       cmd.ActorID,
		OccurredAt:    s.clock(),
		Metadata:      map[string]any{"courier": courierID},
	})
	return updated, nil
}

func (s *orderService) RequestReturn(ctx context.Context, cmd RequestReturnCommand) (Order, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return Order{}, fmt.Errorf("%w: return reason is required", ErrOrderInvalidInput)
	}

	var updated Order
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, strings.TrimSpace(cmd.OrderID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		current := domain.OrderStatus(order.Status)
		if !domain.IsValidOrderTransition(current, domain.OrderStatusReturnInitiated) {
			return fmt.Errorf("%w: return not allowed from %s", ErrOrderInvalidState, current)
		}

		now := s.clock()
		originalNumber := order.OrderNumber
		order.ApplyStatus(domain.OrderStatusReturnInitiated, now)
		order.Stages.CompleteStage(domain.StageReturnInitiated, now, reason)
		order.Shipping.OrderType = domain.OrderTypeReturn
		order.Shipping.ReturnReason = &reason
		order.Shipping.ReturnInitiatedAt = &now
		order.Shipping.OriginalOrderNumber = &originalNumber
		order.Shipping.IsPartialReturn = cmd.IsPartialReturn
		if cmd.IsPartialReturn {
			order.Shipping.PartialItemCount = cmd.PartialItemCount
		}
		s.appendCourierAction(&order, cmd.ActorID, "returnRequested", reason, now)

		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		order.Revision++
		updated = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventReturnInitiated,
		OrderID:       updated.ID,
		OrderNumber:   updated.OrderNumber,
		BusinessID:    updated.BusinessID,
		CurrentStatus: updated.Status,
		ActorID:       cmd.ActorID,
		OccurredAt:    s.clock(),
		Metadata:      map[string]any{"reason": reason, "partial": cmd.IsPartialReturn},
	})
	return updated, nil
}

// Internals ------------------------------------------------------------------

// loadUnlocked fetches an order and rejects locked (terminal) statuses before
// any ordinary workflow mutation.
func (s *orderService) loadUnlocked(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if domain.IsLockedOrderStatus(domain.OrderStatus(order.Status)) {
		return Order{}, fmt.Errorf("%w: order %s is locked in status %s", ErrOrderInvalidState, order.OrderNumber, order.Status)
	}
	return order, nil
}

// initiateFullReturn flips a failed delivery into the return sub-flow. The
// assigned courier is kept because the same courier runs the return leg.
func (s *orderService) initiateFullReturn(order *Order, reason string, now time.Time) {
	order.ApplyStatus(domain.OrderStatusReturnToWarehouse, now)
	order.Stages.ResetForReturn()
	order.Stages.CompleteStage(domain.StageReturnInitiated, now, reason)
	order.Shipping.OrderType = domain.OrderTypeReturn
	order.Shipping.ReturnReason = &reason
	order.Shipping.ReturnInitiatedAt = &now
	order.ScheduledRetryAt = nil
}

// finalizeCompletion stamps the successful-delivery bookkeeping exactly once.
func (s *orderService) finalizeCompletion(order *Order, now time.Time) {
	order.Stages.CompleteForwardStages(now, "")
	if order.Attempts < s.maxAttempts {
		order.Attempts++
	}
	if order.CompletedDate == nil {
		completed := now
		order.CompletedDate = &completed
	}
	if order.MoneyReleaseDate == nil {
		release := domain.NextMoneyReleaseDate(now)
		order.MoneyReleaseDate = &release
	}
}

func (s *orderService) applyStageEffect(order *Order, status domain.OrderStatus, notes string, now time.Time) {
	if stage, ok := statusStageEffects[status]; ok {
		order.Stages.CompleteStage(stage, now, notes)
	}
}

func (s *orderService) appendCourierAction(order *Order, courierID, action, notes string, now time.Time) {
	entry := CourierHistoryEntry{
		CourierID:  strings.TrimSpace(courierID),
		Action:     action,
		Notes:      notes,
		AssignedAt: now,
	}
	if entry.CourierID == "" && order.CourierID != nil {
		entry.CourierID = *order.CourierID
	}
	order.CourierHistory = append(order.CourierHistory, entry)
}

func (s *orderService) publishStatusChange(ctx context.Context, order Order, actorID string, metadata map[string]any) {
	event := OrderEvent{
		Type:          orderEventStatusChanged,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		BusinessID:    order.BusinessID,
		CurrentStatus: order.Status,
		ActorID:       actorID,
		OccurredAt:    s.clock(),
		Metadata:      metadata,
	}
	if len(order.StatusHistory) > 1 {
		event.PreviousStatus = order.StatusHistory[len(order.StatusHistory)-2].Status
	}
	s.publishEvent(ctx, event)
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, "orders", 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%04d-%06d", now.Year(), seq), nil
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
