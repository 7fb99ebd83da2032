package services

import (
	"context"
	"time"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination          = domain.Pagination
	SortOrder           = domain.SortOrder
	Order               = domain.Order
	OrderShipping       = domain.OrderShipping
	OrderStatus         = domain.OrderStatus
	OrderType           = domain.OrderType
	Pickup              = domain.Pickup
	PickupStatus        = domain.PickupStatus
	StatusCategory      = domain.StatusCategory
	StatusHistoryEntry  = domain.StatusHistoryEntry
	CourierHistoryEntry = domain.CourierHistoryEntry
	Transaction         = domain.Transaction
	TransactionType     = domain.TransactionType
	Release             = domain.Release
	JobLog              = domain.JobLog
	Business            = domain.Business
	FinancialProcessing = domain.FinancialProcessing
)

// OrderService owns the order lifecycle: status transitions, courier actions,
// delivery completion and the return sub-flow.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error)
	ListOrders(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[Order], error)
	NextStatuses(ctx context.Context, orderID string) ([]OrderStatus, error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	CompleteOrder(ctx context.Context, cmd CompleteOrderCommand) (Order, error)
	ReportUnavailable(ctx context.Context, cmd ReportUnavailableCommand) (Order, error)
	AssignCourier(ctx context.Context, cmd AssignCourierCommand) (Order, error)
	RequestReturn(ctx context.Context, cmd RequestReturnCommand) (Order, error)
}

// PickupService owns the pickup run lifecycle and its order membership.
type PickupService interface {
	CreatePickup(ctx context.Context, cmd CreatePickupCommand) (Pickup, error)
	GetPickup(ctx context.Context, pickupID string) (Pickup, error)
	ListPickups(ctx context.Context, filter repositories.PickupListFilter) (domain.CursorPage[Pickup], error)
	TransitionStatus(ctx context.Context, cmd PickupStatusTransitionCommand) (Pickup, error)
	AssignDriver(ctx context.Context, cmd AssignDriverCommand) (Pickup, error)
	AddOrder(ctx context.Context, cmd PickupOrderCommand) (Pickup, error)
	RemoveOrder(ctx context.Context, cmd PickupOrderCommand) (Pickup, error)
	CompletePickup(ctx context.Context, cmd CompletePickupCommand) (Pickup, error)
}

// LedgerService creates immutable transactions and applies their amount to
// the owning business balance atomically.
type LedgerService interface {
	CreateTransaction(ctx context.Context, cmd CreateTransactionCommand) (Transaction, error)
	GetTransaction(ctx context.Context, txnID string) (Transaction, error)
	ListTransactions(ctx context.Context, filter repositories.TransactionListFilter) (domain.CursorPage[Transaction], error)
}

// SettlementService runs the scheduled financial jobs.
type SettlementService interface {
	RunDailyProcessing(ctx context.Context, asOf time.Time) (DailyProcessingResult, error)
	ProcessPendingReleases(ctx context.Context, asOf time.Time) (ReleaseProcessingResult, error)
	RecoverFailedProcessing(ctx context.Context, batchID string) (RecoveryResult, error)
}

// Commands -------------------------------------------------------------------

// CreateOrderCommand captures the inputs to register a new shipment.
type CreateOrderCommand struct {
	BusinessID    string
	CustomerName  string
	CustomerPhone string
	OrderType     OrderType
	AmountType    string
	Amount        int64
	City          string
	IsExpress     bool
	ActorID       string
}

// OrderStatusTransitionCommand requests an explicit status move.
type OrderStatusTransitionCommand struct {
	OrderID      string
	TargetStatus OrderStatus
	Notes        string
	ActorID      string
	ActorRole    string
}

// CompleteOrderCommand finishes the courier's current leg; the resulting
// status depends on the order's current status and type.
type CompleteOrderCommand struct {
	OrderID   string
	CourierID string
	Notes     string
}

// ReportUnavailableCommand records a failed delivery attempt.
type ReportUnavailableCommand struct {
	OrderID   string
	CourierID string
	Reason    string
}

// AssignCourierCommand attaches a courier to the order.
type AssignCourierCommand struct {
	OrderID   string
	CourierID string
	Notes     string
	ActorID   string
}

// RequestReturnCommand reopens a completed order into the return sub-flow.
type RequestReturnCommand struct {
	OrderID          string
	Reason           string
	IsPartialReturn  bool
	PartialItemCount int
	ActorID          string
}

// CreatePickupCommand schedules a new pickup run for a business.
type CreatePickupCommand struct {
	BusinessID string
	City       string
	ActorID    string
}

// PickupStatusTransitionCommand requests an explicit pickup status move.
type PickupStatusTransitionCommand struct {
	PickupID     string
	TargetStatus PickupStatus
	Notes        string
	ActorID      string
}

// AssignDriverCommand attaches a driver to the pickup run.
type AssignDriverCommand struct {
	PickupID string
	DriverID string
	Notes    string
	ActorID  string
}

// PickupOrderCommand adds or removes one order from the run.
type PickupOrderCommand struct {
	PickupID string
	OrderID  string
	ActorID  string
}

// CompletePickupCommand finishes the run and charges the pickup fee.
type CompletePickupCommand struct {
	PickupID string
	DriverID string
	Notes    string
}

// CreateTransactionCommand captures a ledger entry to be created.
type CreateTransactionCommand struct {
	BusinessID      string
	Type            TransactionType
	Amount          int64
	Notes           string
	BatchID         string
	SourceOrderIDs  []string
	OrderReferences []domain.TransactionOrderReference
	CashCycle       *domain.CashCycleSummary
}

// Job results ----------------------------------------------------------------

// DailyProcessingResult summarises one settlement run.
type DailyProcessingResult struct {
	BatchID             string
	AlreadyRan          bool
	OrdersProcessed     int
	BusinessesProcessed int
	FailedBusinesses    []string
}

// ReleaseProcessingResult summarises one weekly release run.
type ReleaseProcessingResult struct {
	AlreadyRan       bool
	ReleasesCreated  int
	BusinessesTotal  int
	SkippedExisting  int
	SkippedNoBalance int
}

// RecoveryResult summarises a financial recovery pass.
type RecoveryResult struct {
	OrdersVerified int
	OrdersReset    int
}
