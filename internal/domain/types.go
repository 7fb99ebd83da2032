package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// StatusHistoryEntry records a single status change on an order or pickup.
// History is append-only; entries are never mutated or removed.
type StatusHistoryEntry struct {
	Status     string
	Category   StatusCategory
	OccurredAt time.Time
}

// CourierHistoryEntry records a courier or driver action against an entity.
type CourierHistoryEntry struct {
	CourierID  string
	Action     string
	Notes      string
	AssignedAt time.Time
}

// OrderShipping describes the commercial shape of a shipment, including the
// linkage fields used by the return sub-flow.
type OrderShipping struct {
	OrderType           OrderType
	AmountType          string
	Amount              int64
	City                string
	IsExpress           bool
	LinkedDeliverOrder  *string
	LinkedReturnOrder   *string
	OriginalOrderNumber *string
	ReturnReason        *string
	ReturnInitiatedAt   *time.Time
	IsPartialReturn     bool
	OriginalItemCount   int
	PartialItemCount    int
}

// FinancialProcessing marks whether the settlement job already converted the
// order into ledger transactions.
type FinancialProcessing struct {
	IsProcessed bool
	ProcessedAt *time.Time
	ProcessedBy string
	BatchID     string
	Notes       string
}

// Order is the aggregate owning workflow status, stage tracking, history and
// financial fields for a single shipment.
type Order struct {
	ID                  string
	OrderNumber         string
	BusinessID          string
	CustomerName        string
	CustomerPhone       string
	Status              string
	StatusCategory      StatusCategory
	StatusHistory       []StatusHistoryEntry
	Stages              OrderStages
	Shipping            OrderShipping
	Fees                int64
	ReturnFees          int64
	CancellationFees    int64
	Attempts            int
	UnavailableReasons  []string
	CourierID           *string
	CourierHistory      []CourierHistoryEntry
	ScheduledRetryAt    *time.Time
	CompletedDate       *time.Time
	MoneyReleaseDate    *time.Time
	FinancialProcessing FinancialProcessing
	Revision            int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Pickup groups orders collected from a business in a single driver run.
type Pickup struct {
	ID             string
	PickupNumber   string
	BusinessID     string
	Status         string
	StatusCategory StatusCategory
	StatusHistory  []StatusHistoryEntry
	Stages         PickupStages
	OrderIDs       []string
	DriverID       *string
	DriverHistory  []CourierHistoryEntry
	Fees           int64
	FeesTxnID      *string
	CompletedDate  *time.Time
	Revision       int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TransactionType enumerates ledger transaction categories.
type TransactionType string

const (
	// TransactionTypeFees charges accumulated order fees to a business.
	TransactionTypeFees TransactionType = "fees"
	// TransactionTypeCashCycle credits collected order amounts to a business.
	TransactionTypeCashCycle TransactionType = "cashCycle"
	// TransactionTypePickupFees charges the flat pickup run fee.
	TransactionTypePickupFees TransactionType = "pickupFees"
	// TransactionTypeRelease debits a business when a payout is executed.
	TransactionTypeRelease TransactionType = "release"
)

// SettlementStatus tracks how far a transaction travelled through payout.
type SettlementStatus string

const (
	// SettlementPending means the transaction awaits inclusion in a release.
	SettlementPending SettlementStatus = "pending"
	// SettlementInRelease means a release currently references the transaction.
	SettlementInRelease SettlementStatus = "included_in_release"
	// SettlementSettled means the covering release was paid out.
	SettlementSettled SettlementStatus = "settled"
)

// TransactionOrderReference snapshots the order figures a transaction covers.
type TransactionOrderReference struct {
	OrderID     string
	OrderNumber string
	Amount      int64
	Fees        int64
	Status      string
}

// CashCycleSummary carries the completed-order tally on cashCycle transactions.
type CashCycleSummary struct {
	OrderCount      int
	DateOfCashCycle time.Time
}

// Transaction is an immutable ledger entry. Creating one atomically applies
// Amount to the owning business balance.
type Transaction struct {
	ID               string
	BusinessID       string
	Type             TransactionType
	Amount           int64
	Notes            string
	BatchID          string
	SourceOrderIDs   []string
	OrderReferences  []TransactionOrderReference
	CashCycle        *CashCycleSummary
	SettlementStatus SettlementStatus
	ReleaseID        *string
	CreatedAt        time.Time
}

// ReleaseStatus tracks payout lifecycle.
type ReleaseStatus string

const (
	// ReleasePending indicates the release was assembled but not yet scheduled.
	ReleasePending ReleaseStatus = "pending"
	// ReleaseScheduled indicates the release has a payout date.
	ReleaseScheduled ReleaseStatus = "scheduled"
	// ReleaseReleased indicates the payout was executed.
	ReleaseReleased ReleaseStatus = "released"
	// ReleaseFailed indicates payout execution failed and needs attention.
	ReleaseFailed ReleaseStatus = "failed"
)

// Release aggregates a business's pending transactions into one payout.
type Release struct {
	ID             string
	BusinessID     string
	Status         ReleaseStatus
	Amount         int64
	TransactionIDs []string
	ScheduledFor   *time.Time
	ReleasedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// JobLog is the idempotency sentinel for scheduled jobs, unique per
// {JobName, Date} where Date is the UTC start of day.
type JobLog struct {
	JobName     string
	Date        time.Time
	Status      string
	BatchID     string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Orders      int
	Businesses  int
	LastError   string
}

// JobLog status values.
const (
	JobLogRunning   = "running"
	JobLogCompleted = "completed"
	JobLogFailed    = "failed"
)

// Business is the merchant account owning orders, pickups and a balance.
type Business struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	City      string
	Balance   int64
	FCMToken  string
	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
