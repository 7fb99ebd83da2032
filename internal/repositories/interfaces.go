package repositories

import (
	"context"
	"time"

	domain "github.com/parcelio/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Pickups() PickupRepository
	Transactions() TransactionRepository
	Releases() ReleaseRepository
	JobLogs() JobLogRepository
	Businesses() BusinessRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order aggregates. Update enforces the optimistic
// revision check: the stored revision must still equal the revision the order
// was loaded with, otherwise the call fails with a conflict. The stored
// revision is incremented on every successful update.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	// ListForFinancialProcessing returns orders in a financial-processing
	// status that were not yet converted into ledger transactions.
	ListForFinancialProcessing(ctx context.Context, statuses []string) ([]domain.Order, error)
	// ListProcessedWithoutBatch returns orders flagged processed by the given
	// processor, for recovery verification.
	ListProcessedBy(ctx context.Context, processedBy string, batchID string) ([]domain.Order, error)
	// ResetFinancialProcessing clears the processed flag so the next daily run
	// picks the orders up again.
	ResetFinancialProcessing(ctx context.Context, orderIDs []string) error
}

// PickupRepository persists pickup aggregates with the same revision contract
// as orders.
type PickupRepository interface {
	Insert(ctx context.Context, pickup domain.Pickup) error
	Update(ctx context.Context, pickup domain.Pickup) error
	FindByID(ctx context.Context, pickupID string) (domain.Pickup, error)
	FindByNumber(ctx context.Context, pickupNumber string) (domain.Pickup, error)
	List(ctx context.Context, filter PickupListFilter) (domain.CursorPage[domain.Pickup], error)
}

// TransactionRepository stores immutable ledger entries.
type TransactionRepository interface {
	Insert(ctx context.Context, txn domain.Transaction) error
	FindByID(ctx context.Context, txnID string) (domain.Transaction, error)
	// ExistsForOrders reports whether any transaction of the given type for
	// the business already references one of the orders.
	ExistsForOrders(ctx context.Context, businessID string, txnType domain.TransactionType, orderIDs []string) (bool, error)
	// ListBySourceOrder returns transactions referencing the order.
	ListBySourceOrder(ctx context.Context, orderID string) ([]domain.Transaction, error)
	// ListPending returns a business's transactions awaiting release inclusion.
	ListPending(ctx context.Context, businessID string) ([]domain.Transaction, error)
	// ListBusinessesWithPending enumerates business ids holding pending transactions.
	ListBusinessesWithPending(ctx context.Context) ([]string, error)
	// MarkIncludedInRelease stamps the transactions with the covering release.
	MarkIncludedInRelease(ctx context.Context, txnIDs []string, releaseID string) error
	List(ctx context.Context, filter TransactionListFilter) (domain.CursorPage[domain.Transaction], error)
}

// ReleaseRepository stores payout aggregates.
type ReleaseRepository interface {
	Insert(ctx context.Context, release domain.Release) error
	Update(ctx context.Context, release domain.Release) error
	FindByID(ctx context.Context, releaseID string) (domain.Release, error)
	// FindOpenForBusinessSince returns the business's most recent release
	// still pending or scheduled that was created at or after the given time.
	FindOpenForBusinessSince(ctx context.Context, businessID string, since time.Time) (domain.Release, bool, error)
	ListDue(ctx context.Context, asOf time.Time) ([]domain.Release, error)
}

// JobLogRepository stores scheduled-job idempotency sentinels.
type JobLogRepository interface {
	// Create inserts the sentinel atomically. A sentinel already present for
	// the same {JobName, Date} yields a conflict RepositoryError.
	Create(ctx context.Context, log domain.JobLog) error
	Find(ctx context.Context, jobName string, date time.Time) (domain.JobLog, error)
	Update(ctx context.Context, log domain.JobLog) error
}

// BusinessRepository stores merchant accounts. AdjustBalance applies a delta
// atomically inside a Firestore transaction.
type BusinessRepository interface {
	FindByID(ctx context.Context, businessID string) (domain.Business, error)
	AdjustBalance(ctx context.Context, businessID string, delta int64) (int64, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (map[string]string, error)
}

// Filter DTOs shared across repositories ------------------------------------

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	BusinessID     string
	CourierID      string
	Status         []string
	StatusCategory string
	OrderType      string
	CompletedAt    domain.RangeQuery[time.Time]
	Pagination     domain.Pagination
}

// PickupListFilter narrows pickup listings.
type PickupListFilter struct {
	BusinessID string
	DriverID   string
	Status     []string
	Pagination domain.Pagination
}

// TransactionListFilter narrows ledger listings.
type TransactionListFilter struct {
	BusinessID string
	Type       string
	Settlement string
	CreatedAt  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}
