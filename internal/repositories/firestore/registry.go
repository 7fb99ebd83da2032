package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/parcelio/api/internal/platform/firestore"
	"github.com/parcelio/api/internal/repositories"
)

// Registry wires every Firestore repository to one shared provider.
type Registry struct {
	provider *pfirestore.Provider

	orders       *OrderRepository
	pickups      *PickupRepository
	transactions *TransactionRepository
	releases     *ReleaseRepository
	jobLogs      *JobLogRepository
	businesses   *BusinessRepository
	counters     *CounterRepository
	health       *HealthRepository
}

// NewRegistry constructs the full repository set on the given provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	pickups, err := NewPickupRepository(provider)
	if err != nil {
		return nil, err
	}
	transactions, err := NewTransactionRepository(provider)
	if err != nil {
		return nil, err
	}
	releases, err := NewReleaseRepository(provider)
	if err != nil {
		return nil, err
	}
	jobLogs, err := NewJobLogRepository(provider)
	if err != nil {
		return nil, err
	}
	businesses, err := NewBusinessRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}
	health, err := NewHealthRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:     provider,
		orders:       orders,
		pickups:      pickups,
		transactions: transactions,
		releases:     releases,
		jobLogs:      jobLogs,
		businesses:   businesses,
		counters:     counters,
		health:       health,
	}, nil
}

// Close releases the shared Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Pickups returns the pickup repository.
func (r *Registry) Pickups() repositories.PickupRepository { return r.pickups }

// Transactions returns the ledger repository.
func (r *Registry) Transactions() repositories.TransactionRepository { return r.transactions }

// Releases returns the release repository.
func (r *Registry) Releases() repositories.ReleaseRepository { return r.releases }

// JobLogs returns the job log repository.
func (r *Registry) JobLogs() repositories.JobLogRepository { return r.jobLogs }

// Businesses returns the business repository.
func (r *Registry) Businesses() repositories.BusinessRepository { return r.businesses }

// Counters returns the counter repository.
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

// Health returns the health repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

// RunInTx executes fn directly. Repositories that need atomicity run their
// own Firestore transactions, so the registry does not open an outer one.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

var _ repositories.Registry = (*Registry)(nil)
