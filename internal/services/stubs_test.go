package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/repositories"
)

type stubOrderRepo struct {
	insertFn       func(context.Context, domain.Order) error
	updateFn       func(context.Context, domain.Order) error
	findFn         func(context.Context, string) (domain.Order, error)
	findByNumberFn func(context.Context, string) (domain.Order, error)
	listFn         func(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	listFinancialFn func(context.Context, []string) ([]domain.Order, error)
	listProcessedFn func(context.Context, string, string) ([]domain.Order, error)
	resetFn         func(context.Context, []string) error
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if s.findByNumberFn != nil {
		return s.findByNumberFn(ctx, orderNumber)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

func (s *stubOrderRepo) ListForFinancialProcessing(ctx context.Context, statuses []string) ([]domain.Order, error) {
	if s.listFinancialFn != nil {
		return s.listFinancialFn(ctx, statuses)
	}
	return nil, nil
}

func (s *stubOrderRepo) ListProcessedBy(ctx context.Context, processedBy, batchID string) ([]domain.Order, error) {
	if s.listProcessedFn != nil {
		return s.listProcessedFn(ctx, processedBy, batchID)
	}
	return nil, nil
}

func (s *stubOrderRepo) ResetFinancialProcessing(ctx context.Context, orderIDs []string) error {
	if s.resetFn != nil {
		return s.resetFn(ctx, orderIDs)
	}
	return nil
}

type stubPickupRepo struct {
	insertFn       func(context.Context, domain.Pickup) error
	updateFn       func(context.Context, domain.Pickup) error
	findFn         func(context.Context, string) (domain.Pickup, error)
	findByNumberFn func(context.Context, string) (domain.Pickup, error)
	listFn         func(context.Context, repositories.PickupListFilter) (domain.CursorPage[domain.Pickup], error)
}

func (s *stubPickupRepo) Insert(ctx context.Context, pickup domain.Pickup) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, pickup)
	}
	return nil
}

func (s *stubPickupRepo) Update(ctx context.Context, pickup domain.Pickup) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, pickup)
	}
	return nil
}

func (s *stubPickupRepo) FindByID(ctx context.Context, pickupID string) (domain.Pickup, error) {
	if s.findFn != nil {
		return s.findFn(ctx, pickupID)
	}
	return domain.Pickup{}, errors.New("not implemented")
}

func (s *stubPickupRepo) FindByNumber(ctx context.Context, pickupNumber string) (domain.Pickup, error) {
	if s.findByNumberFn != nil {
		return s.findByNumberFn(ctx, pickupNumber)
	}
	return domain.Pickup{}, errors.New("not implemented")
}

func (s *stubPickupRepo) List(ctx context.Context, filter repositories.PickupListFilter) (domain.CursorPage[domain.Pickup], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Pickup]{}, nil
}

type stubTransactionRepo struct {
	insertFn         func(context.Context, domain.Transaction) error
	findFn           func(context.Context, string) (domain.Transaction, error)
	existsFn         func(context.Context, string, domain.TransactionType, []string) (bool, error)
	listBySourceFn   func(context.Context, string) ([]domain.Transaction, error)
	listPendingFn    func(context.Context, string) ([]domain.Transaction, error)
	listBusinessesFn func(context.Context) ([]string, error)
	markIncludedFn   func(context.Context, []string, string) error
	listFn           func(context.Context, repositories.TransactionListFilter) (domain.CursorPage[domain.Transaction], error)
}

func (s *stubTransactionRepo) Insert(ctx context.Context, txn domain.Transaction) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, txn)
	}
	return nil
}

func (s *stubTransactionRepo) FindByID(ctx context.Context, txnID string) (domain.Transaction, error) {
	if s.findFn != nil {
		return s.findFn(ctx, txnID)
	}
	return domain.Transaction{}, errors.New("not implemented")
}

func (s *stubTransactionRepo) ExistsForOrders(ctx context.Context, businessID string, txnType domain.TransactionType, orderIDs []string) (bool, error) {
	if s.existsFn != nil {
		return s.existsFn(ctx, businessID, txnType, orderIDs)
	}
	return false, nil
}

func (s *stubTransactionRepo) ListBySourceOrder(ctx context.Context, orderID string) ([]domain.Transaction, error) {
	if s.listBySourceFn != nil {
		return s.listBySourceFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubTransactionRepo) ListPending(ctx context.Context, businessID string) ([]domain.Transaction, error) {
	if s.listPendingFn != nil {
		return s.listPendingFn(ctx, businessID)
	}
	return nil, nil
}

func (s *stubTransactionRepo) ListBusinessesWithPending(ctx context.Context) ([]string, error) {
	if s.listBusinessesFn != nil {
		return s.listBusinessesFn(ctx)
	}
	return nil, nil
}

func (s *stubTransactionRepo) MarkIncludedInRelease(ctx context.Context, txnIDs []string, releaseID string) error {
	if s.markIncludedFn != nil {
		return s.markIncludedFn(ctx, txnIDs, releaseID)
	}
	return nil
}

func (s *stubTransactionRepo) List(ctx context.Context, filter repositories.TransactionListFilter) (domain.CursorPage[domain.Transaction], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Transaction]{}, nil
}

type stubReleaseRepo struct {
	insertFn   func(context.Context, domain.Release) error
	updateFn   func(context.Context, domain.Release) error
	findFn     func(context.Context, string) (domain.Release, error)
	findOpenFn func(context.Context, string, time.Time) (domain.Release, bool, error)
	listDueFn  func(context.Context, time.Time) ([]domain.Release, error)
}

func (s *stubReleaseRepo) Insert(ctx context.Context, release domain.Release) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, release)
	}
	return nil
}

func (s *stubReleaseRepo) Update(ctx context.Context, release domain.Release) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, release)
	}
	return nil
}

func (s *stubReleaseRepo) FindByID(ctx context.Context, releaseID string) (domain.Release, error) {
	if s.findFn != nil {
		return s.findFn(ctx, releaseID)
	}
	return domain.Release{}, errors.New("not implemented")
}

func (s *stubReleaseRepo) FindOpenForBusinessSince(ctx context.Context, businessID string, since time.Time) (domain.Release, bool, error) {
	if s.findOpenFn != nil {
		return s.findOpenFn(ctx, businessID, since)
	}
	return domain.Release{}, false, nil
}

func (s *stubReleaseRepo) ListDue(ctx context.Context, asOf time.Time) ([]domain.Release, error) {
	if s.listDueFn != nil {
		return s.listDueFn(ctx, asOf)
	}
	return nil, nil
}

type stubJobLogRepo struct {
	createFn func(context.Context, domain.JobLog) error
	findFn   func(context.Context, string, time.Time) (domain.JobLog, error)
	updateFn func(context.Context, domain.JobLog) error
}

func (s *stubJobLogRepo) Create(ctx context.Context, log domain.JobLog) error {
	if s.createFn != nil {
		return s.createFn(ctx, log)
	}
	return nil
}

func (s *stubJobLogRepo) Find(ctx context.Context, jobName string, date time.Time) (domain.JobLog, error) {
	if s.findFn != nil {
		return s.findFn(ctx, jobName, date)
	}
	return domain.JobLog{}, errors.New("not implemented")
}

func (s *stubJobLogRepo) Update(ctx context.Context, log domain.JobLog) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, log)
	}
	return nil
}

type stubBusinessRepo struct {
	findFn          func(context.Context, string) (domain.Business, error)
	adjustBalanceFn func(context.Context, string, int64) (int64, error)
}

func (s *stubBusinessRepo) FindByID(ctx context.Context, businessID string) (domain.Business, error) {
	if s.findFn != nil {
		return s.findFn(ctx, businessID)
	}
	return domain.Business{ID: businessID}, nil
}

func (s *stubBusinessRepo) AdjustBalance(ctx context.Context, businessID string, delta int64) (int64, error) {
	if s.adjustBalanceFn != nil {
		return s.adjustBalanceFn(ctx, businessID, delta)
	}
	return delta, nil
}

type stubCounterRepo struct {
	nextFn func(context.Context, string, int64) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 1, nil
}

type stubLedgerService struct {
	createFn func(context.Context, CreateTransactionCommand) (domain.Transaction, error)
	findFn   func(context.Context, string) (domain.Transaction, error)
	listFn   func(context.Context, repositories.TransactionListFilter) (domain.CursorPage[domain.Transaction], error)
}

func (s *stubLedgerService) CreateTransaction(ctx context.Context, cmd CreateTransactionCommand) (domain.Transaction, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Transaction{ID: "txn_stub"}, nil
}

func (s *stubLedgerService) GetTransaction(ctx context.Context, txnID string) (domain.Transaction, error) {
	if s.findFn != nil {
		return s.findFn(ctx, txnID)
	}
	return domain.Transaction{}, errors.New("not implemented")
}

func (s *stubLedgerService) ListTransactions(ctx context.Context, filter repositories.TransactionListFilter) (domain.CursorPage[domain.Transaction], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Transaction]{}, nil
}

type captureOrderEvents struct {
	events []OrderEvent
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.events = append(c.events, event)
	return nil
}

type capturePickupEvents struct {
	events []PickupEvent
}

func (c *capturePickupEvents) PublishPickupEvent(_ context.Context, event PickupEvent) error {
	c.events = append(c.events, event)
	return nil
}

// conflictErr satisfies repositories.RepositoryError for stub returns.
type conflictErr struct{ notFound, conflict bool }

func (e conflictErr) Error() string       { return "stub repository error" }
func (e conflictErr) IsNotFound() bool    { return e.notFound }
func (e conflictErr) IsConflict() bool    { return e.conflict }
func (e conflictErr) IsUnavailable() bool { return false }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%03d", prefix, n)
	}
}
