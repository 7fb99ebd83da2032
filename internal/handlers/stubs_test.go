package handlers

import (
	"context"
	"errors"
	"time"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/repositories"
	"github.com/parcelio/api/internal/services"
)

type stubOrderService struct {
	createFn       func(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error)
	getFn          func(ctx context.Context, orderID string) (domain.Order, error)
	getByNumberFn  func(ctx context.Context, orderNumber string) (domain.Order, error)
	listFn         func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	nextStatusesFn func(ctx context.Context, orderID string) ([]domain.OrderStatus, error)
	transitionFn   func(ctx context.Context, cmd services.OrderStatusTransitionCommand) (domain.Order, error)
	completeFn     func(ctx context.Context, cmd services.CompleteOrderCommand) (domain.Order, error)
	unavailableFn  func(ctx context.Context, cmd services.ReportUnavailableCommand) (domain.Order, error)
	assignFn       func(ctx context.Context, cmd services.AssignCourierCommand) (domain.Order, error)
	returnFn       func(ctx context.Context, cmd services.RequestReturnCommand) (domain.Order, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if s.getByNumberFn != nil {
		return s.getByNumberFn(ctx, orderNumber)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, errors.New("not implemented")
}

func (s *stubOrderService) NextStatuses(ctx context.Context, orderID string) ([]domain.OrderStatus, error) {
	if s.nextStatusesFn != nil {
		return s.nextStatusesFn(ctx, orderID)
	}
	return nil, errors.New("not implemented")
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.OrderStatusTransitionCommand) (domain.Order, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) CompleteOrder(ctx context.Context, cmd services.CompleteOrderCommand) (domain.Order, error) {
	if s.completeFn != nil {
		return s.completeFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ReportUnavailable(ctx context.Context, cmd services.ReportUnavailableCommand) (domain.Order, error) {
	if s.unavailableFn != nil {
		return s.unavailableFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) AssignCourier(ctx context.Context, cmd services.AssignCourierCommand) (domain.Order, error) {
	if s.assignFn != nil {
		return s.assignFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) RequestReturn(ctx context.Context, cmd services.RequestReturnCommand) (domain.Order, error) {
	if s.returnFn != nil {
		return s.returnFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

type stubPickupService struct {
	createFn     func(ctx context.Context, cmd services.CreatePickupCommand) (domain.Pickup, error)
	getFn        func(ctx context.Context, pickupID string) (domain.Pickup, error)
	listFn       func(ctx context.Context, filter repositories.PickupListFilter) (domain.CursorPage[domain.Pickup], error)
	transitionFn func(ctx context.Context, cmd services.PickupStatusTransitionCommand) (domain.Pickup, error)
	assignFn     func(ctx context.Context, cmd services.AssignDriverCommand) (domain.Pickup, error)
	addOrderFn   func(ctx context.Context, cmd services.PickupOrderCommand) (domain.Pickup, error)
	removeFn     func(ctx context.Context, cmd services.PickupOrderCommand) (domain.Pickup, error)
	completeFn   func(ctx context.Context, cmd services.CompletePickupCommand) (domain.Pickup, error)
}

func (s *stubPickupService) CreatePickup(ctx context.Context, cmd services.CreatePickupCommand) (domain.Pickup, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Pickup{}, errors.New("not implemented")
}

func (s *stubPickupService) GetPickup(ctx context.Context, pickupID string) (domain.Pickup, error) {
	if s.getFn != nil {
		return s.getFn(ctx, pickupID)
	}
	return domain.Pickup{}, errors.New("not implemented")
}

func (s *stubPickupService) ListPickups(ctx context.Context, filter repositories.PickupListFilter) (domain.CursorPage[domain.Pickup], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Pickup]{}, errors.New("not implemented")
}

func (s *stubPickupService) TransitionStatus(ctx context.Context, cmd services.PickupStatusTransitionCommand) (domain.Pickup, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, cmd)
	}
	return domain.Pickup{}, errors.New("not implemented")
}

func (s *stubPickupService) AssignDriver(ctx context.Context, cmd services.AssignDriverCommand) (domain.Pickup, error) {
	if s.assignFn != nil {
		return s.assignFn(ctx, cmd)
	}
	return domain.Pickup{}, errors.New("not implemented")
}

func (s *stubPickupService) AddOrder(ctx context.Context, cmd services.PickupOrderCommand) (domain.Pickup, error) {
	if s.addOrderFn != nil {
		return s.addOrderFn(ctx, cmd)
	}
	return domain.Pickup{}, errors.New("not implemented")
}

func (s *stubPickupService) RemoveOrder(ctx context.Context, cmd services.PickupOrderCommand) (domain.Pickup, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, cmd)
	}
	return domain.Pickup{}, errors.New("not implemented")
}

func (s *stubPickupService) CompletePickup(ctx context.Context, cmd services.CompletePickupCommand) (domain.Pickup, error) {
	if s.completeFn != nil {
		return s.completeFn(ctx, cmd)
	}
	return domain.Pickup{}, errors.New("not implemented")
}

type stubLedgerService struct {
	createFn func(ctx context.Context, cmd services.CreateTransactionCommand) (domain.Transaction, error)
	getFn    func(ctx context.Context, txnID string) (domain.Transaction, error)
	listFn   func(ctx context.Context, filter repositories.TransactionListFilter) (domain.CursorPage[domain.Transaction], error)
}

func (s *stubLedgerService) CreateTransaction(ctx context.Context, cmd services.CreateTransactionCommand) (domain.Transaction, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Transaction{}, errors.New("not implemented")
}

func (s *stubLedgerService) GetTransaction(ctx context.Context, txnID string) (domain.Transaction, error) {
	if s.getFn != nil {
		return s.getFn(ctx, txnID)
	}
	return domain.Transaction{}, errors.New("not implemented")
}

func (s *stubLedgerService) ListTransactions(ctx context.Context, filter repositories.TransactionListFilter) (domain.CursorPage[domain.Transaction], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Transaction]{}, errors.New("not implemented")
}

type stubSettlementService struct {
	dailyFn    func(ctx context.Context, asOf time.Time) (services.DailyProcessingResult, error)
	releasesFn func(ctx context.Context, asOf time.Time) (services.ReleaseProcessingResult, error)
	recoverFn  func(ctx context.Context, batchID string) (services.RecoveryResult, error)
}

func (s *stubSettlementService) RunDailyProcessing(ctx context.Context, asOf time.Time) (services.DailyProcessingResult, error) {
	if s.dailyFn != nil {
		return s.dailyFn(ctx, asOf)
	}
	return services.DailyProcessingResult{}, errors.New("not implemented")
}

func (s *stubSettlementService) ProcessPendingReleases(ctx context.Context, asOf time.Time) (services.ReleaseProcessingResult, error) {
	if s.releasesFn != nil {
		return s.releasesFn(ctx, asOf)
	}
	return services.ReleaseProcessingResult{}, errors.New("not implemented")
}

func (s *stubSettlementService) RecoverFailedProcessing(ctx context.Context, batchID string) (services.RecoveryResult, error) {
	if s.recoverFn != nil {
		return s.recoverFn(ctx, batchID)
	}
	return services.RecoveryResult{}, errors.New("not implemented")
}

type stubHealthRepo struct {
	checks map[string]string
	err    error
}

func (s *stubHealthRepo) Collect(context.Context) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.checks, nil
}

func sampleOrder() domain.Order {
	courier := "cour_7"
	completed := time.Date(2025, time.March, 12, 9, 30, 0, 0, time.UTC)
	release := time.Date(2025, time.March, 19, 0, 0, 0, 0, time.UTC)
	order := domain.Order{
		ID:             "ord_1",
		OrderNumber:    "ORD-2025-000001",
		BusinessID:     "biz_1",
		CustomerName:   "Nour Hassan",
		CustomerPhone:  "+201000000000",
		Status:         string(domain.OrderStatusCompleted),
		StatusCategory: domain.CategorySuccessful,
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: string(domain.OrderStatusNew), Category: domain.CategoryNew, OccurredAt: completed.Add(-48 * time.Hour)},
			{Status: string(domain.OrderStatusCompleted), Category: domain.CategorySuccessful, OccurredAt: completed},
		},
		Shipping: domain.OrderShipping{
			OrderType: domain.OrderTypeDeliver,
			Amount:    500,
			City:      "Cairo",
		},
		Fees:             80,
		Attempts:         1,
		CourierID:        &courier,
		CompletedDate:    &completed,
		MoneyReleaseDate: &release,
		Revision:         4,
		CreatedAt:        completed.Add(-48 * time.Hour),
		UpdatedAt:        completed,
	}
	return order
}

func samplePickup() domain.Pickup {
	driver := "drv_3"
	created := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	return domain.Pickup{
		ID:             "pkp_1",
		PickupNumber:   "PKP-2025-000001",
		BusinessID:     "biz_1",
		Status:         string(domain.PickupStatusDriverAssigned),
		StatusCategory: domain.CategoryProcessing,
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: string(domain.PickupStatusNew), Category: domain.CategoryNew, OccurredAt: created},
		},
		OrderIDs:  []string{"ord_1", "ord_2"},
		DriverID:  &driver,
		Fees:      50,
		Revision:  2,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func sampleTransaction() domain.Transaction {
	created := time.Date(2025, time.March, 11, 2, 0, 0, 0, time.UTC)
	return domain.Transaction{
		ID:               "txn_1",
		BusinessID:       "biz_1",
		Type:             domain.TransactionTypeCashCycle,
		Amount:           800,
		BatchID:          "BATCH-2025-03-11",
		SourceOrderIDs:   []string{"ord_1", "ord_2"},
		SettlementStatus: domain.SettlementPending,
		CreatedAt:        created,
	}
}
