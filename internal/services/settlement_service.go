package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/repositories"
)

const (
	dailyProcessingJobName = "dailyOrderProcessing"
	releaseJobName         = "releasesProcessing"

	dailyJobProcessor = "dailyJob"

	releaseIDPrefix = "rls_"
)

// financialProcessingStatuses are the terminal statuses whose orders the daily
// job converts into ledger transactions.
var financialProcessingStatuses = []string{
	string(domain.OrderStatusCompleted),
	string(domain.OrderStatusReturned),
	string(domain.OrderStatusCanceled),
	string(domain.OrderStatusReturnCompleted),
}

// FinancialProcessingNotification summarises a business's daily settlement for
// the push dispatcher.
type FinancialProcessingNotification struct {
	BatchID         string
	OrdersProcessed int
	TotalAmount     int64
	ProcessedAt     time.Time
}

// SettlementNotifier pushes settlement summaries to businesses, best effort.
type SettlementNotifier interface {
	NotifyFinancialProcessing(ctx context.Context, businessID string, info FinancialProcessingNotification) error
}

// SettlementServiceDeps bundles collaborators required to construct the settlement service.
type SettlementServiceDeps struct {
	Orders       repositories.OrderRepository
	Transactions repositories.TransactionRepository
	Releases     repositories.ReleaseRepository
	JobLogs      repositories.JobLogRepository
	Ledger       LedgerService
	Notifier     SettlementNotifier
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type settlementService struct {
	orders       repositories.OrderRepository
	transactions repositories.TransactionRepository
	releases     repositories.ReleaseRepository
	jobLogs      repositories.JobLogRepository
	ledger       LedgerService
	notifier     SettlementNotifier
	clock        func() time.Time
	newID        func() string
	logger       func(context.Context, string, map[string]any)
}

// NewSettlementService wires dependencies into a concrete SettlementService implementation.
func NewSettlementService(deps SettlementServiceDeps) (SettlementService, error) {
	if deps.Orders == nil {
		return nil, errors.New("settlement service: order repository is required")
	}
	if deps.Transactions == nil {
		return nil, errors.New("settlement service: transaction repository is required")
	}
	if deps.Releases == nil {
		return nil, errors.New("settlement service: release repository is required")
	}
	if deps.JobLogs == nil {
		return nil, errors.New("settlement service: job log repository is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("settlement service: ledger service is required")
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

	return &settlementService{
		orders:       deps.Orders,
		transactions: deps.Transactions,
		releases:     deps.Releases,
		jobLogs:      deps.JobLogs,
		ledger:       deps.Ledger,
		notifier:     deps.Notifier,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// RunDailyProcessing converts terminal orders into fee and cash-cycle
// transactions, at most once per calendar day. The sentinel is claimed with
// an atomic insert so two concurrent invocations cannot both run.
func (s *settlementService) RunDailyProcessing(ctx context.Context, asOf time.Time) (DailyProcessingResult, error) {
	if asOf.IsZero() {
		asOf = s.clock()
	}
	date := domain.StartOfDay(asOf)
	batchID := "BATCH-" + s.newID()
	result := DailyProcessingResult{BatchID: batchID}

	claimed, err := s.claimSentinel(ctx, dailyProcessingJobName, date, batchID)
	if err != nil {
		return result, err
	}
	if !claimed {
		result.AlreadyRan = true
		return result, nil
	}

	orders, err := s.orders.ListForFinancialProcessing(ctx, financialProcessingStatuses)
	if err != nil {
		s.failSentinel(ctx, dailyProcessingJobName, date, batchID, err)
		return result, err
	}

	byBusiness := map[string][]Order{}
	for _, order := range orders {
		byBusiness[order.BusinessID] = append(byBusiness[order.BusinessID], order)
	}

	for businessID, businessOrders := range byBusiness {
		if err := s.processBusinessOrders(ctx, businessID, businessOrders, batchID); err != nil {
			s.logger(ctx, "settlement.business.failed", map[string]any{
				"business": businessID,
				"batch":    batchID,
				"orders":   len(businessOrders),
				"error":    err.Error(),
			})
			result.FailedBusinesses = append(result.FailedBusinesses, businessID)
			continue
		}
		result.OrdersProcessed += len(businessOrders)
		result.BusinessesProcessed++
		s.notifyBusiness(ctx, businessID, businessOrders, batchID)
	}

	if err := s.completeSentinel(ctx, dailyProcessingJobName, date, batchID, result.OrdersProcessed, result.BusinessesProcessed); err != nil {
		return result, err
	}

	s.logger(ctx, "settlement.daily.completed", map[string]any{
		"batch":      batchID,
		"orders":     result.OrdersProcessed,
		"businesses": result.BusinessesProcessed,
		"failed":     len(result.FailedBusinesses),
	})
	return result, nil
}

// processBusinessOrders emits the fees and cash-cycle transactions for one
// business and flags the covered orders as processed.
func (s *settlementService) processBusinessOrders(ctx context.Context, businessID string, businessOrders []Order, batchID string) error {
	var (
		netValue       int64
		allFees        int64
		completedCount int
	)
	sourceOrderIDs := make([]string, 0, len(businessOrders))
	orderRefs := make([]domain.TransactionOrderReference, 0, len(businessOrders))

	for _, order := range businessOrders {
		amount := int64(0)
		switch order.Status {
		case string(domain.OrderStatusCompleted):
			amount = order.Shipping.Amount
			netValue += amount
			completedCount++
		case string(domain.OrderStatusReturned):
			allFees += order.ReturnFees
		case string(domain.OrderStatusCanceled):
			allFees += order.CancellationFees
		}
		allFees += order.Fees

		sourceOrderIDs = append(sourceOrderIDs, order.ID)
		orderRefs = append(orderRefs, domain.TransactionOrderReference{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Amount:      amount,
			Fees:        order.Fees,
			Status:      order.Status,
		})
	}

	now := s.clock()

	if allFees > 0 {
		exists, err := s.transactions.ExistsForOrders(ctx, businessID, domain.TransactionTypeFees, sourceOrderIDs)
		if err != nil {
			return err
		}
		if !exists {
			_, err := s.ledger.CreateTransaction(ctx, CreateTransactionCommand{
				BusinessID:      businessID,
				Type:            domain.TransactionTypeFees,
				Amount:          -allFees,
				Notes:           fmt.Sprintf("Order fees for %d processed orders", len(businessOrders)),
				BatchID:         batchID,
				SourceOrderIDs:  sourceOrderIDs,
				OrderReferences: orderRefs,
			})
			if err != nil {
				return err
			}
		}
	}

	if netValue > 0 {
		exists, err := s.transactions.ExistsForOrders(ctx, businessID, domain.TransactionTypeCashCycle, sourceOrderIDs)
		if err != nil {
			return err
		}
		if !exists {
			_, err := s.ledger.CreateTransaction(ctx, CreateTransactionCommand{
				BusinessID:      businessID,
				Type:            domain.TransactionTypeCashCycle,
				Amount:          netValue,
				Notes:           fmt.Sprintf("Daily settlement for %d completed orders (%d processed)", completedCount, len(businessOrders)),
				BatchID:         batchID,
				SourceOrderIDs:  sourceOrderIDs,
				OrderReferences: orderRefs,
				CashCycle: &domain.CashCycleSummary{
					OrderCount:      completedCount,
					DateOfCashCycle: now,
				},
			})
			if err != nil {
				return err
			}
		}
	}

	for i := range businessOrders {
		order := businessOrders[i]
		processedAt := now
		order.FinancialProcessing = FinancialProcessing{
			IsProcessed: true,
			ProcessedAt: &processedAt,
			ProcessedBy: dailyJobProcessor,
			BatchID:     batchID,
			Notes:       fmt.Sprintf("Processed in batch %s with %d orders", batchID, len(businessOrders)),
		}
		order.UpdatedAt = now
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
	}
	return nil
}

// ProcessPendingReleases groups each business's pending transactions created
// this week into one release, at most one open release per business per week.
func (s *settlementService) ProcessPendingReleases(ctx context.Context, asOf time.Time) (ReleaseProcessingResult, error) {
	if asOf.IsZero() {
		asOf = s.clock()
	}
	date := domain.StartOfDay(asOf)
	weekStart := domain.StartOfWeek(asOf)
	batchID := "BATCH-" + s.newID()
	result := ReleaseProcessingResult{}

	claimed, err := s.claimSentinel(ctx, releaseJobName, date, batchID)
	if err != nil {
		return result, err
	}
	if !claimed {
		result.AlreadyRan = true
		return result, nil
	}

	businessIDs, err := s.transactions.ListBusinessesWithPending(ctx)
	if err != nil {
		s.failSentinel(ctx, releaseJobName, date, batchID, err)
		return result, err
	}
	result.BusinessesTotal = len(businessIDs)

	for _, businessID := range businessIDs {
		if _, exists, err := s.releases.FindOpenForBusinessSince(ctx, businessID, weekStart); err != nil {
			s.failSentinel(ctx, releaseJobName, date, batchID, err)
			return result, err
		} else if exists {
			result.SkippedExisting++
			continue
		}

		pending, err := s.transactions.ListPending(ctx, businessID)
		if err != nil {
			s.failSentinel(ctx, releaseJobName, date, batchID, err)
			return result, err
		}

		var total int64
		txnIDs := make([]string, 0, len(pending))
		for _, txn := range pending {
			if txn.CreatedAt.Before(weekStart) {
				continue
			}
			total += txn.Amount
			txnIDs = append(txnIDs, txn.ID)
		}
		if len(txnIDs) == 0 || total <= 0 {
			result.SkippedNoBalance++
			continue
		}

		now := s.clock()
		release := Release{
			ID:             releaseIDPrefix + s.newID(),
			BusinessID:     businessID,
			Status:         domain.ReleasePending,
			Amount:         total,
			TransactionIDs: txnIDs,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.releases.Insert(ctx, release); err != nil {
			s.failSentinel(ctx, releaseJobName, date, batchID, err)
			return result, err
		}
		if err := s.transactions.MarkIncludedInRelease(ctx, txnIDs, release.ID); err != nil {
			s.failSentinel(ctx, releaseJobName, date, batchID, err)
			return result, err
		}
		result.ReleasesCreated++

		s.logger(ctx, "settlement.release.created", map[string]any{
			"release":      release.ID,
			"business":     businessID,
			"amount":       total,
			"transactions": len(txnIDs),
		})
	}

	if err := s.completeSentinel(ctx, releaseJobName, date, batchID, 0, result.ReleasesCreated); err != nil {
		return result, err
	}
	return result, nil
}

// RecoverFailedProcessing resets the processed flag on orders whose batch
// produced no backing transactions, so the next daily run picks them up.
func (s *settlementService) RecoverFailedProcessing(ctx context.Context, batchID string) (RecoveryResult, error) {
	result := RecoveryResult{}

	processed, err := s.orders.ListProcessedBy(ctx, dailyJobProcessor, strings.TrimSpace(batchID))
	if err != nil {
		return result, err
	}
	result.OrdersVerified = len(processed)

	var orphaned []string
	for _, order := range processed {
		txns, err := s.transactions.ListBySourceOrder(ctx, order.ID)
		if err != nil {
			return result, err
		}
		if len(txns) == 0 {
			orphaned = append(orphaned, order.ID)
		}
	}
	if len(orphaned) == 0 {
		return result, nil
	}

	if err := s.orders.ResetFinancialProcessing(ctx, orphaned); err != nil {
		return result, err
	}
	result.OrdersReset = len(orphaned)

	s.logger(ctx, "settlement.recovery.completed", map[string]any{
		"verified": result.OrdersVerified,
		"reset":    result.OrdersReset,
		"batch":    batchID,
	})
	return result, nil
}

// Sentinel handling ----------------------------------------------------------

// claimSentinel atomically inserts the running sentinel for {job, date}. A
// failed earlier run may be retaken; running or completed sentinels mean the
// day is spoken for.
func (s *settlementService) claimSentinel(ctx context.Context, jobName string, date time.Time, batchID string) (bool, error) {
	now := s.clock()
	log := JobLog{
		JobName:   jobName,
		Date:      date,
		Status:    domain.JobLogRunning,
		BatchID:   batchID,
		StartedAt: now,
	}
	err := s.jobLogs.Create(ctx, log)
	if err == nil {
		return true, nil
	}

	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		return false, err
	}

	existing, findErr := s.jobLogs.Find(ctx, jobName, date)
	if findErr != nil {
		return false, findErr
	}
	if existing.Status != domain.JobLogFailed {
		return false, nil
	}

	// Retake a failed day: keep the original sentinel row, restart the run.
	existing.Status = domain.JobLogRunning
	existing.BatchID = batchID
	existing.StartedAt = now
	existing.FinishedAt = nil
	existing.LastError = ""
	if updateErr := s.jobLogs.Update(ctx, existing); updateErr != nil {
		return false, updateErr
	}
	return true, nil
}

func (s *settlementService) completeSentinel(ctx context.Context, jobName string, date time.Time, batchID string, orders, businesses int) error {
	log, err := s.jobLogs.Find(ctx, jobName, date)
	if err != nil {
		return err
	}
	now := s.clock()
	log.Status = domain.JobLogCompleted
	log.BatchID = batchID
	log.FinishedAt = &now
	log.Orders = orders
	log.Businesses = businesses
	return s.jobLogs.Update(ctx, log)
}

func (s *settlementService) failSentinel(ctx context.Context, jobName string, date time.Time, batchID string, cause error) {
	log, err := s.jobLogs.Find(ctx, jobName, date)
	if err != nil {
		s.logger(ctx, "settlement.sentinel.update.failed", map[string]any{
			"job":   jobName,
			"error": err.Error(),
		})
		return
	}
	now := s.clock()
	log.Status = domain.JobLogFailed
	log.BatchID = batchID
	log.FinishedAt = &now
	log.LastError = cause.Error()
	if err := s.jobLogs.Update(ctx, log); err != nil {
		s.logger(ctx, "settlement.sentinel.update.failed", map[string]any{
			"job":   jobName,
			"error": err.Error(),
		})
	}
}

func (s *settlementService) notifyBusiness(ctx context.Context, businessID string, businessOrders []Order, batchID string) {
	if s.notifier == nil {
		return
	}
	var total int64
	for _, order := range businessOrders {
		if order.Status == string(domain.OrderStatusCompleted) {
			total += order.Shipping.Amount
		}
	}
	err := s.notifier.NotifyFinancialProcessing(ctx, businessID, FinancialProcessingNotification{
		BatchID:         batchID,
		OrdersProcessed: len(businessOrders),
		TotalAmount:     total,
		ProcessedAt:     s.clock(),
	})
	if err != nil {
		s.logger(ctx, "settlement.notify.failed", map[string]any{
			"business": businessID,
			"batch":    batchID,
			"error":    err.Error(),
		})
	}
}
