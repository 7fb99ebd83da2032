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

const txnIDPrefix = "txn_"

var (
	// ErrLedgerInvalidInput signals the caller provided invalid data.
	ErrLedgerInvalidInput = errors.New("ledger: invalid input")
	// ErrLedgerNotFound indicates the transaction could not be located.
	ErrLedgerNotFound = errors.New("ledger: not found")
	// ErrLedgerConflict indicates a duplicate or conflicting write.
	ErrLedgerConflict = errors.New("ledger: conflict")
)

var knownTransactionTypes = map[domain.TransactionType]bool{
	domain.TransactionTypeFees:       true,
	domain.TransactionTypeCashCycle:  true,
	domain.TransactionTypePickupFees: true,
	domain.TransactionTypeRelease:    true,
}

// LedgerServiceDeps bundles collaborators required to construct the ledger service.
type LedgerServiceDeps struct {
	Transactions repositories.TransactionRepository
	Businesses   repositories.BusinessRepository
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type ledgerService struct {
	transactions repositories.TransactionRepository
	businesses   repositories.BusinessRepository
	clock        func() time.Time
	newID        func() string
	logger       func(context.Context, string, map[string]any)
}

// NewLedgerService wires dependencies into a concrete LedgerService implementation.
func NewLedgerService(deps LedgerServiceDeps) (LedgerService, error) {
	if deps.Transactions == nil {
		return nil, errors.New("ledger service: transaction repository is required")
	}
	if deps.Businesses == nil {
		return nil, errors.New("ledger service: business repository is required")
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

	return &ledgerService{
		transactions: deps.Transactions,
		businesses:   deps.Businesses,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// CreateTransaction writes the ledger entry and applies its amount to the
// business balance. The balance adjustment is the documented side effect of
// transaction creation; a transaction is never created without it.
func (s *ledgerService) CreateTransaction(ctx context.Context, cmd CreateTransactionCommand) (Transaction, error) {
	businessID := strings.TrimSpace(cmd.BusinessID)
	if businessID == "" {
		return Transaction{}, fmt.Errorf("%w: business id is required", ErrLedgerInvalidInput)
	}
	if !knownTransactionTypes[cmd.Type] {
		return Transaction{}, fmt.Errorf("%w: unknown transaction type %q", ErrLedgerInvalidInput, cmd.Type)
	}
	if cmd.Amount == 0 {
		return Transaction{}, fmt.Errorf("%w: amount must not be zero", ErrLedgerInvalidInput)
	}

	now := s.clock()
	txn := Transaction{
		ID:               txnIDPrefix + s.newID(),
		BusinessID:       businessID,
		Type:             cmd.Type,
		Amount:           cmd.Amount,
		Notes:            cmd.Notes,
		BatchID:          cmd.BatchID,
		SourceOrderIDs:   cmd.SourceOrderIDs,
		OrderReferences:  cmd.OrderReferences,
		CashCycle:        cmd.CashCycle,
		SettlementStatus: domain.SettlementPending,
		CreatedAt:        now,
	}

	if err := s.transactions.Insert(ctx, txn); err != nil {
		return Transaction{}, s.mapRepositoryError(err)
	}

	newBalance, err := s.businesses.AdjustBalance(ctx, businessID, cmd.Amount)
	if err != nil {
		// The entry exists but the balance was not applied; surface loudly so
		// reconciliation can pick it up.
		s.logger(ctx, "ledger.balance.adjust.failed", map[string]any{
			"transaction": txn.ID,
			"business":    businessID,
			"amount":      cmd.Amount,
			"error":       err.Error(),
		})
		return Transaction{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "ledger.transaction.created", map[string]any{
		"transaction": txn.ID,
		"business":    businessID,
		"type":        string(cmd.Type),
		"amount":      cmd.Amount,
		"balance":     newBalance,
	})
	return txn, nil
}

func (s *ledgerService) GetTransaction(ctx context.Context, txnID string) (Transaction, error) {
	txnID = strings.TrimSpace(txnID)
	if txnID == "" {
		return Transaction{}, fmt.Errorf("%w: transaction id is required", ErrLedgerInvalidInput)
	}
	txn, err := s.transactions.FindByID(ctx, txnID)
	if err != nil {
		return Transaction{}, s.mapRepositoryError(err)
	}
	return txn, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, filter repositories.TransactionListFilter) (domain.CursorPage[Transaction], error) {
	page, err := s.transactions.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Transaction]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *ledgerService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrLedgerNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrLedgerConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("ledger: repository unavailable: %w", err)
		}
	}

	return err
}
