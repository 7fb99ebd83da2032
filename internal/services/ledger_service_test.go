package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/parcelio/api/internal/domain"
)

func newTestLedgerService(t *testing.T, transactions *stubTransactionRepo, businesses *stubBusinessRepo) LedgerService {
	t.Helper()
	if businesses == nil {
		businesses = &stubBusinessRepo{}
	}
	svc, err := NewLedgerService(LedgerServiceDeps{
		Transactions: transactions,
		Businesses:   businesses,
		Clock:        fixedClock(testNow),
		IDGenerator:  sequentialIDs("id"),
	})
	if err != nil {
		t.Fatalf("NewLedgerService: %v", err)
	}
	return svc
}

func TestCreateTransactionAdjustsBalance(t *testing.T) {
	var inserted domain.Transaction
	transactions := &stubTransactionRepo{
		insertFn: func(_ context.Context, txn domain.Transaction) error {
			inserted = txn
			return nil
		},
	}
	var adjusted struct {
		businessID string
		delta      int64
	}
	businesses := &stubBusinessRepo{
		adjustBalanceFn: func(_ context.Context, businessID string, delta int64) (int64, error) {
			adjusted.businessID = businessID
			adjusted.delta = delta
			return 935, nil
		},
	}
	svc := newTestLedgerService(t, transactions, businesses)

	txn, err := svc.CreateTransaction(context.Background(), CreateTransactionCommand{
		BusinessID:     "biz_1",
		Type:           domain.TransactionTypeFees,
		Amount:         -65,
		Notes:          "Daily fees",
		SourceOrderIDs: []string{"ord_1"},
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if txn.SettlementStatus != domain.SettlementPending {
		t.Errorf("settlement status = %q, want pending", txn.SettlementStatus)
	}
	if !txn.CreatedAt.Equal(testNow) {
		t.Errorf("created at = %v", txn.CreatedAt)
	}
	if inserted.ID != txn.ID {
		t.Errorf("inserted id %q does not match returned %q", inserted.ID, txn.ID)
	}
	if adjusted.businessID != "biz_1" || adjusted.delta != -65 {
		t.Errorf("balance adjust = %+v, want biz_1 / -65", adjusted)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	svc := newTestLedgerService(t, &stubTransactionRepo{}, nil)

	cases := []struct {
		name string
		cmd  CreateTransactionCommand
	}{
		{"missing business", CreateTransactionCommand{Type: domain.TransactionTypeFees, Amount: -10}},
		{"unknown type", CreateTransactionCommand{BusinessID: "biz_1", Type: "bribe", Amount: 10}},
		{"zero amount", CreateTransactionCommand{BusinessID: "biz_1", Type: domain.TransactionTypeCashCycle}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateTransaction(context.Background(), tc.cmd); !errors.Is(err, ErrLedgerInvalidInput) {
				t.Fatalf("err = %v, want ErrLedgerInvalidInput", err)
			}
		})
	}
}

func TestCreateTransactionSurfacesBalanceFailure(t *testing.T) {
	transactions := &stubTransactionRepo{}
	businesses := &stubBusinessRepo{
		adjustBalanceFn: func(context.Context, string, int64) (int64, error) {
			return 0, conflictErr{notFound: true}
		},
	}
	var logged []string
	svc, err := NewLedgerService(LedgerServiceDeps{
		Transactions: transactions,
		Businesses:   businesses,
		Clock:        fixedClock(testNow),
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
	})
	if err != nil {
		t.Fatalf("NewLedgerService: %v", err)
	}

	_, err = svc.CreateTransaction(context.Background(), CreateTransactionCommand{
		BusinessID: "biz_ghost",
		Type:       domain.TransactionTypeCashCycle,
		Amount:     100,
	})
	if !errors.Is(err, ErrLedgerNotFound) {
		t.Fatalf("err = %v, want ErrLedgerNotFound", err)
	}
	found := false
	for _, event := range logged {
		if event == "ledger.balance.adjust.failed" {
			found = true
		}
	}
	if !found {
		t.Errorf("balance failure not logged, events = %v", logged)
	}
}

func TestGetTransactionMapsNotFound(t *testing.T) {
	transactions := &stubTransactionRepo{
		findFn: func(context.Context, string) (domain.Transaction, error) {
			return domain.Transaction{}, conflictErr{notFound: true}
		},
	}
	svc := newTestLedgerService(t, transactions, nil)

	if _, err := svc.GetTransaction(context.Background(), "txn_missing"); !errors.Is(err, ErrLedgerNotFound) {
		t.Fatalf("err = %v, want ErrLedgerNotFound", err)
	}
	if _, err := svc.GetTransaction(context.Background(), "  "); !errors.Is(err, ErrLedgerInvalidInput) {
		t.Fatalf("blank id: err = %v, want ErrLedgerInvalidInput", err)
	}
}
