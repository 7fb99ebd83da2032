package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/repositories"
	"github.com/parcelio/api/internal/services"
)

func newTransactionRouter(svc services.LedgerService) chi.Router {
	r := chi.NewRouter()
	NewTransactionHandlers(svc).Routes(r)
	return r
}

func TestTransactionCreate(t *testing.T) {
	var captured services.CreateTransactionCommand
	svc := &stubLedgerService{
		createFn: func(_ context.Context, cmd services.CreateTransactionCommand) (domain.Transaction, error) {
			captured = cmd
			return sampleTransaction(), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"business_id":"biz_1","type":"fees","amount":-65,"notes":"manual adjustment"}`))
	rr := httptest.NewRecorder()

	newTransactionRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.BusinessID != "biz_1" {
		t.Fatalf("expected business biz_1, got %q", captured.BusinessID)
	}
	if captured.Type != domain.TransactionTypeFees {
		t.Fatalf("expected fees type, got %q", captured.Type)
	}
	if captured.Amount != -65 {
		t.Fatalf("expected amount -65, got %d", captured.Amount)
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload["settlement_status"] != "pending" {
		t.Fatalf("expected pending settlement status, got %v", payload["settlement_status"])
	}
}

func TestTransactionCreateMapsInvalidInput(t *testing.T) {
	svc := &stubLedgerService{
		createFn: func(context.Context, services.CreateTransactionCommand) (domain.Transaction, error) {
			return domain.Transaction{}, services.ErrLedgerInvalidInput
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"business_id":"","type":"fees","amount":0}`))
	rr := httptest.NewRecorder()

	newTransactionRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestTransactionGetMapsNotFound(t *testing.T) {
	svc := &stubLedgerService{
		getFn: func(context.Context, string) (domain.Transaction, error) {
			return domain.Transaction{}, services.ErrLedgerNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/txn_missing", nil)
	rr := httptest.NewRecorder()

	newTransactionRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload["error"] != "transaction_not_found" {
		t.Fatalf("expected transaction_not_found code, got %v", payload["error"])
	}
}

func TestTransactionListParsesFilters(t *testing.T) {
	var captured repositories.TransactionListFilter
	svc := &stubLedgerService{
		listFn: func(_ context.Context, filter repositories.TransactionListFilter) (domain.CursorPage[domain.Transaction], error) {
			captured = filter
			return domain.CursorPage[domain.Transaction]{
				Items:         []domain.Transaction{sampleTransaction()},
				NextPageToken: "tok_2",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/?business_id=biz_1&type=cashCycle&settlement_status=pending&created_after=2025-03-01T00:00:00Z", nil)
	rr := httptest.NewRecorder()

	newTransactionRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.BusinessID != "biz_1" || captured.Type != "cashCycle" || captured.Settlement != "pending" {
		t.Fatalf("unexpected filter %+v", captured)
	}
	if captured.CreatedAt.From == nil {
		t.Fatal("expected created_after bound")
	}
	if captured.Pagination.PageSize != defaultPageSize {
		t.Fatalf("expected default page size, got %d", captured.Pagination.PageSize)
	}

	var payload transactionListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(payload.Items) != 1 || payload.NextPageToken != "tok_2" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Items[0].CashCycle != nil {
		t.Fatalf("expected no cash cycle summary on sample, got %+v", payload.Items[0].CashCycle)
	}
}
