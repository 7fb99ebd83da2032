package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/platform/httpx"
	"github.com/parcelio/api/internal/repositories"
	"github.com/parcelio/api/internal/services"
)

const maxTransactionBodySize = 16 * 1024

// TransactionHandlers exposes the ledger endpoints.
type TransactionHandlers struct {
	ledger services.LedgerService
}

// NewTransactionHandlers constructs handlers backed by the ledger service.
func NewTransactionHandlers(ledger services.LedgerService) *TransactionHandlers {
	return &TransactionHandlers{ledger: ledger}
}

// Routes wires the /transactions endpoints onto the provided router.
func (h *TransactionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{transactionID}", h.get)
}

type transactionListResponse struct {
	Items         []transactionPayload `json:"items"`
	NextPageToken string               `json:"next_page_token,omitempty"`
}

type transactionPayload struct {
	ID               string                      `json:"id"`
	BusinessID       string                      `json:"business_id"`
	Type             string                      `json:"type"`
	Amount           int64                       `json:"amount"`
	Notes            string                      `json:"notes,omitempty"`
	BatchID          string                      `json:"batch_id,omitempty"`
	SourceOrderIDs   []string                    `json:"source_order_ids,omitempty"`
	OrderReferences  []orderReferencePayload     `json:"order_references,omitempty"`
	CashCycle        *cashCyclePayload           `json:"cash_cycle,omitempty"`
	SettlementStatus string                      `json:"settlement_status"`
	ReleaseID        *string                     `json:"release_id,omitempty"`
	CreatedAt        string                      `json:"created_at"`
}

type orderReferencePayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Amount      int64  `json:"amount"`
	Fees        int64  `json:"fees"`
	Status      string `json:"status"`
}

type cashCyclePayload struct {
	OrderCount      int    `json:"order_count"`
	DateOfCashCycle string `json:"date_of_cash_cycle"`
}

func buildTransactionPayload(txn domain.Transaction) transactionPayload {
	payload := transactionPayload{
		ID:               txn.ID,
		BusinessID:       txn.BusinessID,
		Type:             string(txn.Type),
		Amount:           txn.Amount,
		Notes:            txn.Notes,
		BatchID:          txn.BatchID,
		SourceOrderIDs:   txn.SourceOrderIDs,
		SettlementStatus: string(txn.SettlementStatus),
		ReleaseID:        txn.ReleaseID,
		CreatedAt:        formatTime(txn.CreatedAt),
	}
	for _, ref := range txn.OrderReferences {
		payload.OrderReferences = append(payload.OrderReferences, orderReferencePayload{
			OrderID:     ref.OrderID,
			OrderNumber: ref.OrderNumber,
			Amount:      ref.Amount,
			Fees:        ref.Fees,
			Status:      ref.Status,
		})
	}
	if txn.CashCycle != nil {
		payload.CashCycle = &cashCyclePayload{
			OrderCount:      txn.CashCycle.OrderCount,
			DateOfCashCycle: formatTime(txn.CashCycle.DateOfCashCycle),
		}
	}
	return payload
}

type createTransactionRequest struct {
	BusinessID string `json:"business_id"`
	Type       string `json:"type"`
	Amount     int64  `json:"amount"`
	Notes      string `json:"notes"`
}

func (h *TransactionHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := readLimitedBody(r, maxTransactionBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req createTransactionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	txn, err := h.ledger.CreateTransaction(ctx, services.CreateTransactionCommand{
		BusinessID: strings.TrimSpace(req.BusinessID),
		Type:       domain.TransactionType(strings.TrimSpace(req.Type)),
		Amount:     req.Amount,
		Notes:      req.Notes,
	})
	if err != nil {
		writeLedgerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildTransactionPayload(txn))
}

func (h *TransactionHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txn, err := h.ledger.GetTransaction(ctx, chi.URLParam(r, "transactionID"))
	if err != nil {
		writeLedgerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildTransactionPayload(txn))
}

func (h *TransactionHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	pagination, err := parsePagination(query.Get("page_size"), query.Get("page_token"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	createdAfter, err := parseTimeParam(query.Get("created_after"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	createdBefore, err := parseTimeParam(query.Get("created_before"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := repositories.TransactionListFilter{
		BusinessID: strings.TrimSpace(query.Get("business_id")),
		Type:       strings.TrimSpace(query.Get("type")),
		Settlement: strings.TrimSpace(query.Get("settlement_status")),
		CreatedAt: domain.RangeQuery[time.Time]{
			From: createdAfter,
			To:   createdBefore,
		},
		Pagination: pagination,
	}

	page, err := h.ledger.ListTransactions(ctx, filter)
	if err != nil {
		writeLedgerError(ctx, w, err)
		return
	}

	items := make([]transactionPayload, 0, len(page.Items))
	for _, txn := range page.Items {
		items = append(items, buildTransactionPayload(txn))
	}
	writeJSONResponse(w, http.StatusOK, transactionListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func writeLedgerError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrLedgerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrLedgerNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("transaction_not_found", "transaction not found", http.StatusNotFound))
	case errors.Is(err, services.ErrLedgerConflict):
		httpx.WriteError(ctx, w, httpx.NewError("transaction_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("ledger_error", "failed to process ledger request", http.StatusInternalServerError))
	}
}
