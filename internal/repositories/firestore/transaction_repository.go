package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/parcelio/api/internal/domain"
	pfirestore "github.com/parcelio/api/internal/platform/firestore"
	"github.com/parcelio/api/internal/platform/pagination"
	"github.com/parcelio/api/internal/repositories"
)

const (
	transactionsCollection = "transactions"

	// Firestore caps array-contains-any clauses at ten values.
	arrayQueryChunkSize = 10
)

// TransactionRepository stores immutable ledger entries.
type TransactionRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[transactionDocument]
}

// NewTransactionRepository constructs a Firestore-backed ledger repository.
func NewTransactionRepository(provider *pfirestore.Provider) (*TransactionRepository, error) {
	if provider == nil {
		return nil, errors.New("transaction repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[transactionDocument](provider, transactionsCollection)
	return &TransactionRepository{provider: provider, base: base}, nil
}

// Insert stores a new ledger entry. Entries are never updated afterwards.
func (r *TransactionRepository) Insert(ctx context.Context, txn domain.Transaction) error {
	if r == nil || r.base == nil {
		return errors.New("transaction repository not initialised")
	}
	txnID := strings.TrimSpace(txn.ID)
	if txnID == "" {
		return errors.New("transaction repository: transaction id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, txnID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeTransactionDocument(txn)); err != nil {
		return pfirestore.WrapError("transactions.insert", err)
	}
	return nil
}

// FindByID fetches a single ledger entry.
func (r *TransactionRepository) FindByID(ctx context.Context, txnID string) (domain.Transaction, error) {
	if r == nil || r.base == nil {
		return domain.Transaction{}, errors.New("transaction repository not initialised")
	}
	txnID = strings.TrimSpace(txnID)
	if txnID == "" {
		return domain.Transaction{}, errors.New("transaction repository: transaction id is required")
	}
	doc, err := r.base.Get(ctx, txnID)
	if err != nil {
		return domain.Transaction{}, err
	}
	return decodeTransactionDocument(doc.ID, doc.Data), nil
}

// ExistsForOrders reports whether any transaction of the given type for the
// business already references one of the orders. Order ids are chunked to
// respect the Firestore array-contains-any limit.
func (r *TransactionRepository) ExistsForOrders(ctx context.Context, businessID string, txnType domain.TransactionType, orderIDs []string) (bool, error) {
	if r == nil || r.base == nil {
		return false, errors.New("transaction repository not initialised")
	}
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return false, errors.New("transaction repository: business id is required")
	}
	ids := normaliseFilterValues(orderIDs)
	if len(ids) == 0 {
		return false, nil
	}

	for start := 0; start < len(ids); start += arrayQueryChunkSize {
		end := start + arrayQueryChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("businessId", "==", businessID).
				Where("type", "==", string(txnType)).
				Where("sourceOrderIds", "array-contains-any", chunk).
				Limit(1)
		})
		if err != nil {
			return false, err
		}
		if len(docs) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// ListBySourceOrder returns transactions referencing the order.
func (r *TransactionRepository) ListBySourceOrder(ctx context.Context, orderID string) ([]domain.Transaction, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("transaction repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("transaction repository: order id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("sourceOrderIds", "array-contains", orderID)
	})
	if err != nil {
		return nil, err
	}
	return decodeTransactionDocuments(docs), nil
}

// ListPending returns a business's transactions awaiting release inclusion.
func (r *TransactionRepository) ListPending(ctx context.Context, businessID string) ([]domain.Transaction, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("transaction repository not initialised")
	}
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return nil, errors.New("transaction repository: business id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("businessId", "==", businessID).
			Where("settlementStatus", "==", string(domain.SettlementPending)).
			OrderBy("createdAt", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	return decodeTransactionDocuments(docs), nil
}

// ListBusinessesWithPending enumerates business ids holding pending transactions.
func (r *TransactionRepository) ListBusinessesWithPending(ctx context.Context) ([]string, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("transaction repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("settlementStatus", "==", string(domain.SettlementPending))
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		business := doc.Data.BusinessID
		if business == "" {
			continue
		}
		if _, ok := seen[business]; ok {
			continue
		}
		seen[business] = struct{}{}
		ids = append(ids, business)
	}
	return ids, nil
}

// MarkIncludedInRelease stamps the transactions with the covering release.
func (r *TransactionRepository) MarkIncludedInRelease(ctx context.Context, txnIDs []string, releaseID string) error {
	if r == nil || r.provider == nil {
		return errors.New("transaction repository not initialised")
	}
	releaseID = strings.TrimSpace(releaseID)
	if releaseID == "" {
		return errors.New("transaction repository: release id is required")
	}
	ids := normaliseFilterValues(txnIDs)
	if len(ids) == 0 {
		return nil
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		refs := make([]*firestore.DocumentRef, 0, len(ids))
		for _, txnID := range ids {
			ref, err := r.base.DocumentRef(ctx, txnID)
			if err != nil {
				return err
			}
			if _, err := tx.Get(ref); err != nil {
				return err
			}
			refs = append(refs, ref)
		}
		for _, ref := range refs {
			err := tx.Update(ref, []firestore.Update{
				{Path: "settlementStatus", Value: string(domain.SettlementInRelease)},
				{Path: "releaseId", Value: releaseID},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return pfirestore.WrapError("transactions.markIncludedInRelease", err)
}

// List returns ledger entries matching the filter ordered by newest first.
func (r *TransactionRepository) List(ctx context.Context, filter repositories.TransactionListFilter) (domain.CursorPage[domain.Transaction], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Transaction]{}, errors.New("transaction repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := pagination.DecodeToken(token)
		if err != nil {
			return domain.CursorPage[domain.Transaction]{}, fmt.Errorf("transaction repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if business := strings.TrimSpace(filter.BusinessID); business != "" {
			q = q.Where("businessId", "==", business)
		}
		if txnType := strings.TrimSpace(filter.Type); txnType != "" {
			q = q.Where("type", "==", txnType)
		}
		if settlement := strings.TrimSpace(filter.Settlement); settlement != "" {
			q = q.Where("settlementStatus", "==", settlement)
		}
		if filter.CreatedAt.From != nil {
			q = q.Where("createdAt", ">=", filter.CreatedAt.From.UTC())
		}
		if filter.CreatedAt.To != nil {
			q = q.Where("createdAt", "<=", filter.CreatedAt.To.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Transaction]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = pagination.EncodeToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	return domain.CursorPage[domain.Transaction]{
		Items:         decodeTransactionDocuments(docs),
		NextPageToken: nextToken,
	}, nil
}

// Document mapping -----------------------------------------------------------

type transactionOrderRefDocument struct {
	OrderID     string `firestore:"orderId"`
	OrderNumber string `firestore:"orderNumber"`
	Amount      int64  `firestore:"amount"`
	Fees        int64  `firestore:"fees"`
	Status      string `firestore:"status"`
}

type cashCycleDocument struct {
	OrderCount      int       `firestore:"orderCount"`
	DateOfCashCycle time.Time `firestore:"dateOfCashCycle"`
}

type transactionDocument struct {
	BusinessID       string                        `firestore:"businessId"`
	Type             string                        `firestore:"type"`
	Amount           int64                         `firestore:"amount"`
	Notes            string                        `firestore:"notes,omitempty"`
	BatchID          string                        `firestore:"batchId,omitempty"`
	SourceOrderIDs   []string                      `firestore:"sourceOrderIds,omitempty"`
	OrderReferences  []transactionOrderRefDocument `firestore:"orderReferences,omitempty"`
	CashCycle        *cashCycleDocument            `firestore:"cashCycle,omitempty"`
	SettlementStatus string                        `firestore:"settlementStatus"`
	ReleaseID        *string                       `firestore:"releaseId,omitempty"`
	CreatedAt        time.Time                     `firestore:"createdAt"`
}

func encodeTransactionDocument(txn domain.Transaction) transactionDocument {
	refs := make([]transactionOrderRefDocument, 0, len(txn.OrderReferences))
	for _, ref := range txn.OrderReferences {
		refs = append(refs, transactionOrderRefDocument{
			OrderID:     ref.OrderID,
			OrderNumber: ref.OrderNumber,
			Amount:      ref.Amount,
			Fees:        ref.Fees,
			Status:      ref.Status,
		})
	}
	var cycle *cashCycleDocument
	if txn.CashCycle != nil {
		cycle = &cashCycleDocument{
			OrderCount:      txn.CashCycle.OrderCount,
			DateOfCashCycle: txn.CashCycle.DateOfCashCycle.UTC(),
		}
	}
	return transactionDocument{
		BusinessID:       strings.TrimSpace(txn.BusinessID),
		Type:             string(txn.Type),
		Amount:           txn.Amount,
		Notes:            txn.Notes,
		BatchID:          txn.BatchID,
		SourceOrderIDs:   txn.SourceOrderIDs,
		OrderReferences:  refs,
		CashCycle:        cycle,
		SettlementStatus: string(txn.SettlementStatus),
		ReleaseID:        txn.ReleaseID,
		CreatedAt:        txn.CreatedAt.UTC(),
	}
}

func decodeTransactionDocument(id string, doc transactionDocument) domain.Transaction {
	refs := make([]domain.TransactionOrderReference, 0, len(doc.OrderReferences))
	for _, ref := range doc.OrderReferences {
		refs = append(refs, domain.TransactionOrderReference{
			OrderID:     ref.OrderID,
			OrderNumber: ref.OrderNumber,
			Amount:      ref.Amount,
			Fees:        ref.Fees,
			Status:      ref.Status,
		})
	}
	var cycle *domain.CashCycleSummary
	if doc.CashCycle != nil {
		cycle = &domain.CashCycleSummary{
			OrderCount:      doc.CashCycle.OrderCount,
			DateOfCashCycle: doc.CashCycle.DateOfCashCycle,
		}
	}
	return domain.Transaction{
		ID:               id,
		BusinessID:       doc.BusinessID,
		Type:             domain.TransactionType(doc.Type),
		Amount:           doc.Amount,
		Notes:            doc.Notes,
		BatchID:          doc.BatchID,
		SourceOrderIDs:   doc.SourceOrderIDs,
		OrderReferences:  refs,
		CashCycle:        cycle,
		SettlementStatus: domain.SettlementStatus(doc.SettlementStatus),
		ReleaseID:        doc.ReleaseID,
		CreatedAt:        doc.CreatedAt,
	}
}

func decodeTransactionDocuments(docs []pfirestore.Document[transactionDocument]) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(docs))
	for _, doc := range docs {
		out = append(out, decodeTransactionDocument(doc.ID, doc.Data))
	}
	return out
}
