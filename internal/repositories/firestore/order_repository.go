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

const ordersCollection = "orders"

// OrderRepository persists order aggregates with optimistic revision checks.
type OrderRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection)
	return &OrderRepository{provider: provider, base: base}, nil
}

// Insert stores a new order document. The ID must be unique.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	order.Revision = 1
	if _, err := docRef.Create(ctx, encodeOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update replaces the persisted order inside a transaction, failing with a
// conflict when the stored revision diverged from the one the caller loaded.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var stored orderDocument
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("orders decode %s: %w", orderID, err)
		}
		if stored.Revision != order.Revision {
			return revisionConflict("orders", orderID, order.Revision, stored.Revision)
		}
		next := order
		next.Revision = order.Revision + 1
		return tx.Set(ref, encodeOrderDocument(next))
	})
	return pfirestore.WrapError("orders.update", err)
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrderDocument(doc.ID, doc.Data), nil
}

// FindByNumber fetches the order carrying the human-facing number.
func (r *OrderRepository) FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return domain.Order{}, errors.New("order repository: order number is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderNumber", "==", orderNumber).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, notFound("orders", orderNumber)
	}
	return decodeOrderDocument(docs[0].ID, docs[0].Data), nil
}

// List returns orders matching the filter ordered by newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
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
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if business := strings.TrimSpace(filter.BusinessID); business != "" {
			q = q.Where("businessId", "==", business)
		}
		if courier := strings.TrimSpace(filter.CourierID); courier != "" {
			q = q.Where("courierId", "==", courier)
		}
		if statuses := normaliseFilterValues(filter.Status); len(statuses) == 1 {
			q = q.Where("orderStatus", "==", statuses[0])
		} else if len(statuses) > 1 {
			q = q.Where("orderStatus", "in", statuses)
		}
		if category := strings.TrimSpace(filter.StatusCategory); category != "" {
			q = q.Where("statusCategory", "==", category)
		}
		if orderType := strings.TrimSpace(filter.OrderType); orderType != "" {
			q = q.Where("shipping.orderType", "==", orderType)
		}
		if filter.CompletedAt.From != nil {
			q = q.Where("completedDate", ">=", filter.CompletedAt.From.UTC())
		}
		if filter.CompletedAt.To != nil {
			q = q.Where("completedDate", "<=", filter.CompletedAt.To.UTC())
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
		return domain.CursorPage[domain.Order]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = pagination.EncodeToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeOrderDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

// ListForFinancialProcessing returns unprocessed orders sitting in one of the
// financial-processing statuses with a completion date set.
func (r *OrderRepository) ListForFinancialProcessing(ctx context.Context, statuses []string) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	statuses = normaliseFilterValues(statuses)
	if len(statuses) == 0 {
		return nil, nil
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderStatus", "in", statuses).
			Where("financialProcessing.isProcessed", "==", false)
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order := decodeOrderDocument(doc.ID, doc.Data)
		if order.CompletedDate == nil {
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// ListProcessedBy returns orders flagged processed by the given processor,
// optionally narrowed to a batch.
func (r *OrderRepository) ListProcessedBy(ctx context.Context, processedBy string, batchID string) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	processedBy = strings.TrimSpace(processedBy)
	if processedBy == "" {
		return nil, errors.New("order repository: processedBy is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("financialProcessing.isProcessed", "==", true).
			Where("financialProcessing.processedBy", "==", processedBy)
		if batch := strings.TrimSpace(batchID); batch != "" {
			q = q.Where("financialProcessing.batchId", "==", batch)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeOrderDocument(doc.ID, doc.Data))
	}
	return orders, nil
}

// ResetFinancialProcessing clears the processed flag on the given orders.
func (r *OrderRepository) ResetFinancialProcessing(ctx context.Context, orderIDs []string) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	for _, orderID := range orderIDs {
		orderID = strings.TrimSpace(orderID)
		if orderID == "" {
			continue
		}
		updates := []firestore.Update{
			{Path: "financialProcessing", Value: financialProcessingDocument{}},
		}
		if err := r.base.Update(ctx, orderID, updates); err != nil {
			return err
		}
	}
	return nil
}

// Document mapping -----------------------------------------------------------

type stageDocument struct {
	IsCompleted bool       `firestore:"isCompleted"`
	CompletedAt *time.Time `firestore:"completedAt,omitempty"`
	Notes       string     `firestore:"notes,omitempty"`
}

type orderStagesDocument struct {
	OrderPlaced        stageDocument `firestore:"orderPlaced"`
	Packed             stageDocument `firestore:"packed"`
	Shipping           stageDocument `firestore:"shipping"`
	InProgress         stageDocument `firestore:"inProgress"`
	OutForDelivery     stageDocument `firestore:"outForDelivery"`
	Delivered          stageDocument `firestore:"delivered"`
	ReturnInitiated    stageDocument `firestore:"returnInitiated"`
	ReturnAssigned     stageDocument `firestore:"returnAssigned"`
	ReturnPickedUp     stageDocument `firestore:"returnPickedUp"`
	ReturnAtWarehouse  stageDocument `firestore:"returnAtWarehouse"`
	ReturnInspection   stageDocument `firestore:"returnInspection"`
	ReturnProcessing   stageDocument `firestore:"returnProcessing"`
	ReturnToBusiness   stageDocument `firestore:"returnToBusiness"`
	ReturnCompleted    stageDocument `firestore:"returnCompleted"`
	ExchangePickup     stageDocument `firestore:"exchangePickup"`
	ExchangeDelivery   stageDocument `firestore:"exchangeDelivery"`
	CollectionComplete stageDocument `firestore:"collectionComplete"`
}

type statusHistoryDocument struct {
	Status     string    `firestore:"status"`
	Category   string    `firestore:"category"`
	OccurredAt time.Time `firestore:"date"`
}

type courierHistoryDocument struct {
	CourierID  string    `firestore:"courier"`
	Action     string    `firestore:"action"`
	Notes      string    `firestore:"notes,omitempty"`
	AssignedAt time.Time `firestore:"assignedAt"`
}

type orderShippingDocument struct {
	OrderType           string     `firestore:"orderType"`
	AmountType          string     `firestore:"amountType,omitempty"`
	Amount              int64      `firestore:"amount"`
	City                string     `firestore:"city,omitempty"`
	IsExpress           bool       `firestore:"isExpress"`
	LinkedDeliverOrder  *string    `firestore:"linkedDeliverOrder,omitempty"`
	LinkedReturnOrder   *string    `firestore:"linkedReturnOrder,omitempty"`
	OriginalOrderNumber *string    `firestore:"originalOrderNumber,omitempty"`
	ReturnReason        *string    `firestore:"returnReason,omitempty"`
	ReturnInitiatedAt   *time.Time `firestore:"returnInitiatedAt,omitempty"`
	IsPartialReturn     bool       `firestore:"isPartialReturn"`
	OriginalItemCount   int        `firestore:"originalOrderItemCount,omitempty"`
	PartialItemCount    int        `firestore:"partialReturnItemCount,omitempty"`
}

type financialProcessingDocument struct {
	IsProcessed bool       `firestore:"isProcessed"`
	ProcessedAt *time.Time `firestore:"processedAt,omitempty"`
	ProcessedBy string     `firestore:"processedBy,omitempty"`
	BatchID     string     `firestore:"batchId,omitempty"`
	Notes       string     `firestore:"notes,omitempty"`
}

type orderDocument struct {
	OrderNumber         string                      `firestore:"orderNumber"`
	BusinessID          string                      `firestore:"businessId"`
	CustomerName        string                      `firestore:"customerName,omitempty"`
	CustomerPhone       string                      `firestore:"customerPhone,omitempty"`
	Status              string                      `firestore:"orderStatus"`
	StatusCategory      string                      `firestore:"statusCategory"`
	StatusHistory       []statusHistoryDocument     `firestore:"orderStatusHistory"`
	Stages              orderStagesDocument         `firestore:"orderStages"`
	Shipping            orderShippingDocument       `firestore:"shipping"`
	Fees                int64                       `firestore:"orderFees"`
	ReturnFees          int64                       `firestore:"returnFees,omitempty"`
	CancellationFees    int64                       `firestore:"cancellationFees,omitempty"`
	Attempts            int                         `firestore:"attempts"`
	UnavailableReasons  []string                    `firestore:"unavailableReasons,omitempty"`
	CourierID           *string                     `firestore:"courierId,omitempty"`
	CourierHistory      []courierHistoryDocument    `firestore:"courierHistory"`
	ScheduledRetryAt    *time.Time                  `firestore:"scheduledRetryAt,omitempty"`
	CompletedDate       *time.Time                  `firestore:"completedDate,omitempty"`
	MoneyReleaseDate    *time.Time                  `firestore:"moneyReleaseDate,omitempty"`
	FinancialProcessing financialProcessingDocument `firestore:"financialProcessing"`
	Revision            int64                       `firestore:"revision"`
	CreatedAt           time.Time                   `firestore:"createdAt"`
	UpdatedAt           time.Time                   `firestore:"updatedAt"`
}

func encodeStage(stage domain.Stage) stageDocument {
	return stageDocument{
		IsCompleted: stage.IsCompleted,
		CompletedAt: normalizeTimePointer(stage.CompletedAt),
		Notes:       stage.Notes,
	}
}

func decodeStage(doc stageDocument) domain.Stage {
	return domain.Stage{
		IsCompleted: doc.IsCompleted,
		CompletedAt: doc.CompletedAt,
		Notes:       doc.Notes,
	}
}

func encodeOrderStages(stages domain.OrderStages) orderStagesDocument {
	return orderStagesDocument{
		OrderPlaced:        encodeStage(stages.OrderPlaced),
		Packed:             encodeStage(stages.Packed),
		Shipping:           encodeStage(stages.Shipping),
		InProgress:         encodeStage(stages.InProgress),
		OutForDelivery:     encodeStage(stages.OutForDelivery),
		Delivered:          encodeStage(stages.Delivered),
		ReturnInitiated:    encodeStage(stages.ReturnInitiated),
		ReturnAssigned:     encodeStage(stages.ReturnAssigned),
		ReturnPickedUp:     encodeStage(stages.ReturnPickedUp),
		ReturnAtWarehouse:  encodeStage(stages.ReturnAtWarehouse),
		ReturnInspection:   encodeStage(stages.ReturnInspection),
		ReturnProcessing:   encodeStage(stages.ReturnProcessing),
		ReturnToBusiness:   encodeStage(stages.ReturnToBusiness),
		ReturnCompleted:    encodeStage(stages.ReturnCompleted),
		ExchangePickup:     encodeStage(stages.ExchangePickup),
		ExchangeDelivery:   encodeStage(stages.ExchangeDelivery),
		CollectionComplete: encodeStage(stages.CollectionComplete),
	}
}

func decodeOrderStages(doc orderStagesDocument) domain.OrderStages {
	return domain.OrderStages{
		OrderPlaced:        decodeStage(doc.OrderPlaced),
		Packed:             decodeStage(doc.Packed),
		Shipping:           decodeStage(doc.Shipping),
		InProgress:         decodeStage(doc.InProgress),
		OutForDelivery:     decodeStage(doc.OutForDelivery),
		Delivered:          decodeStage(doc.Delivered),
		ReturnInitiated:    decodeStage(doc.ReturnInitiated),
		ReturnAssigned:     decodeStage(doc.ReturnAssigned),
		ReturnPickedUp:     decodeStage(doc.ReturnPickedUp),
		ReturnAtWarehouse:  decodeStage(doc.ReturnAtWarehouse),
		ReturnInspection:   decodeStage(doc.ReturnInspection),
		ReturnProcessing:   decodeStage(doc.ReturnProcessing),
		ReturnToBusiness:   decodeStage(doc.ReturnToBusiness),
		ReturnCompleted:    decodeStage(doc.ReturnCompleted),
		ExchangePickup:     decodeStage(doc.ExchangePickup),
		ExchangeDelivery:   decodeStage(doc.ExchangeDelivery),
		CollectionComplete: decodeStage(doc.CollectionComplete),
	}
}

func encodeStatusHistory(history []domain.StatusHistoryEntry) []statusHistoryDocument {
	out := make([]statusHistoryDocument, 0, len(history))
	for _, entry := range history {
		out = append(out, statusHistoryDocument{
			Status:     entry.Status,
			Category:   string(entry.Category),
			OccurredAt: entry.OccurredAt.UTC(),
		})
	}
	return out
}

func decodeStatusHistory(docs []statusHistoryDocument) []domain.StatusHistoryEntry {
	out := make([]domain.StatusHistoryEntry, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.StatusHistoryEntry{
			Status:     doc.Status,
			Category:   domain.StatusCategory(doc.Category),
			OccurredAt: doc.OccurredAt,
		})
	}
	return out
}

func encodeCourierHistory(history []domain.CourierHistoryEntry) []courierHistoryDocument {
	out := make([]courierHistoryDocument, 0, len(history))
	for _, entry := range history {
		out = append(out, courierHistoryDocument{
			CourierID:  entry.CourierID,
			Action:     entry.Action,
			Notes:      entry.Notes,
			AssignedAt: entry.AssignedAt.UTC(),
		})
	}
	return out
}

func decodeCourierHistory(docs []courierHistoryDocument) []domain.CourierHistoryEntry {
	out := make([]domain.CourierHistoryEntry, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.CourierHistoryEntry{
			CourierID:  doc.CourierID,
			Action:     doc.Action,
			Notes:      doc.Notes,
			AssignedAt: doc.AssignedAt,
		})
	}
	return out
}

func encodeOrderDocument(order domain.Order) orderDocument {
	return orderDocument{
		OrderNumber:    strings.TrimSpace(order.OrderNumber),
		BusinessID:     strings.TrimSpace(order.BusinessID),
		CustomerName:   strings.TrimSpace(order.CustomerName),
		CustomerPhone:  strings.TrimSpace(order.CustomerPhone),
		Status:         order.Status,
		StatusCategory: string(order.StatusCategory),
		StatusHistory:  encodeStatusHistory(order.StatusHistory),
		Stages:         encodeOrderStages(order.Stages),
		Shipping: orderShippingDocument{
			OrderType:           string(order.Shipping.OrderType),
			AmountType:          order.Shipping.AmountType,
			Amount:              order.Shipping.Amount,
			City:                order.Shipping.City,
			IsExpress:           order.Shipping.IsExpress,
			LinkedDeliverOrder:  order.Shipping.LinkedDeliverOrder,
			LinkedReturnOrder:   order.Shipping.LinkedReturnOrder,
			OriginalOrderNumber: order.Shipping.OriginalOrderNumber,
			ReturnReason:        order.Shipping.ReturnReason,
			ReturnInitiatedAt:   normalizeTimePointer(order.Shipping.ReturnInitiatedAt),
			IsPartialReturn:     order.Shipping.IsPartialReturn,
			OriginalItemCount:   order.Shipping.OriginalItemCount,
			PartialItemCount:    order.Shipping.PartialItemCount,
		},
		Fees:               order.Fees,
		ReturnFees:         order.ReturnFees,
		CancellationFees:   order.CancellationFees,
		Attempts:           order.Attempts,
		UnavailableReasons: order.UnavailableReasons,
		CourierID:          order.CourierID,
		CourierHistory:     encodeCourierHistory(order.CourierHistory),
		ScheduledRetryAt:   normalizeTimePointer(order.ScheduledRetryAt),
		CompletedDate:      normalizeTimePointer(order.CompletedDate),
		MoneyReleaseDate:   normalizeTimePointer(order.MoneyReleaseDate),
		FinancialProcessing: financialProcessingDocument{
			IsProcessed: order.FinancialProcessing.IsProcessed,
			ProcessedAt: normalizeTimePointer(order.FinancialProcessing.ProcessedAt),
			ProcessedBy: order.FinancialProcessing.ProcessedBy,
			BatchID:     order.FinancialProcessing.BatchID,
			Notes:       order.FinancialProcessing.Notes,
		},
		Revision:  order.Revision,
		CreatedAt: order.CreatedAt.UTC(),
		UpdatedAt: order.UpdatedAt.UTC(),
	}
}

func decodeOrderDocument(id string, doc orderDocument) domain.Order {
	return domain.Order{
		ID:             id,
		OrderNumber:    doc.OrderNumber,
		BusinessID:     doc.BusinessID,
		CustomerName:   doc.CustomerName,
		CustomerPhone:  doc.CustomerPhone,
		Status:         doc.Status,
		StatusCategory: domain.StatusCategory(doc.StatusCategory),
		StatusHistory:  decodeStatusHistory(doc.StatusHistory),
		Stages:         decodeOrderStages(doc.Stages),
		Shipping: domain.OrderShipping{
			OrderType:           domain.OrderType(doc.Shipping.OrderType),
			AmountType:          doc.Shipping.AmountType,
			Amount:              doc.Shipping.Amount,
			City:                doc.Shipping.City,
			IsExpress:           doc.Shipping.IsExpress,
			LinkedDeliverOrder:  doc.Shipping.LinkedDeliverOrder,
			LinkedReturnOrder:   doc.Shipping.LinkedReturnOrder,
			OriginalOrderNumber: doc.Shipping.OriginalOrderNumber,
			ReturnReason:        doc.Shipping.ReturnReason,
			ReturnInitiatedAt:   doc.Shipping.ReturnInitiatedAt,
			IsPartialReturn:     doc.Shipping.IsPartialReturn,
			OriginalItemCount:   doc.Shipping.OriginalItemCount,
			PartialItemCount:    doc.Shipping.PartialItemCount,
		},
		Fees:               doc.Fees,
		ReturnFees:         doc.ReturnFees,
		CancellationFees:   doc.CancellationFees,
		Attempts:           doc.Attempts,
		UnavailableReasons: doc.UnavailableReasons,
		CourierID:          doc.CourierID,
		CourierHistory:     decodeCourierHistory(doc.CourierHistory),
		ScheduledRetryAt:   doc.ScheduledRetryAt,
		CompletedDate:      doc.CompletedDate,
		MoneyReleaseDate:   doc.MoneyReleaseDate,
		FinancialProcessing: domain.FinancialProcessing{
			IsProcessed: doc.FinancialProcessing.IsProcessed,
			ProcessedAt: doc.FinancialProcessing.ProcessedAt,
			ProcessedBy: doc.FinancialProcessing.ProcessedBy,
			BatchID:     doc.FinancialProcessing.BatchID,
			Notes:       doc.FinancialProcessing.Notes,
		},
		Revision:  doc.Revision,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// Shared helpers -------------------------------------------------------------

func normalizeTimePointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func normaliseFilterValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

