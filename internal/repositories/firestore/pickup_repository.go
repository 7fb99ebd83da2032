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

const pickupsCollection = "pickups"

// PickupRepository persists pickup runs with the same optimistic revision
// contract as orders.
type PickupRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[pickupDocument]
}

// NewPickupRepository constructs a Firestore-backed pickup repository.
func NewPickupRepository(provider *pfirestore.Provider) (*PickupRepository, error) {
	if provider == nil {
		return nil, errors.New("pickup repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[pickupDocument](provider, pickupsCollection)
	return &PickupRepository{provider: provider, base: base}, nil
}

// Insert stores a new pickup document.
func (r *PickupRepository) Insert(ctx context.Context, pickup domain.Pickup) error {
	if r == nil || r.base == nil {
		return errors.New("pickup repository not initialised")
	}
	pickupID := strings.TrimSpace(pickup.ID)
	if pickupID == "" {
		return errors.New("pickup repository: pickup id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, pickupID)
	if err != nil {
		return err
	}
	pickup.Revision = 1
	if _, err := docRef.Create(ctx, encodePickupDocument(pickup)); err != nil {
		return pfirestore.WrapError("pickups.insert", err)
	}
	return nil
}

// Update replaces the stored pickup, conflicting when the revision diverged.
func (r *PickupRepository) Update(ctx context.Context, pickup domain.Pickup) error {
	if r == nil || r.provider == nil {
		return errors.New("pickup repository not initialised")
	}
	pickupID := strings.TrimSpace(pickup.ID)
	if pickupID == "" {
		return errors.New("pickup repository: pickup id is required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, pickupID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var stored pickupDocument
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("pickups decode %s: %w", pickupID, err)
		}
		if stored.Revision != pickup.Revision {
			return revisionConflict("pickups", pickupID, pickup.Revision, stored.Revision)
		}
		next := pickup
		next.Revision = pickup.Revision + 1
		return tx.Set(ref, encodePickupDocument(next))
	})
	return pfirestore.WrapError("pickups.update", err)
}

// FindByID fetches a single pickup.
func (r *PickupRepository) FindByID(ctx context.Context, pickupID string) (domain.Pickup, error) {
	if r == nil || r.base == nil {
		return domain.Pickup{}, errors.New("pickup repository not initialised")
	}
	pickupID = strings.TrimSpace(pickupID)
	if pickupID == "" {
		return domain.Pickup{}, errors.New("pickup repository: pickup id is required")
	}
	doc, err := r.base.Get(ctx, pickupID)
	if err != nil {
		return domain.Pickup{}, err
	}
	return decodePickupDocument(doc.ID, doc.Data), nil
}

// FindByNumber fetches the pickup carrying the human-facing number.
func (r *PickupRepository) FindByNumber(ctx context.Context, pickupNumber string) (domain.Pickup, error) {
	if r == nil || r.base == nil {
		return domain.Pickup{}, errors.New("pickup repository not initialised")
	}
	pickupNumber = strings.TrimSpace(pickupNumber)
	if pickupNumber == "" {
		return domain.Pickup{}, errors.New("pickup repository: pickup number is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("pickupNumber", "==", pickupNumber).Limit(1)
	})
	if err != nil {
		return domain.Pickup{}, err
	}
	if len(docs) == 0 {
		return domain.Pickup{}, notFound("pickups", pickupNumber)
	}
	return decodePickupDocument(docs[0].ID, docs[0].Data), nil
}

// List returns pickups matching the filter ordered by newest first.
func (r *PickupRepository) List(ctx context.Context, filter repositories.PickupListFilter) (domain.CursorPage[domain.Pickup], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Pickup]{}, errors.New("pickup repository not initialised")
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
			return domain.CursorPage[domain.Pickup]{}, fmt.Errorf("pickup repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if business := strings.TrimSpace(filter.BusinessID); business != "" {
			q = q.Where("businessId", "==", business)
		}
		if driver := strings.TrimSpace(filter.DriverID); driver != "" {
			q = q.Where("driverId", "==", driver)
		}
		if statuses := normaliseFilterValues(filter.Status); len(statuses) == 1 {
			q = q.Where("pickupStatus", "==", statuses[0])
		} else if len(statuses) > 1 {
			q = q.Where("pickupStatus", "in", statuses)
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
		return domain.CursorPage[domain.Pickup]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = pagination.EncodeToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Pickup, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodePickupDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Pickup]{Items: items, NextPageToken: nextToken}, nil
}

// Document mapping -----------------------------------------------------------

type pickupStagesDocument struct {
	Scheduled      stageDocument `firestore:"scheduled"`
	DriverAssigned stageDocument `firestore:"driverAssigned"`
	PickedUp       stageDocument `firestore:"pickedUp"`
	InStock        stageDocument `firestore:"inStock"`
	Completed      stageDocument `firestore:"completed"`
}

type pickupDocument struct {
	PickupNumber   string                   `firestore:"pickupNumber"`
	BusinessID     string                   `firestore:"businessId"`
	Status         string                   `firestore:"pickupStatus"`
	StatusCategory string                   `firestore:"statusCategory"`
	StatusHistory  []statusHistoryDocument  `firestore:"pickupStatusHistory"`
	Stages         pickupStagesDocument     `firestore:"pickupStages"`
	OrderIDs       []string                 `firestore:"orderIds"`
	DriverID       *string                  `firestore:"driverId,omitempty"`
	DriverHistory  []courierHistoryDocument `firestore:"driverHistory"`
	Fees           int64                    `firestore:"pickupFees"`
	FeesTxnID      *string                  `firestore:"feesTransactionId,omitempty"`
	CompletedDate  *time.Time               `firestore:"completedDate,omitempty"`
	Revision       int64                    `firestore:"revision"`
	CreatedAt      time.Time                `firestore:"createdAt"`
	UpdatedAt      time.Time                `firestore:"updatedAt"`
}

func encodePickupDocument(pickup domain.Pickup) pickupDocument {
	return pickupDocument{
		PickupNumber:   strings.TrimSpace(pickup.PickupNumber),
		BusinessID:     strings.TrimSpace(pickup.BusinessID),
		Status:         pickup.Status,
		StatusCategory: string(pickup.StatusCategory),
		StatusHistory:  encodeStatusHistory(pickup.StatusHistory),
		Stages: pickupStagesDocument{
			Scheduled:      encodeStage(pickup.Stages.Scheduled),
			DriverAssigned: encodeStage(pickup.Stages.DriverAssigned),
			PickedUp:       encodeStage(pickup.Stages.PickedUp),
			InStock:        encodeStage(pickup.Stages.InStock),
			Completed:      encodeStage(pickup.Stages.Completed),
		},
		OrderIDs:      pickup.OrderIDs,
		DriverID:      pickup.DriverID,
		DriverHistory: encodeCourierHistory(pickup.DriverHistory),
		Fees:          pickup.Fees,
		FeesTxnID:     pickup.FeesTxnID,
		CompletedDate: normalizeTimePointer(pickup.CompletedDate),
		Revision:      pickup.Revision,
		CreatedAt:     pickup.CreatedAt.UTC(),
		UpdatedAt:     pickup.UpdatedAt.UTC(),
	}
}

func decodePickupDocument(id string, doc pickupDocument) domain.Pickup {
	return domain.Pickup{
		ID:             id,
		PickupNumber:   doc.PickupNumber,
		BusinessID:     doc.BusinessID,
		Status:         doc.Status,
		StatusCategory: domain.StatusCategory(doc.StatusCategory),
		StatusHistory:  decodeStatusHistory(doc.StatusHistory),
		Stages: domain.PickupStages{
			Scheduled:      decodeStage(doc.Stages.Scheduled),
			DriverAssigned: decodeStage(doc.Stages.DriverAssigned),
			PickedUp:       decodeStage(doc.Stages.PickedUp),
			InStock:        decodeStage(doc.Stages.InStock),
			Completed:      decodeStage(doc.Stages.Completed),
		},
		OrderIDs:      doc.OrderIDs,
		DriverID:      doc.DriverID,
		DriverHistory: decodeCourierHistory(doc.DriverHistory),
		Fees:          doc.Fees,
		FeesTxnID:     doc.FeesTxnID,
		CompletedDate: doc.CompletedDate,
		Revision:      doc.Revision,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}
