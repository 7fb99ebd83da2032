package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/parcelio/api/internal/domain"
	pfirestore "github.com/parcelio/api/internal/platform/firestore"
)

const releasesCollection = "releases"

// ReleaseRepository stores payout aggregates.
type ReleaseRepository struct {
	base *pfirestore.BaseRepository[releaseDocument]
}

// NewReleaseRepository constructs a Firestore-backed release repository.
func NewReleaseRepository(provider *pfirestore.Provider) (*ReleaseRepository, error) {
	if provider == nil {
		return nil, errors.New("release repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[releaseDocument](provider, releasesCollection)
	return &ReleaseRepository{base: base}, nil
}

// Insert stores a new release document.
func (r *ReleaseRepository) Insert(ctx context.Context, release domain.Release) error {
	if r == nil || r.base == nil {
		return errors.New("release repository not initialised")
	}
	releaseID := strings.TrimSpace(release.ID)
	if releaseID == "" {
		return errors.New("release repository: release id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, releaseID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeReleaseDocument(release)); err != nil {
		return pfirestore.WrapError("releases.insert", err)
	}
	return nil
}

// Update replaces the stored release.
func (r *ReleaseRepository) Update(ctx context.Context, release domain.Release) error {
	if r == nil || r.base == nil {
		return errors.New("release repository not initialised")
	}
	releaseID := strings.TrimSpace(release.ID)
	if releaseID == "" {
		return errors.New("release repository: release id is required")
	}
	return r.base.Set(ctx, releaseID, encodeReleaseDocument(release))
}

// FindByID fetches a single release.
func (r *ReleaseRepository) FindByID(ctx context.Context, releaseID string) (domain.Release, error) {
	if r == nil || r.base == nil {
		return domain.Release{}, errors.New("release repository not initialised")
	}
	releaseID = strings.TrimSpace(releaseID)
	if releaseID == "" {
		return domain.Release{}, errors.New("release repository: release id is required")
	}
	doc, err := r.base.Get(ctx, releaseID)
	if err != nil {
		return domain.Release{}, err
	}
	return decodeReleaseDocument(doc.ID, doc.Data), nil
}

// FindOpenForBusinessSince returns the business's newest pending or scheduled
// release created at or after since. The boolean reports whether one exists.
func (r *ReleaseRepository) FindOpenForBusinessSince(ctx context.Context, businessID string, since time.Time) (domain.Release, bool, error) {
	if r == nil || r.base == nil {
		return domain.Release{}, false, errors.New("release repository not initialised")
	}
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return domain.Release{}, false, errors.New("release repository: business id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("businessId", "==", businessID).
			Where("status", "in", []string{string(domain.ReleasePending), string(domain.ReleaseScheduled)}).
			Where("createdAt", ">=", since.UTC()).
			OrderBy("createdAt", firestore.Desc).
			Limit(1)
	})
	if err != nil {
		return domain.Release{}, false, err
	}
	if len(docs) == 0 {
		return domain.Release{}, false, nil
	}
	return decodeReleaseDocument(docs[0].ID, docs[0].Data), true, nil
}

// ListDue returns scheduled releases whose payout date has passed.
func (r *ReleaseRepository) ListDue(ctx context.Context, asOf time.Time) ([]domain.Release, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("release repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("status", "==", string(domain.ReleaseScheduled)).
			Where("scheduledFor", "<=", asOf.UTC()).
			OrderBy("scheduledFor", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	releases := make([]domain.Release, 0, len(docs))
	for _, doc := range docs {
		releases = append(releases, decodeReleaseDocument(doc.ID, doc.Data))
	}
	return releases, nil
}

// Document mapping -----------------------------------------------------------

type releaseDocument struct {
	BusinessID     string     `firestore:"businessId"`
	Status         string     `firestore:"status"`
	Amount         int64      `firestore:"amount"`
	TransactionIDs []string   `firestore:"transactionIds,omitempty"`
	ScheduledFor   *time.Time `firestore:"scheduledFor,omitempty"`
	ReleasedAt     *time.Time `firestore:"releasedAt,omitempty"`
	CreatedAt      time.Time  `firestore:"createdAt"`
	UpdatedAt      time.Time  `firestore:"updatedAt"`
}

func encodeReleaseDocument(release domain.Release) releaseDocument {
	return releaseDocument{
		BusinessID:     strings.TrimSpace(release.BusinessID),
		Status:         string(release.Status),
		Amount:         release.Amount,
		TransactionIDs: release.TransactionIDs,
		ScheduledFor:   normalizeTimePointer(release.ScheduledFor),
		ReleasedAt:     normalizeTimePointer(release.ReleasedAt),
		CreatedAt:      release.CreatedAt.UTC(),
		UpdatedAt:      release.UpdatedAt.UTC(),
	}
}

func decodeReleaseDocument(id string, doc releaseDocument) domain.Release {
	return domain.Release{
		ID:             id,
		BusinessID:     doc.BusinessID,
		Status:         domain.ReleaseStatus(doc.Status),
		Amount:         doc.Amount,
		TransactionIDs: doc.TransactionIDs,
		ScheduledFor:   doc.ScheduledFor,
		ReleasedAt:     doc.ReleasedAt,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}
