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
)

const businessesCollection = "businesses"

// BusinessRepository stores merchant accounts.
type BusinessRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[businessDocument]
}

// NewBusinessRepository constructs a Firestore-backed business repository.
func NewBusinessRepository(provider *pfirestore.Provider) (*BusinessRepository, error) {
	if provider == nil {
		return nil, errors.New("business repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[businessDocument](provider, businessesCollection)
	return &BusinessRepository{provider: provider, base: base}, nil
}

// FindByID fetches a single business.
func (r *BusinessRepository) FindByID(ctx context.Context, businessID string) (domain.Business, error) {
	if r == nil || r.base == nil {
		return domain.Business{}, errors.New("business repository not initialised")
	}
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return domain.Business{}, errors.New("business repository: business id is required")
	}
	doc, err := r.base.Get(ctx, businessID)
	if err != nil {
		return domain.Business{}, err
	}
	return decodeBusinessDocument(doc.ID, doc.Data), nil
}

// AdjustBalance applies a delta to the business balance inside a transaction
// and returns the new balance.
func (r *BusinessRepository) AdjustBalance(ctx context.Context, businessID string, delta int64) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("business repository not initialised")
	}
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return 0, errors.New("business repository: business id is required")
	}

	var newBalance int64
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, businessID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var stored businessDocument
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("businesses decode %s: %w", businessID, err)
		}
		newBalance = stored.Balance + delta
		return tx.Update(ref, []firestore.Update{
			{Path: "balance", Value: newBalance},
			{Path: "revision", Value: stored.Revision + 1},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		return 0, pfirestore.WrapError("businesses.adjustBalance", err)
	}
	return newBalance, nil
}

// Document mapping -----------------------------------------------------------

type businessDocument struct {
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email,omitempty"`
	Phone     string    `firestore:"phone,omitempty"`
	City      string    `firestore:"city,omitempty"`
	Balance   int64     `firestore:"balance"`
	FCMToken  string    `firestore:"fcmToken,omitempty"`
	Revision  int64     `firestore:"revision"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func decodeBusinessDocument(id string, doc businessDocument) domain.Business {
	return domain.Business{
		ID:        id,
		Name:      doc.Name,
		Email:     doc.Email,
		Phone:     doc.Phone,
		City:      doc.City,
		Balance:   doc.Balance,
		FCMToken:  doc.FCMToken,
		Revision:  doc.Revision,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
