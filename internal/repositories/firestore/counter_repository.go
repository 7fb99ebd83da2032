package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/parcelio/api/internal/platform/firestore"
)

const countersCollection = "counters"

// CounterRepository hands out transaction-safe sequence numbers used for
// order and pickup numbering.
type CounterRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[counterDocument]
}

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[counterDocument](provider, countersCollection)
	return &CounterRepository{provider: provider, base: base}, nil
}

// Next increments the named counter by step and returns the new value. A
// missing counter starts at zero.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("counter repository not initialised")
	}
	counterID = strings.TrimSpace(counterID)
	if counterID == "" {
		return 0, errors.New("counter repository: counter id is required")
	}
	if step <= 0 {
		step = 1
	}

	var next int64
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, counterID)
		if err != nil {
			return err
		}

		var current int64
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var doc counterDocument
			if decodeErr := snap.DataTo(&doc); decodeErr != nil {
				return decodeErr
			}
			current = doc.Value
		case status.Code(err) == codes.NotFound:
			current = 0
		default:
			return err
		}

		next = current + step
		return tx.Set(ref, counterDocument{Value: next})
	})
	if err != nil {
		return 0, pfirestore.WrapError("counters.next", err)
	}
	return next, nil
}

type counterDocument struct {
	Value int64 `firestore:"value"`
}
