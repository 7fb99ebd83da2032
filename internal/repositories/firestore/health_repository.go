package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/parcelio/api/internal/platform/firestore"
)

// HealthRepository reports the reachability of the Firestore backend.
type HealthRepository struct {
	provider *pfirestore.Provider
}

// NewHealthRepository constructs a health repository on the shared provider.
func NewHealthRepository(provider *pfirestore.Provider) (*HealthRepository, error) {
	if provider == nil {
		return nil, errors.New("health repository: firestore provider is required")
	}
	return &HealthRepository{provider: provider}, nil
}

// Collect attempts to obtain the Firestore client and reports the outcome.
func (r *HealthRepository) Collect(ctx context.Context) (map[string]string, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("health repository not initialised")
	}
	statuses := map[string]string{}
	if _, err := r.provider.Client(ctx); err != nil {
		statuses["firestore"] = "unavailable: " + err.Error()
		return statuses, nil
	}
	statuses["firestore"] = "ok"
	return statuses, nil
}
