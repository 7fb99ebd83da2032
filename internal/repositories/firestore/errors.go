package firestore

import (
	"fmt"

	pfirestore "github.com/parcelio/api/internal/platform/firestore"
)

func notFound(collection, key string) error {
	return pfirestore.NewNotFoundError(collection+".get", fmt.Errorf("document %q not found", key))
}

func revisionConflict(collection, id string, expected, stored int64) error {
	return pfirestore.NewConflictError(collection+".update",
		fmt.Errorf("document %q revision changed: loaded %d, stored %d", id, expected, stored))
}
