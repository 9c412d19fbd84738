package importer

import (
	"context"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/repository"
)

// DuplicateDetector finds already imported items by their identity metadata
type DuplicateDetector struct {
	store repository.ContentStore
}

// NewDuplicateDetector creates a new duplicate detector
func NewDuplicateDetector(store repository.ContentStore) *DuplicateDetector {
	return &DuplicateDetector{store: store}
}

// IsDuplicate reports whether any content item carries identity
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, identity string) (bool, error) {
	_, found, err := d.Find(ctx, identity)
	return found, err
}

// Find returns the first content item carrying identity
func (d *DuplicateDetector) Find(ctx context.Context, identity string) (string, bool, error) {
	ids, err := d.store.LookupByMetadata(ctx, domain.MetaItemIdentity, identity)
	if err != nil {
		return "", false, err
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}
