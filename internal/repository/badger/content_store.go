package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/repository"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// sep separates key parts that may themselves contain ':'
const sep = "\x00"

// ContentStore implements repository.ContentStore using BadgerDB.
//
// Key layout:
//
//	post:id:<id>                     content item JSON
//	meta:<id>\0<key>                 metadata value
//	metaidx:<key>\0<value>\0<id>     reverse metadata index
//	metauniq:<key>\0<value>          owner id of a unique metadata pair
//	asset:id:<id>                    asset JSON
//	asset:owner:<owner>\0<id>        owner index
//	blob:<id>                        asset bytes
//	cat:id:<id> / cat:name:<name>    categories
//	postcat:<id>                     category ids of an item
type ContentStore struct {
	db      *DB
	fetcher repository.AssetFetcher
	logger  *logger.Logger
}

// NewContentStore creates a new BadgerDB-based content store
func NewContentStore(db *DB, fetcher repository.AssetFetcher, logger *logger.Logger) *ContentStore {
	return &ContentStore{
		db:      db,
		fetcher: fetcher,
		logger:  logger.WithComponent("content-store"),
	}
}

func postKey(id string) []byte {
	return []byte("post:id:" + id)
}

func metaKey(id, key string) []byte {
	return []byte("meta:" + id + sep + key)
}

func metaPrefix(id string) []byte {
	return []byte("meta:" + id + sep)
}

func metaUniqKey(key, v string) []byte {
	return []byte("metauniq:" + key + sep + v)
}

func metaIdxPrefix(key, v string) []byte {
	return []byte("metaidx:" + key + sep + v + sep)
}

func assetKey(id string) []byte {
	return []byte("asset:id:" + id)
}

func assetOwnerPrefix(o string) []byte {
	return []byte("asset:owner:" + o + sep)
}

func blobKey(id string) []byte {
	return []byte("blob:" + id)
}

func categoryKey(id string) []byte {
	return []byte("cat:id:" + id)
}

func categoryNameKey(n string) []byte {
	return []byte("cat:name:" + n)
}

func postCategoriesKey(id string) []byte {
	return []byte("postcat:" + id)
}

// LookupByMetadata returns the ids of items carrying key=value
func (s *ContentStore) LookupByMetadata(ctx context.Context, key, value string) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		ids = scanKeys(txn, metaIdxPrefix(key, value))
		return nil
	})
	return ids, err
}

// Create stores a new content item
func (s *ContentStore) Create(ctx context.Context, draft *domain.ContentDraft) (string, error) {
	if strings.TrimSpace(draft.Title) == "" && strings.TrimSpace(draft.Body) == "" {
		return "", fmt.Errorf("%w: content and title are empty", domain.ErrInvalidContent)
	}

	item := &domain.ContentItem{
		ID:        uuid.New().String(),
		Title:     draft.Title,
		Body:      draft.Body,
		Status:    draft.Status,
		Type:      draft.Type,
		AuthorID:  draft.AuthorID,
		Published: draft.Published.UTC(),
		Modified:  time.Now().UTC(),
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, postKey(item.ID), item)
	})
	if err != nil {
		return "", fmt.Errorf("failed to create content item: %w", err)
	}
	return item.ID, nil
}

// Get retrieves a content item by id
func (s *ContentStore) Get(ctx context.Context, id string) (*domain.ContentItem, error) {
	var item *domain.ContentItem
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		item, err = getPost(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Update rewrites title and body of an existing item
func (s *ContentStore) Update(ctx context.Context, id, title, body string, modified time.Time) error {
	return s.db.updateWithRetry(func(txn *badger.Txn) error {
		item, err := getPost(txn, id)
		if err != nil {
			return err
		}
		item.Title = title
		item.Body = body
		item.Modified = modified.UTC()
		return putJSON(txn, postKey(id), item)
	})
}

// Delete removes an item with its metadata, category links and owned assets
func (s *ContentStore) Delete(ctx context.Context, id string) error {
	return s.db.updateWithRetry(func(txn *badger.Txn) error {
		if _, err := getPost(txn, id); err != nil {
			return err
		}

		for _, key := range scanKeys(txn, metaPrefix(id)) {
			value, err := getString(txn, metaKey(id, key))
			if err != nil {
				return err
			}
			if err := s.unindex(txn, id, key, value); err != nil {
				return err
			}
			if err := txn.Delete(metaKey(id, key)); err != nil {
				return err
			}
		}

		for _, assetID := range scanKeys(txn, assetOwnerPrefix(id)) {
			for _, k := range [][]byte{assetKey(assetID), blobKey(assetID), append(assetOwnerPrefix(id), assetID...)} {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
		}

		if err := txn.Delete(postCategoriesKey(id)); err != nil {
			return err
		}
		return txn.Delete(postKey(id))
	})
}

// SetMetadata writes key=value on an item
func (s *ContentStore) SetMetadata(ctx context.Context, id, key, value string, unique bool) error {
	return s.db.updateWithRetry(func(txn *badger.Txn) error {
		if _, err := getPost(txn, id); err != nil {
			return err
		}

		if unique {
			owner, err := getString(txn, metaUniqKey(key, value))
			if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err == nil && owner != id {
				return domain.ErrDuplicateIdentity
			}
			for _, other := range scanKeys(txn, metaIdxPrefix(key, value)) {
				if other != id {
					return domain.ErrDuplicateIdentity
				}
			}
		}

		old, err := getString(txn, metaKey(id, key))
		switch {
		case err == nil:
			if err := s.unindex(txn, id, key, old); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		if err := txn.Set(metaKey(id, key), []byte(value)); err != nil {
			return err
		}
		if err := txn.Set(append(metaIdxPrefix(key, value), id...), nil); err != nil {
			return err
		}
		if unique {
			return txn.Set(metaUniqKey(key, value), []byte(id))
		}
		return nil
	})
}

// GetMetadata returns the value of key, or "" when unset
func (s *ContentStore) GetMetadata(ctx context.Context, id, key string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		v, err := getString(txn, metaKey(id, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		value = v
		return err
	})
	return value, err
}

// DeleteMetadata removes key from an item
func (s *ContentStore) DeleteMetadata(ctx context.Context, id, key string) error {
	return s.db.updateWithRetry(func(txn *badger.Txn) error {
		old, err := getString(txn, metaKey(id, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.unindex(txn, id, key, old); err != nil {
			return err
		}
		return txn.Delete(metaKey(id, key))
	})
}

func (s *ContentStore) unindex(txn *badger.Txn, id, key, value string) error {
	if err := txn.Delete(append(metaIdxPrefix(key, value), id...)); err != nil {
		return err
	}
	owner, err := getString(txn, metaUniqKey(key, value))
	if err == nil && owner == id {
		return txn.Delete(metaUniqKey(key, value))
	}
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return nil
}

// SideloadImage downloads url and stores it as an asset owned by ownerID
func (s *ContentStore) SideloadImage(ctx context.Context, url, ownerID string) (string, error) {
	if _, err := s.Get(ctx, ownerID); err != nil {
		return "", err
	}

	data, contentType, err := s.fetcher.GetAsset(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = mimetype.Detect(data).String()
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: %s is not an image (%s)", domain.ErrInvalidContent, url, contentType)
	}

	asset := &domain.Asset{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		SourceURL:   url,
		ContentType: contentType,
		Size:        len(data),
		CreatedAt:   time.Now().UTC(),
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := putJSON(txn, assetKey(asset.ID), asset); err != nil {
			return err
		}
		if err := txn.Set(blobKey(asset.ID), data); err != nil {
			return err
		}
		return txn.Set(append(assetOwnerPrefix(ownerID), asset.ID...), nil)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	s.logger.Debug("Sideloaded image", "owner_id", ownerID, "asset_id", asset.ID, "size", asset.Size)
	return asset.ID, nil
}

// GetAsset returns an asset and its bytes
func (s *ContentStore) GetAsset(ctx context.Context, id string) (*domain.Asset, []byte, error) {
	var (
		asset domain.Asset
		data  []byte
	)
	err := s.db.View(func(txn *badger.Txn) error {
		if err := getJSON(txn, assetKey(id), &asset); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrAssetNotFound
			}
			return err
		}
		item, err := txn.Get(blobKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &asset, data, nil
}

// SetFeaturedImage marks an asset as the item's featured image
func (s *ContentStore) SetFeaturedImage(ctx context.Context, ownerID, assetID string) error {
	return s.db.updateWithRetry(func(txn *badger.Txn) error {
		item, err := getPost(txn, ownerID)
		if err != nil {
			return err
		}
		if assetID != "" {
			if _, err := txn.Get(assetKey(assetID)); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return domain.ErrAssetNotFound
				}
				return err
			}
		}
		item.Featured = assetID
		return putJSON(txn, postKey(ownerID), item)
	})
}

// ResolveOrCreateCategory returns the id of the category with exactly this name
func (s *ContentStore) ResolveOrCreateCategory(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: category name is empty", domain.ErrInvalidInput)
	}

	var id string
	err := s.db.updateWithRetry(func(txn *badger.Txn) error {
		existing, err := getString(txn, categoryNameKey(name))
		if err == nil {
			id = existing
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		cat := &domain.Category{ID: uuid.New().String(), Name: name}
		if err := putJSON(txn, categoryKey(cat.ID), cat); err != nil {
			return err
		}
		id = cat.ID
		return txn.Set(categoryNameKey(name), []byte(cat.ID))
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// SetCategories replaces the item's category set
func (s *ContentStore) SetCategories(ctx context.Context, ownerID string, categoryIDs []string) error {
	seen := make(map[string]bool, len(categoryIDs))
	ids := make([]string, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	return s.db.updateWithRetry(func(txn *badger.Txn) error {
		if _, err := getPost(txn, ownerID); err != nil {
			return err
		}
		return putJSON(txn, postCategoriesKey(ownerID), ids)
	})
}

// GetCategories returns the item's category ids
func (s *ContentStore) GetCategories(ctx context.Context, ownerID string) ([]string, error) {
	ids := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		err := getJSON(txn, postCategoriesKey(ownerID), &ids)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	return ids, err
}

// CategoryNames resolves category ids to names, skipping unknown ids
func (s *ContentStore) CategoryNames(ctx context.Context, categoryIDs []string) ([]string, error) {
	names := make([]string, 0, len(categoryIDs))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range categoryIDs {
			var cat domain.Category
			err := getJSON(txn, categoryKey(id), &cat)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			names = append(names, cat.Name)
		}
		return nil
	})
	return names, err
}

func getPost(txn *badger.Txn, id string) (*domain.ContentItem, error) {
	var item domain.ContentItem
	if err := getJSON(txn, postKey(id), &item); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrContentNotFound
		}
		return nil, err
	}
	return &item, nil
}

func getJSON(txn *badger.Txn, key []byte, v interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func putJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// scanKeys returns the key suffixes under prefix
func scanKeys(txn *badger.Txn, prefix []byte) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		out = append(out, string(it.Item().Key()[len(prefix):]))
	}
	return out
}
