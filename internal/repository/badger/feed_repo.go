package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

// FeedRepo implements FeedRepository using BadgerDB
type FeedRepo struct {
	db *DB
}

// NewFeedRepo creates a new BadgerDB-based feed repository
func NewFeedRepo(db *DB) *FeedRepo {
	return &FeedRepo{db: db}
}

func feedKey(id string) []byte {
	return []byte(fmt.Sprintf("feed:id:%s", id))
}

// Get retrieves a feed by identity
func (r *FeedRepo) Get(ctx context.Context, id string) (*domain.FeedConfig, error) {
	var feed *domain.FeedConfig
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		feed, err = getFeed(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return feed, nil
}

// Put creates or replaces a feed
func (r *FeedRepo) Put(ctx context.Context, feed *domain.FeedConfig) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return putFeed(txn, feed)
	})
}

// Delete deletes a feed by identity
func (r *FeedRepo) Delete(ctx context.Context, id string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(feedKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrFeedNotFound
			}
			return err
		}
		return txn.Delete(feedKey(id))
	})
}

// List retrieves all feeds
func (r *FeedRepo) List(ctx context.Context) ([]*domain.FeedConfig, error) {
	var feeds []*domain.FeedConfig
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("feed:id:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var feed domain.FeedConfig
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &feed)
			})
			if err == nil {
				feeds = append(feeds, &feed)
			}
		}
		return nil
	})
	return feeds, err
}

// Update applies fn to the stored feed and persists the result atomically
func (r *FeedRepo) Update(ctx context.Context, id string, fn func(feed *domain.FeedConfig) error) (*domain.FeedConfig, error) {
	var updated *domain.FeedConfig
	err := r.db.updateWithRetry(func(txn *badger.Txn) error {
		feed, err := getFeed(txn, id)
		if err != nil {
			return err
		}
		if err := fn(feed); err != nil {
			return err
		}
		feed.UpdatedAt = time.Now().UTC()
		if err := putFeed(txn, feed); err != nil {
			return err
		}
		updated = feed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func getFeed(txn *badger.Txn, id string) (*domain.FeedConfig, error) {
	item, err := txn.Get(feedKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrFeedNotFound
		}
		return nil, err
	}
	var feed domain.FeedConfig
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &feed)
	}); err != nil {
		return nil, err
	}
	return &feed, nil
}

func putFeed(txn *badger.Txn, feed *domain.FeedConfig) error {
	data, err := json.Marshal(feed)
	if err != nil {
		return err
	}
	return txn.Set(feedKey(feed.ID), data)
}
