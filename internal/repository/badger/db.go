package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// DB wraps BadgerDB for feed configuration and content storage
type DB struct {
	*badger.DB
}

// New creates a new BadgerDB instance
func New(dbPath string) (*DB, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Disable badger's logger

	return open(opts)
}

// NewInMemory creates a BadgerDB instance that lives only in memory
func NewInMemory() (*DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return open(opts)
}

func open(opts badger.Options) (*DB, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database
func (db *DB) Close() error {
	return db.DB.Close()
}

// HealthCheck checks if the database is healthy
func (db *DB) HealthCheck() error {
	return db.View(func(txn *badger.Txn) error {
		return nil
	})
}

// updateWithRetry runs fn in a read-write transaction, retrying when a
// concurrent transaction committed a conflicting write first.
func (db *DB) updateWithRetry(fn func(txn *badger.Txn) error) error {
	const attempts = 32

	var err error
	for i := 0; i < attempts; i++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
