package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/dgraph-io/badger/v4"
)

var keyPrefix = []byte("image/")

// Repository implements imagecatalog.MetadataStore on an embedded Badger
// database. Each record is a JSON document keyed by "image/{id}". Queries
// scan the prefix and filter in process, so results are in id order.
type Repository struct {
	db *badger.DB
}

// Open opens (or creates) a database in dir
func Open(dir string) (*Repository, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable badger logging
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return New(db), nil
}

// New wraps an open database
func New(db *badger.DB) *Repository {
	return &Repository{db: db}
}

// Close closes the underlying database
func (r *Repository) Close() error {
	return r.db.Close()
}

func recordKey(id string) []byte {
	return append(append([]byte{}, keyPrefix...), id...)
}

func (r *Repository) Upsert(ctx context.Context, record *imagecatalog.ImageRecord) (*imagecatalog.ImageRecord, error) {
	if record == nil || record.ID == "" {
		return nil, errors.New("record id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := record.Clone()
	stored.ImageBytes = nil
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(stored.ID), data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store record %s: %w", stored.ID, err)
	}
	return stored, nil
}

func (r *Repository) QueryByOwner(ctx context.Context, owner string) ([]*imagecatalog.ImageRecord, error) {
	return r.scan(ctx, func(rec *imagecatalog.ImageRecord) bool {
		return rec.UserName == owner
	})
}

func (r *Repository) QueryByOwnerAndCategory(ctx context.Context, owner, category string) ([]*imagecatalog.ImageRecord, error) {
	return r.scan(ctx, func(rec *imagecatalog.ImageRecord) bool {
		return rec.UserName == owner && rec.Category == category
	})
}

func (r *Repository) QueryAll(ctx context.Context) ([]*imagecatalog.ImageRecord, error) {
	return r.scan(ctx, func(*imagecatalog.ImageRecord) bool { return true })
}

func (r *Repository) scan(ctx context.Context, match func(*imagecatalog.ImageRecord) bool) ([]*imagecatalog.ImageRecord, error) {
	var records []*imagecatalog.ImageRecord
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var rec imagecatalog.ImageRecord
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", item.Key(), err)
			}
			if match(&rec) {
				records = append(records, &rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
