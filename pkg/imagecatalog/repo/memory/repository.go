package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
)

// Repository implements imagecatalog.MetadataStore using in-memory storage.
// Query results follow first-insertion order.
type Repository struct {
	mu      sync.RWMutex
	records map[string]*imagecatalog.ImageRecord
	order   []string
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		records: make(map[string]*imagecatalog.ImageRecord),
	}
}

func (r *Repository) Upsert(ctx context.Context, record *imagecatalog.ImageRecord) (*imagecatalog.ImageRecord, error) {
	if record == nil || record.ID == "" {
		return nil, errors.New("record id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Create a copy to avoid external modifications
	stored := record.Clone()
	stored.ImageBytes = nil
	if _, exists := r.records[stored.ID]; !exists {
		r.order = append(r.order, stored.ID)
	}
	r.records[stored.ID] = stored

	return stored.Clone(), nil
}

func (r *Repository) QueryByOwner(ctx context.Context, owner string) ([]*imagecatalog.ImageRecord, error) {
	return r.query(func(rec *imagecatalog.ImageRecord) bool {
		return rec.UserName == owner
	}), nil
}

func (r *Repository) QueryByOwnerAndCategory(ctx context.Context, owner, category string) ([]*imagecatalog.ImageRecord, error) {
	return r.query(func(rec *imagecatalog.ImageRecord) bool {
		return rec.UserName == owner && rec.Category == category
	}), nil
}

func (r *Repository) QueryAll(ctx context.Context) ([]*imagecatalog.ImageRecord, error) {
	return r.query(func(*imagecatalog.ImageRecord) bool { return true }), nil
}

func (r *Repository) query(match func(*imagecatalog.ImageRecord) bool) []*imagecatalog.ImageRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*imagecatalog.ImageRecord
	for _, id := range r.order {
		if rec := r.records[id]; match(rec) {
			result = append(result, rec.Clone())
		}
	}
	return result
}
