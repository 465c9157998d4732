package memory

import (
	"bytes"
	"context"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
)

type blob struct {
	data      []byte
	createdOn time.Time
}

// Backend is an in-memory implementation of the imagecatalog.BlobStore interface
type Backend struct {
	mu         sync.RWMutex
	containers map[string]*container
	now        func() time.Time
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		containers: make(map[string]*container),
		now:        time.Now,
	}
}

// EnsureContainer returns the named container, creating it if needed
func (b *Backend) EnsureContainer(ctx context.Context, name string) (imagecatalog.Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c, exists := b.containers[name]
	if !exists {
		c = &container{name: name, backend: b, blobs: make(map[string]*blob)}
		b.containers[name] = c
	}
	return c, nil
}

type container struct {
	name    string
	backend *Backend
	blobs   map[string]*blob
	order   []string
}

func (c *container) Name() string {
	return c.name
}

// Upload stores a copy of the data. Overwriting keeps the original creation time.
func (c *container) Upload(ctx context.Context, fileName string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()

	if existing, ok := c.blobs[fileName]; ok {
		existing.data = data
		return nil
	}
	c.blobs[fileName] = &blob{data: data, createdOn: c.backend.now().UTC()}
	c.order = append(c.order, fileName)
	return nil
}

func (c *container) Download(ctx context.Context, fileName string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()

	b, exists := c.blobs[fileName]
	if !exists {
		return nil, imagecatalog.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// List yields blobs in upload order from a snapshot taken when iteration starts.
func (c *container) List(ctx context.Context) iter.Seq2[imagecatalog.BlobRef, error] {
	return func(yield func(imagecatalog.BlobRef, error) bool) {
		c.backend.mu.RLock()
		refs := make([]imagecatalog.BlobRef, 0, len(c.order))
		for _, name := range c.order {
			b := c.blobs[name]
			refs = append(refs, imagecatalog.BlobRef{Name: name, CreatedOn: b.createdOn, Size: int64(len(b.data))})
		}
		c.backend.mu.RUnlock()

		for _, ref := range refs {
			if err := ctx.Err(); err != nil {
				yield(imagecatalog.BlobRef{}, err)
				return
			}
			if !yield(ref, nil) {
				return
			}
		}
	}
}
