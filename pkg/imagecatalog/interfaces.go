package imagecatalog

import (
	"context"
	"io"
	"iter"
)

// BlobStore defines the interface for object storage backends
type BlobStore interface {
	// EnsureContainer returns a handle to the named container, creating it
	// on first use. Calling it again for the same name is harmless.
	EnsureContainer(ctx context.Context, name string) (Container, error)
}

// Container is a namespace of blobs inside a BlobStore.
type Container interface {
	// Name returns the container name
	Name() string

	// Upload writes a blob, replacing any existing blob with the same name
	Upload(ctx context.Context, fileName string, reader io.Reader) error

	// Download opens a blob for reading. It returns ErrNotFound if the blob
	// does not exist.
	Download(ctx context.Context, fileName string) (io.ReadCloser, error)

	// List enumerates the blobs in the container in no particular order.
	// Pages are fetched as the sequence is consumed. A failure is yielded
	// once as a non-nil error and ends the sequence; to start over, call
	// List again.
	List(ctx context.Context) iter.Seq2[BlobRef, error]
}

// MetadataStore defines the interface for image record persistence
type MetadataStore interface {
	// Upsert creates the record or replaces the stored record with the same ID
	Upsert(ctx context.Context, record *ImageRecord) (*ImageRecord, error)

	// QueryByOwner returns every record whose UserName equals owner
	QueryByOwner(ctx context.Context, owner string) ([]*ImageRecord, error)

	// QueryByOwnerAndCategory returns every record matching both owner and category
	QueryByOwnerAndCategory(ctx context.Context, owner, category string) ([]*ImageRecord, error)

	// QueryAll returns every stored record
	QueryAll(ctx context.Context) ([]*ImageRecord, error)
}
