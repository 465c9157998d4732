package imagecatalog

import "context"

// Service defines the main interface for the image catalog
type Service interface {
	// Catalog queries
	ListAppImages(ctx context.Context) (*ImageCatalog, error)
	ListUserImages(ctx context.Context, owner string) (*ImageCatalog, error)
	ListUserCategoryImages(ctx context.Context, owner, category string) (*ImageCatalog, error)
	Catalog(ctx context.Context, scope Scope) (*ImageCatalog, error)

	// Ingestion
	SaveImage(ctx context.Context, req SaveImageRequest) (*ImageRecord, error)
	UploadImage(ctx context.Context, req UploadImageRequest) error
	SaveImageMetadata(ctx context.Context, req SaveImageMetadataRequest) (*ImageRecord, error)
}
