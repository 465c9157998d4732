package imagecatalog

import (
	"context"
	"io"
	"path"

	"golang.org/x/sync/errgroup"
)

// Catalog queries

func (s *service) Catalog(ctx context.Context, scope Scope) (*ImageCatalog, error) {
	switch {
	case scope.Owner == "" && scope.Category != "":
		return nil, &ValidationError{Field: "Owner", Reason: "is required when a category is given"}
	case scope.Owner == "":
		return s.ListAppImages(ctx)
	case scope.Category == "":
		return s.ListUserImages(ctx, scope.Owner)
	default:
		return s.ListUserCategoryImages(ctx, scope.Owner, scope.Category)
	}
}

// ListAppImages returns every blob of the default container. Metadata is not
// consulted: each blob becomes a record named after the blob itself.
func (s *service) ListAppImages(ctx context.Context) (*ImageCatalog, error) {
	container, err := s.blobs.EnsureContainer(ctx, s.defaultContainer)
	if err != nil {
		return nil, blobError("ensure container", s.defaultContainer, err)
	}

	f := s.newFetcher(ctx, container)
	for ref, err := range container.List(f.ctx) {
		if err != nil {
			return nil, f.abort(blobError("list", container.Name(), err))
		}
		if err := f.add(ref, &ImageRecord{ImageName: ref.Name}); err != nil {
			return nil, f.abort(err)
		}
	}

	images, err := f.wait()
	if err != nil {
		return nil, err
	}
	s.logRetrieved(container.Name(), images)
	return &ImageCatalog{Category: AppCatalogLabel, Images: images}, nil
}

// ListUserImages joins the owner's records with the blobs in the owner's container.
func (s *service) ListUserImages(ctx context.Context, owner string) (*ImageCatalog, error) {
	if owner == "" {
		return nil, &ValidationError{Field: "Owner", Reason: "is required"}
	}
	records, err := s.metadata.QueryByOwner(ctx, owner)
	if err != nil {
		return nil, metadataError("query by owner", owner, err)
	}
	return s.join(ctx, owner, UserCatalogLabel, records)
}

// ListUserCategoryImages is ListUserImages restricted to one category. The
// catalog is labelled with the requested category.
func (s *service) ListUserCategoryImages(ctx context.Context, owner, category string) (*ImageCatalog, error) {
	if owner == "" {
		return nil, &ValidationError{Field: "Owner", Reason: "is required"}
	}
	records, err := s.metadata.QueryByOwnerAndCategory(ctx, owner, category)
	if err != nil {
		return nil, metadataError("query by owner and category", path.Join(owner, category), err)
	}
	return s.join(ctx, owner, category, records)
}

// join matches blobs to records by image name. Blobs without a record are
// skipped; records without a blob never show up because only listed blobs
// are considered. Results follow the blob listing order.
func (s *service) join(ctx context.Context, owner, label string, records []*ImageRecord) (*ImageCatalog, error) {
	index := make(map[string]*ImageRecord, len(records))
	for _, rec := range records {
		if prev, dup := index[rec.ImageName]; dup {
			s.logger.Warn("Duplicate image name for owner, keeping the later record",
				"owner", owner, "image_name", rec.ImageName, "kept_id", rec.ID, "dropped_id", prev.ID)
		}
		index[rec.ImageName] = rec
	}

	name := s.containerFor(owner)
	container, err := s.blobs.EnsureContainer(ctx, name)
	if err != nil {
		return nil, blobError("ensure container", name, err)
	}

	f := s.newFetcher(ctx, container)
	for ref, err := range container.List(f.ctx) {
		if err != nil {
			return nil, f.abort(blobError("list", container.Name(), err))
		}
		rec, ok := index[StripExt(ref.Name)]
		if !ok {
			s.logger.Debug("Skipping blob without metadata", "container", container.Name(), "blob", ref.Name)
			continue
		}
		if err := f.add(ref, rec.Clone()); err != nil {
			return nil, f.abort(err)
		}
	}

	images, err := f.wait()
	if err != nil {
		return nil, err
	}
	s.logRetrieved(container.Name(), images)
	return &ImageCatalog{Category: label, Images: images}, nil
}

func (s *service) logRetrieved(container string, images []*ImageRecord) {
	names := make([]string, len(images))
	for i, img := range images {
		names[i] = img.ImageName
	}
	s.logger.Info("Image data retrieved", "container", container, "count", len(images), "images", names)
}

// fetcher downloads payloads for matched blobs, either inline or through a
// bounded errgroup. The first failure cancels the rest.
type fetcher struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container Container
	group     *errgroup.Group
	images    []*ImageRecord
}

func (s *service) newFetcher(ctx context.Context, container Container) *fetcher {
	f := &fetcher{ctx: ctx, cancel: func() {}, container: container, images: []*ImageRecord{}}
	if s.fetchConcurrency > 1 {
		ctx, f.cancel = context.WithCancel(ctx)
		f.group, f.ctx = errgroup.WithContext(ctx)
		f.group.SetLimit(s.fetchConcurrency)
	}
	return f
}

// add reserves the record's position in the result and fills in its payload
// and creation time from the blob.
func (f *fetcher) add(ref BlobRef, rec *ImageRecord) error {
	f.images = append(f.images, rec)
	if f.group == nil {
		return f.fetch(f.ctx, ref, rec)
	}
	if err := f.ctx.Err(); err != nil {
		return err
	}
	f.group.Go(func() error {
		return f.fetch(f.ctx, ref, rec)
	})
	return nil
}

func (f *fetcher) fetch(ctx context.Context, ref BlobRef, rec *ImageRecord) error {
	key := path.Join(f.container.Name(), ref.Name)
	rc, err := f.container.Download(ctx, ref.Name)
	if err != nil {
		return blobError("download", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return blobError("read", key, err)
	}

	rec.ImageBytes = data
	if !ref.CreatedOn.IsZero() {
		created := ref.CreatedOn
		rec.CreatedOnDate = &created
	}
	return nil
}

func (f *fetcher) wait() ([]*ImageRecord, error) {
	defer f.cancel()
	if f.group != nil {
		if err := f.group.Wait(); err != nil {
			return nil, err
		}
	}
	return f.images, nil
}

// abort cancels outstanding downloads and waits for them. A download failure
// takes precedence over err, since it is usually what ended the listing.
func (f *fetcher) abort(err error) error {
	if f.group == nil {
		return err
	}
	downloadFailed := f.ctx.Err() != nil
	f.cancel()
	if gerr := f.group.Wait(); gerr != nil && downloadFailed {
		return gerr
	}
	return err
}
