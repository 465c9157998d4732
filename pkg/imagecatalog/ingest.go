package imagecatalog

import (
	"bytes"
	"context"
	"errors"
	"path"
)

// Ingestion

// SaveImage writes the blob and upserts the record. The two writes are
// independent: both are attempted, neither is rolled back if the other
// fails, and any failures are returned joined together.
func (s *service) SaveImage(ctx context.Context, req SaveImageRequest) (*ImageRecord, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	uploadErr := s.upload(ctx, req.upload())
	rec, saveErr := s.saveMetadata(ctx, req.metadata())
	if err := errors.Join(uploadErr, saveErr); err != nil {
		s.logger.Error("Image ingestion incomplete", "owner", req.Owner, "image_name", req.ImageName,
			"blob_written", uploadErr == nil, "metadata_written", saveErr == nil, "err", err)
		return nil, err
	}

	s.logger.Info("Image saved", "owner", req.Owner, "image_name", req.ImageName, "id", rec.ID)
	return rec, nil
}

// UploadImage writes only the blob.
func (s *service) UploadImage(ctx context.Context, req UploadImageRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	if err := s.upload(ctx, req); err != nil {
		return err
	}
	s.logger.Info("Image uploaded", "owner", req.Owner, "image_name", req.ImageName)
	return nil
}

// SaveImageMetadata upserts only the record.
func (s *service) SaveImageMetadata(ctx context.Context, req SaveImageMetadataRequest) (*ImageRecord, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	rec, err := s.saveMetadata(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Image metadata saved", "owner", req.Owner, "image_name", req.ImageName, "id", rec.ID)
	return rec, nil
}

func (s *service) upload(ctx context.Context, req UploadImageRequest) error {
	name := s.containerFor(req.Owner)
	if SanitizeContainerName(req.Owner) == "" {
		s.logger.Warn("Owner has no usable container name, using default container",
			"owner", req.Owner, "container", name)
	}

	container, err := s.blobs.EnsureContainer(ctx, name)
	if err != nil {
		return blobError("ensure container", name, err)
	}

	fileName := BlobFileName(req.ImageName)
	if err := container.Upload(ctx, fileName, bytes.NewReader(req.ImageBytes)); err != nil {
		return blobError("upload", path.Join(name, fileName), err)
	}
	return nil
}

func (s *service) saveMetadata(ctx context.Context, req SaveImageMetadataRequest) (*ImageRecord, error) {
	rec := req.record()
	saved, err := s.metadata.Upsert(ctx, rec)
	if err != nil {
		return nil, metadataError("upsert", rec.ID, err)
	}
	return saved, nil
}
