package imagecatalog

// Request DTOs

// SaveImageRequest contains an image submission for full ingestion: the
// bytes go to the blob store and the descriptive fields to the metadata store.
//
// Owner is the user the request is made for. Empty optional fields are
// filled in as follows: UserName defaults to Owner, then ID defaults to
// "{UserName}-{Category}-{ImageName}".
type SaveImageRequest struct {
	Owner       string `validate:"required"`
	ID          string
	UserName    string
	Category    string
	ImageName   string `validate:"required,excludesall=/\\"`
	Description string
	ImageBytes  []byte `validate:"required,min=1"`
}

// UploadImageRequest contains parameters for writing only the image blob
type UploadImageRequest struct {
	Owner      string `validate:"required"`
	ImageName  string `validate:"required,excludesall=/\\"`
	ImageBytes []byte `validate:"required,min=1"`
}

// SaveImageMetadataRequest contains parameters for writing only the image
// record. Default-fill rules are the same as SaveImageRequest.
type SaveImageMetadataRequest struct {
	Owner       string `validate:"required"`
	ID          string
	UserName    string
	Category    string
	ImageName   string `validate:"required,excludesall=/\\"`
	Description string
}

// record builds the record to persist. The payload is never part of it.
func (r SaveImageMetadataRequest) record() *ImageRecord {
	rec := &ImageRecord{
		ID:          r.ID,
		UserName:    r.UserName,
		Category:    r.Category,
		ImageName:   r.ImageName,
		Description: r.Description,
		ImageBytes:  []byte{},
	}
	if rec.UserName == "" {
		rec.UserName = r.Owner
	}
	if rec.ID == "" {
		rec.ID = RecordID(rec.UserName, rec.Category, rec.ImageName)
	}
	return rec
}

func (r SaveImageRequest) metadata() SaveImageMetadataRequest {
	return SaveImageMetadataRequest{
		Owner:       r.Owner,
		ID:          r.ID,
		UserName:    r.UserName,
		Category:    r.Category,
		ImageName:   r.ImageName,
		Description: r.Description,
	}
}

func (r SaveImageRequest) upload() UploadImageRequest {
	return UploadImageRequest{
		Owner:      r.Owner,
		ImageName:  r.ImageName,
		ImageBytes: r.ImageBytes,
	}
}
