package imagecatalog

import (
	"encoding/base64"
	"fmt"
	"time"
)

// Catalog labels used when the caller does not ask for a category.
const (
	AppCatalogLabel  = "image"
	UserCatalogLabel = "general"
)

// DefaultContainer holds application-wide images and catches owners whose
// identifier sanitizes to nothing.
const DefaultContainer = "appimages"

// ImageExt is appended to every image name to form its blob file name.
const ImageExt = ".png"

// ImageRecord describes one image. It is the persisted document shape in the
// metadata store and the element type of a catalog.
//
// ImageBytes is always empty at rest; it is filled in only when a record is
// joined with its blob for a query response.
type ImageRecord struct {
	ID            string     `json:"id"`
	UserName      string     `json:"userName"`
	Category      string     `json:"category"`
	ImageName     string     `json:"imageName"`
	ImageBytes    []byte     `json:"imageBytes"`
	Description   string     `json:"description"`
	CreatedOnDate *time.Time `json:"createdOnDate,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *ImageRecord) Clone() *ImageRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.ImageBytes != nil {
		c.ImageBytes = append([]byte{}, r.ImageBytes...)
	}
	if r.CreatedOnDate != nil {
		t := *r.CreatedOnDate
		c.CreatedOnDate = &t
	}
	return &c
}

// ImageURL renders the payload as a data URL. An empty format means image/png.
func (r *ImageRecord) ImageURL(format string) string {
	if format == "" {
		format = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", format, base64.StdEncoding.EncodeToString(r.ImageBytes))
}

// ImageCatalog is the joined result of a catalog query. It is built per
// request and never stored.
type ImageCatalog struct {
	Category string         `json:"category"`
	Images   []*ImageRecord `json:"images"`
}

// BlobRef is a single entry of a container listing.
type BlobRef struct {
	Name      string
	CreatedOn time.Time
	Size      int64
}

// Scope selects which images a catalog query returns. An empty Owner means
// every blob in the default container; Category narrows an owner query.
type Scope struct {
	Owner    string
	Category string
}
