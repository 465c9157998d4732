package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/repo/memory"
	memorystorage "github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupImageHandlerTest creates a router over in-memory stores
func setupImageHandlerTest(t *testing.T) (http.Handler, imagecatalog.Service) {
	t.Helper()
	service, err := imagecatalog.New(
		imagecatalog.WithBlobStore(memorystorage.New()),
		imagecatalog.WithMetadataStore(memory.New()),
	)
	require.NoError(t, err)
	return NewImageHandler(service, nil).Router(CORSConfig{}), service
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeCatalog(t *testing.T, rec *httptest.ResponseRecorder) imagecatalog.ImageCatalog {
	t.Helper()
	var catalog imagecatalog.ImageCatalog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	return catalog
}

func TestHealth(t *testing.T) {
	router, _ := setupImageHandlerTest(t)
	rec := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPostImageThenSaveImage(t *testing.T) {
	router, _ := setupImageHandlerTest(t)

	rec := do(t, router, http.MethodPost, "/PostImage/Alice_1", ImageRequest{
		ImageName:  "town",
		ImageBytes: []byte{0x89, 'P', 'N', 'G'},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Image town uploaded successfully", rec.Body.String())

	// Blob without metadata is not listed yet.
	rec = do(t, router, http.MethodGet, "/GetUserImages/Alice_1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCatalog(t, rec).Images)

	rec = do(t, router, http.MethodPost, "/SaveImage/Alice_1", ImageRequest{
		Category:    "map",
		ImageName:   "town",
		Description: "a town",
		ImageBytes:  []byte{1, 2, 3},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Image town saved successfully", rec.Body.String())

	rec = do(t, router, http.MethodGet, "/GetUserTypeImages/Alice_1/map", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	catalog := decodeCatalog(t, rec)
	assert.Equal(t, "map", catalog.Category)
	require.Len(t, catalog.Images, 1)
	img := catalog.Images[0]
	assert.Equal(t, "Alice_1-map-town", img.ID)
	assert.Equal(t, "Alice_1", img.UserName)
	assert.Equal(t, "a town", img.Description)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img.ImageBytes, "payload comes from the blob, not the record")
	assert.NotNil(t, img.CreatedOnDate)
}

func TestCreateImage(t *testing.T) {
	router, _ := setupImageHandlerTest(t)

	rec := do(t, router, http.MethodPost, "/images/bob", ImageRequest{
		ImageName:  "cat",
		ImageBytes: []byte{1},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var saved imagecatalog.ImageRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "bob--cat", saved.ID)
	assert.Empty(t, saved.ImageBytes)

	rec = do(t, router, http.MethodGet, "/GetUserImages/bob", nil)
	catalog := decodeCatalog(t, rec)
	assert.Equal(t, "general", catalog.Category)
	require.Len(t, catalog.Images, 1)
	assert.Equal(t, []byte{1}, catalog.Images[0].ImageBytes)
}

func TestGetAppImages(t *testing.T) {
	router, service := setupImageHandlerTest(t)

	// An owner that sanitizes to nothing writes into the default container.
	require.NoError(t, service.UploadImage(context.Background(), imagecatalog.UploadImageRequest{
		Owner: "__", ImageName: "banner", ImageBytes: []byte{7},
	}))

	rec := do(t, router, http.MethodGet, "/GetAppImages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	catalog := decodeCatalog(t, rec)
	assert.Equal(t, "image", catalog.Category)
	require.Len(t, catalog.Images, 1)
	assert.Equal(t, "banner.png", catalog.Images[0].ImageName)
}

func TestWriteRoutes_BadRequests(t *testing.T) {
	router, _ := setupImageHandlerTest(t)

	tests := []struct {
		name   string
		target string
		body   any
	}{
		{"missing image name", "/images/bob", ImageRequest{ImageBytes: []byte{1}}},
		{"empty payload", "/PostImage/bob", ImageRequest{ImageName: "cat"}},
		{"path in image name", "/SaveImage/bob", ImageRequest{ImageName: "a/b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	t.Run("malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/images/bob", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// failingService fails every catalog query.
type failingService struct {
	imagecatalog.Service
	err error
}

func (s failingService) Catalog(context.Context, imagecatalog.Scope) (*imagecatalog.ImageCatalog, error) {
	return nil, s.err
}

func TestCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"store failure", &imagecatalog.StoreError{Store: "blob", Op: "list", Key: "bob", Err: errors.New("reset")}, http.StatusInternalServerError},
		{"validation failure", &imagecatalog.ValidationError{Field: "Owner", Reason: "is required"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewImageHandler(failingService{err: tt.err}, nil).Router(CORSConfig{})
			rec := do(t, router, http.MethodGet, "/GetUserImages/bob", nil)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.err.Error())
		})
	}
}

func TestCORS(t *testing.T) {
	service, err := imagecatalog.New(
		imagecatalog.WithBlobStore(memorystorage.New()),
		imagecatalog.WithMetadataStore(memory.New()),
	)
	require.NoError(t, err)
	router := NewImageHandler(service, nil).Router(CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://whiteboard.example"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/GetAppImages", nil)
	req.Header.Set("Origin", "https://whiteboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://whiteboard.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
