package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// maxBodyBytes caps an image submission, payload included.
const maxBodyBytes = 32 << 20

// ImageRequest is the request body for the write routes. ImageBytes is
// base64 encoded on the wire.
type ImageRequest struct {
	ID          string `json:"id"`
	UserName    string `json:"userName"`
	Category    string `json:"category"`
	ImageName   string `json:"imageName"`
	ImageBytes  []byte `json:"imageBytes"`
	Description string `json:"description"`
}

// CORSConfig controls cross-origin access to the routes
type CORSConfig struct {
	Enabled        bool
	AllowedOrigins []string
	MaxAge         int
}

// ImageHandler handles HTTP requests for the image catalog
type ImageHandler struct {
	service imagecatalog.Service
	logger  *slog.Logger
}

// NewImageHandler creates a new image handler. A nil logger means slog.Default().
func NewImageHandler(service imagecatalog.Service, logger *slog.Logger) *ImageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageHandler{service: service, logger: logger}
}

// Routes returns the image routes
func (h *ImageHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/PostImage/{userName}", h.PostImage)
	r.Post("/SaveImage/{userName}", h.SaveImage)
	r.Post("/images/{userName}", h.CreateImage)

	r.Get("/GetAppImages", h.GetAppImages)
	r.Get("/GetUserImages/{userName}", h.GetUserImages)
	r.Get("/GetUserTypeImages/{userName}/{category}", h.GetUserTypeImages)

	return r
}

// Router returns the full HTTP handler: common middleware, optional CORS, a
// health probe and the image routes.
func (h *ImageHandler) Router(corsConfig CORSConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if corsConfig.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsConfig.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         corsConfig.MaxAge,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Mount("/", h.Routes())
	return r
}

// PostImage writes only the image blob
func (h *ImageHandler) PostImage(w http.ResponseWriter, r *http.Request) {
	owner, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	err := h.service.UploadImage(r.Context(), imagecatalog.UploadImageRequest{
		Owner:      owner,
		ImageName:  req.ImageName,
		ImageBytes: req.ImageBytes,
	})
	if err != nil {
		h.fail(w, "Failed to upload image", err)
		return
	}

	render.PlainText(w, r, fmt.Sprintf("Image %s uploaded successfully", req.ImageName))
}

// SaveImage writes only the image record
func (h *ImageHandler) SaveImage(w http.ResponseWriter, r *http.Request) {
	owner, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	_, err := h.service.SaveImageMetadata(r.Context(), imagecatalog.SaveImageMetadataRequest{
		Owner:       owner,
		ID:          req.ID,
		UserName:    req.UserName,
		Category:    req.Category,
		ImageName:   req.ImageName,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, "Failed to save image metadata", err)
		return
	}

	render.PlainText(w, r, fmt.Sprintf("Image %s saved successfully", req.ImageName))
}

// CreateImage writes the blob and the record in one request
func (h *ImageHandler) CreateImage(w http.ResponseWriter, r *http.Request) {
	owner, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	rec, err := h.service.SaveImage(r.Context(), imagecatalog.SaveImageRequest{
		Owner:       owner,
		ID:          req.ID,
		UserName:    req.UserName,
		Category:    req.Category,
		ImageName:   req.ImageName,
		Description: req.Description,
		ImageBytes:  req.ImageBytes,
	})
	if err != nil {
		h.fail(w, "Failed to save image", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

// GetAppImages returns every application image
func (h *ImageHandler) GetAppImages(w http.ResponseWriter, r *http.Request) {
	h.catalog(w, r, imagecatalog.Scope{})
}

// GetUserImages returns every image of a user
func (h *ImageHandler) GetUserImages(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.param(w, r, "userName")
	if !ok {
		return
	}
	h.catalog(w, r, imagecatalog.Scope{Owner: owner})
}

// GetUserTypeImages returns the images of a user in one category
func (h *ImageHandler) GetUserTypeImages(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.param(w, r, "userName")
	if !ok {
		return
	}
	category, ok := h.param(w, r, "category")
	if !ok {
		return
	}
	h.catalog(w, r, imagecatalog.Scope{Owner: owner, Category: category})
}

func (h *ImageHandler) catalog(w http.ResponseWriter, r *http.Request, scope imagecatalog.Scope) {
	result, err := h.service.Catalog(r.Context(), scope)
	if err != nil {
		h.fail(w, "Failed to retrieve images", err)
		return
	}
	render.JSON(w, r, result)
}

func (h *ImageHandler) decode(w http.ResponseWriter, r *http.Request) (string, ImageRequest, bool) {
	var req ImageRequest
	owner, ok := h.param(w, r, "userName")
	if !ok {
		return "", req, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Invalid request body", "owner", owner, "err", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return "", req, false
	}
	return owner, req, true
}

func (h *ImageHandler) param(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return "", false
	}
	return value, true
}

// fail maps validation failures to 400 and everything else to 500.
func (h *ImageHandler) fail(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, imagecatalog.ErrValidation) {
		h.logger.Warn(msg, "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.logger.Error(msg, "err", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
