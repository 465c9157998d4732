package imagecatalog

import (
	"fmt"
	"log/slog"
)

// service implements the Service interface
type service struct {
	blobs            BlobStore
	metadata         MetadataStore
	logger           *slog.Logger
	defaultContainer string
	fetchConcurrency int
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithBlobStore sets the object store holding image bytes
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobs = store
	}
}

// WithMetadataStore sets the document store holding image records
func WithMetadataStore(store MetadataStore) Option {
	return func(s *service) {
		s.metadata = store
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultContainer overrides the container used for application-wide
// images and for owners that sanitize to an empty name.
func WithDefaultContainer(name string) Option {
	return func(s *service) {
		if name != "" {
			s.defaultContainer = name
		}
	}
}

// WithFetchConcurrency sets how many matched blobs a catalog query downloads
// at once. Values below 2 keep downloads sequential.
func WithFetchConcurrency(n int) Option {
	return func(s *service) {
		s.fetchConcurrency = n
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		logger:           slog.Default(),
		defaultContainer: DefaultContainer,
		fetchConcurrency: 1,
	}

	for _, option := range options {
		option(s)
	}

	if s.blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.metadata == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if SanitizeContainerName(s.defaultContainer) != s.defaultContainer {
		return nil, fmt.Errorf("default container %q is not a valid container name", s.defaultContainer)
	}

	return s, nil
}

func (s *service) containerFor(owner string) string {
	return ContainerFor(owner, s.defaultContainer)
}
