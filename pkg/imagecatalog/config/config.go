package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	badgerrepo "github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/repo/badger"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/repo/memory"
	mongorepo "github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/repo/mongo"
	repopg "github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/repo/postgres"
	sqliterepo "github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/repo/sqlite"
	fsstorage "github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/storage/fs"
	memorystorage "github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/storage/memory"
	s3storage "github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/storage/s3"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database types
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
	DatabaseBadger   = "badger"
	DatabaseMongo    = "mongo"
)

// Storage types
const (
	StorageMemory = "memory"
	StorageFS     = "fs"
	StorageS3     = "s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:             "8080",
		Environment:      "development",
		DatabaseType:     DatabaseMemory,
		Storage:          StorageConfig{Type: StorageMemory},
		DefaultContainer: imagecatalog.DefaultContainer,
		FetchConcurrency: 1,
	}
}

// ServerConfig represents configuration for the image catalog service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing
	LogLevel    string // debug, info, warn, error; empty picks by environment

	// CORSAllowedOrigins enables CORS for these origins. Empty means every
	// origin in development and no CORS elsewhere.
	CORSAllowedOrigins []string

	// Metadata store configuration
	DatabaseURL  string // connection string or, for sqlite and badger, a path
	DatabaseType string // "memory", "postgres", "sqlite", "badger", "mongo"
	DBSchema     string // Postgres schema to use (default: the server's search_path)

	// Blob store configuration
	Storage StorageConfig

	// Catalog options
	DefaultContainer string
	FetchConcurrency int
}

// StorageConfig selects and configures the blob store
type StorageConfig struct {
	Type    string // "memory", "fs", "s3"
	BaseDir string // fs only
	S3      s3storage.Config
}

// IsProduction reports whether the environment is production.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabasePostgres, DatabaseSQLite, DatabaseBadger:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when using %s", c.DatabaseType)
		}
	case DatabaseMongo:
		if _, err := mongoDatabase(c.DatabaseURL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageFS:
		if c.Storage.BaseDir == "" {
			return errors.New("filesystem base directory is required")
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("S3 bucket is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if c.DefaultContainer == "" || imagecatalog.SanitizeContainerName(c.DefaultContainer) != c.DefaultContainer {
		return fmt.Errorf("default container %q must be lowercase letters, digits or '-'", c.DefaultContainer)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("fetch concurrency must be at least 1, got: %d", c.FetchConcurrency)
	}

	return nil
}

// BuildService creates a Service from the configuration. The returned
// cleanup function releases database handles and must be called once the
// service is no longer used.
func (c *ServerConfig) BuildService(ctx context.Context, opts ...imagecatalog.Option) (imagecatalog.Service, func(), error) {
	blobs, err := c.buildBlobStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build blob store: %w", err)
	}

	repo, cleanup, err := c.buildRepository(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build metadata store: %w", err)
	}

	options := []imagecatalog.Option{
		imagecatalog.WithBlobStore(blobs),
		imagecatalog.WithMetadataStore(repo),
		imagecatalog.WithDefaultContainer(c.DefaultContainer),
		imagecatalog.WithFetchConcurrency(c.FetchConcurrency),
	}
	svc, err := imagecatalog.New(append(options, opts...)...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

// buildRepository creates a MetadataStore based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context) (imagecatalog.MetadataStore, func(), error) {
	switch c.DatabaseType {
	case DatabaseMemory:
		return memory.New(), func() {}, nil

	case DatabasePostgres:
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		if schema := c.DBSchema; schema != "" {
			cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
				_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
				return err
			}
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		if err := repopg.Migrate(ctx, pool, repopg.DefaultTable); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repopg.NewWithPool(pool), pool.Close, nil

	case DatabaseSQLite:
		repo, err := sqliterepo.Open(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil

	case DatabaseBadger:
		repo, err := badgerrepo.Open(c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil

	case DatabaseMongo:
		database, err := mongoDatabase(c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		repo, disconnect, err := mongorepo.Connect(ctx, c.DatabaseURL, database, mongorepo.DefaultCollection)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = disconnect(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// buildBlobStore creates a BlobStore based on the storage configuration
func (c *ServerConfig) buildBlobStore() (imagecatalog.BlobStore, error) {
	switch c.Storage.Type {
	case StorageMemory:
		return memorystorage.New(), nil
	case StorageFS:
		return fsstorage.New(fsstorage.Config{BaseDir: c.Storage.BaseDir})
	case StorageS3:
		return s3storage.New(c.Storage.S3)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}

// mongoDatabase extracts the database name from the path of a MongoDB URI.
func mongoDatabase(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid mongodb URI: %w", err)
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return "", fmt.Errorf("invalid mongodb URI scheme: %q", u.Scheme)
	}
	database := strings.Trim(u.Path, "/")
	if database == "" {
		return "", errors.New("mongodb URI must name a database, e.g. mongodb://host/whiteboard")
	}
	return database, nil
}
